package ghclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 64 << 10

// TransportError means the request could not be sent or no response came back.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError means GitHub answered with a status code other than the one
// the operation expects.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// checkResponse maps a go-github call result onto the error taxonomy. Only
// the exact want status counts as success.
func checkResponse(op string, resp *github.Response, err error, want int) error {
	if resp == nil || resp.Response == nil {
		if err == nil {
			err = errors.New("no response received")
		}
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode != want {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: responseBody(resp.Response, err)}
	}

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// responseBody returns the raw error body when go-github left it readable,
// falling back to the decoded error message.
func responseBody(resp *http.Response, err error) string {
	if resp.Body != nil {
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil && len(data) > 0 {
			return string(data)
		}
	}

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// logAttrs flattens err into slog key/value pairs, exposing status code and
// body for remote errors.
func logAttrs(err error) []any {
	attrs := []any{"error", err}

	var remote *RemoteError
	if errors.As(err, &remote) {
		attrs = append(attrs, "status_code", remote.StatusCode)
		if remote.Body != "" {
			attrs = append(attrs, "body", remote.Body)
		}
	}
	return attrs
}
