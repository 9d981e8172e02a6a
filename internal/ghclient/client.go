// Package ghclient wraps the GitHub deployments API: listing deployments,
// resolving their latest status, deactivating them and deleting them.
//
// List, Deactivate and Delete never return errors. Failures are logged and
// reported as an empty listing or false, so callers only branch on
// populated-versus-empty or success-versus-failure.
package ghclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultAPIURL is the public GitHub REST API.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 30 * time.Second
)

// Client talks to the deployments endpoints of the GitHub REST API.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

type options struct {
	apiURL     string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithAPIURL points the client at a different API root (GitHub Enterprise or
// a test server).
func WithAPIURL(apiURL string) Option {
	return func(o *options) {
		o.apiURL = apiURL
	}
}

// WithHTTPClient sets the base HTTP client wrapped by the token transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a client authenticated with a static bearer token. An empty
// token yields an unauthenticated client.
func New(token string, opts ...Option) (*Client, error) {
	o := &options{
		apiURL:  DefaultAPIURL,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	base := o.httpClient
	if base == nil {
		base = &http.Client{}
	}

	copied := *base
	hc := &copied
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		hc = oauth2.NewClient(ctx, ts)
	}
	hc.Timeout = o.timeout

	gh := github.NewClient(hc)

	apiURL, err := parseAPIURL(o.apiURL)
	if err != nil {
		return nil, err
	}
	gh.BaseURL = apiURL

	return &Client{gh: gh, logger: o.logger}, nil
}

// parseAPIURL validates the API root and adds the trailing slash go-github
// requires.
func parseAPIURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q: missing host", raw)
	}
	return u, nil
}

// List returns the repository's deployments newest first, exactly as GitHub
// orders them. Any failure is logged and yields an empty slice.
func (c *Client) List(ctx context.Context, repo Repo) []Deployment {
	deployments, err := c.ListDeployments(ctx, repo)
	if err != nil {
		c.logger.Error("Failed to fetch deployments", append([]any{"repository", repo.String()}, logAttrs(err)...)...)
		return []Deployment{}
	}
	return deployments
}

// ListDeployments is List with the failure returned as a *TransportError or
// *RemoteError instead of being logged.
func (c *Client) ListDeployments(ctx context.Context, repo Repo) ([]Deployment, error) {
	deployments, resp, err := c.gh.Repositories.ListDeployments(ctx, repo.Owner, repo.Name, nil)
	if err := checkResponse("list deployments", resp, err, http.StatusOK); err != nil {
		return nil, err
	}

	result := make([]Deployment, 0, len(deployments))
	for _, d := range deployments {
		if d == nil {
			continue
		}
		result = append(result, fromGitHub(d))
	}
	return result, nil
}

// Deactivate creates an inactive status for the deployment. It reports true
// only when GitHub answers 201 Created.
func (c *Client) Deactivate(ctx context.Context, repo Repo, id int64) bool {
	if err := c.deactivate(ctx, repo, id); err != nil {
		c.logger.Error("Failed to mark deployment as inactive",
			append([]any{"repository", repo.String(), "deployment_id", id}, logAttrs(err)...)...)
		return false
	}
	c.logger.Info("Deployment marked as inactive", "repository", repo.String(), "deployment_id", id)
	return true
}

func (c *Client) deactivate(ctx context.Context, repo Repo, id int64) error {
	req := &github.DeploymentStatusRequest{
		State: github.String(string(StateInactive)),
	}
	_, resp, err := c.gh.Repositories.CreateDeploymentStatus(ctx, repo.Owner, repo.Name, id, req)
	return checkResponse("mark deployment inactive", resp, err, http.StatusCreated)
}

// Delete removes the deployment. It reports true only when GitHub answers
// 204 No Content. No check is made that the deployment was deactivated
// first; GitHub rejects the call if it was not.
func (c *Client) Delete(ctx context.Context, repo Repo, id int64) bool {
	if err := c.delete(ctx, repo, id); err != nil {
		c.logger.Error("Failed to delete deployment",
			append([]any{"repository", repo.String(), "deployment_id", id}, logAttrs(err)...)...)
		return false
	}
	c.logger.Info("Deployment deleted successfully", "repository", repo.String(), "deployment_id", id)
	return true
}

func (c *Client) delete(ctx context.Context, repo Repo, id int64) error {
	resp, err := c.gh.Repositories.DeleteDeployment(ctx, repo.Owner, repo.Name, id)
	return checkResponse("delete deployment", resp, err, http.StatusNoContent)
}
