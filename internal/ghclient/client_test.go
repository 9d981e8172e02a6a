package ghclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var testRepo = Repo{Owner: "octo", Name: "app"}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient starts a fake GitHub API backed by mux and returns a client
// pointed at it.
func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New("test-token", WithAPIURL(srv.URL), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestList_PreservesRemoteOrder(t *testing.T) {
	mux := http.NewServeMux()
	var gotAuth string
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `[
			{"id": 3, "ref": "main", "sha": "ccc", "environment": "production", "created_at": "2024-03-01T10:00:00Z", "statuses_url": "https://example.test/3", "creator": {"login": "octocat"}},
			{"id": 1, "ref": "feature", "created_at": "2024-02-01T10:00:00Z", "statuses_url": "https://example.test/1"},
			{"id": 2, "ref": "main", "created_at": "2024-01-01T10:00:00Z"}
		]`)
	})
	client, _ := newTestClient(t, mux)

	deployments := client.List(context.Background(), testRepo)

	if len(deployments) != 3 {
		t.Fatalf("Expected 3 deployments, got %d", len(deployments))
	}

	// No local reordering: ids come back exactly as delivered
	wantIDs := []int64{3, 1, 2}
	for i, want := range wantIDs {
		if deployments[i].ID != want {
			t.Errorf("deployments[%d].ID = %d, want %d", i, deployments[i].ID, want)
		}
	}

	first := deployments[0]
	if first.Ref != "main" || first.SHA != "ccc" || first.Environment != "production" {
		t.Errorf("Unexpected fields on first deployment: %+v", first)
	}
	if first.Creator != "octocat" {
		t.Errorf("Expected creator octocat, got %q", first.Creator)
	}
	if first.CreatedAt != "2024-03-01T10:00:00Z" {
		t.Errorf("Expected created_at 2024-03-01T10:00:00Z, got %q", first.CreatedAt)
	}
	if first.StatusesURL != "https://example.test/3" {
		t.Errorf("Expected statuses_url to be kept, got %q", first.StatusesURL)
	}
	if first.State != "" {
		t.Errorf("List should not resolve state, got %q", first.State)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Expected bearer token header, got %q", gotAuth)
	}
}

func TestList_SendsVersionedAcceptHeader(t *testing.T) {
	mux := http.NewServeMux()
	var gotAccept string
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		writeJSON(w, http.StatusOK, `[]`)
	})
	client, _ := newTestClient(t, mux)

	client.List(context.Background(), testRepo)

	if !strings.Contains(gotAccept, "application/vnd.github") {
		t.Errorf("Expected GitHub JSON media type in Accept header, got %q", gotAccept)
	}
}

func TestList_RemoteErrorDegradesToEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "Not Found"}`)
	})
	client, _ := newTestClient(t, mux)

	deployments := client.List(context.Background(), testRepo)
	if deployments == nil {
		t.Fatal("Expected empty non-nil slice on failure")
	}
	if len(deployments) != 0 {
		t.Errorf("Expected no deployments on failure, got %d", len(deployments))
	}

	_, err := client.ListDeployments(context.Background(), testRepo)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Expected *RemoteError, got %T: %v", err, err)
	}
	if remote.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", remote.StatusCode)
	}
	if !strings.Contains(remote.Body, "Not Found") {
		t.Errorf("Expected body to carry the GitHub message, got %q", remote.Body)
	}
}

func TestListDeployments_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	apiURL := srv.URL
	srv.Close()

	client, err := New("test-token", WithAPIURL(apiURL), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.ListDeployments(context.Background(), testRepo)
	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}

	if got := client.List(context.Background(), testRepo); len(got) != 0 {
		t.Errorf("Expected empty listing on transport failure, got %d", len(got))
	}
}

func TestDeactivate(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"created", http.StatusCreated, `{"id": 1, "state": "inactive"}`, true},
		{"validation failed", http.StatusUnprocessableEntity, `{"message": "Validation Failed"}`, false},
		{"ok is not created", http.StatusOK, `{"id": 1, "state": "inactive"}`, false},
		{"not found", http.StatusNotFound, `{"message": "Not Found"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			var gotState string
			mux.HandleFunc("POST /repos/octo/app/deployments/5/statuses", func(w http.ResponseWriter, r *http.Request) {
				var payload map[string]interface{}
				if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
					gotState, _ = payload["state"].(string)
				}
				writeJSON(w, tt.status, tt.body)
			})
			client, _ := newTestClient(t, mux)

			got := client.Deactivate(context.Background(), testRepo, 5)
			if got != tt.want {
				t.Errorf("Deactivate() = %v, want %v", got, tt.want)
			}
			if gotState != "inactive" {
				t.Errorf("Expected request body state 'inactive', got %q", gotState)
			}
		})
	}
}

func TestDeactivate_RemoteErrorDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/octo/app/deployments/7/statuses", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"message": "Validation Failed"}`)
	})
	client, _ := newTestClient(t, mux)

	err := client.deactivate(context.Background(), testRepo, 7)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Expected *RemoteError, got %T: %v", err, err)
	}
	if remote.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", remote.StatusCode)
	}
	if !strings.Contains(remote.Body, "Validation Failed") {
		t.Errorf("Expected body to contain 'Validation Failed', got %q", remote.Body)
	}
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"no content", http.StatusNoContent, "", true},
		{"still active", http.StatusUnprocessableEntity, `{"message": "We cannot delete an active deployment unless it is the only deployment in a given environment."}`, false},
		{"ok is not no content", http.StatusOK, `{}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			calls := 0
			mux.HandleFunc("DELETE /repos/octo/app/deployments/5", func(w http.ResponseWriter, r *http.Request) {
				calls++
				if tt.status == http.StatusNoContent {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				writeJSON(w, tt.status, tt.body)
			})
			client, _ := newTestClient(t, mux)

			got := client.Delete(context.Background(), testRepo, 5)
			if got != tt.want {
				t.Errorf("Delete() = %v, want %v", got, tt.want)
			}
			if calls != 1 {
				t.Errorf("Expected exactly 1 delete request, got %d", calls)
			}
		})
	}
}

func TestNew_InvalidAPIURL(t *testing.T) {
	tests := []string{
		"ftp://github.example.com/api/v3",
		"not a url",
		"https://",
	}

	for _, apiURL := range tests {
		t.Run(apiURL, func(t *testing.T) {
			if _, err := New("token", WithAPIURL(apiURL)); err == nil {
				t.Errorf("Expected error for API URL %q", apiURL)
			}
		})
	}
}

func TestNew_EnterpriseAPIURL(t *testing.T) {
	mux := http.NewServeMux()
	hits := 0
	mux.HandleFunc("GET /api/v3/repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		hits++
		writeJSON(w, http.StatusOK, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	// No trailing slash on purpose
	client, err := New("token", WithAPIURL(fmt.Sprintf("%s/api/v3", srv.URL)), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	if _, err := client.ListDeployments(context.Background(), testRepo); err != nil {
		t.Fatalf("ListDeployments() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("Expected request under /api/v3, got %d hits", hits)
	}
}
