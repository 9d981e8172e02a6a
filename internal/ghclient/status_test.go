package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestResolveState(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   State
	}{
		{"latest status wins", http.StatusOK, `[{"state": "success"}, {"state": "failure"}]`, StateSuccess},
		{"inactive", http.StatusOK, `[{"state": "inactive"}, {"state": "success"}]`, StateInactive},
		{"no statuses yet", http.StatusOK, `[]`, StatePending},
		{"empty state on latest", http.StatusOK, `[{"id": 1}]`, StatePending},
		{"server error", http.StatusInternalServerError, `{"message": "boom"}`, StateUnknown},
		{"not found", http.StatusNotFound, `{"message": "Not Found"}`, StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /repos/octo/app/deployments/1/statuses", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			client, srv := newTestClient(t, mux)

			got := client.ResolveState(context.Background(), srv.URL+"/repos/octo/app/deployments/1/statuses")
			if got != tt.want {
				t.Errorf("ResolveState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveState_MissingURL(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, `[]`)
	})
	client, _ := newTestClient(t, mux)

	if got := client.ResolveState(context.Background(), ""); got != StateUnknown {
		t.Errorf("ResolveState(\"\") = %q, want %q", got, StateUnknown)
	}
	if hits.Load() != 0 {
		t.Errorf("Expected no request for a missing statuses_url, got %d", hits.Load())
	}
}

func TestListWithStates_MixedOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fmt.Sprintf(`[
			{"id": 1, "ref": "main", "statuses_url": "%[1]s/statuses/1"},
			{"id": 2, "ref": "main", "statuses_url": "%[1]s/statuses/2"},
			{"id": 3, "ref": "main", "statuses_url": "%[1]s/statuses/3"},
			{"id": 4, "ref": "main"}
		]`, srvURL))
	})
	mux.HandleFunc("GET /statuses/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"state": "success"}]`)
	})
	mux.HandleFunc("GET /statuses/2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	mux.HandleFunc("GET /statuses/3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"message": "bad gateway"}`)
	})
	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	deployments := client.ListWithStates(context.Background(), testRepo)

	want := map[int64]State{
		1: StateSuccess,
		2: StatePending,
		3: StateUnknown,
		4: StateUnknown,
	}
	if len(deployments) != len(want) {
		t.Fatalf("Expected %d deployments, got %d", len(want), len(deployments))
	}
	for _, d := range deployments {
		if d.State != want[d.ID] {
			t.Errorf("Deployment %d state = %q, want %q", d.ID, d.State, want[d.ID])
		}
	}
}

// Status lookups are forced to finish in reverse listing order; every
// deployment must still get the state of its own statuses_url.
func TestListWithStates_ReverseCompletionOrder(t *testing.T) {
	const n = 4
	states := []string{"success", "failure", "inactive", "queued"}

	done := make([]chan struct{}, n+1)
	for i := range done {
		done[i] = make(chan struct{})
	}
	// Nothing waits behind the last deployment
	close(done[n])

	var mu sync.Mutex
	var completion []int

	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		body := "["
		for i := 0; i < n; i++ {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"id": %d, "ref": "main", "statuses_url": "%s/statuses/%d"}`, i+1, srvURL, i)
		}
		body += "]"
		writeJSON(w, http.StatusOK, body)
	})
	for i := 0; i < n; i++ {
		mux.HandleFunc(fmt.Sprintf("GET /statuses/%d", i), func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-done[i+1]:
			case <-time.After(2 * time.Second):
			}
			writeJSON(w, http.StatusOK, fmt.Sprintf(`[{"state": %q}]`, states[i]))

			mu.Lock()
			completion = append(completion, i)
			mu.Unlock()
			close(done[i])
		})
	}
	client, srv := newTestClient(t, mux)
	srvURL = srv.URL

	deployments := client.ListWithStates(context.Background(), testRepo)

	if len(deployments) != n {
		t.Fatalf("Expected %d deployments, got %d", n, len(deployments))
	}
	for i, d := range deployments {
		if d.ID != int64(i+1) {
			t.Errorf("deployments[%d].ID = %d, want %d", i, d.ID, i+1)
		}
		if d.State != State(states[i]) {
			t.Errorf("Deployment %d state = %q, want %q", d.ID, d.State, states[i])
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range completion {
		if want := n - 1 - i; got != want {
			t.Errorf("Expected lookups to complete in reverse order, got %v", completion)
			break
		}
	}
}

func TestListWithStates_EmptyListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/app/deployments", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	client, _ := newTestClient(t, mux)

	deployments := client.ListWithStates(context.Background(), testRepo)
	if deployments == nil || len(deployments) != 0 {
		t.Errorf("Expected empty non-nil listing, got %v", deployments)
	}
}
