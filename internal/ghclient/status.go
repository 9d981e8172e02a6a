package ghclient

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/go-github/v57/github"
)

// ResolveState fetches the statuses behind statusesURL and returns the state
// of the most recent one. No statuses yet means pending; a missing URL or a
// failed lookup means unknown.
func (c *Client) ResolveState(ctx context.Context, statusesURL string) State {
	if statusesURL == "" {
		return StateUnknown
	}

	state, err := c.latestState(ctx, statusesURL)
	if err != nil {
		c.logger.Error("Failed to fetch deployment status", append([]any{"url", statusesURL}, logAttrs(err)...)...)
		return StateUnknown
	}
	return state
}

func (c *Client) latestState(ctx context.Context, statusesURL string) (State, error) {
	req, err := c.gh.NewRequest(http.MethodGet, statusesURL, nil)
	if err != nil {
		return StateUnknown, &TransportError{Op: "list deployment statuses", Err: err}
	}

	var statuses []*github.DeploymentStatus
	resp, err := c.gh.Do(ctx, req, &statuses)
	if err := checkResponse("list deployment statuses", resp, err, http.StatusOK); err != nil {
		return StateUnknown, err
	}

	// GitHub returns statuses newest first.
	if len(statuses) == 0 || statuses[0].GetState() == "" {
		return StatePending, nil
	}
	return State(statuses[0].GetState()), nil
}

// ListWithStates lists the repository's deployments and resolves each one's
// state. Lookups run concurrently; each writes only its own slot, so states
// never move between deployments whatever order the lookups finish in.
func (c *Client) ListWithStates(ctx context.Context, repo Repo) []Deployment {
	deployments := c.List(ctx, repo)

	var wg sync.WaitGroup
	for i := range deployments {
		wg.Add(1)
		go func(d *Deployment) {
			defer wg.Done()
			d.State = c.ResolveState(ctx, d.StatusesURL)
		}(&deployments[i])
	}
	wg.Wait()

	return deployments
}
