package ghclient

import (
	"time"

	"github.com/google/go-github/v57/github"
)

// State is the effective state of a deployment, taken from its most recent
// deployment status.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateQueued     State = "queued"
	StateSuccess    State = "success"
	StateFailure    State = "failure"
	StateError      State = "error"
	StateInactive   State = "inactive"

	// StateUnknown is used when the state could not be resolved.
	StateUnknown State = "unknown"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// Deployment is a snapshot of a GitHub deployment. State is filled in
// locally by ListWithStates and is never sent back to GitHub.
type Deployment struct {
	ID          int64  `json:"id"`
	Ref         string `json:"ref"`
	SHA         string `json:"sha,omitempty"`
	Environment string `json:"environment,omitempty"`
	Description string `json:"description,omitempty"`
	Creator     string `json:"creator,omitempty"`
	CreatedAt   string `json:"created_at"`
	StatusesURL string `json:"statuses_url,omitempty"`
	State       State  `json:"state,omitempty"`
}

func fromGitHub(d *github.Deployment) Deployment {
	dep := Deployment{
		ID:          d.GetID(),
		Ref:         d.GetRef(),
		SHA:         d.GetSHA(),
		Environment: d.GetEnvironment(),
		Description: d.GetDescription(),
		Creator:     d.GetCreator().GetLogin(),
		StatusesURL: d.GetStatusesURL(),
	}
	if d.CreatedAt != nil {
		dep.CreatedAt = d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return dep
}
