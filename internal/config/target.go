package config

import (
	"fmt"

	"deployclean/internal/ghclient"
	"deployclean/internal/security"
)

// Target is the repository and credentials a single operation runs against.
type Target struct {
	Owner string
	Repo  string
	Token string
}

// Resolve builds the target for one call. The given owner and repo replace
// the configured defaults only when both are non-empty; a lone owner or repo
// is ignored. A non-empty token replaces the configured token.
func (c *Config) Resolve(owner, repo, token string) Target {
	t := Target{Owner: c.Owner, Repo: c.Repo, Token: c.GitHubToken}
	if owner != "" && repo != "" {
		t.Owner = owner
		t.Repo = repo
	}
	if token != "" {
		t.Token = token
	}
	return t
}

// Repository returns the target as a ghclient.Repo.
func (t Target) Repository() ghclient.Repo {
	return ghclient.Repo{Owner: t.Owner, Name: t.Repo}
}

func (t Target) String() string {
	return t.Owner + "/" + t.Repo
}

// Validate checks that owner and repo are present and safe for an API path.
func (t Target) Validate() error {
	if err := security.ValidateOwner(t.Owner); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	if err := security.ValidateRepoName(t.Repo); err != nil {
		return fmt.Errorf("invalid repository: %w", err)
	}
	return nil
}
