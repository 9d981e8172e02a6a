package config

import "testing"

func TestResolve(t *testing.T) {
	cfg := validConfig()

	tests := []struct {
		name      string
		owner     string
		repo      string
		token     string
		wantOwner string
		wantRepo  string
		wantToken string
	}{
		{"defaults", "", "", "", "octocat", "hello-world", "ghp_realtoken123"},
		{"both given", "acme", "site", "", "acme", "site", "ghp_realtoken123"},
		{"owner only is ignored", "acme", "", "", "octocat", "hello-world", "ghp_realtoken123"},
		{"repo only is ignored", "", "site", "", "octocat", "hello-world", "ghp_realtoken123"},
		{"token override", "", "", "ghp_other", "octocat", "hello-world", "ghp_other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.Resolve(tt.owner, tt.repo, tt.token)
			if got.Owner != tt.wantOwner || got.Repo != tt.wantRepo || got.Token != tt.wantToken {
				t.Errorf("Resolve(%q, %q, %q) = %+v", tt.owner, tt.repo, tt.token, got)
			}
		})
	}
}

func TestTarget_Repository(t *testing.T) {
	target := Target{Owner: "octocat", Repo: "hello-world"}

	repo := target.Repository()
	if repo.Owner != "octocat" || repo.Name != "hello-world" {
		t.Errorf("Unexpected repo: %+v", repo)
	}
	if target.String() != "octocat/hello-world" {
		t.Errorf("Expected octocat/hello-world, got %s", target.String())
	}
}

func TestTarget_Validate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{"valid", Target{Owner: "octocat", Repo: "hello-world"}, false},
		{"missing owner", Target{Repo: "hello-world"}, true},
		{"missing repo", Target{Owner: "octocat"}, true},
		{"path traversal", Target{Owner: "octocat", Repo: ".."}, true},
		{"placeholder owner", Target{Owner: "your_user_name", Repo: "hello-world"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
