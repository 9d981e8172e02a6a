package security

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxOwnerLength is GitHub's limit for user and organization logins.
	MaxOwnerLength = 39

	// MaxRepoLength is GitHub's limit for repository names.
	MaxRepoLength = 100
)

var (
	// Safe patterns for validation
	ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
	repoPattern  = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
)

// placeholderValues are the sample values shipped in example .env files.
var placeholderValues = map[string]bool{
	"your_github_token": true,
	"your_user_name":    true,
	"your_repo_name":    true,
	"changeme":          true,
}

// ValidateOwner ensures an owner (user or organization login) is safe to
// place in an API path.
func ValidateOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if len(owner) > MaxOwnerLength {
		return fmt.Errorf("owner too long (maximum %d characters, got %d)", MaxOwnerLength, len(owner))
	}
	if IsPlaceholder(owner) {
		return fmt.Errorf("owner appears to be a placeholder value")
	}
	if strings.Contains(owner, "--") || !ownerPattern.MatchString(owner) {
		return fmt.Errorf("owner contains invalid characters (only a-z, A-Z, 0-9 and single inner '-' allowed)")
	}
	return nil
}

// ValidateRepoName ensures a repository name is safe to place in an API path.
func ValidateRepoName(repo string) error {
	if repo == "" {
		return fmt.Errorf("repository name cannot be empty")
	}
	if len(repo) > MaxRepoLength {
		return fmt.Errorf("repository name too long (maximum %d characters, got %d)", MaxRepoLength, len(repo))
	}
	if repo == "." || repo == ".." {
		return fmt.Errorf("repository name cannot be '.' or '..'")
	}
	if IsPlaceholder(repo) {
		return fmt.Errorf("repository name appears to be a placeholder value")
	}
	if !repoPattern.MatchString(repo) {
		return fmt.Errorf("repository name contains invalid characters (only a-z, A-Z, 0-9, _, ., - allowed)")
	}
	return nil
}

// ParseDeploymentID parses a deployment id taken from a URL or command line.
func ParseDeploymentID(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("deployment id cannot be empty")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("deployment id must be a number, got %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("deployment id must be positive, got %d", id)
	}
	return id, nil
}

// IsPlaceholder reports whether value is one of the sample values from the
// example configuration (case-insensitive).
func IsPlaceholder(value string) bool {
	return placeholderValues[strings.ToLower(value)]
}
