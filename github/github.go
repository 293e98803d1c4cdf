package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrUnprocessable is returned when the platform rejects a request with
// 422, typically because a pull request for the head branch already
// exists. Callers retry index allocation on this error.
var ErrUnprocessable = errors.New("unprocessable request")

// RemoteRejectError wraps any other non-2xx response from the platform.
type RemoteRejectError struct {
	Status int
	Body   string
	Err    error
}

func (e *RemoteRejectError) Error() string {
	return fmt.Sprintf("remote rejected request (status %d): %s", e.Status, e.Body)
}

func (e *RemoteRejectError) Unwrap() error { return e.Err }

// PullRequest is the platform state of one stack entry.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	HeadRef string
	BaseRef string
	URL     string
	Closed  bool
}

// RepoInfo is the once-per-run repository metadata.
type RepoInfo struct {
	// ID is the platform's opaque repository id.
	ID string

	// DefaultBranch is the branch pull requests land into. Queried
	// dynamically since it may be renamed.
	DefaultBranch string
}

// CreatePullRequestInput describes a new pull request.
type CreatePullRequestInput struct {
	HeadRef string
	BaseRef string
	Title   string
	Body    string
}

// UpdatePullRequestInput patches pull request fields; nil fields are left
// untouched. The patch is idempotent.
type UpdatePullRequestInput struct {
	Title   *string
	Body    *string
	BaseRef *string
}

// GitHubInterface is the typed remote client the engines consume.
type GitHubInterface interface {
	ViewerLogin(ctx context.Context) (string, error)
	RepoInfo(ctx context.Context) (*RepoInfo, error)
	PullRequest(ctx context.Context, number int) (*PullRequest, error)
	// PullRequests loads many pull requests; implementations may batch
	// or parallelize.
	PullRequests(ctx context.Context, numbers []int) (map[int]*PullRequest, error)
	CreatePullRequest(ctx context.Context, input CreatePullRequestInput) (*PullRequest, error)
	UpdatePullRequest(ctx context.Context, number int, input UpdatePullRequestInput) error
}

type hubConfig map[string][]struct {
	User       string `yaml:"user"`
	OauthToken string `yaml:"oauth_token"`
	Protocol   string `yaml:"protocol"`
}

// FindToken returns the GitHub auth token for the given host, looking at
// the GITHUB_TOKEN environment variable first and the hub config file
// (shared with GitHub's "hub" CLI) second.
func FindToken(githubHost string) string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(home, ".config", "hub"))
	if err != nil {
		return ""
	}

	var cfg hubConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	for _, entry := range cfg[githubHost] {
		if entry.OauthToken != "" {
			return entry.OauthToken
		}
	}
	return ""
}
