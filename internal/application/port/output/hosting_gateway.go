package output

import "context"

// HostingGateway is the interface for the repository hosting API.
// Branch creation and push happen with git inside the environment.
type HostingGateway interface {
	// DefaultBranch returns the branch pull requests target
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)

	// CreatePullRequest opens a pull request and returns its URL
	CreatePullRequest(ctx context.Context, req PullRequest) (string, error)
}

// PullRequest describes the pull request to open
type PullRequest struct {
	Owner string
	Repo  string
	Title string
	Body  string
	Base  string // Target branch
	Head  string // Branch carrying the change
}
