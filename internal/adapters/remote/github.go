package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// GitHubChecker checks branch existence through the GitHub REST API.
// Compared to the git transport it needs a token for private repositories
// but avoids enumerating the full heads namespace of large upstreams.
type GitHubChecker struct {
	client *github.Client
	org    string
	logger Logger
}

// NewGitHubChecker creates a GitHubChecker using the given API client.
// The client is injected so tests can point it at an httptest server.
func NewGitHubChecker(client *github.Client, org string, log Logger) *GitHubChecker {
	return &GitHubChecker{
		client: client,
		org:    org,
		logger: log,
	}
}

// NewGitHubClient builds a GitHub API client, authenticated when token is
// non-empty.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, source))
}

// BranchExists reports whether branch exists in the dependency repository.
// A 404 from the API means the branch is absent; every other failure wraps
// domain.ErrRemoteQueryFailed.
func (c *GitHubChecker) BranchExists(ctx context.Context, dependency, branch string) (bool, error) {
	_, resp, err := c.client.Repositories.GetBranch(ctx, c.org, dependency, branch, 0)
	if err != nil {
		var apiErr *github.ErrorResponse
		if errors.As(err, &apiErr) && apiErr.Response != nil && apiErr.Response.StatusCode == http.StatusNotFound {
			c.logger.Debug(ctx, "branch absent on GitHub", map[string]interface{}{
				"org":        c.org,
				"dependency": dependency,
				"branch":     branch,
			})
			return false, nil
		}
		return false, fmt.Errorf("%w: GitHub API query for %s/%s@%s: %w",
			domain.ErrRemoteQueryFailed, c.org, dependency, branch, err)
	}

	c.logger.Debug(ctx, "branch found on GitHub", map[string]interface{}{
		"org":        c.org,
		"dependency": dependency,
		"branch":     branch,
		"status":     resp.StatusCode,
	})
	return true, nil
}
