// Package remote provides adapters for querying upstream repositories.
// It implements the domain.RemoteBranchChecker interface against either the
// git transport (ls-remote style ref enumeration) or the GitHub REST API.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// Logger defines the logging interface for the remote adapters.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// GitChecker checks branch existence by enumerating the remote's heads
// namespace over the git transport. Only refs are listed; no objects are
// ever fetched.
type GitChecker struct {
	base    string
	timeout time.Duration
	logger  Logger
}

// NewGitChecker creates a GitChecker for repositories under base
// (e.g. "https://github.com/my-org"). A non-positive timeout disables the
// per-query deadline.
func NewGitChecker(base string, timeout time.Duration, log Logger) *GitChecker {
	return &GitChecker{
		base:    strings.TrimSuffix(base, "/"),
		timeout: timeout,
		logger:  log,
	}
}

// BranchExists reports whether branch exists on the dependency's remote.
// A transport failure is returned as an error wrapping
// domain.ErrRemoteQueryFailed and is never conflated with absence.
func (c *GitChecker) BranchExists(ctx context.Context, dependency, branch string) (bool, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := c.RepositoryURL(dependency)
	rem := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})

	refs, err := rem.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: listing refs of %s: %w", domain.ErrRemoteQueryFailed, url, err)
	}

	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			c.logger.Debug(ctx, "branch found on remote", map[string]interface{}{
				"url":    url,
				"branch": branch,
			})
			return true, nil
		}
	}

	c.logger.Debug(ctx, "branch absent on remote", map[string]interface{}{
		"url":         url,
		"branch":      branch,
		"refs_listed": len(refs),
	})
	return false, nil
}

// RepositoryURL returns the clone URL for a dependency under the
// configured base.
func (c *GitChecker) RepositoryURL(dependency string) string {
	return fmt.Sprintf("%s/%s.git", c.base, dependency)
}
