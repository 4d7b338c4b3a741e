// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.LocalBranchGraph interface using go-git/v5.
package git

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// Logger defines the logging interface for the git adapter.
// This interface enables dependency injection and testability.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// LocalBranchGraph implements domain.LocalBranchGraph using go-git/v5.
// The branch graph is loaded once into an in-memory snapshot; ancestry
// queries never move the working tree. The only checkout mutation happens
// through the restore function returned by AcquireCheckout.
type LocalBranchGraph struct {
	repo          *gogit.Repository
	path          string
	logger        Logger
	defaultBranch string
	scanDepth     int

	// tips maps commit hashes to the local branches pointing at them.
	// Populated lazily on first ancestry query.
	tips map[plumbing.Hash][]string
}

// Options configures a LocalBranchGraph.
type Options struct {
	// DefaultBranch is preferred when several branches point at the same
	// commit during parent selection. Defaults to domain.DefaultBranch.
	DefaultBranch string

	// ScanDepth bounds how many commits per branch are inspected when
	// searching for a parent. Defaults to domain.DefaultAncestryScanDepth.
	ScanDepth int
}

// NewLocalBranchGraph opens the repository at path.
// The path can be either a working directory or a bare repository.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewLocalBranchGraph(path string, log Logger, opts Options) (*LocalBranchGraph, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	if opts.DefaultBranch == "" {
		opts.DefaultBranch = domain.DefaultBranch
	}
	if opts.ScanDepth <= 0 {
		opts.ScanDepth = domain.DefaultAncestryScanDepth
	}

	return &LocalBranchGraph{
		repo:          repo,
		path:          path,
		logger:        log,
		defaultBranch: opts.DefaultBranch,
		scanDepth:     opts.ScanDepth,
	}, nil
}

// CurrentBranch returns the short name of the branch HEAD points at.
// Returns domain.ErrDetachedHead if HEAD is not on a branch.
func (g *LocalBranchGraph) CurrentBranch(_ context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("%w: HEAD at %s", domain.ErrDetachedHead, head.Hash())
	}
	return head.Name().Short(), nil
}

// ParentBranch returns the nearest distinct local branch whose tip lies in
// branch's history, walking commits in commit-time order up to the
// configured scan depth. Returns ("", nil) when no parent is determinable.
func (g *LocalBranchGraph) ParentBranch(ctx context.Context, branch string) (string, error) {
	if err := g.loadTips(); err != nil {
		return "", err
	}

	ref, err := g.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			g.logger.Warn(ctx, "branch not found locally; no parent determinable", map[string]interface{}{
				"branch": branch,
				"path":   g.path,
			})
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve branch %q: %w", branch, err)
	}

	commit, err := g.repo.CommitObject(ref.Hash())
	if err != nil {
		return "", fmt.Errorf("failed to get tip commit of %q: %w", branch, err)
	}

	var parent string
	scanned := 0
	iter := object.NewCommitIterCTime(commit, nil, nil)
	err = iter.ForEach(func(c *object.Commit) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if scanned >= g.scanDepth {
			return storer.ErrStop
		}
		scanned++

		if name := g.branchPointingAt(c.Hash, branch); name != "" {
			parent = name
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return "", fmt.Errorf("failed to walk history of %q: %w", branch, err)
	}

	g.logger.Debug(ctx, "ancestry scan finished", map[string]interface{}{
		"branch":          branch,
		"parent":          parent,
		"commits_scanned": scanned,
	})

	return parent, nil
}

// AcquireCheckout records the currently checked-out branch and returns a
// restore function. The restore function checks the branch out again only
// when HEAD has moved, so it is cheap to call unconditionally via defer.
func (g *LocalBranchGraph) AcquireCheckout(ctx context.Context) (func() error, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return nil, fmt.Errorf("%w: HEAD at %s", domain.ErrDetachedHead, head.Hash())
	}
	original := head.Name()

	restore := func() error {
		current, headErr := g.repo.Head()
		if headErr != nil {
			return fmt.Errorf("failed to get HEAD during restore: %w", headErr)
		}
		if current.Name() == original {
			return nil
		}

		g.logger.Warn(ctx, "checkout moved during resolution; restoring", map[string]interface{}{
			"original": original.Short(),
			"current":  current.Name().Short(),
		})

		worktree, wtErr := g.repo.Worktree()
		if wtErr != nil {
			return fmt.Errorf("failed to get worktree: %w", wtErr)
		}
		if coErr := worktree.Checkout(&gogit.CheckoutOptions{Branch: original}); coErr != nil {
			return fmt.Errorf("failed to restore checkout to %q: %w", original.Short(), coErr)
		}
		return nil
	}

	return restore, nil
}

// Close releases any resources held by the graph.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (g *LocalBranchGraph) Close() error {
	return nil
}

// loadTips builds the hash-to-branches snapshot on first use.
func (g *LocalBranchGraph) loadTips() error {
	if g.tips != nil {
		return nil
	}

	tips := make(map[plumbing.Hash][]string)
	branches, err := g.repo.Branches()
	if err != nil {
		return fmt.Errorf("failed to enumerate local branches: %w", err)
	}
	err = branches.ForEach(func(ref *plumbing.Reference) error {
		tips[ref.Hash()] = append(tips[ref.Hash()], ref.Name().Short())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enumerate local branches: %w", err)
	}

	for _, names := range tips {
		sort.Strings(names)
	}

	g.tips = tips
	return nil
}

// branchPointingAt returns the branch whose tip is the given commit,
// excluding self. When several branches share the tip, the default branch
// wins, then the lexicographically smallest name, keeping resolution
// deterministic across invocations.
func (g *LocalBranchGraph) branchPointingAt(hash plumbing.Hash, self string) string {
	candidates := g.tips[hash]
	chosen := ""
	for _, name := range candidates {
		if name == self {
			continue
		}
		if name == g.defaultBranch {
			return name
		}
		if chosen == "" {
			chosen = name
		}
	}
	return chosen
}
