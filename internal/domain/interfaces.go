// Package domain defines the core business entities and interfaces for branchpin.
// This package contains no external dependencies and represents the innermost
// layer of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
)

// Domain errors for git operations and branch resolution.
var (
	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrDetachedHead indicates HEAD is not on a branch, so there is no
	// branch name to resolve from.
	ErrDetachedHead = errors.New("HEAD is detached; no current branch to resolve from")

	// ErrRemoteQueryFailed indicates the remote existence check could not
	// complete. This is distinct from "branch not found": a transport or
	// auth failure must never silently degrade resolution to fallback.
	ErrRemoteQueryFailed = errors.New("remote branch query failed")

	// ErrCloneFailed indicates the dependency clone did not complete.
	ErrCloneFailed = errors.New("failed to clone dependency")

	// ErrInstallFailed indicates the install command exited unsuccessfully.
	ErrInstallFailed = errors.New("failed to install dependency")
)

// RemoteBranchChecker queries whether a named branch exists on the
// dependency's remote repository.
type RemoteBranchChecker interface {
	// BranchExists reports whether branch exists in the remote heads
	// namespace of dependency. It enumerates refs only and never fetches
	// objects. The result is tri-state: (true, nil) means the branch
	// exists, (false, nil) means it is absent, and a non-nil error
	// (wrapping ErrRemoteQueryFailed) means the query itself failed and
	// nothing can be said about existence.
	BranchExists(ctx context.Context, dependency, branch string) (bool, error)
}

// LocalBranchGraph answers ancestry questions about the local repository's
// branch graph. Implementations load the graph once and answer queries in
// memory; the working tree is only touched through the checkout scope.
type LocalBranchGraph interface {
	// CurrentBranch returns the short name of the branch HEAD points at.
	// Returns ErrDetachedHead if HEAD is not on a branch.
	CurrentBranch(ctx context.Context) (string, error)

	// ParentBranch returns the nearest distinct local branch whose tip is
	// reachable from branch's history, i.e. the branch this one was most
	// plausibly forked from. Returns ("", nil) when no parent can be
	// determined.
	ParentBranch(ctx context.Context, branch string) (string, error)

	// AcquireCheckout records the currently checked-out branch and returns
	// a restore function that checks it out again. The restore function is
	// safe to call on every exit path, including error paths, and is a
	// no-op when the checkout never moved.
	AcquireCheckout(ctx context.Context) (restore func() error, err error)

	// Close releases any resources held by the graph.
	Close() error
}

// DependencyInstaller clones and installs a dependency at a resolved branch.
type DependencyInstaller interface {
	// Install clones the dependency at result.ResolvedBranch into a
	// sibling directory and installs it from that checkout. When
	// result.FellBack is true it performs no action: the caller installs
	// the released version through the standard package index instead.
	Install(ctx context.Context, req ResolutionRequest, result ResolutionResult) error
}

// OutputWriter emits the resolved branch as a key/value pair for the
// invoking pipeline.
type OutputWriter interface {
	// WriteBranchVariable writes "<dependency>_branch_name=<branch>" to
	// the CI-provided durable environment export.
	WriteBranchVariable(dependency, branch string) error
}

// Resolver determines which branch of a dependency should be installed.
type Resolver interface {
	// Resolve runs the resolution loop for the given request.
	Resolve(ctx context.Context, req ResolutionRequest) (*ResolutionResult, error)
}
