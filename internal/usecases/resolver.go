// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// Logger defines the logging interface required by the resolver.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Resolution loop states.
type resolutionState int

const (
	stateSearching resolutionState = iota
	stateFound
	stateFallback
)

// BranchResolver resolves the upstream dependency branch matching the local
// branch's ancestry. Starting from the requested branch it alternates a
// remote existence check with a local ancestor lookup until a match is found
// or the resolution bound forces fallback to the default branch.
type BranchResolver struct {
	remote        domain.RemoteBranchChecker
	graph         domain.LocalBranchGraph
	logger        Logger
	defaultBranch string
	bound         int
}

// NewBranchResolver creates a BranchResolver with the given dependencies.
// A non-positive bound falls back to domain.DefaultResolutionBound and an
// empty defaultBranch falls back to domain.DefaultBranch.
func NewBranchResolver(
	remote domain.RemoteBranchChecker,
	graph domain.LocalBranchGraph,
	log Logger,
	defaultBranch string,
	bound int,
) *BranchResolver {
	if defaultBranch == "" {
		defaultBranch = domain.DefaultBranch
	}
	if bound <= 0 {
		bound = domain.DefaultResolutionBound
	}
	return &BranchResolver{
		remote:        remote,
		graph:         graph,
		logger:        log,
		defaultBranch: defaultBranch,
		bound:         bound,
	}
}

// Resolve runs the resolution loop for the given request.
//
// The loop never reports a branch it did not verify to exist upstream, with
// the single exception of the default branch, which is trusted
// unconditionally as the terminal fallback. A failed remote query is
// returned as a distinct error (wrapping domain.ErrRemoteQueryFailed) rather
// than being treated as branch absence.
//
// The working tree checkout is restored to its pre-resolution state on every
// exit path, including error exits.
func (r *BranchResolver) Resolve(ctx context.Context, req domain.ResolutionRequest) (*domain.ResolutionResult, error) {
	r.logger.Info(ctx, "starting branch resolution", map[string]interface{}{
		"dependency":     req.Dependency,
		"branch":         req.Branch,
		"default_branch": r.defaultBranch,
		"bound":          r.bound,
	})

	restore, err := r.graph.AcquireCheckout(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire checkout: %w", err)
	}
	defer func() {
		if restoreErr := restore(); restoreErr != nil {
			r.logger.Warn(ctx, "failed to restore checkout", map[string]interface{}{
				"branch": req.Branch,
				"error":  restoreErr.Error(),
			})
		}
	}()

	result, err := r.search(ctx, req)
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "branch resolution complete", map[string]interface{}{
		"dependency":      req.Dependency,
		"resolved_branch": result.ResolvedBranch,
		"fell_back":       result.FellBack,
		"steps":           result.Steps,
		"resolved_by":     result.ResolvedBy,
	})

	return result, nil
}

// search runs the SEARCHING state until a terminal FOUND or FALLBACK state
// is reached.
func (r *BranchResolver) search(ctx context.Context, req domain.ResolutionRequest) (*domain.ResolutionResult, error) {
	state := stateSearching
	candidate := req.Branch
	steps := 0

	for state == stateSearching {
		steps++

		// The default branch is always acceptable; no remote check needed.
		if candidate == r.defaultBranch {
			state = stateFound
			break
		}

		if steps > r.bound {
			r.logger.Warn(ctx, "resolution bound reached; falling back to default branch", map[string]interface{}{
				"dependency":     req.Dependency,
				"bound":          r.bound,
				"last_candidate": candidate,
			})
			state = stateFallback
			break
		}

		exists, err := r.remote.BranchExists(ctx, req.Dependency, candidate)
		if err != nil {
			return nil, fmt.Errorf("checking branch %q on %q: %w", candidate, req.Dependency, err)
		}
		if exists {
			state = stateFound
			break
		}

		r.logger.Debug(ctx, "branch not found upstream; backtracking", map[string]interface{}{
			"dependency": req.Dependency,
			"candidate":  candidate,
			"step":       steps,
		})

		parent, err := r.graph.ParentBranch(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("finding parent of %q: %w", candidate, err)
		}
		if parent == "" {
			r.logger.Info(ctx, "no parent branch determinable; falling back to default branch", map[string]interface{}{
				"dependency": req.Dependency,
				"candidate":  candidate,
			})
			state = stateFallback
			break
		}

		candidate = parent
	}

	return r.terminalResult(req, state, candidate, steps), nil
}

// terminalResult maps a terminal state onto a ResolutionResult.
func (r *BranchResolver) terminalResult(
	req domain.ResolutionRequest,
	state resolutionState,
	candidate string,
	steps int,
) *domain.ResolutionResult {
	resolved := candidate
	if state == stateFallback {
		resolved = r.defaultBranch
	}

	// Landing on the default branch through ancestry is still a fallback
	// outcome: the installer relies on the released version in that case.
	fellBack := resolved == r.defaultBranch && req.Branch != r.defaultBranch

	resolvedBy := domain.ResolvedByAncestry
	switch {
	case fellBack:
		resolvedBy = domain.ResolvedByFallback
	case resolved == req.Branch:
		resolvedBy = domain.ResolvedByRequested
	}

	return &domain.ResolutionResult{
		ResolvedBranch: resolved,
		FellBack:       fellBack,
		Steps:          steps,
		ResolvedBy:     resolvedBy,
	}
}
