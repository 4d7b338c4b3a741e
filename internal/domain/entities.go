// Package domain defines the core business entities and interfaces for branchpin.
package domain

// ResolutionRequest contains the parameters for a dependency-branch resolution.
// Both fields come from the invoking CI job and are never mutated.
type ResolutionRequest struct {
	// Dependency is the upstream sibling repository name, without the
	// organization prefix (e.g. "layered_config_tree").
	Dependency string

	// Branch is the branch currently checked out in the downstream
	// repository being built.
	Branch string
}

// How a resolution terminated. Recorded in ResolutionResult.ResolvedBy.
const (
	// ResolvedByRequested means the requested branch itself was accepted,
	// either because it is the default branch or because it exists upstream.
	ResolvedByRequested = "requested"

	// ResolvedByAncestry means an ancestor of the requested branch was
	// found on the upstream remote.
	ResolvedByAncestry = "ancestry"

	// ResolvedByFallback means no upstream match was found and the default
	// branch was used instead.
	ResolvedByFallback = "fallback"
)

// ResolutionResult contains the outcome of a resolution.
type ResolutionResult struct {
	// ResolvedBranch is the branch of the dependency that should be installed.
	ResolvedBranch string

	// FellBack is true iff ResolvedBranch is the dependency's default
	// branch and no exact ancestor match was found upstream. When the
	// requested branch already is the default branch, FellBack is false.
	FellBack bool

	// Steps is the number of loop iterations the resolver performed,
	// including the terminal one. Useful for tuning the resolution bound.
	Steps int

	// ResolvedBy indicates how the branch was resolved: "requested",
	// "ancestry", or "fallback".
	ResolvedBy string
}

// DefaultBranch is the branch treated as the always-available baseline
// for a dependency when no override is configured.
const DefaultBranch = "main"

// DefaultResolutionBound is the maximum number of ancestor backtracks
// attempted before forcing fallback. It is a circuit breaker against
// branch graphs that never converge to the default branch.
const DefaultResolutionBound = 20

// DefaultAncestryScanDepth is the maximum number of commits inspected
// per branch when searching for the nearest ancestor branch pointer.
const DefaultAncestryScanDepth = 200
