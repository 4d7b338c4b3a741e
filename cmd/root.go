// Package cmd provides the CLI commands for branchpin.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pipeline-tools/branchpin/internal/domain"
	"github.com/pipeline-tools/branchpin/internal/infrastructure/config"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance for the given configuration.
	LoggerFactory func(cfg *config.Config) Logger

	// ConfigLoader loads application configuration.
	ConfigLoader func(configPath string) (*config.Config, error)

	// GraphFactory creates a LocalBranchGraph for the repository at path.
	GraphFactory func(path string, cfg *config.Config, log Logger) (domain.LocalBranchGraph, error)

	// CheckerFactory creates a RemoteBranchChecker using the given config.
	CheckerFactory func(ctx context.Context, cfg *config.Config, log Logger) (domain.RemoteBranchChecker, error)

	// ResolverFactory creates a Resolver with the given dependencies.
	ResolverFactory func(
		checker domain.RemoteBranchChecker,
		graph domain.LocalBranchGraph,
		cfg *config.Config,
		log Logger,
	) domain.Resolver

	// InstallerFactory creates a DependencyInstaller.
	InstallerFactory func(cfg *config.Config, log Logger) domain.DependencyInstaller

	// OutputWriterFactory creates an OutputWriter for the configured
	// destination.
	OutputWriterFactory func(cfg *config.Config) (domain.OutputWriter, error)

	// Stdout is the writer for standard output.
	Stdout io.Writer

	// Stderr is the writer for standard error.
	Stderr io.Writer
}

// Command-line flags.
var (
	repoPath      string
	configPath    string
	bound         int
	defaultBranch string
	envFile       string
	skipInstall   bool
	verbose       bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for branchpin.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "branchpin <dependency> [branch]",
		Short: "Resolve which branch of an upstream dependency a CI build should install",
		Long: `branchpin resolves which branch of an upstream sibling dependency should
be installed so in-development API changes stay consistent across coupled
repositories during CI builds.

Starting from the branch being built, it checks whether the dependency's
remote has a branch of the same name. When it does not, branchpin backtracks
through the local branch ancestry, one nearest-parent at a time, until a
matching upstream branch is found or the resolution bound forces fallback to
the dependency's default branch.

The result is emitted as "<dependency>_branch_name=<branch>" to the CI
environment export file (or stdout), and unless resolution fell back to the
default branch, the dependency is cloned at the resolved branch into a
sibling directory and installed from that checkout.

Examples:
  # Resolve using the currently checked-out branch
  branchpin layered_config_tree

  # Resolve an explicit branch
  branchpin layered_config_tree feature/new-api

  # Resolve only; skip the clone and install
  branchpin layered_config_tree --skip-install

  # Raise the backtrack bound for deep branch hierarchies
  branchpin layered_config_tree --bound 40`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args, deps)
		},
	}

	rootCmd.Flags().StringVarP(&repoPath, "repo", "r", ".",
		"Path to the local repository being built")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to an optional config file")
	rootCmd.Flags().IntVarP(&bound, "bound", "b", domain.DefaultResolutionBound,
		"Maximum ancestor backtracks before falling back to the default branch")
	rootCmd.Flags().StringVar(&defaultBranch, "default-branch", domain.DefaultBranch,
		"Branch trusted unconditionally as the terminal fallback")
	rootCmd.Flags().StringVar(&envFile, "env-file", "",
		"CI environment export file to append the result to (default: stdout)")
	rootCmd.Flags().BoolVar(&skipInstall, "skip-install", false,
		"Resolve and emit the branch without cloning or installing")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runResolve executes the branch resolution logic with injected dependencies.
func runResolve(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dependency := args[0]
	branch := ""
	if len(args) > 1 {
		branch = args[1]
	}

	cfg, err := deps.ConfigLoader(configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	log := deps.LoggerFactory(cfg)

	log.Info(ctx, "starting branchpin", map[string]interface{}{
		"dependency":   dependency,
		"branch":       branch,
		"repo":         repoPath,
		"skip_install": skipInstall,
	})

	graph, err := deps.GraphFactory(repoPath, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to open git repository", err, map[string]interface{}{
			"path": repoPath,
		})
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return fmt.Errorf("not a git repository: %s", repoPath)
		}
		return err
	}
	defer func() {
		if closeErr := graph.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	if branch == "" {
		branch, err = graph.CurrentBranch(ctx)
		if err != nil {
			log.Error(ctx, "failed to determine current branch", err, nil)
			if errors.Is(err, domain.ErrDetachedHead) {
				return fmt.Errorf("HEAD is detached; pass the branch name explicitly")
			}
			return err
		}
	}

	checker, err := deps.CheckerFactory(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to initialize remote checker", err, nil)
		return fmt.Errorf("remote checker error: %w", err)
	}

	resolver := deps.ResolverFactory(checker, graph, cfg, log)
	req := domain.ResolutionRequest{Dependency: dependency, Branch: branch}
	result, err := resolver.Resolve(ctx, req)
	if err != nil {
		log.Error(ctx, "failed to resolve dependency branch", err, nil)
		if errors.Is(err, domain.ErrRemoteQueryFailed) {
			return fmt.Errorf("remote query failed; retry the step: %w", err)
		}
		return err
	}

	writer, err := deps.OutputWriterFactory(cfg)
	if err != nil {
		log.Error(ctx, "failed to open output destination", err, nil)
		return fmt.Errorf("output error: %w", err)
	}
	if writeErr := writer.WriteBranchVariable(dependency, result.ResolvedBranch); writeErr != nil {
		log.Error(ctx, "failed to write output", writeErr, nil)
		return fmt.Errorf("output error: %w", writeErr)
	}
	if closer, ok := writer.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close output destination", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}

	if !skipInstall {
		inst := deps.InstallerFactory(cfg, log)
		if installErr := inst.Install(ctx, req, *result); installErr != nil {
			log.Error(ctx, "failed to install dependency", installErr, map[string]interface{}{
				"dependency": dependency,
				"branch":     result.ResolvedBranch,
			})
			return installErr
		}
	}

	log.Info(ctx, "branch resolution complete", map[string]interface{}{
		"dependency":      dependency,
		"resolved_branch": result.ResolvedBranch,
		"fell_back":       result.FellBack,
		"steps":           result.Steps,
		"resolved_by":     result.ResolvedBy,
	})

	return nil
}

// applyFlagOverrides copies explicitly-set flags over the loaded config so
// flags win over both environment and file settings.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("bound") {
		cfg.Bound = bound
	}
	if cmd.Flags().Changed("default-branch") {
		cfg.DefaultBranch = defaultBranch
	}
	if cmd.Flags().Changed("env-file") {
		cfg.EnvFile = envFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
