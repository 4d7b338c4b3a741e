// Package installer provides the adapter that clones a dependency at the
// resolved branch and installs it from the local checkout.
package installer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// Logger defines the logging interface for the installer.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// CommandRunner executes an external command in a working directory and
// returns its combined output. Implementations must honor ctx cancellation.
type CommandRunner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

// ExecRunner is a CommandRunner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner constructs a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and returns its combined stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(output), nil
}

// CloneFunc clones url at branch into dir. Injectable for tests.
type CloneFunc func(ctx context.Context, url, dir, branch string) error

// GoGitClone clones with go-git, restricted to the single requested branch.
func GoGitClone(ctx context.Context, url, dir, branch string) error {
	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	return err
}

// Installer implements domain.DependencyInstaller. It clones the dependency
// into a sibling directory of the configured workspace and runs the install
// command inside the clone. Clone or install failures are fatal to the
// invoking build step and are not retried.
type Installer struct {
	repoURL        func(dependency string) string
	workspace      string
	installCommand []string
	runner         CommandRunner
	clone          CloneFunc
	logger         Logger
}

// NewInstaller creates an Installer.
//
// repoURL maps a dependency name to its clone URL, workspace is the parent
// directory receiving the sibling clone, and installCommand is the command
// executed inside the clone (e.g. ["pip", "install", "-e", "."]).
// A nil clone function defaults to GoGitClone.
func NewInstaller(
	repoURL func(dependency string) string,
	workspace string,
	installCommand []string,
	runner CommandRunner,
	clone CloneFunc,
	log Logger,
) *Installer {
	if clone == nil {
		clone = GoGitClone
	}
	return &Installer{
		repoURL:        repoURL,
		workspace:      workspace,
		installCommand: installCommand,
		runner:         runner,
		clone:          clone,
		logger:         log,
	}
}

// Install clones the dependency at result.ResolvedBranch and installs it
// from the local checkout. When result.FellBack is true it performs no
// action: the build resolves the dependency through the standard package
// index instead.
func (i *Installer) Install(ctx context.Context, req domain.ResolutionRequest, result domain.ResolutionResult) error {
	if result.FellBack {
		i.logger.Info(ctx, "fallback resolution; using released dependency version", map[string]interface{}{
			"dependency":      req.Dependency,
			"resolved_branch": result.ResolvedBranch,
		})
		return nil
	}

	if len(i.installCommand) == 0 {
		return fmt.Errorf("%w: no install command configured", domain.ErrInstallFailed)
	}

	url := i.repoURL(req.Dependency)
	dir := filepath.Join(i.workspace, req.Dependency)

	i.logger.Info(ctx, "cloning dependency at resolved branch", map[string]interface{}{
		"dependency": req.Dependency,
		"branch":     result.ResolvedBranch,
		"url":        url,
		"dir":        dir,
	})

	if err := i.clone(ctx, url, dir, result.ResolvedBranch); err != nil {
		return fmt.Errorf("%w: %s@%s: %w", domain.ErrCloneFailed, req.Dependency, result.ResolvedBranch, err)
	}

	output, err := i.runner.Run(ctx, dir, i.installCommand[0], i.installCommand[1:]...)
	if err != nil {
		return fmt.Errorf("%w: %s: %w (output: %s)",
			domain.ErrInstallFailed, req.Dependency, err, strings.TrimSpace(output))
	}

	i.logger.Debug(ctx, "dependency installed from local checkout", map[string]interface{}{
		"dependency": req.Dependency,
		"dir":        dir,
	})
	return nil
}
