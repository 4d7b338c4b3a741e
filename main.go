// Package main is the entry point for the branchpin CLI application.
// branchpin resolves which branch of an upstream sibling dependency a CI
// build should install, emits the result as a durable environment export,
// and conditionally clones and installs the dependency at that branch.
package main

import (
	"context"
	"os"

	"github.com/pipeline-tools/branchpin/cmd"
	"github.com/pipeline-tools/branchpin/internal/adapters/git"
	"github.com/pipeline-tools/branchpin/internal/adapters/installer"
	logadapter "github.com/pipeline-tools/branchpin/internal/adapters/logger"
	"github.com/pipeline-tools/branchpin/internal/adapters/output"
	"github.com/pipeline-tools/branchpin/internal/adapters/remote"
	"github.com/pipeline-tools/branchpin/internal/domain"
	"github.com/pipeline-tools/branchpin/internal/infrastructure/config"
	"github.com/pipeline-tools/branchpin/internal/usecases"
)

func main() {
	deps := &cmd.Dependencies{
		LoggerFactory: func(cfg *config.Config) cmd.Logger {
			return logadapter.New(logadapter.Options{
				Level:   cfg.LogLevel,
				AppName: config.DefaultLogAppName,
				File:    cfg.LogFile,
			})
		},

		ConfigLoader: config.Load,

		GraphFactory: func(path string, cfg *config.Config, log cmd.Logger) (domain.LocalBranchGraph, error) {
			return git.NewLocalBranchGraph(path, log, git.Options{
				DefaultBranch: cfg.DefaultBranch,
				ScanDepth:     cfg.ScanDepth,
			})
		},

		CheckerFactory: func(ctx context.Context, cfg *config.Config, log cmd.Logger) (domain.RemoteBranchChecker, error) {
			if cfg.RemoteBackend == config.BackendGitHub {
				client := remote.NewGitHubClient(ctx, cfg.GitHubToken)
				return remote.NewGitHubChecker(client, cfg.Org, log), nil
			}
			return remote.NewGitChecker(cfg.RemoteBase, cfg.RemoteTimeout, log), nil
		},

		ResolverFactory: func(
			checker domain.RemoteBranchChecker,
			graph domain.LocalBranchGraph,
			cfg *config.Config,
			log cmd.Logger,
		) domain.Resolver {
			return usecases.NewBranchResolver(checker, graph, log, cfg.DefaultBranch, cfg.Bound)
		},

		InstallerFactory: func(cfg *config.Config, log cmd.Logger) domain.DependencyInstaller {
			urls := remote.NewGitChecker(cfg.RemoteBase, cfg.RemoteTimeout, log)
			return installer.NewInstaller(
				urls.RepositoryURL,
				cfg.Workspace,
				cfg.InstallArgs(),
				installer.NewExecRunner(),
				nil,
				log,
			)
		},

		OutputWriterFactory: func(cfg *config.Config) (domain.OutputWriter, error) {
			if cfg.EnvFile != "" {
				return output.NewEnvFileWriter(cfg.EnvFile)
			}
			return output.NewEnvWriter(), nil
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}
