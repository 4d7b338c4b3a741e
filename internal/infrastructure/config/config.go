// Package config provides configuration loading for the branchpin application.
// Settings come from an optional config file and BRANCHPIN_-prefixed
// environment variables, with environment taking precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// Remote backend identifiers.
const (
	// BackendGit enumerates remote heads over the git transport.
	BackendGit = "git"

	// BackendGitHub queries the GitHub REST API instead.
	BackendGitHub = "github"
)

// Default values.
const (
	DefaultRemoteTimeout  = 30 * time.Second
	DefaultWorkspace      = ".."
	DefaultInstallCommand = "pip install -e ."
	DefaultLogLevel       = "info"
	DefaultLogAppName     = "branchpin"
)

// Configuration errors.
var (
	// ErrOrgRequired indicates neither an organization nor a remote base
	// URL is configured, so dependency URLs cannot be built.
	ErrOrgRequired = errors.New("organization required: set BRANCHPIN_ORG or BRANCHPIN_REMOTE_BASE")

	// ErrOrgRequiredForGitHub indicates the GitHub API backend is selected
	// without an organization to query.
	ErrOrgRequiredForGitHub = errors.New("organization required for the github backend: set BRANCHPIN_ORG")

	// ErrUnknownBackend indicates an unsupported remote backend name.
	ErrUnknownBackend = errors.New(`unknown remote backend: expected "git" or "github"`)
)

// Config holds all application configuration.
type Config struct {
	// Org is the GitHub organization the sibling dependencies live under.
	Org string `mapstructure:"org"`

	// RemoteBase overrides the base URL dependencies are cloned from.
	// Defaults to "https://github.com/<org>".
	RemoteBase string `mapstructure:"remote_base"`

	// RemoteBackend selects the existence-check implementation: "git"
	// (default) or "github".
	RemoteBackend string `mapstructure:"remote_backend"`

	// GitHubToken authenticates the GitHub API backend. Also read from
	// GITHUB_TOKEN.
	GitHubToken string `mapstructure:"github_token"`

	// DefaultBranch is the always-available baseline branch.
	DefaultBranch string `mapstructure:"default_branch"`

	// Bound is the maximum number of ancestor backtracks before fallback.
	Bound int `mapstructure:"bound"`

	// ScanDepth bounds the per-branch commit walk during parent lookup.
	ScanDepth int `mapstructure:"scan_depth"`

	// RemoteTimeout is the per-query deadline for remote existence checks.
	RemoteTimeout time.Duration `mapstructure:"remote_timeout"`

	// Workspace is the directory receiving the sibling dependency clone,
	// relative to the repository being built.
	Workspace string `mapstructure:"workspace"`

	// InstallCommand is run inside the clone to install the dependency.
	InstallCommand string `mapstructure:"install_command"`

	// EnvFile is the CI-provided durable environment export file. Empty
	// means stdout.
	EnvFile string `mapstructure:"env_file"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFile enables an additional rotating log sink when non-empty.
	LogFile string `mapstructure:"log_file"`
}

// Load reads configuration from the optional config file at configPath and
// from BRANCHPIN_-prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("remote_backend", BackendGit)
	v.SetDefault("default_branch", domain.DefaultBranch)
	v.SetDefault("bound", domain.DefaultResolutionBound)
	v.SetDefault("scan_depth", domain.DefaultAncestryScanDepth)
	v.SetDefault("remote_timeout", DefaultRemoteTimeout)
	v.SetDefault("workspace", DefaultWorkspace)
	v.SetDefault("install_command", DefaultInstallCommand)
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix("BRANCHPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without defaults must be bound explicitly or Unmarshal will not
	// see their environment values.
	for _, key := range []string{"org", "remote_base", "env_file", "log_file"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}
	if err := v.BindEnv("github_token", "BRANCHPIN_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind github token env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks cross-field constraints and fills the derived remote base.
func (c *Config) validate() error {
	switch c.RemoteBackend {
	case BackendGit, BackendGitHub:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.RemoteBackend)
	}

	if c.RemoteBase == "" {
		if c.Org == "" {
			return ErrOrgRequired
		}
		c.RemoteBase = "https://github.com/" + c.Org
	}

	if c.RemoteBackend == BackendGitHub && c.Org == "" {
		return ErrOrgRequiredForGitHub
	}

	return nil
}

// InstallArgs returns the install command split into argv form.
func (c *Config) InstallArgs() []string {
	return strings.Fields(c.InstallCommand)
}
