// Package remote provides adapters for querying upstream repositories.
package remote

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}

// setupUpstream creates a bare repository named <dependency>.git with the
// given branches, and returns the base URL its parent directory serves as.
func setupUpstream(t *testing.T, dependency string, branches ...string) string {
	t.Helper()

	parent := t.TempDir()
	src := filepath.Join(parent, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	runGit(t, src, "init")
	runGit(t, src, "config", "user.email", "test@example.com")
	runGit(t, src, "config", "user.name", "Test User")
	require.NoError(t, os.WriteFile(filepath.Join(src, "README"), []byte("upstream"), 0o644))
	runGit(t, src, "add", ".")
	runGit(t, src, "commit", "-m", "initial commit")
	runGit(t, src, "branch", "-M", branches[0])
	for _, branch := range branches[1:] {
		runGit(t, src, "branch", branch)
	}

	runGit(t, parent, "clone", "--bare", src, dependency+".git")

	return "file://" + parent
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
}

func TestGitChecker_BranchExists(t *testing.T) {
	base := setupUpstream(t, "layered_config_tree", "main", "feature/x")
	checker := NewGitChecker(base, 30*time.Second, &testLogger{})

	exists, err := checker.BranchExists(context.Background(), "layered_config_tree", "feature/x")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = checker.BranchExists(context.Background(), "layered_config_tree", "main")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGitChecker_BranchAbsent(t *testing.T) {
	base := setupUpstream(t, "layered_config_tree", "main")
	checker := NewGitChecker(base, 30*time.Second, &testLogger{})

	exists, err := checker.BranchExists(context.Background(), "layered_config_tree", "feature/missing")

	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGitChecker_QueryFailedIsDistinctFromAbsent(t *testing.T) {
	checker := NewGitChecker("file:///nonexistent/base", 5*time.Second, &testLogger{})

	exists, err := checker.BranchExists(context.Background(), "layered_config_tree", "main")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteQueryFailed)
	assert.False(t, exists)
}

func TestGitChecker_RepositoryURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{
			name: "plain base",
			base: "https://github.com/my-org",
			want: "https://github.com/my-org/layered_config_tree.git",
		},
		{
			name: "trailing slash trimmed",
			base: "https://github.com/my-org/",
			want: "https://github.com/my-org/layered_config_tree.git",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewGitChecker(tt.base, 0, &testLogger{})
			assert.Equal(t, tt.want, checker.RepositoryURL("layered_config_tree"))
		})
	}
}
