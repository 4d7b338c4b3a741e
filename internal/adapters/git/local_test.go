// Package git provides adapters for interacting with local Git repositories.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipeline-tools/branchpin/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// setupTestRepo creates a temporary git repository with a single commit on
// main. Commit timestamps are forced to increase so commit-time iteration
// is deterministic.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	commitFile(t, dir, "base.txt", "base", "base commit", 1)
	runGit(t, dir, "branch", "-M", "main")

	return dir
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

// commitFile writes a file and commits it with a fixed, strictly increasing
// timestamp derived from tick.
func commitFile(t *testing.T, dir, name, content, message string, tick int) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", ".")

	date := fmt.Sprintf("2024-06-01T10:%02d:00+00:00", tick)
	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git commit failed: %v\nOutput: %s", err, output)
	}
}

func newTestGraph(t *testing.T, dir string) *LocalBranchGraph {
	t.Helper()
	graph, err := NewLocalBranchGraph(dir, &testLogger{}, Options{})
	require.NoError(t, err)
	return graph
}

func TestNewLocalBranchGraph_NotARepository(t *testing.T) {
	_, err := NewLocalBranchGraph(t.TempDir(), &testLogger{}, Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestCurrentBranch(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/x")

	graph := newTestGraph(t, dir)
	branch, err := graph.CurrentBranch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)
}

func TestCurrentBranch_DetachedHead(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "--detach", "HEAD")

	graph := newTestGraph(t, dir)
	_, err := graph.CurrentBranch(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDetachedHead)
}

func TestParentBranch_DirectParent(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/x")
	commitFile(t, dir, "x.txt", "x", "feature commit", 2)

	graph := newTestGraph(t, dir)
	parent, err := graph.ParentBranch(context.Background(), "feature/x")

	require.NoError(t, err)
	assert.Equal(t, "main", parent)
}

func TestParentBranch_Chain(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/a")
	commitFile(t, dir, "a.txt", "a", "commit on a", 2)
	runGit(t, dir, "checkout", "-b", "feature/b")
	commitFile(t, dir, "b.txt", "b", "commit on b", 3)

	graph := newTestGraph(t, dir)

	parent, err := graph.ParentBranch(context.Background(), "feature/b")
	require.NoError(t, err)
	assert.Equal(t, "feature/a", parent)

	parent, err = graph.ParentBranch(context.Background(), "feature/a")
	require.NoError(t, err)
	assert.Equal(t, "main", parent)
}

func TestParentBranch_NoParentWhenBaseAdvanced(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/x")
	commitFile(t, dir, "x.txt", "x", "feature commit", 2)

	// main moves on; its tip is no longer in feature/x's history.
	runGit(t, dir, "checkout", "main")
	commitFile(t, dir, "m.txt", "m", "main moved on", 3)
	runGit(t, dir, "checkout", "feature/x")

	graph := newTestGraph(t, dir)
	parent, err := graph.ParentBranch(context.Background(), "feature/x")

	require.NoError(t, err)
	assert.Empty(t, parent)
}

func TestParentBranch_PrefersDefaultBranchOnSharedTip(t *testing.T) {
	dir := setupTestRepo(t)
	// Both branches point at main's tip.
	runGit(t, dir, "branch", "feature/x")
	runGit(t, dir, "branch", "aaa-first")

	graph := newTestGraph(t, dir)
	parent, err := graph.ParentBranch(context.Background(), "feature/x")

	require.NoError(t, err)
	assert.Equal(t, "main", parent)
}

func TestParentBranch_UnknownBranch(t *testing.T) {
	dir := setupTestRepo(t)

	graph := newTestGraph(t, dir)
	parent, err := graph.ParentBranch(context.Background(), "does-not-exist")

	require.NoError(t, err)
	assert.Empty(t, parent)
}

func TestParentBranch_ScanDepthBound(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/deep")
	for i := 0; i < 5; i++ {
		commitFile(t, dir, fmt.Sprintf("f%d.txt", i), "x", fmt.Sprintf("commit %d", i), 2+i)
	}

	graph, err := NewLocalBranchGraph(dir, &testLogger{}, Options{ScanDepth: 3})
	require.NoError(t, err)

	// main's tip sits 5 commits back, beyond the scan depth.
	parent, err := graph.ParentBranch(context.Background(), "feature/deep")
	require.NoError(t, err)
	assert.Empty(t, parent)
}

func TestAcquireCheckout_RestoresAfterExternalMove(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "-b", "feature/x")
	commitFile(t, dir, "x.txt", "x", "feature commit", 2)

	graph := newTestGraph(t, dir)
	restore, err := graph.AcquireCheckout(context.Background())
	require.NoError(t, err)

	// Simulate something moving the working tree mid-resolution.
	runGit(t, dir, "checkout", "main")

	require.NoError(t, restore())

	branch, err := graph.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "feature/x", branch)
}

func TestAcquireCheckout_NoOpWhenUnmoved(t *testing.T) {
	dir := setupTestRepo(t)

	graph := newTestGraph(t, dir)
	restore, err := graph.AcquireCheckout(context.Background())
	require.NoError(t, err)
	require.NoError(t, restore())

	branch, err := graph.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestAcquireCheckout_DetachedHead(t *testing.T) {
	dir := setupTestRepo(t)
	runGit(t, dir, "checkout", "--detach", "HEAD")

	graph := newTestGraph(t, dir)
	_, err := graph.AcquireCheckout(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDetachedHead)
}

func TestClose(t *testing.T) {
	dir := setupTestRepo(t)
	graph := newTestGraph(t, dir)

	assert.NoError(t, graph.Close())
}
