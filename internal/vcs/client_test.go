package vcs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// setupTestRepo creates a temporary directory with an initialized Git
// repository containing a single commit. This provides a realistic baseline
// for testing reset and pull, both of which require at least one commit.
//
// The function uses t.TempDir() which automatically cleans up after the
// test. It also configures a local user.name and user.email so that
// `git commit` works in CI environments where global git config may not
// be set.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runTestGit(t, dir, "init")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	initialFile := filepath.Join(dir, "README.md")
	err := os.WriteFile(initialFile, []byte("# Test Repo\n"), 0644)
	require.NoError(t, err, "failed to create initial file")

	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")

	return dir
}

// runTestGit is a test helper that runs a git command in the specified
// directory and fails the test immediately if the command exits with a
// non-zero status.
func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// TestResetHard verifies that ResetHard discards uncommitted modifications
// to tracked files, restoring them to the HEAD revision.
func TestResetHard(t *testing.T) {
	repo := setupTestRepo(t)
	c := NewClient("")

	// Dirty the working copy: modify a tracked file and stage another change.
	readme := filepath.Join(repo, "README.md")
	require.NoError(t, os.WriteFile(readme, []byte("local garbage\n"), 0644))
	staged := filepath.Join(repo, "staged.txt")
	require.NoError(t, os.WriteFile(staged, []byte("staged\n"), 0644))
	runTestGit(t, repo, "add", "staged.txt")

	err := c.ResetHard(context.Background(), repo)
	require.NoError(t, err, "ResetHard should succeed on a dirty working copy")

	// The tracked file must be back at its committed content.
	content, err := os.ReadFile(readme)
	require.NoError(t, err)
	assert.Equal(t, "# Test Repo\n", string(content))

	// The staged file must no longer be in the index.
	status := runTestGit(t, repo, "status", "--porcelain")
	assert.NotContains(t, status, "A  staged.txt")
}

// TestResetHardCleanRepo verifies that ResetHard is a no-op on a clean
// working copy rather than an error.
func TestResetHardCleanRepo(t *testing.T) {
	repo := setupTestRepo(t)
	c := NewClient("")

	err := c.ResetHard(context.Background(), repo)
	assert.NoError(t, err)
}

// TestPull verifies that Pull fetches and merges a commit made upstream
// after the working copy was cloned.
func TestPull(t *testing.T) {
	upstream := setupTestRepo(t)

	// Clone the upstream repository to get a working copy with a tracked
	// branch, the same shape a deployed checkout has.
	workdir := filepath.Join(t.TempDir(), "checkout")
	cmd := exec.Command("git", "clone", upstream, workdir)
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git clone failed: %s", string(output))

	// Advance upstream by one commit.
	newFile := filepath.Join(upstream, "service.conf")
	require.NoError(t, os.WriteFile(newFile, []byte("port = 8080\n"), 0644))
	runTestGit(t, upstream, "add", ".")
	runTestGit(t, upstream, "commit", "-m", "add service config")

	c := NewClient("")
	err = c.Pull(context.Background(), workdir)
	require.NoError(t, err, "Pull should fast-forward the working copy")

	// The upstream commit's file must now exist in the working copy.
	_, statErr := os.Stat(filepath.Join(workdir, "service.conf"))
	assert.NoError(t, statErr, "pulled file should exist in the working copy")
}

// TestPullOutsideRepo verifies that a pull in a directory that is not a
// Git working copy surfaces as a KindVcs error.
func TestPullOutsideRepo(t *testing.T) {
	c := NewClient("")

	err := c.Pull(context.Background(), t.TempDir())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindVcs, cliErr.Kind)
}

// TestHead verifies that Head returns the abbreviated commit hash.
func TestHead(t *testing.T) {
	repo := setupTestRepo(t)
	c := NewClient("")

	head, err := c.Head(context.Background(), repo)
	require.NoError(t, err)

	assert.NotEmpty(t, head)
	// Abbreviated hashes are hex and shorter than a full SHA-1.
	assert.Less(t, len(head), 40)
	assert.Regexp(t, "^[0-9a-f]+$", head)
}

// TestCurrentBranch verifies that CurrentBranch returns the checked-out
// branch name.
func TestCurrentBranch(t *testing.T) {
	repo := setupTestRepo(t)
	c := NewClient("")

	runTestGit(t, repo, "checkout", "-b", "release")

	branch, err := c.CurrentBranch(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "release", branch)
}
