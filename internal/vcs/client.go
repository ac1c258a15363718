package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// Client runs Git operations against a working copy by invoking the git CLI.
//
// The working directory is passed per call rather than stored, so a single
// Client can serve any number of working copies. The process's own working
// directory is never changed.
type Client struct {
	// bin is the git executable to invoke, resolved via PATH unless an
	// absolute path is configured.
	bin string
}

// NewClient creates a Git client using the given binary. An empty string
// selects "git" from PATH.
func NewClient(bin string) *Client {
	if bin == "" {
		bin = "git"
	}
	return &Client{bin: bin}
}

// ResetHard discards all uncommitted local changes in the working copy,
// restoring every tracked file to the HEAD revision. Untracked files are
// left alone, matching `git reset --hard` semantics.
func (c *Client) ResetHard(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "reset", "--hard")
	return err
}

// Pull fetches and merges the latest revision of the tracked branch.
// Network failures and merge conflicts both surface as KindVcs errors;
// no retry is attempted and no timeout is imposed, so a hung fetch blocks
// until the context is cancelled by the operator.
func (c *Client) Pull(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "pull")
	return err
}

// Head returns the abbreviated commit hash the working copy currently
// points to. Used for post-pull diagnostics only.
func (c *Client) Head(ctx context.Context, dir string) (string, error) {
	output, err := c.run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// CurrentBranch returns the name of the currently checked-out branch.
//
// Uses `git rev-parse --abbrev-ref HEAD` which returns the short branch
// name (e.g., "main" instead of "refs/heads/main"). Returns "HEAD" if the
// working copy is in a detached HEAD state.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	output, err := c.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// run executes a git command with the given arguments against the
// specified working copy.
//
// It captures both stdout and stderr. On success (exit code 0), it returns
// the stdout output. On failure, it returns a model.CLIError with KindVcs,
// including the stderr output in the error message for debugging.
//
// The dir parameter is passed to git via the -C flag, which causes git to
// change to that directory before doing anything else. This avoids changing
// the process's own working directory.
func (c *Client) run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, c.bin, fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.KindVcs, message, err)
	}

	return stdout.String(), nil
}
