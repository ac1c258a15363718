package build

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// stderrTailLimit bounds how much of the tool's stderr is folded into an
// error message. Compiler output can run to thousands of lines; the tail
// is where cargo prints the actual error summary.
const stderrTailLimit = 4096

// Toolchain runs release builds and documentation generation for the
// working copy by invoking the cargo CLI.
//
// The working directory is passed per call rather than stored, mirroring
// the vcs.Client shape.
type Toolchain struct {
	// bin is the cargo executable to invoke, resolved via PATH unless an
	// absolute path is configured.
	bin string
}

// NewToolchain creates a build toolchain using the given binary. An empty
// string selects "cargo" from PATH.
func NewToolchain(bin string) *Toolchain {
	if bin == "" {
		bin = "cargo"
	}
	return &Toolchain{bin: bin}
}

// Build compiles the project in optimized release mode
// (`cargo build --release`). The resulting artifact lands in the
// project's release directory (target/release by default).
func (t *Toolchain) Build(ctx context.Context, dir string) error {
	return t.run(ctx, dir, "build", "--release")
}

// Doc regenerates the documentation artifacts (`cargo doc --no-deps`).
// Dependencies are excluded: the deployed service serves only its own
// crate documentation.
func (t *Toolchain) Doc(ctx context.Context, dir string) error {
	return t.run(ctx, dir, "doc", "--no-deps")
}

// run executes a cargo subcommand in the given directory, treating any
// non-zero exit as a KindBuild failure.
//
// Unlike git, cargo has no -C flag in stable releases, so the working
// directory is set on the command itself. Stdout is discarded; stderr
// (where cargo writes progress and errors) is captured and its tail is
// included in the error message on failure.
func (t *Toolchain) run(ctx context.Context, dir string, args ...string) error {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, t.bin, args...)
	cmd.Dir = dir

	var stderr strings.Builder
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		message := fmt.Sprintf("%s %s failed", t.bin, strings.Join(args, " "))
		if tail := stderrTail(stderr.String()); tail != "" {
			message = fmt.Sprintf("%s: %s", message, tail)
		}
		return model.WrapCLIError(model.KindBuild, message, err)
	}

	return nil
}

// stderrTail trims stderr output to its last stderrTailLimit bytes.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTailLimit {
		s = s[len(s)-stderrTailLimit:]
	}
	return s
}
