package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// VersionControl covers the working-copy operations the pipeline needs.
// Satisfied by vcs.Client.
type VersionControl interface {
	ResetHard(ctx context.Context, dir string) error
	Pull(ctx context.Context, dir string) error
	Head(ctx context.Context, dir string) (string, error)
}

// Toolchain covers the build operations. Satisfied by build.Toolchain.
type Toolchain interface {
	Build(ctx context.Context, dir string) error
	Doc(ctx context.Context, dir string) error
}

// Supervisor covers the process-supervisor operations. Satisfied by
// supervisor.PM2.
type Supervisor interface {
	Stop(ctx context.Context, name string) error
	Start(ctx context.Context, binPath, name string, port int, extraArgs ...string) error
	Save(ctx context.Context) error
}

// StepCount is the number of pipeline steps. Each run prints exactly this
// many status lines (or fewer if it fails early).
const StepCount = 9

// Options configures a Runner beyond its collaborators.
type Options struct {
	// ArtifactDir is where the release build leaves the compiled binary,
	// relative to the application directory. Default: "target/release".
	ArtifactDir string

	// StartArgs are extra arguments forwarded to the started binary after
	// the port argument.
	StartArgs []string

	// Out receives the per-step status lines. Default: os.Stdout.
	Out io.Writer

	// Log receives diagnostics (pulled revision, tolerated stop failure).
	// Default: the logrus standard logger.
	Log logrus.FieldLogger
}

// Runner executes the deployment pipeline against one DeploymentRequest.
type Runner struct {
	vcs         VersionControl
	toolchain   Toolchain
	supervisor  Supervisor
	artifactDir string
	startArgs   []string
	out         io.Writer
	log         logrus.FieldLogger
}

// NewRunner creates a Runner with the given collaborators and options.
func NewRunner(vc VersionControl, tc Toolchain, sup Supervisor, opts Options) *Runner {
	if opts.ArtifactDir == "" {
		opts.ArtifactDir = filepath.Join("target", "release")
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Runner{
		vcs:         vc,
		toolchain:   tc,
		supervisor:  sup,
		artifactDir: opts.ArtifactDir,
		startArgs:   opts.StartArgs,
		out:         opts.Out,
		log:         opts.Log,
	}
}

// step is one pipeline stage: a status line printed before it runs, the
// operation itself, and whether its failure aborts the run.
type step struct {
	name     string
	tolerant bool
	run      func(ctx context.Context) error
}

// Run executes the pipeline for the given request. The request is
// validated first; a validation failure performs no external operations.
//
// Each step's status line is written to the runner's output before the
// step executes. The first fatal failure aborts the run and is returned
// as-is (every collaborator already wraps its errors in model.CLIError
// with the step-appropriate kind). The supervisor-stop step is tolerant:
// its failure is logged as a warning and the run continues, since the
// usual cause is simply that no prior instance exists.
func (r *Runner) Run(ctx context.Context, req model.DeploymentRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	artifact := filepath.Join(req.AppDir, r.artifactDir, req.AppName)
	deployedBin := filepath.Join(req.AppDir, req.AppName)

	steps := []step{
		{
			name: fmt.Sprintf("Checking application directory %s", req.AppDir),
			run: func(ctx context.Context) error {
				return verifyDir(req.AppDir)
			},
		},
		{
			name: "Discarding local modifications",
			run: func(ctx context.Context) error {
				return r.vcs.ResetHard(ctx, req.AppDir)
			},
		},
		{
			name: "Pulling latest revision",
			run: func(ctx context.Context) error {
				if err := r.vcs.Pull(ctx, req.AppDir); err != nil {
					return err
				}
				// Revision is diagnostics only; a failed rev-parse must not
				// fail the run.
				if head, headErr := r.vcs.Head(ctx, req.AppDir); headErr == nil {
					r.log.WithField("revision", head).Debug("working copy updated")
				}
				return nil
			},
		},
		{
			name: "Building release binary",
			run: func(ctx context.Context) error {
				return r.toolchain.Build(ctx, req.AppDir)
			},
		},
		{
			name: "Generating documentation",
			run: func(ctx context.Context) error {
				return r.toolchain.Doc(ctx, req.AppDir)
			},
		},
		{
			name:     fmt.Sprintf("Stopping previous instance of %s", req.AppName),
			tolerant: true,
			run: func(ctx context.Context) error {
				return r.supervisor.Stop(ctx, req.AppName)
			},
		},
		{
			name: fmt.Sprintf("Installing new binary to %s", deployedBin),
			run: func(ctx context.Context) error {
				return installArtifact(artifact, deployedBin)
			},
		},
		{
			name: fmt.Sprintf("Starting %s on port %d", req.AppName, req.Port),
			run: func(ctx context.Context) error {
				return r.supervisor.Start(ctx, deployedBin, req.AppName, req.Port, r.startArgs...)
			},
		},
		{
			name: "Saving supervisor process list",
			run: func(ctx context.Context) error {
				return r.supervisor.Save(ctx)
			},
		},
	}

	for i, s := range steps {
		fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(steps), s.name)

		if err := s.run(ctx); err != nil {
			if s.tolerant {
				r.log.WithError(err).Warnf("step %q failed, continuing (no prior instance is an expected case)", s.name)
				continue
			}
			return err
		}
	}

	return nil
}

// verifyDir checks that the application directory exists and is a
// directory. All later steps pass the directory to external tools
// per-command; the process's own working directory never changes.
func verifyDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewCLIError(model.KindDirectoryNotFound,
				fmt.Sprintf("application directory %s does not exist", dir))
		}
		return model.WrapCLIError(model.KindDirectoryNotFound,
			fmt.Sprintf("application directory %s is not accessible", dir), err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.KindDirectoryNotFound,
			fmt.Sprintf("%s is not a directory", dir))
	}
	return nil
}

// installArtifact copies the freshly built binary over the deployed one,
// truncating any previous deployment. The copy is made executable
// regardless of the artifact's mode.
func installArtifact(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return model.WrapCLIError(model.KindDeploy,
			fmt.Sprintf("built artifact %s not found", src), err)
	}
	if info.IsDir() {
		return model.NewCLIError(model.KindDeploy,
			fmt.Sprintf("built artifact %s is a directory", src))
	}

	in, err := os.Open(src)
	if err != nil {
		return model.WrapCLIError(model.KindDeploy,
			fmt.Sprintf("failed to open built artifact %s", src), err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return model.WrapCLIError(model.KindDeploy,
			fmt.Sprintf("failed to create deployed binary %s", dst), err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return model.WrapCLIError(model.KindDeploy,
			fmt.Sprintf("failed to copy artifact to %s", dst), err)
	}

	if err := out.Close(); err != nil {
		return model.WrapCLIError(model.KindDeploy,
			fmt.Sprintf("failed to finalize deployed binary %s", dst), err)
	}
	return nil
}
