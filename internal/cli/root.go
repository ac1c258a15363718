// Package cli implements the cobra-based CLI commands for redeploy.
//
// The root command IS the deployment run: `redeploy --app-name svc
// --port 8080 --app-dir /srv/svc` executes the full pipeline. Auxiliary
// subcommands (status) live in their own files within this package.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/redeploy/internal/build"
	"github.com/mmr-tortoise/redeploy/internal/config"
	"github.com/mmr-tortoise/redeploy/internal/deploy"
	"github.com/mmr-tortoise/redeploy/internal/model"
	"github.com/mmr-tortoise/redeploy/internal/supervisor"
	"github.com/mmr-tortoise/redeploy/internal/vcs"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, stdout carries only structured JSON; the per-step status
	// lines of a deployment run are suppressed.
	jsonOutput bool

	// verbose raises the diagnostic log level to debug.
	verbose bool

	// configPath names an explicit config file, bypassing discovery in
	// the application directory.
	configPath string
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// deployFlags holds the flag values for the deployment run.
type deployFlags struct {
	appName string // --app-name: service name under the supervisor
	port    int    // --port: TCP port passed to the started binary
	appDir  string // --app-dir: working copy directory
}

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
func NewRootCommand() *cobra.Command {
	flags := &deployFlags{}

	rootCmd := &cobra.Command{
		Use:   "redeploy --app-name <name> --port <port> --app-dir <path>",
		Short: "Redeploy a compiled service from its working copy",
		Long: `redeploy automates redeployment of a single compiled service.

Given an application name, port, and working copy directory, it resets the
working copy, pulls the latest revision, rebuilds in release mode,
regenerates documentation, and restarts the process under pm2, stopping
at the first failure. There are no retries and no rollback.

Examples:
  redeploy --app-name svc --port 8080 --app-dir /srv/svc
  redeploy --verbose --app-name athena --port 4052 --app-dir /home/ops/athena
  redeploy status --app-name svc`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We print usage ourselves, but only for usage-class errors.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		Args: cobra.NoArgs,

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging()
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), flags)
		},
	}

	// The three deployment parameters. Required-ness is enforced by
	// DeploymentRequest.Validate rather than cobra so that the failure is
	// a model.CLIError with KindUsage like every other usage problem.
	rootCmd.Flags().StringVar(&flags.appName, "app-name", "", "Service name under the process supervisor (required)")
	rootCmd.Flags().IntVar(&flags.port, "port", 0, "TCP port passed to the started binary (required)")
	rootCmd.Flags().StringVar(&flags.appDir, "app-dir", "", "Working copy directory (required)")

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: redeploy.jsonc/.yaml in the app directory)")

	// Unrecognized flags become usage-class errors so Execute prints
	// usage alongside the message.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return model.WrapCLIError(model.KindUsage, "invalid arguments", err)
	})

	rootCmd.AddCommand(NewStatusCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// Exit codes are deliberately flat: 0 on full success, 1 on a usage error
// or any fatal step failure. Usage errors additionally get the usage text
// printed, since the operator's invocation was malformed.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(cliErr.Message, cliErr.Err, cliErr.Kind)
			if cliErr.Kind == model.KindUsage && !jsonOutput {
				fmt.Fprint(os.Stderr, rootCmd.UsageString())
			}
		} else {
			printError(err.Error(), nil, model.KindGeneral)
		}
		os.Exit(int(model.ExitFailure))
	}
}

// runDeploy wires the pipeline collaborators from configuration and
// executes the run for the requested service.
func runDeploy(ctx context.Context, flags *deployFlags) error {
	req := model.DeploymentRequest{
		AppName: flags.appName,
		Port:    flags.port,
		AppDir:  flags.appDir,
	}
	// Validate before touching anything: a usage error must have no
	// external side effects.
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(req.AppDir, configPath)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"git":   cfg.GitBin,
		"cargo": cfg.CargoBin,
		"pm2":   cfg.PM2Bin,
	}).Debug("resolved tool configuration")

	// In JSON mode stdout is reserved for the final result object, so the
	// per-step status lines are dropped.
	var stepOut io.Writer = os.Stdout
	if jsonOutput {
		stepOut = io.Discard
	}

	runner := deploy.NewRunner(
		vcs.NewClient(cfg.GitBin),
		build.NewToolchain(cfg.CargoBin),
		supervisor.NewPM2(cfg.PM2Bin),
		deploy.Options{
			ArtifactDir: cfg.ArtifactDir,
			StartArgs:   cfg.StartArgs,
			Out:         stepOut,
			Log:         logrus.StandardLogger(),
		},
	)

	if err := runner.Run(ctx, req); err != nil {
		return err
	}

	printDeployResult(req)
	return nil
}

// printDeployResult outputs the success summary in text or JSON format.
func printDeployResult(req model.DeploymentRequest) {
	if jsonOutput {
		result := map[string]interface{}{
			"appName": req.AppName,
			"port":    req.Port,
			"appDir":  req.AppDir,
			"status":  "deployed",
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Printf("Deployed %s on port %d\n", req.AppName, req.Port)
}

// configureLogging sets up the logrus standard logger used for
// diagnostics. Status lines and results go to stdout; diagnostics always
// go to stderr so JSON output stays clean.
func configureLogging() {
	logrus.SetOutput(os.Stderr)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error, kind model.ErrorKind) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"kind":    kind.String(),
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode, because stdout is
		// reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}
