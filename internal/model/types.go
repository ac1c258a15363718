package model

import (
	"fmt"
	"regexp"
	"time"
)

// ErrorKind classifies a deployment failure by the pipeline stage that
// produced it. The classification is reported to the operator and used
// by tests; every fatal kind maps to the same process exit code (1).
type ErrorKind string

const (
	// KindUsage indicates bad or missing command-line input.
	KindUsage ErrorKind = "usage"

	// KindDirectoryNotFound indicates the application directory does not
	// exist or is not accessible.
	KindDirectoryNotFound ErrorKind = "directory-not-found"

	// KindVcs indicates a version-control operation (hard reset, pull)
	// failed.
	KindVcs ErrorKind = "vcs"

	// KindBuild indicates the release build or documentation generation
	// failed.
	KindBuild ErrorKind = "build"

	// KindDeploy indicates a deployment operation (binary copy, supervisor
	// start, supervisor save) failed.
	KindDeploy ErrorKind = "deploy"

	// KindGeneral indicates an unclassified error.
	KindGeneral ErrorKind = "general"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// IsValid checks whether the ErrorKind value is one of the predefined
// error classes.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindUsage, KindDirectoryNotFound, KindVcs, KindBuild, KindDeploy, KindGeneral:
		return true
	default:
		return false
	}
}

// ExitCode defines the CLI exit codes. The contract is deliberately
// narrow: 0 on full success, 1 on usage error or on failure of any
// fatal pipeline step. The supervisor-stop step never affects the
// exit code (see deploy.Runner).
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates a usage error or a fatal step failure.
	ExitFailure ExitCode = 1
)

// DeploymentRequest is the single configuration value for one deployment
// run. It is constructed from command-line input, validated once, and
// treated as immutable for the rest of the run.
type DeploymentRequest struct {
	// AppName is the service name under the process supervisor. It is also
	// the artifact name produced by the release build.
	AppName string `json:"appName"`

	// Port is the TCP port passed to the started binary as a runtime
	// argument.
	Port int `json:"port"`

	// AppDir is the path to the working copy being redeployed. Existence
	// is verified as the first pipeline step, not here, so that a missing
	// directory is reported as a run failure rather than a usage error.
	AppDir string `json:"appDir"`
}

// appNameRegex validates application names: alphanumeric plus hyphens and
// underscores, starting with an alphanumeric character. The name is used
// both as a pm2 process name and as a filename, so anything shell-hostile
// is rejected up front.
var appNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// Validate checks the request for well-formedness. It does not touch the
// filesystem.
func (r *DeploymentRequest) Validate() error {
	if r.AppName == "" {
		return NewCLIError(KindUsage, "--app-name is required")
	}
	if !appNameRegex.MatchString(r.AppName) {
		return NewCLIError(KindUsage, fmt.Sprintf(
			"invalid app name %q: must contain only alphanumeric characters, hyphens, and underscores, and start with an alphanumeric", r.AppName))
	}
	if r.Port == 0 {
		return NewCLIError(KindUsage, "--port is required")
	}
	if r.Port < 1 || r.Port > 65535 {
		return NewCLIError(KindUsage, fmt.Sprintf("invalid port %d: out of range (1-65535)", r.Port))
	}
	if r.AppDir == "" {
		return NewCLIError(KindUsage, "--app-dir is required")
	}
	return nil
}

// ProcessInfo holds runtime information about a single supervised process.
// This data is decoded from the supervisor's process list (pm2 jlist) on
// demand, not persisted.
type ProcessInfo struct {
	// Name is the process name registered with the supervisor.
	Name string `json:"name"`

	// PID is the OS process ID, or 0 if the process is not running.
	PID int `json:"pid"`

	// Status is the supervisor's status string (e.g., "online", "stopped",
	// "errored").
	Status string `json:"status"`

	// Restarts is the number of times the supervisor has restarted the
	// process.
	Restarts int `json:"restarts"`

	// StartedAt is when the current incarnation of the process started.
	// Zero if the process is not running.
	StartedAt time.Time `json:"startedAt,omitempty"`

	// Memory is the resident memory usage in bytes.
	Memory uint64 `json:"memory"`

	// CPU is the CPU usage in percent.
	CPU float64 `json:"cpu"`
}

// IsOnline reports whether the supervisor considers the process running.
func (p *ProcessInfo) IsOnline() bool {
	return p.Status == "online"
}

// CLIError is a custom error type that carries an ErrorKind classification.
// This allows the CLI layer to report step-specific failures and tests to
// assert on the failure class without string matching.
type CLIError struct {
	// Kind is the failure classification.
	Kind ErrorKind

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given kind and message.
func NewCLIError(kind ErrorKind, message string) *CLIError {
	return &CLIError{Kind: kind, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(kind ErrorKind, message string, err error) *CLIError {
	return &CLIError{Kind: kind, Message: message, Err: err}
}
