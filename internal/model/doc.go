// Package model defines the domain types and value objects for the
// redeploy CLI.
//
// This package contains pure data structures with no external dependencies.
// The central entity is DeploymentRequest, built once from command-line
// input, validated, and passed explicitly into the deployment runner.
// There is no process-wide mutable state and nothing is persisted.
//
// The package also defines the error taxonomy (ErrorKind), exit codes
// (ExitCode), and a custom error type (CLIError) that carries its
// classification for proper error reporting and OS process exit handling.
package model
