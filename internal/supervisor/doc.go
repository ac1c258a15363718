// Package supervisor wraps the pm2 process manager CLI for the
// redeploy pipeline.
//
// pm2 is driven through its command-line interface via os/exec; it has
// no wire protocol or Go SDK worth speaking to directly. The package
// covers the pipeline's supervisor contract (stop, start, save) plus
// process-list inspection via `pm2 jlist`, whose JSON output is decoded
// into model.ProcessInfo values for the status command.
//
// Failures are wrapped in model.CLIError with KindDeploy. Callers decide
// which failures are fatal: the pipeline tolerates a failed stop (no
// prior instance is an expected case) but not a failed start or save.
package supervisor
