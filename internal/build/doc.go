// Package build provides the compilation steps of the deployment
// pipeline: the optimized release build and documentation generation.
//
// The build tool (cargo) is driven through its CLI via os/exec, the same
// way the pipeline drives git and pm2. No timeout is imposed on either
// invocation; a hung build blocks until the operator cancels the run.
//
// Failures are wrapped in model.CLIError with KindBuild, with the tool's
// stderr tail folded into the message.
package build
