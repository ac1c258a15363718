// Package vcs provides the version-control operations of the deployment
// pipeline: discarding local modifications in the working copy and
// pulling the latest revision of the tracked branch.
//
// The package shells out to the `git` CLI rather than using a Go Git
// library (e.g., go-git) because the pipeline's semantics are exactly
// those of the CLI commands (`reset --hard`, `pull` with a real merge)
// and full Git CLI compatibility matters more than avoiding a
// subprocess.
//
// All errors from Git commands are wrapped in model.CLIError with
// KindVcs, with git's stderr folded into the message for diagnostics.
package vcs
