// Package deploy implements the deployment pipeline: a fixed, ordered
// sequence of external operations that redeploys a single compiled
// service, aborting at the first fatal failure.
//
// The nine steps, in order: verify the application directory, discard
// local modifications, pull the latest revision, build the release
// binary, regenerate documentation, stop the previous instance
// (non-fatal), install the new binary, start the new instance, and save
// the supervisor's process list.
//
// There are no retries, no rollback on partial failure, and no timeouts
// beyond operator cancellation via context. A successful stop followed
// by a failed start leaves the service down; that is the accepted
// failure mode.
//
// The Runner depends on small interfaces (VersionControl, Toolchain,
// Supervisor) satisfied by the vcs, build, and supervisor packages, so
// the sequencing and fail-fast behavior are testable without any
// external tools.
package deploy
