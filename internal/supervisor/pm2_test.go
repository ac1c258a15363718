package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// sampleJList is a trimmed-down capture of real `pm2 jlist` output for a
// single online process plus one stopped process. pm2 emits many more
// fields; the decoder must tolerate and ignore them.
const sampleJList = `[
  {
    "pid": 31415,
    "name": "athena",
    "pm2_env": {
      "status": "online",
      "restart_time": 4,
      "pm_uptime": 1693339000000,
      "exec_mode": "fork_mode",
      "watch": false
    },
    "monit": {
      "memory": 52428800,
      "cpu": 0.3
    }
  },
  {
    "pid": 0,
    "name": "legacy-worker",
    "pm2_env": {
      "status": "stopped",
      "restart_time": 17,
      "pm_uptime": 0
    },
    "monit": {
      "memory": 0,
      "cpu": 0
    }
  }
]`

// writeStubPM2 creates a fake pm2 executable that logs its arguments to
// logPath, prints the given stdout, and exits with the given code.
func writeStubPM2(t *testing.T, exitCode int, stdout string) (binPath, logPath string) {
	t.Helper()

	dir := t.TempDir()
	binPath = filepath.Join(dir, "pm2-stub")
	logPath = filepath.Join(dir, "invocations.log")
	stdoutPath := filepath.Join(dir, "stdout.txt")

	require.NoError(t, os.WriteFile(stdoutPath, []byte(stdout), 0644))

	script := fmt.Sprintf("#!/bin/sh\necho \"$*\" >> %q\ncat %q\nexit %d\n",
		logPath, stdoutPath, exitCode)
	require.NoError(t, os.WriteFile(binPath, []byte(script), 0755))
	return binPath, logPath
}

// readLog returns the stub's invocation log, one line per call.
func readLog(t *testing.T, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err, "stub pm2 was never invoked")
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// TestStopInvocation verifies the stop command line.
func TestStopInvocation(t *testing.T) {
	bin, logPath := writeStubPM2(t, 0, "")

	p := NewPM2(bin)
	require.NoError(t, p.Stop(context.Background(), "athena"))

	lines := readLog(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "stop athena", lines[0])
}

// TestStartInvocation verifies the start command line, in particular that
// the port lands after the `--` separator so pm2 forwards it to the
// started binary instead of consuming it.
func TestStartInvocation(t *testing.T) {
	bin, logPath := writeStubPM2(t, 0, "")

	p := NewPM2(bin)
	err := p.Start(context.Background(), "/srv/svc/athena", "athena", 4052)
	require.NoError(t, err)

	lines := readLog(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "start /srv/svc/athena --name athena -- --port 4052", lines[0])
}

// TestStartExtraArgs verifies that configured extra arguments are appended
// after the port argument.
func TestStartExtraArgs(t *testing.T) {
	bin, logPath := writeStubPM2(t, 0, "")

	p := NewPM2(bin)
	err := p.Start(context.Background(), "/srv/svc/athena", "athena", 4052, "--log-level", "debug")
	require.NoError(t, err)

	lines := readLog(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "start /srv/svc/athena --name athena -- --port 4052 --log-level debug", lines[0])
}

// TestSaveInvocation verifies the save command line.
func TestSaveInvocation(t *testing.T) {
	bin, logPath := writeStubPM2(t, 0, "")

	p := NewPM2(bin)
	require.NoError(t, p.Save(context.Background()))

	lines := readLog(t, logPath)
	require.Len(t, lines, 1)
	assert.Equal(t, "save", lines[0])
}

// TestStopFailure verifies that a non-zero exit (pm2's behavior when the
// named process does not exist) surfaces as a KindDeploy error. The
// pipeline, not this package, decides that this particular failure is
// tolerated.
func TestStopFailure(t *testing.T) {
	bin, _ := writeStubPM2(t, 1, "")

	p := NewPM2(bin)
	err := p.Stop(context.Background(), "no-such-process")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindDeploy, cliErr.Kind)
}

// TestList verifies end-to-end jlist decoding through the stub.
func TestList(t *testing.T) {
	bin, _ := writeStubPM2(t, 0, sampleJList)

	p := NewPM2(bin)
	procs, err := p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, procs, 2)
	assert.Equal(t, "athena", procs[0].Name)
	assert.Equal(t, "legacy-worker", procs[1].Name)
}

// TestDecodeProcessList verifies field mapping from the pm2 schema into
// the domain type.
func TestDecodeProcessList(t *testing.T) {
	procs, err := decodeProcessList([]byte(sampleJList))
	require.NoError(t, err)
	require.Len(t, procs, 2)

	online := procs[0]
	assert.Equal(t, "athena", online.Name)
	assert.Equal(t, 31415, online.PID)
	assert.Equal(t, "online", online.Status)
	assert.True(t, online.IsOnline())
	assert.Equal(t, 4, online.Restarts)
	assert.Equal(t, uint64(52428800), online.Memory)
	assert.InDelta(t, 0.3, online.CPU, 0.001)
	assert.Equal(t, time.UnixMilli(1693339000000).UTC(), online.StartedAt)

	stopped := procs[1]
	assert.Equal(t, "stopped", stopped.Status)
	assert.False(t, stopped.IsOnline())
	assert.True(t, stopped.StartedAt.IsZero(), "stopped process should have no start time")
}

// TestDecodeProcessListEmpty verifies that an empty process table decodes
// to an empty slice, not an error.
func TestDecodeProcessListEmpty(t *testing.T) {
	procs, err := decodeProcessList([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, procs)
}

// TestDecodeProcessListInvalid verifies that malformed JSON surfaces as a
// KindDeploy error.
func TestDecodeProcessListInvalid(t *testing.T) {
	_, err := decodeProcessList([]byte("not json"))
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.KindDeploy, cliErr.Kind)
}
