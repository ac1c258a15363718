package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mmr-tortoise/redeploy/internal/model"
)

// PM2 invokes the pm2 CLI to manage the supervised service process.
type PM2 struct {
	// bin is the pm2 executable to invoke, resolved via PATH unless an
	// absolute path is configured.
	bin string
}

// NewPM2 creates a pm2 client using the given binary. An empty string
// selects "pm2" from PATH.
func NewPM2(bin string) *PM2 {
	if bin == "" {
		bin = "pm2"
	}
	return &PM2{bin: bin}
}

// Stop stops the named process (`pm2 stop <name>`).
//
// pm2 exits non-zero when no process with that name exists. The pipeline
// treats that as an expected case. This method reports the failure and
// leaves the tolerance decision to the caller.
func (p *PM2) Stop(ctx context.Context, name string) error {
	_, err := p.run(ctx, "stop", name)
	return err
}

// Start launches the binary under pm2 with the given process name,
// passing the port as a runtime argument to the binary
// (`pm2 start <bin> --name <name> -- --port <port> [extraArgs...]`).
//
// Arguments after the `--` separator are forwarded verbatim to the
// started binary, not interpreted by pm2.
func (p *PM2) Start(ctx context.Context, binPath, name string, port int, extraArgs ...string) error {
	args := []string{"start", binPath, "--name", name, "--", "--port", strconv.Itoa(port)}
	args = append(args, extraArgs...)

	_, err := p.run(ctx, args...)
	return err
}

// Save persists the supervisor's current process list (`pm2 save`) so the
// started process survives supervisor restarts.
func (p *PM2) Save(ctx context.Context) error {
	_, err := p.run(ctx, "save")
	return err
}

// List returns the supervisor's process table, decoded from `pm2 jlist`.
// All supervised processes are returned; filtering by name is left to
// the caller.
func (p *PM2) List(ctx context.Context) ([]model.ProcessInfo, error) {
	output, err := p.run(ctx, "jlist")
	if err != nil {
		return nil, err
	}
	return decodeProcessList([]byte(output))
}

// pm2Process mirrors the subset of the `pm2 jlist` JSON schema the status
// command needs. pm2 emits far more (full environment, axm monitoring,
// versioning metadata); unknown fields are silently ignored.
type pm2Process struct {
	PID    int    `json:"pid"`
	Name   string `json:"name"`
	PM2Env struct {
		Status      string `json:"status"`
		RestartTime int    `json:"restart_time"`
		// PMUptime is the start timestamp in milliseconds since the epoch,
		// despite the field name.
		PMUptime int64 `json:"pm_uptime"`
	} `json:"pm2_env"`
	Monit struct {
		Memory uint64  `json:"memory"`
		CPU    float64 `json:"cpu"`
	} `json:"monit"`
}

// decodeProcessList parses `pm2 jlist` output into domain ProcessInfo
// values. This is a pure mapping function, split out for testability.
func decodeProcessList(data []byte) ([]model.ProcessInfo, error) {
	var raw []pm2Process
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, model.WrapCLIError(model.KindDeploy, "failed to decode supervisor process list", err)
	}

	result := make([]model.ProcessInfo, 0, len(raw))
	for _, proc := range raw {
		info := model.ProcessInfo{
			Name:     proc.Name,
			PID:      proc.PID,
			Status:   proc.PM2Env.Status,
			Restarts: proc.PM2Env.RestartTime,
			Memory:   proc.Monit.Memory,
			CPU:      proc.Monit.CPU,
		}
		if proc.PM2Env.PMUptime > 0 {
			info.StartedAt = time.UnixMilli(proc.PM2Env.PMUptime).UTC()
		}
		result = append(result, info)
	}
	return result, nil
}

// run executes a pm2 command, returning its stdout on success. On a
// non-zero exit it returns a model.CLIError with KindDeploy, folding
// pm2's stderr into the message.
//
// No working directory is set: pm2 addresses processes by name and the
// binary path passed to Start is absolute.
func (p *PM2) run(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.CommandContext(ctx, p.bin, args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("pm2 %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.KindDeploy, message, err)
	}

	return stdout.String(), nil
}
