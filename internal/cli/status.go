// Package cli — status.go implements the "redeploy status" command.
//
// The status command queries the process supervisor's table (pm2 jlist)
// and reports the supervised processes as a text table or JSON array.
// An optional --app-name flag narrows the output to a single process.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/redeploy/internal/model"
	"github.com/mmr-tortoise/redeploy/internal/supervisor"
)

// statusFlags holds the flag values for the status command.
type statusFlags struct {
	// appName narrows the report to a single supervised process.
	appName string
}

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	flags := &statusFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show supervised process status",
		Long: `Show the status of processes under the supervisor.

Each process is shown with its name, PID, status, restart count, uptime,
memory, and CPU usage, as reported by pm2.

Examples:
  redeploy status
  redeploy status --app-name svc
  redeploy status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.appName, "app-name", "", "Show only the named process")

	return cmd
}

// runStatus queries the supervisor and prints the process table.
func runStatus(ctx context.Context, flags *statusFlags) error {
	// The status command runs outside any application directory, so only
	// the env override applies to the supervisor binary.
	sup := supervisor.NewPM2(os.Getenv("REDEPLOY_PM2_BIN"))

	procs, err := sup.List(ctx)
	if err != nil {
		return err
	}

	if flags.appName != "" {
		procs = filterByName(procs, flags.appName)
		if len(procs) == 0 {
			return model.NewCLIError(model.KindGeneral,
				fmt.Sprintf("no supervised process named %q", flags.appName))
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(procs, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	printProcessTable(procs)
	return nil
}

// filterByName returns the processes whose name matches exactly.
func filterByName(procs []model.ProcessInfo, name string) []model.ProcessInfo {
	var result []model.ProcessInfo
	for _, p := range procs {
		if p.Name == name {
			result = append(result, p)
		}
	}
	return result
}

// printProcessTable renders the process list as a fixed-width text table.
func printProcessTable(procs []model.ProcessInfo) {
	if len(procs) == 0 {
		fmt.Println("No supervised processes.")
		return
	}

	fmt.Printf("%-20s %-8s %-10s %-9s %-10s %-10s %s\n",
		"NAME", "PID", "STATUS", "RESTARTS", "UPTIME", "MEMORY", "CPU")
	for _, p := range procs {
		pid := "-"
		if p.PID > 0 {
			pid = strconv.Itoa(p.PID)
		}
		fmt.Printf("%-20s %-8s %-10s %-9d %-10s %-10s %.1f%%\n",
			p.Name, pid, p.Status, p.Restarts,
			formatUptime(p.StartedAt, time.Now()),
			formatMemory(p.Memory), p.CPU)
	}
}

// formatUptime renders the elapsed time since start in a compact form:
// "2d3h", "4h12m", "5m03s", or "-" for a process that is not running.
func formatUptime(startedAt, now time.Time) string {
	if startedAt.IsZero() || now.Before(startedAt) {
		return "-"
	}
	d := now.Sub(startedAt)

	switch {
	case d >= 24*time.Hour:
		days := int(d.Hours()) / 24
		hours := int(d.Hours()) % 24
		return fmt.Sprintf("%dd%dh", days, hours)
	case d >= time.Hour:
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		return fmt.Sprintf("%dh%02dm", hours, mins)
	default:
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%02ds", mins, secs)
	}
}

// formatMemory renders a byte count as a human-readable size with one
// decimal place, or "-" for zero.
func formatMemory(bytes uint64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes == 0:
		return "-"
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
