package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/adapters/storage"
	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/instance"
	"github.com/xvierd/branchbar/internal/services"
)

var statusPath string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current branch",
	Long: `Resolve the branch of the selected repository once and print the status
bar label. Use --path to check another repository without changing the selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout())
		defer cancel()

		coord := app.coordinator
		if statusPath != "" {
			mem, err := storage.NewMemory()
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer mem.Close()

			coord = newCoordinator(mem)
			defer coord.Stop()
			if err := coord.Select(ctx, statusPath); err != nil {
				return err
			}
		} else {
			coord.Restore(ctx)
		}

		snap, err := settle(ctx, coord)
		if err != nil {
			return err
		}

		pid, running := instance.Running(app.config.Storage.DataDir)
		if jsonOutput {
			return outputStatusJSON(cmd.OutOrStdout(), snap, pid, running)
		}
		printStatusText(cmd.OutOrStdout(), snap, pid, running)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusPath, "path", "", "Check this repository instead of the saved selection")
}

// settle runs coord until its first resolution lands.
func settle(ctx context.Context, coord *services.Coordinator) (domain.Snapshot, error) {
	coord.Start(ctx)
	snap, err := coord.WaitSettled(ctx)
	if err != nil {
		return snap, fmt.Errorf("timed out waiting for git: %w", err)
	}
	return snap, nil
}

// statusJSON is the --json shape of a snapshot.
func statusJSON(snap domain.Snapshot, pid int, running bool) map[string]interface{} {
	result := map[string]interface{}{
		"label":      snap.Label,
		"state":      string(snap.State.Kind),
		"detail":     display.Detail(snap.State),
		"repository": nil,
		"daemon": map[string]interface{}{
			"running": running,
		},
	}
	if running && pid > 0 {
		result["daemon"].(map[string]interface{})["pid"] = pid
	}
	if snap.HasSelection() {
		result["repository"] = map[string]interface{}{
			"name": snap.RepositoryName(),
			"path": snap.RepositoryPath(),
		}
	}
	if snap.State.Kind == domain.StateUnavailable {
		result["reason"] = snap.State.Reason
	}
	if !snap.UpdatedAt.IsZero() {
		result["updated_at"] = snap.UpdatedAt.Format(time.RFC3339)
	}
	return result
}

// outputStatusJSON outputs the status in JSON format
func outputStatusJSON(w io.Writer, snap domain.Snapshot, pid int, running bool) error {
	jsonData, err := json.MarshalIndent(statusJSON(snap, pid, running), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}

// printStatusText prints the status in plain text format
func printStatusText(w io.Writer, snap domain.Snapshot, pid int, running bool) {
	labelColor(snap.State).Fprintln(w, snap.Label)

	if snap.HasSelection() {
		fmt.Fprintf(w, "  Repository: %s\n", snap.RepositoryName())
		fmt.Fprintf(w, "  Branch:     %s\n", display.Detail(snap.State))
		fmt.Fprintf(w, "  Path:       %s\n", snap.RepositoryPath())
		if snap.State.Kind == domain.StateUnavailable && snap.State.Reason != "" {
			fmt.Fprintf(w, "  Reason:     %s\n", snap.State.Reason)
		}
	}

	dim := color.New(color.Faint)
	switch {
	case running && pid > 0:
		dim.Fprintf(w, "  Status bar running (pid %d)\n", pid)
	case running:
		dim.Fprintln(w, "  Status bar running")
	default:
		dim.Fprintln(w, "  Status bar not running")
	}
}

// labelColor picks the terminal color for a state.
func labelColor(state domain.BranchState) *color.Color {
	switch state.Kind {
	case domain.StateBranch:
		return color.New(color.FgGreen, color.Bold)
	case domain.StateDetached:
		return color.New(color.FgYellow, color.Bold)
	case domain.StateUnavailable:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Faint)
	}
}
