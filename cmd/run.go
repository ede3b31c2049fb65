package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/adapters/git"
	"github.com/xvierd/branchbar/internal/adapters/tui"
	"github.com/xvierd/branchbar/internal/domain"
	"github.com/xvierd/branchbar/internal/instance"
	"github.com/xvierd/branchbar/internal/ports"
)

// recentPickerLimit bounds the repositories offered by the picker.
const recentPickerLimit = 50

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the status bar",
	Long: `Start the status bar for the selected repository. The previous selection
is restored on startup; press "s" to pick a repository.`,
	RunE: runStatusBar,
}

// runStatusBar restores the last selection, starts the refresh loop and
// blocks on the status bar until the user quits.
func runStatusBar(cmd *cobra.Command, args []string) error {
	dataDir := app.config.Storage.DataDir
	lock, err := instance.Lock(dataDir)
	if err != nil {
		return err
	}
	defer instance.Cleanup(dataDir, lock)

	ctx := setupSignalHandler()
	coord := app.coordinator

	if app.config.Watch.Enabled {
		watcher := git.NewHeadWatcher(app.resolver, app.logs.For("watcher"))
		watcher.SetOnChange(coord.RefreshNow)
		coord.SetWatcher(watcher)
		defer func() { _ = watcher.Close() }()
	}
	if app.notifier.IsEnabled() {
		coord.SetNotifier(app.notifier)
	}

	bar := tui.NewStatusBar(autostartState())
	coord.SetOnChange(bar.Show)
	bar.SetCommandCallback(commandHandler(ctx))
	if app.autostart.Available() {
		bar.SetAutostartReader(app.autostart.Enabled)
	}
	bar.SetRecentLoader(func() []domain.RecentRepository {
		recent, err := coord.RecentRepositories(ctx, recentPickerLimit)
		if err != nil {
			app.log.Warn("failed to load recent repositories", "error", err)
		}
		return recent
	})

	if coord.Restore(ctx) {
		app.log.Info("restored selection", "path", coord.Snapshot().RepositoryPath())
	}
	coord.Start(ctx)
	defer coord.Stop()

	return bar.Run(ctx, coord.Snapshot())
}

// autostartState reads the launch-at-login registration for the status bar.
func autostartState() tui.AutostartState {
	state := tui.AutostartState{Available: app.autostart.Available()}
	if state.Available {
		enabled, err := app.autostart.Enabled()
		if err != nil {
			app.log.Warn("failed to read autostart state", "error", err)
		}
		state.Enabled = enabled
	}
	return state
}

// commandHandler maps status bar commands onto the coordinator and the
// desktop adapters.
func commandHandler(ctx context.Context) func(ports.Command, string) error {
	return func(command ports.Command, arg string) error {
		app.log.Debug("command", "cmd", string(command), "arg", arg)

		switch command {
		case ports.CmdSelect:
			err := app.coordinator.Select(ctx, arg)
			if errors.Is(err, domain.ErrNotARepository) {
				if notifyErr := app.notifier.NotifyNotARepository(arg); notifyErr != nil {
					app.log.Warn("failed to raise alert", "error", notifyErr)
				}
			}
			return err
		case ports.CmdClear:
			app.coordinator.Clear(ctx)
		case ports.CmdRefresh:
			app.coordinator.RefreshNow()
		case ports.CmdToggleAutostart:
			enabled, err := app.autostart.Toggle()
			if err != nil {
				return fmt.Errorf("failed to toggle launch at login: %w", err)
			}
			app.log.Info("launch at login toggled", "enabled", enabled)
		case ports.CmdOpen:
			if arg == "" {
				return domain.ErrNoSelection
			}
			return app.opener.Open(ctx, arg)
		case ports.CmdQuit:
			app.log.Info("quit requested")
		default:
			return fmt.Errorf("unknown command %q", command)
		}
		return nil
	}
}
