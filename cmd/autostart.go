package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/adapters/desktop"
)

// autostartCmd represents the autostart command
var autostartCmd = &cobra.Command{
	Use:       "autostart [enable|disable|status]",
	Short:     "Manage launch at login",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"enable", "disable", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "status"
		if len(args) == 1 {
			action = args[0]
		}

		if !app.autostart.Available() {
			if action == "status" {
				fmt.Fprintln(cmd.OutOrStdout(), "Launch at login: (unsupported)")
				return nil
			}
			return desktop.ErrUnsupported
		}

		switch action {
		case "enable", "disable":
			if err := app.autostart.SetEnabled(action == "enable"); err != nil {
				if errors.Is(err, desktop.ErrUnsupported) {
					return err
				}
				return fmt.Errorf("failed to %s launch at login: %w", action, err)
			}
		case "status":
		default:
			return fmt.Errorf("unknown action %q (want enable, disable or status)", action)
		}

		enabled, err := app.autostart.Enabled()
		if err != nil {
			return fmt.Errorf("failed to read launch at login: %w", err)
		}
		state := "off"
		if enabled {
			state = "on"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Launch at login: %s\n", state)
		return nil
	},
}
