package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/display"
	"github.com/xvierd/branchbar/internal/domain"
)

// selectCmd represents the select command
var selectCmd = &cobra.Command{
	Use:   "select <path>",
	Short: "Select the repository to monitor",
	Long: `Validate that path is inside a git repository and save it as the monitored
repository. A running status bar picks the selection up on its next start; use
"s" in the status bar to switch immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), settleTimeout())
		defer cancel()

		path := args[0]
		if err := app.coordinator.Select(ctx, path); err != nil {
			if errors.Is(err, domain.ErrNotARepository) {
				return fmt.Errorf("%s (%s)", display.NotARepositoryMessage, path)
			}
			return err
		}

		snap, err := settle(ctx, app.coordinator)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputStatusJSON(cmd.OutOrStdout(), snap, 0, false)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", snap.RepositoryPath())
		labelColor(snap.State).Fprintln(cmd.OutOrStdout(), snap.Label)
		return nil
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the selected repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		stored, err := app.storage.Selection().Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load selection: %w", err)
		}
		app.coordinator.Clear(ctx)

		if stored == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No repository was selected.")
			return nil
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "Selection cleared.")
		return nil
	},
}
