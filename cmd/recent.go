package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xvierd/branchbar/internal/domain"
)

var (
	recentLimit  int
	recentForget string
)

// recentCmd represents the recent command
var recentCmd = &cobra.Command{
	Use:   "recent [query]",
	Short: "List recently selected repositories",
	Long: `List repositories selected before, most recent first. A query fuzzy-matches
repository paths.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if recentForget != "" {
			path, err := domain.NormalizePath(recentForget)
			if err != nil {
				return err
			}
			if err := app.storage.Recent().Remove(ctx, path); err != nil {
				return fmt.Errorf("failed to forget repository: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", path)
			return nil
		}

		var (
			repos []domain.RecentRepository
			err   error
		)
		if len(args) == 1 {
			repos, err = app.coordinator.SearchRecentRepositories(ctx, args[0], recentLimit)
		} else {
			repos, err = app.coordinator.RecentRepositories(ctx, recentLimit)
		}
		if err != nil {
			return fmt.Errorf("failed to list recent repositories: %w", err)
		}

		if jsonOutput {
			return outputRecentJSON(cmd.OutOrStdout(), repos)
		}
		printRecent(cmd.OutOrStdout(), repos, time.Now())
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 10, "Maximum number of repositories to list")
	recentCmd.Flags().StringVar(&recentForget, "forget", "", "Remove a repository from the list")
}

func outputRecentJSON(w io.Writer, repos []domain.RecentRepository) error {
	items := make([]map[string]interface{}, 0, len(repos))
	for _, repo := range repos {
		items = append(items, map[string]interface{}{
			"name":             repo.Name,
			"path":             repo.Path,
			"last_selected_at": repo.LastSelectedAt.Format(time.RFC3339),
			"select_count":     repo.SelectCount,
		})
	}
	jsonData, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal repositories: %w", err)
	}
	fmt.Fprintln(w, string(jsonData))
	return nil
}

func printRecent(w io.Writer, repos []domain.RecentRepository, now time.Time) {
	if len(repos) == 0 {
		fmt.Fprintln(w, "No recent repositories.")
		return
	}

	cyan := color.New(color.FgCyan)
	dim := color.New(color.Faint)
	for _, repo := range repos {
		cyan.Fprintf(w, "  %-20s", repo.Name)
		fmt.Fprintf(w, " %s ", repo.Path)
		dim.Fprintf(w, "(%s)\n", formatAgo(now.Sub(repo.LastSelectedAt)))
	}
}

// formatAgo renders a duration as a coarse "time ago" string.
func formatAgo(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
