package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/database"
)

var statsFlags struct {
	group string
	runs  int
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-group store statistics and recent fetch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		groups, err := targetGroups(statsFlags.group)
		if err != nil {
			return err
		}

		var storeRows [][]string
		var runRows [][]string
		for _, group := range groups {
			store, err := database.OpenGroupStore(cfg.DB.BasePath, group)
			if err != nil {
				return err
			}
			st, err := store.Stats()
			if err != nil {
				store.Close()
				return err
			}
			runs, err := store.RecentFetchRuns(statsFlags.runs)
			if err != nil {
				store.Close()
				return err
			}
			store.Close()

			storeRows = append(storeRows, []string{
				st.GroupName,
				fmt.Sprintf("%d", st.Rows),
				fmt.Sprintf("%d", st.MinArticle),
				fmt.Sprintf("%d", st.MaxArticle),
				formatUnixDate(st.MinDate.Int64, st.MinDate.Valid),
				formatUnixDate(st.MaxDate.Int64, st.MaxDate.Valid),
				fmt.Sprintf("%d", st.Posters),
				formatBytes(st.FileBytes),
			})
			for _, run := range runs {
				runRows = append(runRows, []string{
					run.GroupName,
					fmt.Sprintf("%d-%d", run.LowArticle, run.HighArticle),
					run.StartedAt.UTC().Format("2006-01-02 15:04:05"),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
					fmt.Sprintf("%d", run.RowsInserted),
					fmt.Sprintf("%d", run.RowsIgnored),
					fmt.Sprintf("%d", run.ChunksFailed),
					fmt.Sprintf("%d", run.ParseErrors),
				})
			}
		}

		printTable(os.Stdout, storeRows, []string{
			"group", "rows", "min article", "max article",
			"oldest post", "newest post", "posters", "db size",
		})
		if len(runRows) > 0 {
			fmt.Println()
			printTable(os.Stdout, runRows, []string{
				"group", "range", "started (utc)", "took",
				"inserted", "ignored", "failed chunks", "parse errors",
			})
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFlags.group, "group", "", "newsgroup store to inspect (default: groups.names from config)")
	statsCmd.Flags().IntVar(&statsFlags.runs, "runs", 10, "number of recent fetch runs to show per group")
	rootCmd.AddCommand(statsCmd)
}

func formatUnixDate(unix int64, valid bool) string {
	if !valid || unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
