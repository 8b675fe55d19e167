package cli

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/config"
	"github.com/go-while/go-nzbidx/internal/fetcher"
	"github.com/go-while/go-nzbidx/internal/nntp"
)

var findRangeFlags struct {
	group   string
	minDays int
	maxDays int
}

var findRangeCmd = &cobra.Command{
	Use:   "find-range",
	Short: "Locate article bounds for an age window",
	Long: `Find-range binary-searches each group's article numbers with
single-article XOVER probes and reports the range whose posting dates
fall between --min-days and --max-days of age. The same search drives
fetch when fetch.min_days/max_days are configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("min-days") {
			cfg.Fetch.MinDays = findRangeFlags.minDays
		}
		if cmd.Flags().Changed("max-days") {
			cfg.Fetch.MaxDays = findRangeFlags.maxDays
		}
		if cfg.Fetch.MaxDays <= 0 {
			return &config.ConfigError{Key: "fetch.max_days", Reason: "must be set for find-range"}
		}
		groups, err := targetGroups(findRangeFlags.group)
		if err != nil {
			return err
		}

		clientCfg, err := newClientConfig(1)
		if err != nil {
			return err
		}
		connPool := nntp.NewPool(clientCfg)
		defer connPool.ClosePool()

		var rows [][]string
		for _, group := range groups {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			win, err := fetcher.FindDateWindow(cmd.Context(), connPool, group, cfg.Fetch.MinDays, cfg.Fetch.MaxDays)
			if errors.Is(err, fetcher.ErrNoArticlesInWindow) {
				log.Printf("[RANGE] %s: no articles between %d and %d days old",
					group, cfg.Fetch.MinDays, cfg.Fetch.MaxDays)
				continue
			}
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				group,
				fmt.Sprintf("%d", win.Low),
				fmt.Sprintf("%d", win.High),
				fmt.Sprintf("%d", win.Count()),
				fmt.Sprintf("%.1f", win.LowAge),
				fmt.Sprintf("%.1f", win.HighAge),
			})
		}
		if len(rows) == 0 {
			return nil
		}
		printTable(os.Stdout, rows, []string{"group", "low", "high", "articles", "oldest (days)", "newest (days)"})
		return nil
	},
}

func init() {
	findRangeCmd.Flags().StringVar(&findRangeFlags.group, "group", "", "newsgroup to probe (default: groups.names from config)")
	findRangeCmd.Flags().IntVar(&findRangeFlags.minDays, "min-days", 0, "youngest article age in days (default: fetch.min_days)")
	findRangeCmd.Flags().IntVar(&findRangeFlags.maxDays, "max-days", 0, "oldest article age in days (default: fetch.max_days)")
	rootCmd.AddCommand(findRangeCmd)
}
