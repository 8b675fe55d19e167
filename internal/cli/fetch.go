package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-while/go-nzbidx/internal/database"
	"github.com/go-while/go-nzbidx/internal/fetcher"
	"github.com/go-while/go-nzbidx/internal/nntp"
)

var fetchFlags struct {
	group          string
	start          uint64
	backFilledUpTo uint64
	limit          uint64
	workers        int
	chunkSize      uint64
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch overview ranges into per-group SQLite stores",
	Long: `Fetch partitions the article range of each target group into chunks,
retrieves them over parallel NNTP connections and upserts the parsed
overview rows into <db.base_path>/<group>.sqlite. Refetching a range is
idempotent. Without explicit bounds the fetch resumes above the highest
article already stored.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFetchFlags(cmd)
		groups, err := targetGroups(fetchFlags.group)
		if err != nil {
			return err
		}

		clientCfg, err := newClientConfig(cfg.Fetch.MaxWorkers)
		if err != nil {
			return err
		}
		connPool := nntp.NewPool(clientCfg)
		defer connPool.ClosePool()

		var failedChunks int
		for _, group := range groups {
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			failed, err := fetchGroup(cmd.Context(), connPool, group)
			if err != nil {
				return err
			}
			failedChunks += failed
		}
		if failedChunks > 0 {
			return fmt.Errorf("%w: %d chunks across %d groups", ErrPartialFetch, failedChunks, len(groups))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVar(&fetchFlags.group, "group", "", "newsgroup to fetch (default: groups.names from config)")
	fetchCmd.Flags().Uint64Var(&fetchFlags.start, "start", 0, "upper article number, inclusive (default: server high water)")
	fetchCmd.Flags().Uint64Var(&fetchFlags.backFilledUpTo, "back-filled-up-to", 0, "lower article number, inclusive (default: server low water)")
	fetchCmd.Flags().Uint64Var(&fetchFlags.limit, "limit", 0, "max articles per group, 0 = unlimited")
	fetchCmd.Flags().IntVar(&fetchFlags.workers, "workers", 0, "parallel connections (default: fetch.max_workers)")
	fetchCmd.Flags().Uint64Var(&fetchFlags.chunkSize, "chunk-size", 0, "articles per XOVER request (default: fetch.chunk_size)")
	rootCmd.AddCommand(fetchCmd)
}

// applyFetchFlags folds changed flags over the file config.
func applyFetchFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("start") {
		cfg.Fetch.Start = fetchFlags.start
	}
	if cmd.Flags().Changed("back-filled-up-to") {
		cfg.Fetch.BackFilledUpTo = fetchFlags.backFilledUpTo
	}
	if cmd.Flags().Changed("limit") {
		cfg.Fetch.Limit = fetchFlags.limit
	}
	if cmd.Flags().Changed("workers") {
		cfg.Fetch.MaxWorkers = fetchFlags.workers
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.Fetch.ChunkSize = fetchFlags.chunkSize
	}
}

// fetchGroup runs one group end to end and returns its failed chunk count.
func fetchGroup(ctx context.Context, connPool *nntp.Pool, group string) (int, error) {
	store, err := database.OpenGroupStore(cfg.DB.BasePath, group)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	opts := fetcher.Options{
		ChunkSize:  cfg.Fetch.ChunkSize,
		MaxWorkers: cfg.Fetch.MaxWorkers,
		Limit:      cfg.Fetch.Limit,
		OnProgress: logProgress(group),
	}
	if cfg.Fetch.ArchivePath != "" {
		archive, err := database.NewArchiveWriter(cfg.Fetch.ArchivePath, group)
		if err != nil {
			return 0, err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				log.Printf("[FETCH] close archive for %s: %v", group, err)
			}
		}()
		opts.Archive = archive
	}
	f := fetcher.New(connPool, store, opts)

	low, high, ok, err := resolveFetchBounds(ctx, connPool, f, store, group)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	res, err := f.FetchRange(ctx, group, low, high)
	if err != nil {
		return len(res.Failed), err
	}
	for _, fc := range res.Failed {
		log.Printf("[FETCH] %s: chunk %d-%d abandoned: %v", group, fc.Chunk.Low, fc.Chunk.High, fc.Err)
	}
	return len(res.Failed), nil
}

// resolveFetchBounds picks the article range for one group: explicit
// bounds win, then a configured date window, then resume above the
// locally stored maximum. ok is false when there is nothing new.
func resolveFetchBounds(ctx context.Context, connPool *nntp.Pool, f *fetcher.Fetcher, store *database.GroupStore, group string) (low, high uint64, ok bool, err error) {
	explicit := cfg.Fetch.Start != 0 || cfg.Fetch.BackFilledUpTo != 0

	if !explicit && cfg.Fetch.MaxDays > 0 {
		win, err := fetcher.FindDateWindow(ctx, connPool, group, cfg.Fetch.MinDays, cfg.Fetch.MaxDays)
		if errors.Is(err, fetcher.ErrNoArticlesInWindow) {
			log.Printf("[FETCH] %s: no articles between %d and %d days old",
				group, cfg.Fetch.MinDays, cfg.Fetch.MaxDays)
			return 0, 0, false, nil
		}
		if err != nil {
			return 0, 0, false, err
		}
		log.Printf("[FETCH] %s: date window %d-%d (%d articles, %.1f-%.1f days old)",
			group, win.Low, win.High, win.Count(), win.HighAge, win.LowAge)
		return win.Low, win.High, true, nil
	}

	low, high, err = f.ResolveRange(group, cfg.Fetch.Start, cfg.Fetch.BackFilledUpTo)
	if err != nil {
		return 0, 0, false, err
	}
	if !explicit {
		_, localHigh, err := store.LocalRange()
		if err != nil {
			return 0, 0, false, err
		}
		if localHigh >= high {
			log.Printf("[FETCH] %s: store already at %d, nothing new", group, localHigh)
			return 0, 0, false, nil
		}
		if localHigh >= low {
			low = localHigh + 1
			log.Printf("[FETCH] %s: resuming above stored article %d", group, localHigh)
		}
	}
	return low, high, true, nil
}

// logProgress reports chunk completion, throttled to one line per second.
func logProgress(group string) func(fetcher.Progress) {
	var last time.Time
	return func(p fetcher.Progress) {
		if p.ChunksDone < p.ChunksTotal && time.Since(last) < time.Second {
			return
		}
		last = time.Now()
		log.Printf("[FETCH] %s: %d/%d chunks, %d rows", group, p.ChunksDone, p.ChunksTotal, p.Rows)
	}
}
