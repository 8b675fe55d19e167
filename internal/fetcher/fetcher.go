// Package fetcher orchestrates parallel chunked XOVER retrieval into a
// group store: it partitions an article range into chunks, fans them out
// across a worker pool backed by pooled NNTP connections, and serializes
// all writes through a single writer goroutine.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"

	"github.com/go-while/go-nzbidx/internal/database"
	"github.com/go-while/go-nzbidx/internal/metrics"
	"github.com/go-while/go-nzbidx/internal/models"
	"github.com/go-while/go-nzbidx/internal/nntp"
	"github.com/go-while/go-nzbidx/internal/overview"
)

const (
	DefaultChunkSize  = 100000
	DefaultMaxWorkers = 10

	defaultAttempts  = 4
	defaultRetryBase = 500 * time.Millisecond
	maxChunkDelay    = 15 * time.Second
)

// Chunk is one inclusive XOVER article range.
type Chunk struct {
	Low  uint64
	High uint64
}

// FailedChunk records a chunk abandoned after exhausting its retries.
type FailedChunk struct {
	Chunk Chunk
	Err   error
}

// Progress is a snapshot reported after each processed chunk.
type Progress struct {
	ChunksDone  int
	ChunksTotal int
	Rows        int64
}

// Options configure a fetch run. Zero values take the defaults.
type Options struct {
	ChunkSize  uint64
	MaxWorkers int

	// Limit caps the number of articles fetched, counted from the low end
	// of the range. 0 fetches the whole range.
	Limit uint64

	// RetryAttempts is the number of tries per chunk including the first.
	RetryAttempts  uint
	RetryBaseDelay time.Duration

	// OnProgress, when set, is called serially after every processed chunk.
	// Keep it fast: it runs under the progress lock.
	OnProgress func(Progress)

	// Archive, when set, receives every completed chunk as NDJSON before
	// the store upsert.
	Archive *database.ArchiveWriter
}

// Result totals one fetch run. Failed lists the chunks that never made it;
// re-running the same range is safe because upserts are idempotent.
type Result struct {
	Group       string
	Low, High   uint64
	ChunksTotal int

	RowsParsed   int64
	RowsInserted int64
	RowsIgnored  int64
	ParseErrors  int64
	Failed       []FailedChunk

	StartedAt  time.Time
	FinishedAt time.Time
}

// Fetcher drives parallel chunked XOVER retrieval for one group store.
type Fetcher struct {
	pool  *nntp.Pool
	store *database.GroupStore
	opts  Options
}

// New applies defaults to opts and returns a ready Fetcher.
func New(connPool *nntp.Pool, store *database.GroupStore, opts Options) *Fetcher {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = DefaultMaxWorkers
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = defaultAttempts
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = defaultRetryBase
	}
	return &Fetcher{pool: connPool, store: store, opts: opts}
}

// ResolveRange turns configured bounds into a concrete article range using
// the server's GROUP response: a zero start means the server's high water
// mark, a zero backFilledUpTo the server's low.
func (f *Fetcher) ResolveRange(group string, start, backFilledUpTo uint64) (low, high uint64, err error) {
	conn, err := f.pool.Get()
	if err != nil {
		return 0, 0, err
	}
	info, err := conn.SelectGroup(group)
	if err != nil {
		f.pool.Discard(conn)
		return 0, 0, err
	}
	f.pool.Put(conn)

	low = backFilledUpTo
	if low == 0 {
		low = uint64(info.First)
	}
	high = start
	if high == 0 {
		high = uint64(info.Last)
	}
	if low > high {
		return 0, 0, fmt.Errorf("empty range %d-%d for %s", low, high, group)
	}
	return low, high, nil
}

type chunkResult struct {
	chunk Chunk
	rows  []*models.OverviewRow
}

// FetchRange fetches [low, high] in parallel chunks and upserts every
// completed chunk into the group store. Transport failures are retried per
// chunk; chunks that exhaust their retries land in Result.Failed without
// aborting the run. Store and archive failures abort. The returned error is
// nil on full or partial success.
func (f *Fetcher) FetchRange(ctx context.Context, group string, low, high uint64) (*Result, error) {
	chunks := buildChunks(low, high, f.opts.ChunkSize, f.opts.Limit)
	res := &Result{
		Group:       group,
		Low:         low,
		High:        high,
		ChunksTotal: len(chunks),
		StartedAt:   time.Now().UTC(),
	}
	if len(chunks) == 0 {
		res.FinishedAt = time.Now().UTC()
		return res, nil
	}
	log.Printf("[FETCH] %s: %d articles in %d chunks of %d, %d workers",
		group, high-low+1, len(chunks), f.opts.ChunkSize, f.opts.MaxWorkers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Single writer drains completed chunks. Workers block on send when the
	// writer lags, which caps buffered rows at about MaxWorkers chunks.
	results := make(chan *chunkResult, f.opts.MaxWorkers)

	var writerWG sync.WaitGroup
	var storeErr error
	writerWG.Add(1)
	go func() {
		defer writerWG.Done()
		for cr := range results {
			if storeErr != nil || len(cr.rows) == 0 {
				continue
			}
			if f.opts.Archive != nil {
				if err := f.opts.Archive.Append(cr.rows); err != nil {
					storeErr = fmt.Errorf("archive chunk %d-%d: %w", cr.chunk.Low, cr.chunk.High, err)
					cancel()
					continue
				}
			}
			inserted, ignored, err := f.store.UpsertRows(cr.rows)
			if err != nil {
				storeErr = fmt.Errorf("upsert chunk %d-%d: %w", cr.chunk.Low, cr.chunk.High, err)
				cancel()
				continue
			}
			res.RowsInserted += inserted
			res.RowsIgnored += ignored
		}
	}()

	var mu sync.Mutex
	done := 0
	report := func(rows int64, parseErrs int64, failed *FailedChunk) {
		mu.Lock()
		defer mu.Unlock()
		done++
		res.RowsParsed += rows
		res.ParseErrors += parseErrs
		if failed != nil {
			res.Failed = append(res.Failed, *failed)
		}
		if f.opts.OnProgress != nil {
			f.opts.OnProgress(Progress{ChunksDone: done, ChunksTotal: len(chunks), Rows: res.RowsParsed})
		}
	}

	workers := pool.New().WithMaxGoroutines(f.opts.MaxWorkers)
	for _, chunk := range chunks {
		workers.Go(func() {
			if ctx.Err() != nil {
				return
			}
			rows, stats, err := f.fetchChunk(ctx, group, chunk)
			if err != nil {
				if ctx.Err() != nil {
					// aborted mid-flight, not a chunk failure
					return
				}
				metrics.ChunksFailed.Inc()
				log.Printf("[FETCH] chunk %d-%d failed: %v", chunk.Low, chunk.High, err)
				report(0, 0, &FailedChunk{Chunk: chunk, Err: err})
				return
			}
			metrics.ChunksCompleted.Inc()
			select {
			case results <- &chunkResult{chunk: chunk, rows: rows}:
			case <-ctx.Done():
				return
			}
			report(int64(len(rows)), stats.Dropped, nil)
		})
	}
	workers.Wait()
	close(results)
	writerWG.Wait()
	res.FinishedAt = time.Now().UTC()

	f.recordRun(res)

	if storeErr != nil {
		return res, storeErr
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	log.Printf("[FETCH] %s done: %d parsed, %d inserted, %d ignored, %d failed chunks in %s",
		group, res.RowsParsed, res.RowsInserted, res.RowsIgnored,
		len(res.Failed), res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	return res, nil
}

// fetchChunk retrieves one chunk, retrying transport faults with jittered
// exponential backoff on a fresh connection each time. A 423/420 answer is
// not a fault: the range simply holds no articles.
func (f *Fetcher) fetchChunk(ctx context.Context, group string, c Chunk) ([]*models.OverviewRow, overview.ParseStats, error) {
	var rows []*models.OverviewRow
	var stats overview.ParseStats
	err := retry.Do(
		func() error {
			conn, err := f.pool.Get()
			if err != nil {
				return err
			}
			if _, err := conn.SelectGroup(group); err != nil {
				f.pool.Discard(conn)
				return err
			}
			lines, err := conn.XOverLines(c.Low, c.High)
			if err != nil {
				f.pool.Discard(conn)
				return err
			}
			f.pool.Put(conn)
			rows, stats = overview.ParseLines(group, lines)
			return nil
		},
		retry.Attempts(f.opts.RetryAttempts),
		retry.Delay(f.opts.RetryBaseDelay),
		retry.DelayType(jitteredBackoff(f.opts.RetryBaseDelay)),
		retry.RetryIf(nntp.IsRetryable),
		retry.OnRetry(func(attempt uint, err error) {
			metrics.ChunkRetries.Inc()
			log.Printf("[FETCH] chunk %d-%d attempt %d: %v", c.Low, c.High, attempt+1, err)
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if errors.Is(err, nntp.ErrNoSuchRange) {
		log.Printf("[FETCH] chunk %d-%d: no articles in range", c.Low, c.High)
		return nil, overview.ParseStats{}, nil
	}
	if err != nil {
		return nil, overview.ParseStats{}, err
	}
	return rows, stats, nil
}

// recordRun appends this run to fetch_runs. History is best-effort.
func (f *Fetcher) recordRun(res *Result) {
	run := &models.FetchRun{
		GroupName:    res.Group,
		LowArticle:   int64(res.Low),
		HighArticle:  int64(res.High),
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		RowsInserted: res.RowsInserted,
		RowsIgnored:  res.RowsIgnored,
		ChunksFailed: int64(len(res.Failed)),
		ParseErrors:  res.ParseErrors,
	}
	if err := f.store.RecordFetchRun(run); err != nil {
		log.Printf("[FETCH] record fetch run: %v", err)
	}
}

// buildChunks partitions [low, high] into inclusive ranges of at most
// chunkSize articles. A non-zero limit trims the total from the low end,
// shortening the final chunk.
func buildChunks(low, high, chunkSize, limit uint64) []Chunk {
	if high < low || chunkSize == 0 {
		return nil
	}
	want := high - low + 1
	if limit > 0 && limit < want {
		want = limit
	}
	var chunks []Chunk
	cur := low
	for cur <= high && cur-low < want {
		end := cur + chunkSize - 1
		if end > high {
			end = high
		}
		if remaining := want - (cur - low); end-cur+1 > remaining {
			end = cur + remaining - 1
		}
		chunks = append(chunks, Chunk{Low: cur, High: end})
		cur = end + 1
	}
	return chunks
}

// jitteredBackoff doubles base per attempt, jittered by ±25%, capped.
func jitteredBackoff(base time.Duration) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		d := base << n
		if d > maxChunkDelay || d <= 0 {
			d = maxChunkDelay
		}
		if jitter := d / 4; jitter > 0 {
			d = d - jitter + time.Duration(rand.Int63n(int64(2*jitter)))
		}
		return d
	}
}
