// Package metrics exposes Prometheus counters for the fetch pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RowsFetched counts overview rows parsed from XOVER responses.
	RowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_rows_fetched_total",
		Help: "Overview rows successfully parsed from XOVER responses",
	})

	// RowsInserted counts rows newly written to a group store.
	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_rows_inserted_total",
		Help: "Overview rows inserted into group stores",
	})

	// RowsIgnored counts upsert conflicts (already-stored rows).
	RowsIgnored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_rows_ignored_total",
		Help: "Overview rows ignored on upsert conflict",
	})

	// ParseErrors counts overview lines dropped by the parser.
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_parse_errors_total",
		Help: "Overview lines dropped as unparsable",
	})

	// ChunksCompleted counts chunks fetched and persisted.
	ChunksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_chunks_completed_total",
		Help: "XOVER chunks fetched and persisted",
	})

	// ChunksFailed counts chunks abandoned after retries.
	ChunksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_chunks_failed_total",
		Help: "XOVER chunks abandoned after exhausting retries",
	})

	// ChunkRetries counts per-chunk retry attempts.
	ChunkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_chunk_retries_total",
		Help: "Retry attempts across all chunks",
	})

	// ConnsCreated counts NNTP connections dialed by the pool.
	ConnsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_nntp_connections_created_total",
		Help: "NNTP connections dialed by the pool",
	})

	// ConnsDiscarded counts NNTP connections dropped after errors or expiry.
	ConnsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nzbidx_nntp_connections_discarded_total",
		Help: "NNTP connections discarded after transport errors or idle expiry",
	})
)

// Serve exposes /metrics on addr. Blocks; run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
