package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-while/go-nzbidx/internal/database"
	"github.com/go-while/go-nzbidx/internal/nntp"
)

const testGroup = "alt.binaries.test"

// mockServer emulates enough NNTP for fetch runs: GROUP, XOVER with
// generated overview lines, QUIT. Ranges listed via failRange drop the
// connection instead of answering, which the client sees as a transport
// fault.
type mockServer struct {
	listener net.Listener

	mu         sync.Mutex
	first      uint64
	last       uint64
	failRanges map[string]bool
	lineFor    func(n uint64) string
}

func startMockServer(t *testing.T, first, last uint64) *mockServer {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &mockServer{
		listener:   listener,
		first:      first,
		last:       last,
		failRanges: make(map[string]bool),
	}
	go srv.acceptLoop()
	t.Cleanup(func() { listener.Close() })
	return srv
}

func (s *mockServer) clientConfig(maxConns int) *nntp.ClientConfig {
	addr := s.listener.Addr().(*net.TCPAddr)
	return &nntp.ClientConfig{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Timeout:  5 * time.Second,
		MaxConns: maxConns,
	}
}

func (s *mockServer) failRange(low, high uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRanges[fmt.Sprintf("%d-%d", low, high)] = true
}

func (s *mockServer) setLineFor(fn func(n uint64) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lineFor = fn
}

func (s *mockServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *mockServer) handle(conn net.Conn) {
	defer conn.Close()
	text := textproto.NewConn(conn)
	if err := text.PrintfLine("200 mock ready"); err != nil {
		return
	}
	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		switch {
		case strings.HasPrefix(line, "GROUP "):
			s.mu.Lock()
			first, last := s.first, s.last
			s.mu.Unlock()
			text.PrintfLine("211 %d %d %d %s", last-first+1, first, last,
				strings.TrimPrefix(line, "GROUP "))
		case strings.HasPrefix(line, "XOVER "):
			if !s.serveXover(text, strings.TrimPrefix(line, "XOVER ")) {
				return
			}
		case line == "QUIT":
			text.PrintfLine("205 closing connection")
			return
		default:
			text.PrintfLine("500 what?")
		}
	}
}

// serveXover answers one XOVER request; false drops the connection.
func (s *mockServer) serveXover(text *textproto.Conn, arg string) bool {
	s.mu.Lock()
	fail := s.failRanges[arg]
	lineFor := s.lineFor
	first, last := s.first, s.last
	s.mu.Unlock()

	if fail {
		return false
	}
	var low, high uint64
	if _, err := fmt.Sscanf(arg, "%d-%d", &low, &high); err != nil {
		text.PrintfLine("501 bad range")
		return true
	}
	if high < first || low > last {
		text.PrintfLine("423 no articles in that range")
		return true
	}
	text.PrintfLine("224 overview follows")
	for n := low; n <= high; n++ {
		if n < first || n > last {
			continue
		}
		if lineFor != nil {
			text.PrintfLine("%s", lineFor(n))
			continue
		}
		text.PrintfLine("%d\tPost %d (1/1)\tposter <p@x>\tMon, 01 Jan 2024 00:00:00 +0000\t<m%d@x>\t\t100\t10", n, n, n)
	}
	text.PrintfLine(".")
	return true
}

func openTestStore(t *testing.T) *database.GroupStore {
	t.Helper()
	store, err := database.OpenGroupStore(t.TempDir(), testGroup)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestFetcher(t *testing.T, srv *mockServer, store *database.GroupStore, opts Options) *Fetcher {
	t.Helper()
	connPool := nntp.NewPool(srv.clientConfig(4))
	t.Cleanup(func() { connPool.ClosePool() })
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 2
	}
	if opts.RetryBaseDelay == 0 {
		opts.RetryBaseDelay = time.Millisecond
	}
	return New(connPool, store, opts)
}

func TestFetchStoreQuery(t *testing.T) {
	srv := startMockServer(t, 1, 2)
	srv.setLineFor(func(n uint64) string {
		return fmt.Sprintf("%d\tHello (1/1) \"hello.txt\" yEnc (1)\tAlice <a@x>\tMon, 01 Jan 2024 00:00:0%d +0000\t<m%d@x>\t\t42\t3", n, n-1, n)
	})
	store := openTestStore(t)
	f := newTestFetcher(t, srv, store, Options{ChunkSize: 100, MaxWorkers: 2})

	res, err := f.FetchRange(context.Background(), testGroup, 1, 2)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if res.RowsParsed != 2 || res.RowsInserted != 2 || len(res.Failed) != 0 {
		t.Errorf("run = parsed %d inserted %d failed %d, want 2/2/0",
			res.RowsParsed, res.RowsInserted, len(res.Failed))
	}

	rows, err := store.QueryRows(&database.QueryFilter{GroupName: testGroup, SubjectLike: "hello"})
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("query returned %d rows, want 2", len(rows))
	}
	if rows[0].ArticleNum != 1 || rows[1].ArticleNum != 2 {
		t.Errorf("article order = %d, %d", rows[0].ArticleNum, rows[1].ArticleNum)
	}
	if rows[0].Subject != `Hello (1/1) "hello.txt" yEnc (1)` {
		t.Errorf("subject = %q", rows[0].Subject)
	}
	if !rows[0].DateUnix.Valid || rows[0].DateUnix.Int64 != 1704067200 {
		t.Errorf("date_unix = %+v, want 1704067200", rows[0].DateUnix)
	}

	// refetching the same range changes nothing
	res2, err := f.FetchRange(context.Background(), testGroup, 1, 2)
	if err != nil {
		t.Fatalf("second FetchRange: %v", err)
	}
	if res2.RowsInserted != 0 || res2.RowsIgnored != 2 {
		t.Errorf("second run = inserted %d ignored %d, want 0/2",
			res2.RowsInserted, res2.RowsIgnored)
	}
}

func TestFetchRangePartialFailure(t *testing.T) {
	srv := startMockServer(t, 1, 50)
	srv.failRange(11, 20)
	store := openTestStore(t)

	var lastProgress Progress
	f := newTestFetcher(t, srv, store, Options{
		ChunkSize:  10,
		MaxWorkers: 3,
		OnProgress: func(p Progress) { lastProgress = p },
	})
	res, err := f.FetchRange(context.Background(), testGroup, 1, 50)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if len(res.Failed) != 1 {
		t.Fatalf("failed chunks = %d, want 1", len(res.Failed))
	}
	if res.Failed[0].Chunk != (Chunk{Low: 11, High: 20}) {
		t.Errorf("failed chunk = %+v", res.Failed[0].Chunk)
	}
	if res.RowsParsed != 40 || res.RowsInserted != 40 {
		t.Errorf("rows = parsed %d inserted %d, want 40/40", res.RowsParsed, res.RowsInserted)
	}
	if lastProgress.ChunksDone != 5 || lastProgress.ChunksTotal != 5 || lastProgress.Rows != 40 {
		t.Errorf("final progress = %+v", lastProgress)
	}

	rows, err := store.QueryRows(&database.QueryFilter{GroupName: testGroup})
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if len(rows) != 40 {
		t.Errorf("stored rows = %d, want 40", len(rows))
	}

	runs, err := store.RecentFetchRuns(1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("RecentFetchRuns: %v (%d runs)", err, len(runs))
	}
	if runs[0].ChunksFailed != 1 || runs[0].RowsInserted != 40 {
		t.Errorf("recorded run = %+v", runs[0])
	}
}

func TestFetchRangeEmptyRangeAnswer(t *testing.T) {
	// server carries 100-200 but the requested window is below it
	srv := startMockServer(t, 100, 200)
	store := openTestStore(t)
	f := newTestFetcher(t, srv, store, Options{ChunkSize: 25, MaxWorkers: 2})

	res, err := f.FetchRange(context.Background(), testGroup, 1, 50)
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if res.RowsParsed != 0 || len(res.Failed) != 0 {
		t.Errorf("run = parsed %d failed %d, want 0/0 (423 is not a failure)",
			res.RowsParsed, len(res.Failed))
	}
}

func TestFetchRangeCancelled(t *testing.T) {
	srv := startMockServer(t, 1, 100)
	store := openTestStore(t)
	f := newTestFetcher(t, srv, store, Options{ChunkSize: 10, MaxWorkers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.FetchRange(ctx, testGroup, 1, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.RowsInserted != 0 {
		t.Errorf("inserted %d rows after pre-cancelled context", res.RowsInserted)
	}
}

func TestFetchRangeArchives(t *testing.T) {
	srv := startMockServer(t, 1, 3)
	store := openTestStore(t)
	archive, err := database.NewArchiveWriter(t.TempDir(), testGroup)
	if err != nil {
		t.Fatalf("NewArchiveWriter: %v", err)
	}
	f := newTestFetcher(t, srv, store, Options{ChunkSize: 10, MaxWorkers: 1, Archive: archive})
	if _, err := f.FetchRange(context.Background(), testGroup, 1, 3); err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}

	// the archive replays into a fresh store
	restore := openTestStore(t)
	imp, err := database.ImportNDJSON(restore, archive.Path, 0)
	if err != nil {
		t.Fatalf("ImportNDJSON: %v", err)
	}
	if imp.Inserted != 3 || imp.Malformed != 0 {
		t.Errorf("import = %+v, want 3 inserted", imp)
	}
}

func TestResolveRange(t *testing.T) {
	srv := startMockServer(t, 3000, 4233)
	store := openTestStore(t)
	f := newTestFetcher(t, srv, store, Options{})

	low, high, err := f.ResolveRange(testGroup, 0, 0)
	if err != nil {
		t.Fatalf("ResolveRange: %v", err)
	}
	if low != 3000 || high != 4233 {
		t.Errorf("range = %d-%d, want 3000-4233", low, high)
	}

	low, high, err = f.ResolveRange(testGroup, 4000, 3500)
	if err != nil || low != 3500 || high != 4000 {
		t.Errorf("explicit bounds = %d-%d (%v), want 3500-4000", low, high, err)
	}

	if _, _, err = f.ResolveRange(testGroup, 10, 20); err == nil {
		t.Error("inverted range should fail")
	}
}

func TestBuildChunks(t *testing.T) {
	tests := []struct {
		low, high, size, limit uint64
		want                   []Chunk
	}{
		{1, 250000, 100000, 0, []Chunk{{1, 100000}, {100001, 200000}, {200001, 250000}}},
		{1, 100, 100000, 0, []Chunk{{1, 100}}},
		{5, 5, 10, 0, []Chunk{{5, 5}}},
		{1, 1000, 100, 250, []Chunk{{1, 100}, {101, 200}, {201, 250}}},
		{10, 5, 100, 0, nil},
	}
	for _, tt := range tests {
		got := buildChunks(tt.low, tt.high, tt.size, tt.limit)
		if len(got) != len(tt.want) {
			t.Errorf("buildChunks(%d,%d,%d,%d) = %v, want %v",
				tt.low, tt.high, tt.size, tt.limit, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("buildChunks(%d,%d,%d,%d)[%d] = %+v, want %+v",
					tt.low, tt.high, tt.size, tt.limit, i, got[i], tt.want[i])
			}
		}
	}
}

func TestFindDateWindow(t *testing.T) {
	srv := startMockServer(t, 1, 1000)
	base := time.Now().UTC()
	// age(n) = (1000-n) days minus half a day, strictly monotonic
	srv.setLineFor(func(n uint64) string {
		posted := base.Add(-time.Duration(1000-n)*24*time.Hour + 12*time.Hour)
		return fmt.Sprintf("%d\tPost %d\tposter <p@x>\t%s\t<m%d@x>\t\t100\t10",
			n, n, posted.Format(time.RFC1123Z), n)
	})
	connPool := nntp.NewPool(srv.clientConfig(2))
	t.Cleanup(func() { connPool.ClosePool() })

	win, err := FindDateWindow(context.Background(), connPool, testGroup, 100, 500)
	if err != nil {
		t.Fatalf("FindDateWindow: %v", err)
	}
	if win.Low != 500 || win.High != 899 {
		t.Errorf("window = %d-%d, want 500-899", win.Low, win.High)
	}
	if win.Count() != 400 {
		t.Errorf("count = %d, want 400", win.Count())
	}
	if win.LowAge < 499 || win.LowAge > 500 {
		t.Errorf("low age = %.2f, want ~499.5", win.LowAge)
	}
	if win.HighAge < 100 || win.HighAge > 101 {
		t.Errorf("high age = %.2f, want ~100.5", win.HighAge)
	}
}

func TestFindDateWindowWholeGroupTooOld(t *testing.T) {
	srv := startMockServer(t, 1, 100)
	base := time.Now().UTC()
	srv.setLineFor(func(n uint64) string {
		posted := base.Add(-2000 * 24 * time.Hour)
		return fmt.Sprintf("%d\tPost %d\tposter <p@x>\t%s\t<m%d@x>\t\t100\t10",
			n, n, posted.Format(time.RFC1123Z), n)
	})
	connPool := nntp.NewPool(srv.clientConfig(2))
	t.Cleanup(func() { connPool.ClosePool() })

	_, err := FindDateWindow(context.Background(), connPool, testGroup, 100, 500)
	if !errors.Is(err, ErrNoArticlesInWindow) {
		t.Fatalf("err = %v, want ErrNoArticlesInWindow", err)
	}
}
