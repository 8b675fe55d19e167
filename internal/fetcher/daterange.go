package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-while/go-nzbidx/internal/models"
	"github.com/go-while/go-nzbidx/internal/nntp"
	"github.com/go-while/go-nzbidx/internal/overview"
)

// ErrNoArticlesInWindow reports that the group holds no articles inside the
// requested age window.
var ErrNoArticlesInWindow = errors.New("fetcher: no articles in the requested date window")

// DateWindow is an article range whose posting dates fall between minDays
// and maxDays of age.
type DateWindow struct {
	Low     uint64
	High    uint64
	LowAge  float64 // days, age of the article at Low
	HighAge float64 // days, age of the article at High
}

// Count returns the estimated article count inside the window.
func (w *DateWindow) Count() uint64 {
	if w.High < w.Low {
		return 0
	}
	return w.High - w.Low + 1
}

// FindDateWindow locates the article range for posts between minDays and
// maxDays old via binary search over single-article XOVER probes. Article
// numbers grow with time, so the window's low bound is the oldest article
// at most maxDays old and its high bound the newest at least minDays old.
func FindDateWindow(ctx context.Context, connPool *nntp.Pool, group string, minDays, maxDays int) (*DateWindow, error) {
	if minDays > maxDays {
		return nil, fmt.Errorf("min_days %d exceeds max_days %d", minDays, maxDays)
	}
	pr := &prober{pool: connPool, group: group}
	defer pr.release()

	info, err := pr.groupInfo()
	if err != nil {
		return nil, err
	}
	first, last := uint64(info.First), uint64(info.Last)
	if first == 0 || last < first {
		return nil, ErrNoArticlesInWindow
	}

	// The whole group outside the window is the common miss: reject it with
	// two probes before searching.
	if t, ok, err := pr.date(ctx, last); err != nil {
		return nil, err
	} else if ok && daysOld(t) > float64(maxDays) {
		return nil, ErrNoArticlesInWindow
	}
	if t, ok, err := pr.date(ctx, first); err != nil {
		return nil, err
	} else if ok && daysOld(t) < float64(minDays) {
		return nil, ErrNoArticlesInWindow
	}

	high, err := pr.newestAtLeast(ctx, first, last, float64(minDays))
	if err != nil {
		return nil, err
	}
	low, err := pr.oldestAtMost(ctx, first, last, float64(maxDays))
	if err != nil {
		return nil, err
	}
	if low > high {
		return nil, ErrNoArticlesInWindow
	}

	win := &DateWindow{Low: low, High: high}
	if t, ok, _ := pr.date(ctx, low); ok {
		win.LowAge = daysOld(t)
	}
	if t, ok, _ := pr.date(ctx, high); ok {
		win.HighAge = daysOld(t)
	}
	return win, nil
}

// prober owns one pooled connection across a probe sequence, replacing it
// once per probe on transport faults.
type prober struct {
	pool  *nntp.Pool
	group string
	conn  *nntp.Conn
	info  *models.GroupInfo
}

func (pr *prober) ensure() (*nntp.Conn, error) {
	if pr.conn != nil {
		return pr.conn, nil
	}
	conn, err := pr.pool.Get()
	if err != nil {
		return nil, err
	}
	info, err := conn.SelectGroup(pr.group)
	if err != nil {
		pr.pool.Discard(conn)
		return nil, err
	}
	pr.conn = conn
	if pr.info == nil {
		pr.info = info
	}
	return conn, nil
}

func (pr *prober) groupInfo() (*models.GroupInfo, error) {
	if _, err := pr.ensure(); err != nil {
		return nil, err
	}
	return pr.info, nil
}

// date probes one article's posting date. ok is false when the article is
// missing or its date does not parse.
func (pr *prober) date(ctx context.Context, artnum uint64) (time.Time, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return time.Time{}, false, err
		}
		conn, err := pr.ensure()
		if err != nil {
			return time.Time{}, false, err
		}
		line, err := conn.XOverProbe(artnum)
		if errors.Is(err, nntp.ErrNoSuchRange) {
			return time.Time{}, false, nil
		}
		if err != nil {
			pr.pool.Discard(conn)
			pr.conn = nil
			continue
		}
		row, ok := overview.ParseLine(pr.group, line)
		if !ok || !row.DateUnix.Valid {
			return time.Time{}, false, nil
		}
		return time.Unix(row.DateUnix.Int64, 0).UTC(), true, nil
	}
	return time.Time{}, false, fmt.Errorf("probe %s %d: connection failed twice", pr.group, artnum)
}

func (pr *prober) release() {
	if pr.conn != nil {
		pr.pool.Put(pr.conn)
		pr.conn = nil
	}
}

// newestAtLeast finds the largest article number at least target days old.
// Probe misses step the upper bound inward.
func (pr *prober) newestAtLeast(ctx context.Context, low, high uint64, target float64) (uint64, error) {
	result := low
	for low <= high {
		mid := low + (high-low)/2
		t, ok, err := pr.date(ctx, mid)
		if err != nil {
			return result, err
		}
		if ok {
			age := daysOld(t)
			log.Printf("[FETCH] probe %s %d: %.1f days old", pr.group, mid, age)
			if age >= target {
				result = mid
				low = mid + 1
				continue
			}
		}
		if mid == 0 {
			break
		}
		high = mid - 1
	}
	return result, nil
}

// oldestAtMost finds the smallest article number at most target days old.
// Probe misses step the lower bound inward.
func (pr *prober) oldestAtMost(ctx context.Context, low, high uint64, target float64) (uint64, error) {
	result := high
	for low <= high {
		mid := low + (high-low)/2
		t, ok, err := pr.date(ctx, mid)
		if err != nil {
			return result, err
		}
		if ok {
			age := daysOld(t)
			log.Printf("[FETCH] probe %s %d: %.1f days old", pr.group, mid, age)
			if age <= target {
				result = mid
				if mid == 0 {
					break
				}
				high = mid - 1
				continue
			}
		}
		low = mid + 1
	}
	return result, nil
}

// daysOld converts a posting time into an age in days.
func daysOld(t time.Time) float64 {
	return time.Since(t).Seconds() / 86400
}
