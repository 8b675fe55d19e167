package nntp

// Connection pool for the fetch workers. Connections are leased exclusively
// for one chunk, returned open with their selected group intact, and
// discarded (not returned) after any transport fault.

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-while/go-nzbidx/internal/metrics"
)

const (
	// DefaultIdleExpire is how long a pooled connection may sit unused.
	DefaultIdleExpire = 25 * time.Second
	// poolWaitTimeout bounds Get when the pool is at capacity.
	poolWaitTimeout = 30 * time.Second
)

// Pool manages up to MaxConns NNTP connections as a channel-backed free-list.
// Connections are dialed lazily on first acquisition.
type Pool struct {
	mux         sync.RWMutex
	cfg         *ClientConfig
	connections chan *Conn
	maxConns    int
	activeConns int
	idleTimeout time.Duration
	closed      bool

	totalCreated int64
	totalClosed  int64
}

// NewPool creates a pool for the given endpoint. No connection is dialed
// until the first Get.
func NewPool(cfg *ClientConfig) *Pool {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}
	return &Pool{
		cfg:         cfg,
		connections: make(chan *Conn, maxConns),
		maxConns:    maxConns,
		idleTimeout: DefaultIdleExpire,
	}
}

// Get leases a connection: a validated idle one when available, a freshly
// dialed one while under capacity, otherwise it waits for a lease to return.
func (p *Pool) Get() (*Conn, error) {
	p.mux.RLock()
	if p.closed {
		p.mux.RUnlock()
		return nil, ErrPoolClosed
	}
	p.mux.RUnlock()

	select {
	case conn := <-p.connections:
		if p.isConnValid(conn) {
			conn.UpdateLastUsed()
			return conn, nil
		}
		p.Discard(conn)
	default:
		// no idle connection
	}

	p.mux.Lock()
	if p.activeConns < p.maxConns {
		p.activeConns++
		p.mux.Unlock()
		conn, err := p.dial()
		if err != nil {
			p.mux.Lock()
			p.activeConns--
			p.mux.Unlock()
			return nil, err
		}
		return conn, nil
	}
	p.mux.Unlock()

	select {
	case conn := <-p.connections:
		if p.isConnValid(conn) {
			conn.UpdateLastUsed()
			return conn, nil
		}
		p.Discard(conn)
		p.mux.Lock()
		p.activeConns++
		p.mux.Unlock()
		conn, err := p.dial()
		if err != nil {
			p.mux.Lock()
			p.activeConns--
			p.mux.Unlock()
			return nil, err
		}
		return conn, nil
	case <-time.After(poolWaitTimeout):
		return nil, fmt.Errorf("timeout waiting for connection from pool after %s", poolWaitTimeout)
	}
}

// Put returns a healthy connection to the free-list. Unhealthy or surplus
// connections are closed instead.
func (p *Pool) Put(conn *Conn) {
	if conn == nil {
		return
	}
	p.mux.RLock()
	closed := p.closed
	p.mux.RUnlock()
	if closed || !conn.Connected() {
		p.Discard(conn)
		return
	}

	conn.UpdateLastUsed()
	select {
	case p.connections <- conn:
	default:
		log.Printf("[POOL] free-list full for %s:%d, closing surplus connection", p.cfg.Host, p.cfg.Port)
		p.Discard(conn)
	}
}

// Discard closes a connection and releases its capacity slot. Used after
// transport errors so the next Get dials a replacement.
func (p *Pool) Discard(conn *Conn) {
	if conn == nil {
		return
	}
	conn.Close()
	metrics.ConnsDiscarded.Inc()
	p.mux.Lock()
	p.totalClosed++
	p.activeConns--
	p.mux.Unlock()
}

// ClosePool shuts the pool down: no new leases, all idle connections get a
// QUIT. Leased connections are closed by their holders via Discard.
func (p *Pool) ClosePool() error {
	p.mux.Lock()
	if p.closed {
		p.mux.Unlock()
		return nil
	}
	p.closed = true
	p.mux.Unlock()

	close(p.connections)
	for conn := range p.connections {
		conn.Quit()
		p.mux.Lock()
		p.totalClosed++
		p.activeConns--
		p.mux.Unlock()
	}

	p.mux.RLock()
	remaining := p.activeConns
	p.mux.RUnlock()
	if remaining > 0 {
		log.Printf("[POOL] closed with %d leased connections outstanding", remaining)
	}
	return nil
}

// PoolStats contains pool statistics.
type PoolStats struct {
	MaxConnections    int
	ActiveConnections int
	IdleConnections   int
	TotalCreated      int64
	TotalClosed       int64
	Closed            bool
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.mux.RLock()
	defer p.mux.RUnlock()
	return PoolStats{
		MaxConnections:    p.maxConns,
		ActiveConnections: p.activeConns,
		IdleConnections:   len(p.connections),
		TotalCreated:      p.totalCreated,
		TotalClosed:       p.totalClosed,
		Closed:            p.closed,
	}
}

// dial creates and connects a new session.
func (p *Pool) dial() (*Conn, error) {
	conn := NewConn(p.cfg)
	if err := conn.Connect(); err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}
	conn.UpdateLastUsed()
	metrics.ConnsCreated.Inc()
	p.mux.Lock()
	p.totalCreated++
	p.mux.Unlock()
	return conn, nil
}

// isConnValid rejects closed or idle-expired connections.
func (p *Pool) isConnValid(conn *Conn) bool {
	if conn == nil || !conn.Connected() {
		return false
	}
	conn.mu.RLock()
	lastUsed := conn.lastUsed
	conn.mu.RUnlock()
	return time.Since(lastUsed) <= p.idleTimeout
}
