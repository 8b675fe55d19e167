// Package nntp implements the client side of the overview fetcher: a single
// authenticated session speaking the RFC 3977 subset the indexer needs
// (AUTHINFO, GROUP, XOVER, LIST ACTIVE, QUIT).
package nntp

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/textproto"
	"sync"
	"time"

	"github.com/go-while/go-nzbidx/internal/models"
)

const (
	// NNTPWelcomeCodeMin is the minimum welcome code for NNTP servers.
	NNTPWelcomeCodeMin int = 200
	// NNTPWelcomeCodeMax is the maximum welcome code for NNTP servers.
	NNTPWelcomeCodeMax int = 201
	// NNTPMoreInfoCode indicates more information is required (e.g., password).
	NNTPMoreInfoCode int = 381
	// NNTPAuthSuccess indicates successful authentication.
	NNTPAuthSuccess int = 281

	// GroupSelected is the response to a successful GROUP command.
	GroupSelected int = 211
	// ListFollows is the response to LIST ACTIVE (multi-line).
	ListFollows int = 215
	// OverviewFollows is the response to XOVER (multi-line).
	OverviewFollows int = 224
	// NoArticleSelected indicates the current article pointer is invalid.
	NoArticleSelected int = 420
	// NoSuchRange indicates XOVER was asked for an empty range.
	NoSuchRange int = 423

	// DefaultTimeout is the socket timeout for connect and each read.
	DefaultTimeout = 60 * time.Second

	// DOT terminates a multi-line response.
	DOT = "."
)

// ClientConfig holds the endpoint settings for one NNTP server.
type ClientConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Timeout  time.Duration // connect and per-read deadline
	MaxConns int           // pool capacity
}

// Conn is one NNTP session. A Conn is leased from the Pool for the duration
// of one command sequence and is never shared between goroutines.
type Conn struct {
	conn net.Conn
	text *textproto.Conn
	cfg  *ClientConfig
	mu   sync.RWMutex

	connected     bool
	authenticated bool
	currentGroup  string
	groupInfo     *models.GroupInfo
	created       time.Time
	lastUsed      time.Time
}

// NewConn creates an unconnected session for the given endpoint.
func NewConn(cfg *ClientConfig) *Conn {
	return &Conn{
		cfg:     cfg,
		created: time.Now(),
	}
}

// Connect dials the server, verifies the greeting and authenticates when
// credentials are configured.
func (c *Conn) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	serverAddr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	var conn net.Conn
	var err error
	if c.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: c.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", serverAddr, tlsConfig)
	} else {
		conn, err = net.DialTimeout("tcp", serverAddr, timeout)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	c.conn = conn
	c.text = textproto.NewConn(conn)
	c.refreshDeadline()

	// Welcome is 200 (posting allowed) or 201 (no posting)
	code, message, err := c.text.ReadCodeLine(2)
	if err != nil {
		c.teardownLocked()
		return fmt.Errorf("failed to read welcome: %w", err)
	}
	if code < NNTPWelcomeCodeMin || code > NNTPWelcomeCodeMax {
		c.teardownLocked()
		return fmt.Errorf("unexpected welcome code %d: %s", code, message)
	}

	c.connected = true
	c.lastUsed = time.Now()

	if c.cfg.Username != "" {
		if err := c.authenticate(); err != nil {
			log.Printf("[NNTP-AUTH] authentication FAILED for user '%s' on %s: %v", c.cfg.Username, serverAddr, err)
			c.teardownLocked()
			return err
		}
	}
	return nil
}

// authenticate performs AUTHINFO USER / AUTHINFO PASS. Caller holds c.mu.
func (c *Conn) authenticate() error {
	code, message, err := c.cmdLocked(0, "AUTHINFO USER %s", c.cfg.Username)
	if err != nil {
		return fmt.Errorf("failed to send AUTHINFO USER: %w", err)
	}
	if code == NNTPAuthSuccess {
		c.authenticated = true
		return nil
	}
	if code != NNTPMoreInfoCode {
		return fmt.Errorf("%w: AUTHINFO USER: %d %s", ErrAuthFailed, code, message)
	}

	code, message, err = c.cmdLocked(0, "AUTHINFO PASS %s", c.cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to send AUTHINFO PASS: %w", err)
	}
	if code != NNTPAuthSuccess {
		return fmt.Errorf("%w: AUTHINFO PASS: %d %s", ErrAuthFailed, code, message)
	}

	c.authenticated = true
	return nil
}

// cmdLocked sends one command and reads the status line. Caller holds c.mu.
// An expectCode of 0 disables textproto's code check; callers switch on the
// returned code instead.
func (c *Conn) cmdLocked(expectCode int, format string, args ...interface{}) (int, string, error) {
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return 0, "", err
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)

	c.refreshDeadline()
	return c.text.ReadCodeLine(expectCode)
}

// refreshDeadline pushes the socket deadline forward before a blocking read.
func (c *Conn) refreshDeadline() {
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c.conn != nil {
		c.conn.SetDeadline(time.Now().Add(timeout))
	}
}

// Quit sends QUIT and closes the socket. Errors from QUIT are ignored: the
// connection is going away either way.
func (c *Conn) Quit() error {
	c.mu.Lock()
	if c.connected && c.text != nil {
		if id, err := c.text.Cmd("QUIT"); err == nil {
			c.text.StartResponse(id)
			c.refreshDeadline()
			c.text.ReadCodeLine(0)
			c.text.EndResponse(id)
		}
	}
	c.mu.Unlock()
	return c.Close()
}

// Close tears down the socket without the QUIT exchange.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	return nil
}

func (c *Conn) teardownLocked() {
	if c.text != nil {
		c.text.Close()
	} else if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
	c.authenticated = false
	c.currentGroup = ""
	c.groupInfo = nil
	c.text = nil
	c.conn = nil
}

// Connected reports whether the session is usable.
func (c *Conn) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// CurrentGroup returns the last successfully selected group, "" if none.
func (c *Conn) CurrentGroup() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentGroup
}

// UpdateLastUsed marks the connection as recently used.
func (c *Conn) UpdateLastUsed() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}
