package nntp

import (
	"context"
	"errors"
)

var (
	// ErrAuthFailed is returned when the server rejects AUTHINFO (481/482/502).
	ErrAuthFailed = errors.New("nntp: authentication failed")
	// ErrNoSuchRange is returned when XOVER answers 423 for a range.
	ErrNoSuchRange = errors.New("nntp: no articles in range")
	// ErrNotConnected is returned when a command is issued on a closed connection.
	ErrNotConnected = errors.New("nntp: not connected")
	// ErrPoolClosed is returned by pool operations after ClosePool.
	ErrPoolClosed = errors.New("nntp: connection pool is closed")
)

// IsRetryable reports whether an error from a client command is worth a retry
// on a fresh connection. Auth rejections, empty ranges, a closed pool and a
// cancelled context are final. Everything else (socket faults, TLS errors,
// unexpected status codes, missing terminators) counts as a transport fault.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrNoSuchRange) || errors.Is(err, ErrPoolClosed) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
