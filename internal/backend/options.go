package backend

import "time"

// Options tunes the pool.
type Options struct {
	// Timeout bounds one call end to end: waiting for a slot, dialing,
	// sending and reading the whole response body.
	Timeout time.Duration
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// MaxConns caps simultaneous open connections across all backends.
	MaxConns int
	// MaxIdleConns caps connections kept open for reuse.
	MaxIdleConns int
	// IdleConnTimeout closes a pooled connection unused for this long.
	IdleConnTimeout time.Duration

	FollowRedirects bool
}

// DefaultOptions returns the gateway's standard limits.
func DefaultOptions() Options {
	return Options{
		Timeout:         10 * time.Second,
		ConnectTimeout:  2 * time.Second,
		MaxConns:        200,
		MaxIdleConns:    100,
		IdleConnTimeout: 30 * time.Second,
		FollowRedirects: true,
	}
}
