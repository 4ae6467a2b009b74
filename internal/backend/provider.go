package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrProviderClosed is wrapped by calls made after the provider was closed.
var ErrProviderClosed = errors.New("backend: provider closed")

// Provider owns the process-wide Pool. The pool is built on first use,
// exactly once even under concurrent first access, and released by Close
// during shutdown. Once closed, a provider never builds another pool.
type Provider struct {
	opts Options

	mutex  sync.Mutex
	closed bool
	pool   atomic.Pointer[Pool]
}

// NewProvider returns a provider that will build its pool from opts.
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts}
}

// Get returns the shared pool, building it if needed. It returns nil after
// Close.
func (p *Provider) Get() *Pool {
	if pool := p.pool.Load(); pool != nil {
		return pool
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	if pool := p.pool.Load(); pool != nil {
		return pool
	}

	pool := NewPool(p.opts)
	p.pool.Store(pool)
	return pool
}

// Execute runs call on the shared pool. After Close every call fails with a
// transport *Error wrapping ErrProviderClosed.
func (p *Provider) Execute(ctx context.Context, call Call) (*Response, error) {
	pool := p.Get()
	if pool == nil {
		return nil, newError(OpAcquire, call.URL, ErrProviderClosed)
	}
	return pool.Execute(ctx, call)
}

// InFlight reports in-flight calls without forcing the pool into existence.
func (p *Provider) InFlight() int {
	if pool := p.pool.Load(); pool != nil {
		return pool.InFlight()
	}
	return 0
}

// Close releases the pool's connections and stops any later Get from
// building a new pool. It is safe to call more than once.
func (p *Provider) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closed = true
	if pool := p.pool.Swap(nil); pool != nil {
		pool.Close()
	}
}
