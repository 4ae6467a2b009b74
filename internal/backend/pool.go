package backend

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Call is one outbound request. URL carries scheme, host and path; the raw
// query is appended verbatim.
type Call struct {
	Method   string
	URL      string
	Header   http.Header
	RawQuery string
	Body     []byte
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Pool is a shared outbound client. It holds no per-call state and is safe
// for concurrent use.
type Pool struct {
	client    *http.Client
	transport *http.Transport
	slots     *semaphore.Weighted
	timeout   time.Duration

	mutex  sync.Mutex
	active int
}

// NewPool builds a pool from opts.
func NewPool(opts Options) *Pool {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConns,
		MaxConnsPerHost:       opts.MaxConns,
		IdleConnTimeout:       opts.IdleConnTimeout,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		// bodies are relayed byte for byte
		DisableCompression: true,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
	if !opts.FollowRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &Pool{
		client:    client,
		transport: transport,
		slots:     semaphore.NewWeighted(int64(opts.MaxConns)),
		timeout:   opts.Timeout,
	}
}

// Execute performs call and reads the whole response body. Every error is an
// *Error.
func (p *Pool) Execute(ctx context.Context, call Call) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := call.URL
	if call.RawQuery != "" {
		target += "?" + call.RawQuery
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, newError(OpAcquire, target, err)
	}
	defer p.slots.Release(1)

	p.incrementActive()
	defer p.decrementActive()

	var body io.Reader = http.NoBody
	if len(call.Body) > 0 {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, newError(OpBuild, target, err)
	}
	if call.Header != nil {
		req.Header = call.Header
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, newError(OpRoundTrip, target, err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newError(OpReadBody, target, err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       payload,
	}, nil
}

// InFlight returns the number of calls currently holding a connection slot.
func (p *Pool) InFlight() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.active
}

// Close releases every idle pooled connection.
func (p *Pool) Close() {
	p.client.CloseIdleConnections()
}

func (p *Pool) incrementActive() {
	p.mutex.Lock()
	p.active++
	p.mutex.Unlock()
}

func (p *Pool) decrementActive() {
	p.mutex.Lock()
	if p.active > 0 {
		p.active--
	}
	p.mutex.Unlock()
}
