package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/voxta/edge-gateway/internal/backend"
	"github.com/voxta/edge-gateway/internal/header"
	"github.com/voxta/edge-gateway/internal/metrics"
	"github.com/voxta/edge-gateway/internal/route"
)

// Forwarder performs one outbound call. *backend.Provider and *backend.Pool
// satisfy it.
type Forwarder interface {
	Execute(ctx context.Context, call backend.Call) (*backend.Response, error)
}

// Methods lists the methods the Dispatcher forwards.
var Methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

type Dispatcher struct {
	logger           *slog.Logger
	routes           *route.Table
	forwarder        Forwarder
	metricsCollector *metrics.Collector
}

var _ http.Handler = (*Dispatcher)(nil)

func NewDispatcher(logger *slog.Logger, routes *route.Table, forwarder Forwarder, collector *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		logger:           logger,
		routes:           routes,
		forwarder:        forwarder,
		metricsCollector: collector,
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()

	rt, ok := d.routes.Resolve(path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if !isForwardable(r.Method) {
		w.Header().Set("Allow", "GET, POST, PUT, DELETE, OPTIONS")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	d.emitEvent(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Route:     rt.Prefix,
		Service:   rt.Service,
	})

	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			d.logger.Warn("Failed to read request body",
				slog.String("route", rt.Prefix),
				slog.Any("err", err))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	call := backend.Call{
		Method:   r.Method,
		URL:      route.Rewrite(path, rt.Prefix, rt.BaseURL),
		Header:   header.FilterRequest(r.Header),
		RawQuery: r.URL.RawQuery,
		Body:     body,
	}

	d.logger.Debug("Forwarding to backend",
		slog.String("route", rt.Prefix),
		slog.String("service", rt.Service),
		slog.String("method", call.Method),
		slog.String("target", call.URL))

	// An inbound disconnect does not abort the outbound call; the pool's
	// deadlines bound it instead.
	ctx := context.WithoutCancel(r.Context())

	start := time.Now()
	res, err := d.forwarder.Execute(ctx, call)
	duration := time.Since(start)

	if err != nil {
		kind := backend.KindOf(err)
		d.logger.Warn("Backend call failed",
			slog.String("route", rt.Prefix),
			slog.String("service", rt.Service),
			slog.String("kind", kind.String()),
			slog.Duration("duration", duration),
			slog.Any("err", err))
		d.emitEvent(metrics.MetricEvent{
			Type:      metrics.EventUpstreamFailed,
			Timestamp: time.Now(),
			Route:     rt.Prefix,
			Service:   rt.Service,
			Duration:  duration,
			Failure:   kind.String(),
		})
		WriteFailure(w, err)
		return
	}

	copyHeaders(w.Header(), header.FilterResponse(res.Header))
	w.WriteHeader(res.StatusCode)
	if _, err := w.Write(res.Body); err != nil {
		d.logger.Debug("Client went away before the response was written",
			slog.String("route", rt.Prefix),
			slog.Any("err", err))
	}

	d.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Timestamp:  time.Now(),
		Route:      rt.Prefix,
		Service:    rt.Service,
		Duration:   duration,
		StatusCode: res.StatusCode,
	})
}

func (d *Dispatcher) emitEvent(event metrics.MetricEvent) {
	if d.metricsCollector == nil {
		return
	}
	d.metricsCollector.Emit(event)
}

func isForwardable(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

// copyHeaders replaces every header of src in dst.
func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
