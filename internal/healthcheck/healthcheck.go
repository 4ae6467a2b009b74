package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/voxta/edge-gateway/internal/backend"
	"github.com/voxta/edge-gateway/internal/metrics"
)

// Caller performs one outbound call.
type Caller interface {
	Execute(ctx context.Context, call backend.Call) (*backend.Response, error)
}

type Monitor struct {
	logger           *slog.Logger
	caller           Caller
	services         map[string]string
	names            []string
	interval         time.Duration
	metricsCollector *metrics.Collector

	mutex   sync.RWMutex
	healthy map[string]bool
}

// NewMonitor returns a monitor for services, a map of service name to base
// URL. collector may be nil.
func NewMonitor(
	logger *slog.Logger,
	caller Caller,
	services map[string]string,
	interval time.Duration,
	collector *metrics.Collector,
) *Monitor {
	names := make([]string, 0, len(services))
	copied := make(map[string]string, len(services))
	for name, base := range services {
		names = append(names, name)
		copied[name] = base
	}
	sort.Strings(names)

	return &Monitor{
		logger:           logger,
		caller:           caller,
		services:         copied,
		names:            names,
		interval:         interval,
		metricsCollector: collector,
		healthy:          make(map[string]bool, len(services)),
	}
}

// Run checks every service immediately and then once per interval until ctx
// is done. A non-positive interval disables the monitor.
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Info("Backend monitor disabled")
		return
	}

	m.CheckAll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Backend monitor stopped")
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll checks every service once, concurrently.
func (m *Monitor) CheckAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range m.names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			m.check(ctx, name)
		}(name)
	}
	wg.Wait()
}

// A service is up when it answers with any HTTP status.
func (m *Monitor) check(ctx context.Context, name string) {
	base := m.services[name]

	_, err := m.caller.Execute(ctx, backend.Call{Method: http.MethodGet, URL: base})
	if err != nil && ctx.Err() != nil {
		return
	}
	healthy := err == nil

	changed, first := m.setHealthy(name, healthy)
	if !changed {
		return
	}

	switch {
	case healthy && first:
		m.logger.Info("Backend is up", slog.String("service", name), slog.String("url", base))
	case healthy:
		m.logger.Info("Backend is back up", slog.String("service", name), slog.String("url", base))
	default:
		m.logger.Warn("Backend is down",
			slog.String("service", name),
			slog.String("url", base),
			slog.Any("err", err))
	}

	if m.metricsCollector != nil {
		m.metricsCollector.Emit(metrics.MetricEvent{
			Type:      metrics.EventHealthChanged,
			Timestamp: time.Now(),
			Service:   name,
			Healthy:   healthy,
		})
	}
}

// setHealthy records the state and reports whether it changed and whether
// this was the first observation.
func (m *Monitor) setHealthy(name string, healthy bool) (changed, first bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	previous, seen := m.healthy[name]
	m.healthy[name] = healthy
	return !seen || previous != healthy, !seen
}

// IsHealthy reports the last observed state of a service. Services not yet
// checked are reported down.
func (m *Monitor) IsHealthy(name string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.healthy[name]
}

// Snapshot returns the last observed state of every configured service.
func (m *Monitor) Snapshot() map[string]bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make(map[string]bool, len(m.names))
	for _, name := range m.names {
		out[name] = m.healthy[name]
	}
	return out
}
