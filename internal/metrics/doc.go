// Package metrics collects gateway metrics off the request path.
//
// Handlers call Emit, which queues MetricEvent values on a buffered channel
// without blocking; a single collector goroutine turns them into Prometheus series:
//   - requests received per route
//   - responses relayed per route and status code
//   - upstream failures per route and failure kind
//   - upstream latency per route
//   - backend reachability per service
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Route:      "/data/",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	mux.Handle("/metrics", collector.Handler())
//
// On shutdown the collector drains whatever is still buffered.
package metrics
