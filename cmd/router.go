package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/voxta/edge-gateway/internal/handler"
	"github.com/voxta/edge-gateway/internal/metrics"
	"github.com/voxta/edge-gateway/internal/middleware"
)

func setupRouter(
	log *slog.Logger,
	cors middleware.CORSConfig,
	dispatcher http.Handler,
	configHandler http.Handler,
	status handler.StatusSource,
	metricsCollector *metrics.Collector,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cors))

	// Registered for every method so the catch-all below never sees these
	// paths; the wrong method gets 405.
	r.Handle("/api/get_config", allowOnly(http.MethodPost, configHandler))
	r.Handle("/api/status", allowOnly(http.MethodGet, handler.StatusHandler(status)))
	r.Handle("/metrics", allowOnly(http.MethodGet, metricsCollector.Handler()))

	// Everything else goes through the prefix table.
	r.Handle("/*", dispatcher)

	return r
}

// allowOnly answers 405 with an Allow header for every method but method.
func allowOnly(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
