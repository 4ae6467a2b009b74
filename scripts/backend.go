//go:build ignore

// Backend is an echo upstream for trying the gateway by hand. It answers
// every request with a JSON description of what it received, so prefix
// stripping, query forwarding and header filtering can be checked directly.
//
// Usage:
//
//	go run backend.go -port 3020 -name data
//	go run backend.go -port 3021 -name chat -delay 12s
//
// A -delay longer than the gateway's outbound timeout makes the gateway answer
// 504; a "delay" query parameter overrides it per request.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// Echo is the response body.
type Echo struct {
	ID       string              `json:"id"`
	Service  string              `json:"service"`
	Method   string              `json:"method"`
	Path     string              `json:"path"`
	RawQuery string              `json:"raw_query"`
	Host     string              `json:"host"`
	Headers  map[string][]string `json:"headers"`
	Body     string              `json:"body"`
}

func main() {
	port := flag.Int("port", 3020, "port to listen on")
	name := flag.String("name", "backend", "service name reported in responses")
	delay := flag.Duration("delay", 0, "wait this long before answering")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("service", *name))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		wait := *delay
		if d, err := time.ParseDuration(r.URL.Query().Get("delay")); err == nil {
			wait = d
		}
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-r.Context().Done():
				log.Info("Caller gave up", slog.String("path", r.URL.Path))
				return
			}
		}

		log.Info("Received request",
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
			slog.String("request_id", r.Header.Get("X-Request-ID")),
			slog.Int("body_bytes", len(body)))

		echo := Echo{
			ID:       uuid.New().String(),
			Service:  *name,
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Host:     r.Host,
			Headers:  r.Header,
			Body:     string(body),
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Echo-Service", *name)
		json.NewEncoder(w).Encode(echo)
	})

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	log.Info("Starting echo backend", slog.String("addr", addr), slog.Duration("delay", *delay))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
