package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/voxta/edge-gateway/config"
	"github.com/voxta/edge-gateway/internal/backend"
	"github.com/voxta/edge-gateway/internal/handler"
	"github.com/voxta/edge-gateway/internal/healthcheck"
	"github.com/voxta/edge-gateway/internal/httpserver"
	"github.com/voxta/edge-gateway/internal/metrics"
	"github.com/voxta/edge-gateway/internal/middleware"
	"github.com/voxta/edge-gateway/internal/route"
	"github.com/voxta/edge-gateway/pkg/logger"
)

const metricsBufferSize = 1024

func main() {
	configPath := flag.String("config", "", "path to the JSON configuration document")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, true, cfg.Environment)

	routes, err := buildRoutes(cfg)
	if err != nil {
		log.Error("Failed to build route table", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider := backend.NewProvider(poolOptions(cfg.Gateway.Upstream))

	// The collector outlives the signal context so events from requests
	// finishing during shutdown are still counted.
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	collector := metrics.NewCollector(metricsBufferSize, log)
	collector.Start(collectorCtx)
	if err := collector.Metrics().RegisterInFlight(provider.InFlight); err != nil {
		log.Warn("Failed to register in-flight gauge", slog.Any("err", err))
	}

	monitor := healthcheck.NewMonitor(log, provider, cfg.Services, cfg.Gateway.HealthCheck.IntervalDuration(), collector)
	go monitor.Run(ctx)

	router := setupRouter(
		log,
		corsConfig(cfg.Gateway.CORS),
		handler.NewDispatcher(log, routes, provider, collector),
		handler.NewConfigHandler(log, cfg),
		monitor,
		collector,
	)

	srv, err := httpserver.New(cfg.Addr(), router, serverTimeouts(cfg.Gateway.Upstream))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	logStartup(log, cfg, routes)

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting gateway", slog.Any("err", err))
			exitCode = 1
		}
	}

	stopCollector()
	<-collector.Done()
	provider.Close()

	log.Info("Gateway stopped")
	cancel()
	os.Exit(exitCode)
}

func buildRoutes(cfg *config.Config) (*route.Table, error) {
	bindings := make([]route.Binding, 0, len(cfg.Gateway.Routes))
	for _, r := range cfg.Gateway.Routes {
		bindings = append(bindings, route.Binding{Prefix: r.Prefix, Service: r.Service})
	}
	return route.Build(bindings, cfg.Services)
}

func poolOptions(u config.UpstreamConfig) backend.Options {
	return backend.Options{
		Timeout:         u.RequestTimeout(),
		ConnectTimeout:  u.DialTimeout(),
		MaxConns:        u.MaxConns,
		MaxIdleConns:    u.MaxIdleConns,
		IdleConnTimeout: u.IdleConnTimeout(),
		FollowRedirects: u.FollowRedirects,
	}
}

// serverTimeouts keeps the inbound write deadline past the outbound one so a
// timed-out call can still be answered with 504.
func serverTimeouts(u config.UpstreamConfig) httpserver.Timeouts {
	timeouts := httpserver.DefaultTimeouts()
	if minWrite := u.RequestTimeout() + 5*time.Second; timeouts.Write < minWrite {
		timeouts.Write = minWrite
	}
	if timeouts.Read < timeouts.Write {
		timeouts.Read = timeouts.Write
	}
	return timeouts
}

func corsConfig(c config.CORSConfig) middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	}
}

func logStartup(log *slog.Logger, cfg *config.Config, routes *route.Table) {
	u := cfg.Gateway.Upstream
	log.Info("Starting edge gateway",
		slog.String("addr", cfg.Addr()),
		slog.Int("routes", routes.Len()),
		slog.Int("services", len(cfg.Services)),
		slog.Duration("timeout", u.RequestTimeout()),
		slog.Duration("connect_timeout", u.DialTimeout()),
		slog.String("max_conns", humanize.Comma(int64(u.MaxConns))),
		slog.String("max_idle_conns", humanize.Comma(int64(u.MaxIdleConns))),
		slog.Bool("follow_redirects", u.FollowRedirects))

	for _, r := range routes.Routes() {
		log.Info("Route",
			slog.String("prefix", r.Prefix),
			slog.String("service", r.Service),
			slog.String("target", r.BaseURL))
	}
}
