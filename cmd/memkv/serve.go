package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/raniellyferreira/memkv"
	"github.com/raniellyferreira/memkv/internal/config"
	"github.com/raniellyferreira/memkv/internal/logging"
	"github.com/raniellyferreira/memkv/metrics"
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"read-timeout":  "server.read_timeout",
	"write-timeout": "server.write_timeout",
	"rate-limit":    "server.rate_limit",
	"rate-burst":    "server.rate_burst",
	"max-depth":     "protocol.max_depth",
	"shards":        "storage.shards",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"metrics-addr":  "metrics.addr",
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", EnvVars: []string{"MEMKV_CONFIG"}},
			&cli.StringFlag{Name: "addr", Usage: "listen address (default 127.0.0.1:8080)"},
			&cli.DurationFlag{Name: "read-timeout", Usage: "close connections idle for this long (0 disables)"},
			&cli.DurationFlag{Name: "write-timeout", Usage: "deadline for each reply write"},
			&cli.Float64Flag{Name: "rate-limit", Usage: "commands per second per connection (0 disables)"},
			&cli.IntFlag{Name: "rate-burst", Usage: "rate limiter burst size"},
			&cli.IntFlag{Name: "max-depth", Usage: "maximum array nesting in requests"},
			&cli.IntFlag{Name: "shards", Usage: "number of store shards"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus metrics on this address"},
		},
		Action: serve,
	}
}

// flagOverrides returns the explicitly set flags keyed by config path
func flagOverrides(c *cli.Context) map[string]any {
	out := make(map[string]any)
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			out[key] = c.Value(flag)
		}
	}
	return out
}

func serve(c *cli.Context) error {
	loader := config.NewLoader(
		config.WithConfigFile(c.String("config")),
		config.WithOverrides(flagOverrides(c)),
	)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger, level, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []memkv.Option{
		memkv.WithAddr(cfg.Server.Addr),
		memkv.WithReadTimeout(cfg.Server.ReadTimeout),
		memkv.WithWriteTimeout(cfg.Server.WriteTimeout),
		memkv.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst),
		memkv.WithMaxDepth(cfg.Protocol.MaxDepth),
		memkv.WithShardCount(cfg.Storage.Shards),
		memkv.WithLogger(logger),
	}

	var prom *metrics.Prometheus
	if cfg.Metrics.Addr != "" {
		prom, err = metrics.NewPrometheus(nil)
		if err != nil {
			return err
		}
		opts = append(opts, memkv.WithMetrics(prom))
	}

	kv, err := memkv.New(opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("close failed", "error", err)
		}
	}()

	if prom != nil {
		if err := prom.TrackKeys(kv.Storage().KeyCount); err != nil {
			return err
		}
		srv, err := startMetricsServer(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer shutdownHTTPServer(srv, logger)
	}

	if err := kv.Start(ctx); err != nil {
		return err
	}

	if err := loader.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			return
		}
		lvl, err := logging.ParseLevel(next.Log.Level)
		if err != nil {
			logger.Warn("config reload failed", "error", err)
			return
		}
		if lvl != level.Level() {
			level.Set(lvl)
			logger.Info("log level changed", "level", lvl.String())
		}
	}); err != nil {
		logger.Warn("config file watch disabled", "error", err)
	}
	defer loader.Close()

	logger.Info("memkv started", "addr", kv.Addr(), "version", memkv.Version, "shards", cfg.Storage.Shards)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func startMetricsServer(addr string, logger *slog.Logger) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", lis.Addr().String())
	return srv, nil
}

func shutdownHTTPServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics shutdown failed", "error", err)
	}
}
