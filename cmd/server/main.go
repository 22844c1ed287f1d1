package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lanternbit/echo-client-server/internal/config"
	"github.com/Lanternbit/echo-client-server/internal/relay"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.ParseServerArgs(os.Args[1:])
	if err != nil {
		config.ServerUsage(os.Stdout)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	level, err := config.LogLevel(cfg.LogLevel)
	if err != nil {
		config.ServerUsage(os.Stdout)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	srv := relay.NewServer(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	var metrics *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metrics != nil {
		_ = metrics.Shutdown(ctx)
	}
	if err := srv.Stop(ctx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
	}
}
