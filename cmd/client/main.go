package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lanternbit/echo-client-server/internal/client"
	"github.com/Lanternbit/echo-client-server/internal/config"
)

const dialTimeout = 10 * time.Second

func main() {
	cfg, logLevel, err := config.ParseClientArgs(os.Args[1:])
	if err != nil {
		config.ClientUsage(os.Stdout)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	level, err := config.LogLevel(logLevel)
	if err != nil {
		config.ClientUsage(os.Stdout)
		os.Exit(1)
	}

	// stdout carries relayed bytes only.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	c, err := client.Dial(dialCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	if err := c.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("client stopped", "error", err)
		os.Exit(1)
	}
}
