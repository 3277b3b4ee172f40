package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-news-digest/internal/app"
	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "digestd start failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("digestd starting", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err.Error())
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.ErrorObj("runtime close failed", "error", err.Error())
		}
	}()

	if err := rt.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
