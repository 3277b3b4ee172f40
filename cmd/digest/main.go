package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-news-digest/internal/app"
	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "digest failed: %v\n", err)
		os.Exit(1)
	}
}

// run executes a single digest and prints every event as one JSON line on stdout.
func run() error {
	lookback := flag.Int("lookback", 0, "lookback window in minutes (default from config, max 120)")
	style := flag.String("style", "", "summary unit, e.g. sentence or paragraph")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Events go to stdout, so logs go to stderr.
	log, err := logger.InitTo(cfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	enc := json.NewEncoder(os.Stdout)
	_, err = rt.RunDigest(ctx, digest.Request{LookbackMinutes: *lookback, SummaryStyle: *style}, func(evt digest.Event) error {
		return enc.Encode(evt)
	})
	if errors.Is(err, digest.ErrNoArticles) {
		return enc.Encode(map[string]string{"status": "error", "message": "No articles found in the specified time range"})
	}
	return err
}
