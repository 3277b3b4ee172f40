package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-news-digest/internal/config"
	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/fetcher"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/internal/summarizer"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-digest/pkg/publishers"
	"github.com/samvad-hq/samvad-news-digest/pkg/source"
)

// Runtime holds the components shared by the HTTP server, the scheduler and the CLI.
type Runtime struct {
	cfg      *config.Config
	src      source.Source
	fetcher  *fetcher.Fetcher
	pipeline *digest.Pipeline
	store    storage.Store
	fanout   *publishers.Fanout
	log      logger.Logger
}

// NewRuntime builds the runtime from config: source definition, fetcher, storage, publishers and pipeline.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	src, err := source.Load(cfg.SourceFile)
	if err != nil {
		return nil, fmt.Errorf("load source: %w", err)
	}
	log.InfoObj("source loaded", "source_meta", map[string]any{
		"id":          src.ID,
		"listing_url": src.ListingURL,
		"file":        cfg.SourceFile,
	})

	client := httpclient.NewRestyClient(cfg.FetchTimeout)
	f := fetcher.New(src, client, cfg.FetchTimeout, log)

	store, err := storage.NewStore(cfg.StorageType, storage.Options{
		Path:            cfg.BBoltPath,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		RedisDB:         cfg.RedisDB,
		RecordTTL:       cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"record_ttl_seconds":       int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	pipeline := digest.NewPipeline(f, digest.Settings{
		DefaultLookbackMinutes: cfg.DefaultLookbackMinutes,
		MaxLookbackMinutes:     cfg.MaxLookbackMinutes,
		ProgressStart:          cfg.ProgressStart,
		ProgressEnd:            cfg.ProgressEnd,
	}, log,
		digest.StoreSink(store),
		digest.PublishSink(fanout, src.ID, src.Name),
	)

	return &Runtime{
		cfg:      cfg,
		src:      src,
		fetcher:  f,
		pipeline: pipeline,
		store:    store,
		fanout:   fanout,
		log:      log,
	}, nil
}

// buildFanout loads the optional publishers file. No file means no publishers.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	pubClients, err := publishers.DefaultRegistry().Build(ctx, enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// NewSummarizer builds a summarizer with its own usage counter.
func (r *Runtime) NewSummarizer() summarizer.Summarizer {
	llm := r.cfg.LLM()
	return summarizer.New(summarizer.Settings{
		APIKey:      llm.APIKey,
		BaseURL:     llm.BaseURL,
		Model:       llm.Model,
		MaxTokens:   llm.MaxTokens,
		Temperature: llm.Temperature,
		Timeout:     llm.Timeout,
	}, r.log)
}

// Pipeline returns the shared digest pipeline.
func (r *Runtime) Pipeline() *digest.Pipeline { return r.pipeline }

// RunDigest prepares and drains one digest run, returning its terminal result.
func (r *Runtime) RunDigest(ctx context.Context, req digest.Request, emit func(digest.Event) error) (*digest.Result, error) {
	run, err := r.pipeline.Prepare(ctx, req, r.NewSummarizer())
	if err != nil {
		return nil, err
	}

	var result *digest.Result
	for evt := range run.Events(ctx) {
		if emit != nil {
			if err := emit(evt); err != nil {
				return nil, fmt.Errorf("emit %s event: %w", evt.Type, err)
			}
		}
		if evt.Type == digest.EventResult {
			result = evt.Result
		}
	}
	if result == nil {
		return nil, errors.Join(errors.New("digest run ended without a result"), ctx.Err())
	}
	return result, nil
}

// Close releases storage and publisher connections.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
