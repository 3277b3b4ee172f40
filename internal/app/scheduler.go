package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

// digestRunner is the part of Runtime the scheduler drives.
type digestRunner interface {
	RunDigest(ctx context.Context, req digest.Request, emit func(digest.Event) error) (*digest.Result, error)
}

// Scheduler runs digests on a cron spec so summaries reach the store and publishers without a client.
type Scheduler struct {
	cron    *cron.Cron
	runner  digestRunner
	request digest.Request
	log     logger.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler validates spec and registers the digest job. It does not start the cron.
func NewScheduler(spec string, runner digestRunner, req digest.Request, log logger.Logger) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("scheduler requires a runner")
	}
	s := &Scheduler{
		cron:    cron.New(),
		runner:  runner,
		request: req,
		log:     logger.Ensure(log),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse digest cron %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the job in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.InfoObj("digest scheduler started", "scheduler_meta", map[string]any{
		"entries":          len(s.cron.Entries()),
		"lookback_minutes": s.request.LookbackMinutes,
		"summary_style":    s.request.SummaryStyle,
	})
}

// Stop halts the cron and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// RunOnce executes a single digest. Overlapping ticks are skipped.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.WarnObj("digest run skipped", "scheduler_meta", map[string]any{"reason": "previous run still active"})
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	result, err := s.runner.RunDigest(ctx, s.request, nil)
	switch {
	case errors.Is(err, digest.ErrNoArticles):
		s.log.InfoObj("scheduled digest found no articles", "scheduler_meta", map[string]any{
			"lookback_minutes": s.request.LookbackMinutes,
		})
	case err != nil:
		s.log.ErrorObj("scheduled digest failed", "scheduler_error", map[string]any{"error": err.Error()})
	default:
		s.log.InfoObj("scheduled digest completed", "scheduler_meta", map[string]any{
			"summaries":            len(result.Summaries),
			"summarizer_available": result.SummarizerAvailable,
			"input_tokens":         result.Usage.InputTokens,
			"output_tokens":        result.Usage.OutputTokens,
			"elapsed_ms":           time.Since(start).Milliseconds(),
		})
	}
}
