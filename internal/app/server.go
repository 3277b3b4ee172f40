package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/samvad-news-digest/internal/api"
	"github.com/samvad-hq/samvad-news-digest/internal/digest"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API, and the digest scheduler when configured, until ctx is cancelled.
func (r *Runtime) Serve(ctx context.Context) error {
	if r == nil || r.pipeline == nil {
		return fmt.Errorf("runtime is not initialized")
	}
	if r.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := api.NewEngine(r.log)
	api.NewServer(r.cfg.AppName, r.pipeline, r.NewSummarizer, r.store, r.log).RegisterRoutes(engine)

	var sched *Scheduler
	if r.cfg.DigestCron != "" {
		var err error
		sched, err = NewScheduler(r.cfg.DigestCron, r, digest.Request{
			LookbackMinutes: r.cfg.DigestLookbackMinutes,
			SummaryStyle:    r.cfg.DigestSummaryStyle,
		}, r.log)
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr:              r.cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.log.InfoObj("http server listening", "http_meta", map[string]any{
			"addr":                 r.cfg.HTTPAddr,
			"summarizer_available": r.NewSummarizer().Available(),
			"scheduler":            sched != nil,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		r.log.InfoObj("http server stopping", "reason", ctx.Err().Error())
	case err := <-errCh:
		serveErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.log.ErrorObj("http server shutdown failed", "error", err.Error())
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}
