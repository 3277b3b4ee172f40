package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

const (
	webhookRetries      = 1
	webhookSnippetBytes = 512
	recordIDHeader      = "X-Digest-Record-ID"
)

// webhookPublisher posts each event as JSON to a configured URL. Server errors are retried once.
type webhookPublisher struct {
	id     string
	cfg    HTTPPublisherConfig
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewResty(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetRetryCount(webhookRetries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &webhookPublisher{id: cfg.ID, cfg: *cfg.HTTP, client: client, log: ensureLogger(log)}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeaders(w.cfg.Headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(recordIDHeader, evt.Record.ID).
		SetBody(body).
		Execute(w.cfg.Method, w.cfg.URL)
	if err != nil {
		return fmt.Errorf("webhook %s %s: %w", w.cfg.Method, w.cfg.URL, err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}

	w.log.DebugObj("webhook accepted event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"record_id":    evt.Record.ID,
		"status":       resp.StatusCode(),
		"attempts":     resp.Request.Attempt,
	})
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body[:min(len(body), webhookSnippetBytes)]))
	if s == "" {
		return "<empty>"
	}
	return s
}
