package digest

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/pkg/publishers"
)

type storeSink struct {
	store storage.Store
	now   func() time.Time
}

// StoreSink persists summaries as records.
func StoreSink(store storage.Store) Sink {
	if store == nil {
		return nil
	}
	return storeSink{store: store, now: time.Now}
}

func (s storeSink) Name() string { return "store" }

func (s storeSink) Accept(ctx context.Context, article domain.Article, summary domain.Summary) error {
	return s.store.SaveSummary(ctx, domain.NewRecord(article, summary, s.now()))
}

type publishSink struct {
	fanout     *publishers.Fanout
	sourceID   string
	sourceName string
	now        func() time.Time
}

// PublishSink fans summaries out to the configured publishers. It returns nil when none are configured.
func PublishSink(fanout *publishers.Fanout, sourceID, sourceName string) Sink {
	if fanout.Size() == 0 {
		return nil
	}
	return publishSink{fanout: fanout, sourceID: sourceID, sourceName: sourceName, now: time.Now}
}

func (s publishSink) Name() string { return "publishers" }

func (s publishSink) Accept(ctx context.Context, article domain.Article, summary domain.Summary) error {
	rec := domain.NewRecord(article, summary, s.now())
	_, err := s.fanout.Publish(ctx, publishers.NewEvent(s.sourceID, s.sourceName, rec))
	return err
}
