package digest

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/summarizer"
)

// ErrNoArticles is returned by Prepare when the lookback window holds no usable article.
var ErrNoArticles = errors.New("no articles found in the specified time range")

// PlaceholderSummary stands in for a summary when no backend is configured.
const PlaceholderSummary = "Configure LLM settings in environment variables to enable summarization."

const (
	defaultLookbackMinutes = 60
	defaultMaxLookback     = 120
	defaultProgressStart   = 30
	defaultProgressEnd     = 80
)

// ArticleSource discovers the articles of a run. *fetcher.Fetcher satisfies it.
type ArticleSource interface {
	Collect(ctx context.Context, lookbackMinutes int) []domain.Article
}

// Sink receives every real summary a run produces.
type Sink interface {
	Name() string
	Accept(ctx context.Context, article domain.Article, summary domain.Summary) error
}

// Settings tunes window clamping and progress reporting.
type Settings struct {
	DefaultLookbackMinutes int
	MaxLookbackMinutes     int
	ProgressStart          float64
	ProgressEnd            float64
}

// Request is one digest invocation.
type Request struct {
	LookbackMinutes int
	SummaryStyle    string
}

// Pipeline turns discovered articles into a stream of progress events.
type Pipeline struct {
	articles ArticleSource
	settings Settings
	sinks    []Sink
	log      logger.Logger
}

// NewPipeline wires a pipeline. Nil sinks are ignored.
func NewPipeline(articles ArticleSource, settings Settings, log logger.Logger, sinks ...Sink) *Pipeline {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Pipeline{
		articles: articles,
		settings: normalizeSettings(settings),
		sinks:    kept,
		log:      logger.Ensure(log),
	}
}

func normalizeSettings(s Settings) Settings {
	if s.MaxLookbackMinutes <= 0 {
		s.MaxLookbackMinutes = defaultMaxLookback
	}
	if s.DefaultLookbackMinutes <= 0 {
		s.DefaultLookbackMinutes = defaultLookbackMinutes
	}
	if s.DefaultLookbackMinutes > s.MaxLookbackMinutes {
		s.DefaultLookbackMinutes = s.MaxLookbackMinutes
	}
	if s.ProgressStart == 0 && s.ProgressEnd == 0 {
		s.ProgressStart, s.ProgressEnd = defaultProgressStart, defaultProgressEnd
	}
	return s
}

// ClampLookback maps a requested window onto [1, max], using the default for non-positive input.
func (p *Pipeline) ClampLookback(minutes int) int {
	if minutes <= 0 {
		return p.settings.DefaultLookbackMinutes
	}
	return min(minutes, p.settings.MaxLookbackMinutes)
}

// Prepare discovers the articles for req. The article count must be known before
// streaming starts, so discovery runs to completion here.
func (p *Pipeline) Prepare(ctx context.Context, req Request, sum summarizer.Summarizer) (*Run, error) {
	if sum == nil {
		sum = summarizer.Disabled()
	}
	lookback := p.ClampLookback(req.LookbackMinutes)
	style := req.SummaryStyle
	if style == "" {
		style = summarizer.DefaultStyle
	}

	articles := p.articles.Collect(ctx, lookback)
	if len(articles) == 0 {
		return nil, fmt.Errorf("lookback %d minutes: %w", lookback, ErrNoArticles)
	}

	p.log.InfoObj("digest prepared", "digest_meta", map[string]any{
		"lookback_minutes":     lookback,
		"articles":             len(articles),
		"summary_style":        style,
		"summarizer_available": sum.Available(),
	})

	return &Run{
		pipeline:   p,
		articles:   articles,
		style:      style,
		summarizer: sum,
	}, nil
}

// Run is a prepared digest ready to stream.
type Run struct {
	pipeline   *Pipeline
	articles   []domain.Article
	style      string
	summarizer summarizer.Summarizer
}

// Articles returns the number of articles the run will process.
func (r *Run) Articles() int { return len(r.articles) }

// Events yields the run's progress stream: an opening progress event, a progress/summary/tokens
// group per article, then one result event. Articles are summarized only as the consumer pulls,
// so stopping early skips the rest.
func (r *Run) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		settings := r.pipeline.settings
		available := r.summarizer.Available()
		total := len(r.articles)
		summaries := make([]domain.Summary, 0, total)

		if !yield(Event{Type: EventProgress, Message: "Processing articles...", Progress: settings.ProgressStart}) {
			return
		}

		for i, article := range r.articles {
			if ctx.Err() != nil {
				return
			}
			pos := i + 1
			verb := "Processing"
			if available {
				verb = "Summarizing"
			}
			progress := settings.ProgressStart + float64(pos)/float64(total)*(settings.ProgressEnd-settings.ProgressStart)
			if !yield(Event{Type: EventProgress, Message: fmt.Sprintf("%s %d/%d...", verb, pos, total), Progress: progress}) {
				return
			}

			if !available {
				placeholder := domain.Summary{Summary: PlaceholderSummary, PublishedTime: article.PublishedTime}
				summaries = append(summaries, placeholder)
				if !yield(Event{Type: EventSummary, Summary: placeholder}) {
					return
				}
				if !yield(Event{Type: EventTokens}) {
					return
				}
				continue
			}

			res := r.summarizer.Summarize(ctx, article.FullText, r.style)
			if res.OK && res.Summary != "" {
				summary := domain.Summary{Summary: res.Summary, PublishedTime: article.PublishedTime}
				summaries = append(summaries, summary)
				r.pipeline.deliver(ctx, article, summary)
				if !yield(Event{Type: EventSummary, Summary: summary}) {
					return
				}
			}
			if !yield(Event{Type: EventTokens, Usage: r.summarizer.Usage()}) {
				return
			}
		}

		yield(Event{Type: EventResult, Result: &Result{
			Status:              StatusSuccess,
			Summaries:           summaries,
			SummarizerAvailable: available,
			Usage:               r.summarizer.Usage(),
		}})
	}
}

// deliver hands a summary to every sink. Sink failures are logged only.
func (p *Pipeline) deliver(ctx context.Context, article domain.Article, summary domain.Summary) {
	for _, s := range p.sinks {
		start := time.Now()
		if err := s.Accept(ctx, article, summary); err != nil {
			p.log.WarnObj("summary sink failed", "sink_error", map[string]any{
				"sink":  s.Name(),
				"url":   article.URL,
				"error": err.Error(),
			})
			continue
		}
		p.log.DebugObj("summary delivered", "sink_meta", map[string]any{
			"sink":        s.Name(),
			"url":         article.URL,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}
