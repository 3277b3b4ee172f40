package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-digest/pkg/source"
)

// Fetcher discovers recent articles on the listing page and extracts their full text.
type Fetcher struct {
	src    source.Source
	client httpclient.Client
	log    logger.Logger
	now    func() time.Time
	loc    *time.Location
}

// New builds a fetcher for src. A nil client falls back to a resty client with timeout.
func New(src source.Source, client httpclient.Client, timeout time.Duration, log logger.Logger) *Fetcher {
	if client == nil {
		client = httpclient.NewRestyClient(timeout)
	}
	return &Fetcher{
		src:    src,
		client: client,
		log:    logger.Ensure(log),
		now:    time.Now,
		loc:    src.Location(),
	}
}

// listingEntry is one raw listing element, not yet checked against the window.
type listingEntry struct {
	sel *goquery.Selection
}

// Discover yields the articles published within the last lookbackMinutes, in listing order.
//
// The listing is fetched when iteration starts. Entries without a parseable timestamp,
// title or full text are skipped; the first entry older than the window ends the scan,
// since the listing is newest-first. Listing failures are logged and yield nothing.
func (f *Fetcher) Discover(ctx context.Context, lookbackMinutes int) iter.Seq[domain.Article] {
	return func(yield func(domain.Article) bool) {
		if lookbackMinutes <= 0 {
			return
		}
		window := time.Duration(lookbackMinutes) * time.Minute

		entries, err := f.fetchListing(ctx)
		if err != nil {
			f.log.ErrorObj("listing fetch failed", "listing_error", map[string]any{
				"source_id":   f.src.ID,
				"listing_url": f.src.ListingURL,
				"error":       err.Error(),
			})
			return
		}

		now := f.now()
		fetched := 0
		for i, entry := range entries {
			if ctx.Err() != nil {
				return
			}

			published, ok := f.publishedTime(entry)
			if !ok {
				f.log.DebugObj("listing entry has no publish time", "entry_meta", map[string]any{"index": i})
				continue
			}

			if now.Sub(published) > window {
				f.log.DebugObj("lookback window reached", "entry_meta", map[string]any{
					"index":     i,
					"published": published,
				})
				return
			}

			title, link, ok := f.titleAndLink(entry)
			if !ok {
				f.log.DebugObj("listing entry has no title link", "entry_meta", map[string]any{"index": i})
				continue
			}

			if fetched > 0 && !f.pause(ctx) {
				return
			}
			fetched++

			res := f.ExtractFullText(ctx, link)
			if !res.OK() {
				meta := map[string]any{
					"url":  link,
					"kind": res.Kind.String(),
				}
				if res.Err != nil {
					meta["error"] = res.Err.Error()
				}
				f.log.WarnObj("article text unavailable", "article_error", meta)
				continue
			}

			article := domain.Article{
				Title:         title,
				URL:           link,
				PublishedTime: published,
				FullText:      res.Text,
			}
			if !yield(article) {
				return
			}
		}
	}
}

// Collect drains Discover into a slice.
func (f *Fetcher) Collect(ctx context.Context, lookbackMinutes int) []domain.Article {
	var out []domain.Article
	for article := range f.Discover(ctx, lookbackMinutes) {
		out = append(out, article)
	}
	return out
}

// ExtractFullText fetches url and joins the trimmed text of every paragraph block with newlines.
func (f *Fetcher) ExtractFullText(ctx context.Context, url string) TextResult {
	body, kind, err := f.get(ctx, url)
	if err != nil {
		return textFailed(kind, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return textFailed(KindParse, fmt.Errorf("parse html: %w", err))
	}

	var parts []string
	doc.Find(f.src.Selectors.Body).Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return textOK(strings.Join(parts, "\n"))
}

func (f *Fetcher) fetchListing(ctx context.Context) ([]listingEntry, error) {
	body, _, err := f.get(ctx, f.src.ListingURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	sel := doc.Find(f.src.Selectors.Item)
	entries := make([]listingEntry, 0, sel.Length())
	for i := range sel.Nodes {
		entries = append(entries, listingEntry{sel: sel.Eq(i)})
	}
	return entries, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, FailureKind, error) {
	resp, err := f.client.Get(ctx, url, f.src.Headers())
	if err != nil {
		return nil, KindTransport, fmt.Errorf("http fetch: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, KindStatus, fmt.Errorf("status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	if limit := f.src.MaxBodyBytes; limit > 0 && len(body) > limit {
		f.log.WarnObj("response body truncated", "fetch_meta", map[string]any{
			"url":        url,
			"body_bytes": len(body),
			"limit":      limit,
		})
		body = body[:limit]
	}
	return body, KindOK, nil
}

func (f *Fetcher) publishedTime(entry listingEntry) (time.Time, bool) {
	node := entry.sel.Find(f.src.Selectors.Time).First()
	if node.Length() == 0 {
		return time.Time{}, false
	}
	raw, ok := node.Attr(f.src.Selectors.TimeAttr)
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, false
	}
	published, err := dateparse.ParseIn(strings.TrimSpace(raw), f.loc)
	if err != nil {
		return time.Time{}, false
	}
	return published, true
}

func (f *Fetcher) titleAndLink(entry listingEntry) (string, string, bool) {
	node := entry.sel.Find(f.src.Selectors.Title).First()
	if node.Length() == 0 {
		return "", "", false
	}
	href, _ := node.Attr("href")
	link := f.src.ResolveURL(href)
	if link == "" {
		return "", "", false
	}
	return strings.TrimSpace(node.Text()), link, true
}

// pause waits out the configured delay between article fetches. It reports false if ctx ends first.
func (f *Fetcher) pause(ctx context.Context) bool {
	delay := f.src.RequestDelay()
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
