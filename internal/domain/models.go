package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Domain contains core models shared by the fetcher, summarizer and digest pipeline.

// Article is a listing entry enriched with its full text. It is never persisted as is.
type Article struct {
	Title         string
	URL           string
	PublishedTime time.Time
	FullText      string
}

// Summary is the summarizer output for one article.
// PublishedTime is copied from the source article, never recomputed.
type Summary struct {
	Summary       string    `json:"summary"`
	PublishedTime time.Time `json:"published_time"`
}

// Usage is the cumulative token accounting of one summarizer instance.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Record is the stored form of a produced summary.
type Record struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	PublishedTime time.Time `json:"published_time"`
	Summary       string    `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecordID derives the stable record key for an article URL.
func RecordID(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// NewRecord builds the stored form of a summary produced for article.
func NewRecord(article Article, summary Summary, createdAt time.Time) Record {
	return Record{
		ID:            RecordID(article.URL),
		Title:         article.Title,
		URL:           article.URL,
		PublishedTime: summary.PublishedTime,
		Summary:       summary.Summary,
		CreatedAt:     createdAt.UTC(),
	}
}
