package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

func testEvent() Event {
	return NewEvent("the-hindu", "The Hindu", domain.Record{
		ID:            "rec-1",
		Title:         "Headline",
		URL:           "https://news.example/a",
		PublishedTime: time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC),
		Summary:       "One sentence.",
		CreatedAt:     time.Date(2025, 11, 17, 10, 0, 0, 0, time.UTC),
	})
}
