package domain

import (
	"testing"
	"time"
)

func TestNewRecordCarriesSummaryPublishTime(t *testing.T) {
	published := time.Date(2025, 11, 17, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	article := Article{Title: "T", URL: "https://news.example/a", PublishedTime: published, FullText: "body"}
	summary := Summary{Summary: "S", PublishedTime: article.PublishedTime}

	rec := NewRecord(article, summary, time.Date(2025, 11, 17, 10, 0, 0, 0, time.Local))
	if !rec.PublishedTime.Equal(published) {
		t.Fatalf("expected published time %v, got %v", published, rec.PublishedTime)
	}
	if rec.ID != RecordID(article.URL) || len(rec.ID) != 40 {
		t.Fatalf("unexpected id %q", rec.ID)
	}
	if rec.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC created_at")
	}
}

func TestRecordIDIsStable(t *testing.T) {
	if RecordID("https://a") != RecordID("https://a") || RecordID("https://a") == RecordID("https://b") {
		t.Fatalf("record ids must be stable and distinct per url")
	}
}
