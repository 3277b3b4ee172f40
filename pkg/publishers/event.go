package publishers

import (
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	SourceID    string        `json:"source_id"`
	SourceName  string        `json:"source_name"`
	Record      domain.Record `json:"record"`
	CollectedAt time.Time     `json:"collected_at"`
}

// NewEvent constructs an Event for the given source + summary record.
func NewEvent(sourceID, sourceName string, rec domain.Record) Event {
	return Event{
		SourceID:    sourceID,
		SourceName:  sourceName,
		Record:      rec,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing hints attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"source_id": e.SourceID,
		"record_id": e.Record.ID,
	}
}
