package digest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// EventType tags the payload carried by an Event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventSummary  EventType = "summary"
	EventTokens   EventType = "tokens"
	EventResult   EventType = "result"
)

// StatusSuccess is the status reported by the terminal result event.
const StatusSuccess = "success"

// Event is one item of a run's progress stream. Only the fields matching Type are meaningful.
type Event struct {
	Type     EventType
	Message  string
	Progress float64
	Summary  domain.Summary
	Usage    domain.Usage
	Result   *Result
}

// Result is the terminal payload of a run.
type Result struct {
	Status              string
	Summaries           []domain.Summary
	SummarizerAvailable bool
	Usage               domain.Usage
}

type progressJSON struct {
	Type     EventType `json:"type"`
	Message  string    `json:"message"`
	Progress float64   `json:"progress"`
}

type summaryJSON struct {
	Type          EventType `json:"type"`
	Summary       string    `json:"summary"`
	PublishedTime string    `json:"published_time"`
}

type tokensJSON struct {
	Type         EventType `json:"type"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
}

type summaryItemJSON struct {
	Summary       string `json:"summary"`
	PublishedTime string `json:"published_time"`
}

type resultJSON struct {
	Type                EventType         `json:"type"`
	Status              string            `json:"status"`
	Summaries           []summaryItemJSON `json:"summaries"`
	SummarizerAvailable bool              `json:"summarizer_available"`
	TotalInputTokens    int64             `json:"total_input_tokens"`
	TotalOutputTokens   int64             `json:"total_output_tokens"`
}

// MarshalJSON renders the wire shape for the event's type.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventProgress:
		return json.Marshal(progressJSON{Type: e.Type, Message: e.Message, Progress: e.Progress})
	case EventSummary:
		return json.Marshal(summaryJSON{
			Type:          e.Type,
			Summary:       e.Summary.Summary,
			PublishedTime: formatTime(e.Summary.PublishedTime),
		})
	case EventTokens:
		return json.Marshal(tokensJSON{Type: e.Type, InputTokens: e.Usage.InputTokens, OutputTokens: e.Usage.OutputTokens})
	case EventResult:
		if e.Result == nil {
			return nil, fmt.Errorf("result event without payload")
		}
		items := make([]summaryItemJSON, 0, len(e.Result.Summaries))
		for _, s := range e.Result.Summaries {
			items = append(items, summaryItemJSON{Summary: s.Summary, PublishedTime: formatTime(s.PublishedTime)})
		}
		return json.Marshal(resultJSON{
			Type:                e.Type,
			Status:              e.Result.Status,
			Summaries:           items,
			SummarizerAvailable: e.Result.SummarizerAvailable,
			TotalInputTokens:    e.Result.Usage.InputTokens,
			TotalOutputTokens:   e.Result.Usage.OutputTokens,
		})
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
