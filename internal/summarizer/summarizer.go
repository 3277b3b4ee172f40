package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// DefaultStyle is the summary unit used when the caller does not name one.
const DefaultStyle = "sentence"

const promptTemplate = "Summarize article in one %s without mentioning the article. " +
	"Also, do not mention date unless the news is date specific.\n\n" +
	"News article:\n\n%s\n\n---\nSummary:"

// Result is the outcome of one Summarize call. OK is false when no summary could be produced;
// Err then carries the reason, except for the disabled summarizer where it stays nil.
type Result struct {
	Summary string
	OK      bool
	Err     error
}

// Summarizer produces a one-unit summary for an article text and tracks token usage.
type Summarizer interface {
	Summarize(ctx context.Context, text, style string) Result
	Available() bool
	Usage() domain.Usage
}

// BuildPrompt renders the instruction sent to the backend.
func BuildPrompt(text, style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		style = DefaultStyle
	}
	return fmt.Sprintf(promptTemplate, style, text)
}

type disabled struct{}

// Disabled returns the summarizer used when no backend credentials are configured.
func Disabled() Summarizer { return disabled{} }

func (disabled) Summarize(context.Context, string, string) Result { return Result{} }
func (disabled) Available() bool                                  { return false }
func (disabled) Usage() domain.Usage                              { return domain.Usage{} }
