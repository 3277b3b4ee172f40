package fetcher

import "fmt"

// FailureKind classifies why a fetch produced no usable text.
type FailureKind int

const (
	KindOK FailureKind = iota
	KindTransport
	KindStatus
	KindParse
	KindEmpty
)

func (k FailureKind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindParse:
		return "parse"
	case KindEmpty:
		return "empty"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TextResult is the outcome of a full-text extraction. Failures are carried by value
// so a single bad article can never abort the discovery loop.
type TextResult struct {
	Text string
	Kind FailureKind
	Err  error
}

// OK reports whether the extraction produced non-empty text.
func (r TextResult) OK() bool {
	return r.Kind == KindOK && r.Text != ""
}

func textOK(text string) TextResult {
	if text == "" {
		return TextResult{Kind: KindEmpty}
	}
	return TextResult{Text: text, Kind: KindOK}
}

func textFailed(kind FailureKind, err error) TextResult {
	return TextResult{Kind: kind, Err: err}
}
