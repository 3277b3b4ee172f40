package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSource(t *testing.T) {
	s := Default()
	if s.ListingURL != DefaultListingURL {
		t.Fatalf("unexpected listing url %q", s.ListingURL)
	}
	if s.Selectors.Item != DefaultItemSelector || s.Selectors.Body != "p" {
		t.Fatalf("unexpected selectors %+v", s.Selectors)
	}
	if s.MaxBodyBytes != 2<<20 {
		t.Fatalf("unexpected body cap %d", s.MaxBodyBytes)
	}
	if s.RequestDelay() != 0 {
		t.Fatalf("expected no request delay by default, got %v", s.RequestDelay())
	}
	if s.Timezone != DefaultTimezone || s.Location().String() != DefaultTimezone {
		t.Fatalf("unexpected timezone %q / %v", s.Timezone, s.Location())
	}
}

func TestLoadYAMLMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "source.yaml")
	content := `
id: mirror
listing_url: https://mirror.example/latest/
selectors:
  item: div.story
request_delay_ms: 250
config:
  user_agent: DigestBot/1.0
  accept_language: en-IN
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	s, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ID != "mirror" || s.Name != DefaultName {
		t.Fatalf("unexpected identity %q/%q", s.ID, s.Name)
	}
	if s.Selectors.Item != "div.story" || s.Selectors.Title != DefaultTitleSelector {
		t.Fatalf("unexpected selectors %+v", s.Selectors)
	}
	if s.RequestDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected request delay %v", s.RequestDelay())
	}

	headers := s.Headers()
	if headers["User-Agent"] != "DigestBot/1.0" || headers["Accept-Language"] != "en-IN" {
		t.Fatalf("unexpected headers %v", headers)
	}
	if _, ok := headers["Accept"]; ok {
		t.Fatalf("empty header values must be skipped: %v", headers)
	}
}

func TestLoadRejectsNonHTTPListing(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "source.json")
	if err := os.WriteFile(file, []byte(`{"listing_url":"ftp://example.com/"}`), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	if _, err := Load(file); err == nil {
		t.Fatalf("expected error for non-http listing url")
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	s, err := Load("  ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ID != DefaultID {
		t.Fatalf("expected default source, got %q", s.ID)
	}
}

func TestResolveURL(t *testing.T) {
	s := Default()
	if got := s.ResolveURL("/news/national/article1.ece"); got != "https://www.thehindu.com/news/national/article1.ece" {
		t.Fatalf("ResolveURL relative got %q", got)
	}
	if got := s.ResolveURL("https://other.example/a"); got != "https://other.example/a" {
		t.Fatalf("ResolveURL absolute got %q", got)
	}
	if got := s.ResolveURL(" "); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestLoadResolvesTimezone(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "source.yaml")
	if err := os.WriteFile(file, []byte("timezone: Europe/London\n"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	s, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Location().String() != "Europe/London" {
		t.Fatalf("unexpected location %v", s.Location())
	}

	if err := os.WriteFile(file, []byte("timezone: Mars/Olympus\n"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	if _, err := Load(file); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestHeadersSkipNonStringValues(t *testing.T) {
	s := Default()
	s.Config = map[string]any{ConfigUserAgentKey: 42, ConfigCacheControlKey: " no-cache "}
	headers := s.Headers()
	if len(headers) != 1 || headers["Cache-Control"] != "no-cache" {
		t.Fatalf("unexpected headers %v", headers)
	}
}
