package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Package source describes the single news site the digest reads from.

const (
	DefaultID            = "thehindu"
	DefaultName          = "The Hindu"
	DefaultListingURL    = "https://www.thehindu.com/latest-news/"
	DefaultItemSelector  = "ul.timeline-with-img li .element"
	DefaultTimeSelector  = ".news-time.time"
	DefaultTimeAttr      = "data-published"
	DefaultTitleSelector = "h3.title a"
	DefaultBodySelector  = "p"
	DefaultTimezone      = "Asia/Kolkata"

	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"

	defaultMaxBodyBytes   = 2 << 20 // 2 MiB
	defaultRequestDelayMs = 0
	maxRequestDelayMs     = 10_000
)

// Selectors locate listing entries and article text inside the fetched HTML.
type Selectors struct {
	Item     string `json:"item" yaml:"item"`
	Time     string `json:"time" yaml:"time"`
	TimeAttr string `json:"time_attr" yaml:"time_attr"`
	Title    string `json:"title" yaml:"title"`
	Body     string `json:"body" yaml:"body"`
}

// Source is the listing page definition plus request tuning.
type Source struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	ListingURL     string         `json:"listing_url" yaml:"listing_url"`
	Selectors      Selectors      `json:"selectors" yaml:"selectors"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	MaxBodyBytes   int            `json:"max_body_bytes" yaml:"max_body_bytes"`
	// Timezone is the IANA zone listing stamps are written in. Zone abbreviations in a stamp
	// (IST) resolve against it; stamps with a numeric offset keep their own.
	Timezone string         `json:"timezone" yaml:"timezone"`
	Config   map[string]any `json:"config" yaml:"config"`

	loc *time.Location
}

// Default returns the built-in source definition.
func Default() Source {
	src := sanitize(Source{})
	src.loc, _ = time.LoadLocation(DefaultTimezone)
	return src
}

// Load reads a source definition from a YAML or JSON file. Missing fields fall back to the defaults.
// An empty path returns Default().
func Load(path string) (Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return Source{}, fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return Source{}, fmt.Errorf("read source file: %w", err)
	}

	src, err := parse(raw, filepath.Ext(path))
	if err != nil {
		return Source{}, err
	}

	src = sanitize(src)
	if err := validate(&src); err != nil {
		return Source{}, fmt.Errorf("source %q: %w", src.ID, err)
	}
	return src, nil
}

type unmarshalFn func([]byte, any) error

func parse(data []byte, ext string) (Source, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var src Source
		if err := d.fn(data, &src); err == nil {
			return src, nil
		}
	}

	return Source{}, errors.New("source file format not recognized (expected YAML or JSON)")
}

func sanitize(s Source) Source {
	s.ID = orDefault(s.ID, DefaultID)
	s.Name = orDefault(s.Name, DefaultName)
	s.ListingURL = orDefault(s.ListingURL, DefaultListingURL)
	s.Selectors.Item = orDefault(s.Selectors.Item, DefaultItemSelector)
	s.Selectors.Time = orDefault(s.Selectors.Time, DefaultTimeSelector)
	s.Selectors.TimeAttr = orDefault(s.Selectors.TimeAttr, DefaultTimeAttr)
	s.Selectors.Title = orDefault(s.Selectors.Title, DefaultTitleSelector)
	s.Selectors.Body = orDefault(s.Selectors.Body, DefaultBodySelector)
	s.Timezone = orDefault(s.Timezone, DefaultTimezone)

	if s.RequestDelayMs < 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = defaultMaxBodyBytes
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

// validate checks s and resolves its timezone.
func validate(s *Source) error {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	s.loc = loc

	u, err := url.Parse(s.ListingURL)
	if err != nil {
		return fmt.Errorf("parse listing_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("listing_url must be http(s), got %q", s.ListingURL)
	}
	if s.RequestDelayMs > maxRequestDelayMs {
		return fmt.Errorf("request_delay_ms must be at most %d", maxRequestDelayMs)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

// Location is the zone listing stamps are parsed in. A Source built by hand without
// Load or Default falls back to the process zone.
func (s Source) Location() *time.Location {
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}

// requestHeaders maps Config keys onto the request headers they set.
var requestHeaders = []struct{ key, header string }{
	{ConfigUserAgentKey, "User-Agent"},
	{ConfigAcceptKey, "Accept"},
	{ConfigAcceptLanguageKey, "Accept-Language"},
	{ConfigCacheControlKey, "Cache-Control"},
}

// Headers returns the request headers configured under Config. Blank or non-string values are skipped.
func (s Source) Headers() map[string]string {
	out := make(map[string]string, len(requestHeaders))
	for _, h := range requestHeaders {
		v, _ := s.Config[h.key].(string)
		if v = strings.TrimSpace(v); v != "" {
			out[h.header] = v
		}
	}
	return out
}

// RequestDelay returns the pause between consecutive article fetches.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// ResolveURL resolves href against the listing page URL. Unparseable input is returned trimmed.
func (s Source) ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(s.ListingURL)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
