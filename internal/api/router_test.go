package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/internal/summarizer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	articles []domain.Article
	lookback int
}

func (f *fakeSource) Collect(_ context.Context, lookbackMinutes int) []domain.Article {
	f.lookback = lookbackMinutes
	return f.articles
}

type fakeStore struct {
	records []domain.Record
	limit   int
}

func (f *fakeStore) Close() error                                     { return nil }
func (f *fakeStore) SaveSummary(context.Context, domain.Record) error { return nil }
func (f *fakeStore) Recent(_ context.Context, limit int) ([]domain.Record, error) {
	f.limit = limit
	return f.records, nil
}

func newTestServer(src *fakeSource, store storage.Store) *gin.Engine {
	pipeline := digest.NewPipeline(src, digest.Settings{}, nil)
	srv := NewServer("digest", pipeline, summarizer.Disabled, store, nil)
	r := NewEngine(nil)
	srv.RegisterRoutes(r)
	return r
}

func twoArticles() []domain.Article {
	ts := time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC)
	return []domain.Article{
		{Title: "A", URL: "https://news.example/a", PublishedTime: ts, FullText: "a"},
		{Title: "B", URL: "https://news.example/b", PublishedTime: ts.Add(-time.Minute), FullText: "b"},
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func readFrames(t *testing.T, body string) []map[string]any {
	t.Helper()
	var frames []map[string]any
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			t.Fatalf("unexpected stream line %q", line)
		}
		var frame map[string]any
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("decode frame %q: %v", payload, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func TestNewsSummaryStreamsEvents(t *testing.T) {
	src := &fakeSource{articles: twoArticles()}
	w := do(newTestServer(src, nil), http.MethodPost, "/api/get-news-summary/", `{"lookback_minutes": 500, "summary_type": "paragraph"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if src.lookback != 120 {
		t.Fatalf("expected lookback clamped to 120, got %d", src.lookback)
	}
	if !strings.HasSuffix(w.Body.String(), "}\n\n") {
		t.Fatalf("frames must end with a blank line: %q", w.Body.String())
	}

	frames := readFrames(t, w.Body.String())
	var types []string
	for _, f := range frames {
		types = append(types, f["type"].(string))
	}
	want := "progress,progress,summary,tokens,progress,summary,tokens,result"
	if got := strings.Join(types, ","); got != want {
		t.Fatalf("unexpected frame types %s", got)
	}
	if frames[0]["progress"] != float64(30) || frames[4]["progress"] != float64(80) {
		t.Fatalf("unexpected progress values %v %v", frames[0]["progress"], frames[4]["progress"])
	}
	if frames[2]["summary"] != digest.PlaceholderSummary || frames[2]["published_time"] != "2025-11-17T09:00:00Z" {
		t.Fatalf("unexpected summary frame %v", frames[2])
	}
	result := frames[len(frames)-1]
	if result["status"] != "success" || result["summarizer_available"] != false || len(result["summaries"].([]any)) != 2 {
		t.Fatalf("unexpected result frame %v", result)
	}
}

func TestNewsSummaryWithoutArticles(t *testing.T) {
	w := do(newTestServer(&fakeSource{}, nil), http.MethodPost, "/api/get-news-summary/", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "error" || body["message"] != "No articles found in the specified time range" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestNewsSummaryDefaultsAndLenientLookback(t *testing.T) {
	src := &fakeSource{}
	r := newTestServer(src, nil)

	do(r, http.MethodPost, "/api/get-news-summary/", `{}`)
	if src.lookback != 60 {
		t.Fatalf("expected default lookback 60, got %d", src.lookback)
	}
	do(r, http.MethodPost, "/api/get-news-summary/", `{"lookback_minutes": "45"}`)
	if src.lookback != 45 {
		t.Fatalf("expected numeric string to be accepted, got %d", src.lookback)
	}
}

func TestNewsSummaryRejectsMalformedBody(t *testing.T) {
	r := newTestServer(&fakeSource{articles: twoArticles()}, nil)
	for _, body := range []string{"", "{not json", `{"lookback_minutes": "soon"}`} {
		w := do(r, http.MethodPost, "/api/get-news-summary/", body)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"error"`) {
			t.Fatalf("body %q: unexpected response %d %s", body, w.Code, w.Body.String())
		}
	}
}

func TestNewsSummaryRequiresPost(t *testing.T) {
	w := do(newTestServer(&fakeSource{}, nil), http.MethodGet, "/api/get-news-summary/", "")
	if w.Code != http.StatusNotFound && w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status %d", w.Code)
	}
}

func TestCheckSummarizer(t *testing.T) {
	w := do(newTestServer(&fakeSource{}, nil), http.MethodGet, "/api/check-summarizer/", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"available":false}` {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestListSummariesCapsLimit(t *testing.T) {
	store := &fakeStore{records: []domain.Record{{ID: "1", Summary: "s"}}}
	w := do(newTestServer(&fakeSource{}, store), http.MethodGet, "/api/summaries?limit=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if store.limit != maxListLimit {
		t.Fatalf("expected limit %d, got %d", maxListLimit, store.limit)
	}
	if !strings.Contains(w.Body.String(), `"summary":"s"`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	do(newTestServer(&fakeSource{}, store), http.MethodGet, "/api/summaries?limit=abc", "")
	if store.limit != defaultListLimit {
		t.Fatalf("expected default limit, got %d", store.limit)
	}
}

func TestHealthAndIndex(t *testing.T) {
	r := newTestServer(&fakeSource{}, nil)
	if w := do(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/", ""); w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "digest:") {
		t.Fatalf("unexpected index response %d %s", w.Code, w.Body.String())
	}
}
