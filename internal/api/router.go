package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samvad-hq/samvad-news-digest/internal/digest"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
	"github.com/samvad-hq/samvad-news-digest/internal/storage"
	"github.com/samvad-hq/samvad-news-digest/internal/summarizer"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100

	noArticlesMessage = "No articles found in the specified time range"
)

// SummarizerFactory builds a fresh summarizer so token usage is scoped to one request.
type SummarizerFactory func() summarizer.Summarizer

// Server exposes the digest pipeline over HTTP.
type Server struct {
	name          string
	pipeline      *digest.Pipeline
	newSummarizer SummarizerFactory
	store         storage.Store
	log           logger.Logger
}

// NewServer wires the HTTP handlers. A nil store disables the summaries listing.
func NewServer(name string, pipeline *digest.Pipeline, newSummarizer SummarizerFactory, store storage.Store, log logger.Logger) *Server {
	if newSummarizer == nil {
		newSummarizer = summarizer.Disabled
	}
	return &Server{
		name:          name,
		pipeline:      pipeline,
		newSummarizer: newSummarizer,
		store:         store,
		log:           logger.Ensure(log),
	}
}

// NewEngine returns a gin engine with recovery and request logging through log.
func NewEngine(log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger.Ensure(log)))
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/", s.index)
	r.GET("/health", s.health)

	g := r.Group("/api")
	{
		g.POST("/get-news-summary/", s.newsSummary)
		g.GET("/check-summarizer/", s.checkSummarizer)
		g.GET("/summaries", s.listSummaries)
	}
}

func (s *Server) index(c *gin.Context) {
	c.String(http.StatusOK, "%s: POST /api/get-news-summary/ to stream a digest of the latest news\n", s.name)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) checkSummarizer(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available": s.newSummarizer().Available()})
}

// summaryRequest is the body of a digest request.
type summaryRequest struct {
	LookbackMinutes lenientInt `json:"lookback_minutes"`
	SummaryType     string     `json:"summary_type"`
}

// lenientInt accepts a JSON number or a numeric string.
type lenientInt int

func (n *lenientInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %s", data)
		}
		v = int(f)
	}
	*n = lenientInt(v)
	return nil
}

func (s *Server) newsSummary(c *gin.Context) {
	var req summaryRequest
	if err := decodeBody(c.Request.Body, &req); err != nil {
		statusError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	run, err := s.pipeline.Prepare(ctx, digest.Request{
		LookbackMinutes: int(req.LookbackMinutes),
		SummaryStyle:    strings.TrimSpace(req.SummaryType),
	}, s.newSummarizer())
	if errors.Is(err, digest.ErrNoArticles) {
		statusError(c, noArticlesMessage)
		return
	}
	if err != nil {
		s.log.ErrorObj("digest prepare failed", "api_error", map[string]any{"error": err.Error()})
		statusError(c, err.Error())
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	start := time.Now()
	frames := 0
	for evt := range run.Events(ctx) {
		if err := writeFrame(c.Writer, evt); err != nil {
			s.log.WarnObj("stream write failed", "api_stream", map[string]any{
				"frames": frames,
				"error":  err.Error(),
			})
			return
		}
		c.Writer.Flush()
		frames++
	}

	s.log.InfoObj("digest streamed", "api_stream", map[string]any{
		"articles":    run.Articles(),
		"frames":      frames,
		"duration_ms": time.Since(start).Milliseconds(),
		"cancelled":   ctx.Err() != nil,
	})
}

func (s *Server) listSummaries(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "summaries": []any{}})
		return
	}

	records, err := s.store.Recent(c.Request.Context(), limit)
	if err != nil {
		s.log.ErrorObj("list summaries failed", "api_error", map[string]any{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal server error"})
		return
	}
	if records == nil {
		records = []domain.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "summaries": records})
}

// writeFrame writes one event as a "data: <json>" frame followed by a blank line.
func writeFrame(w io.Writer, evt digest.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	_, err = w.Write(buf.Bytes())
	return err
}

func decodeBody(body io.Reader, dst any) error {
	if body == nil {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func statusError(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"status": "error", "message": message})
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.InfoObj("http request", "http_request", map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})
	}
}
