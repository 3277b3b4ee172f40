package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/digest"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	req     digest.Request
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeRunner) RunDigest(_ context.Context, req digest.Request, _ func(digest.Event) error) (*digest.Result, error) {
	f.mu.Lock()
	f.calls++
	f.req = req
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &digest.Result{Status: digest.StatusSuccess}, nil
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	if _, err := NewScheduler("every now and then", &fakeRunner{}, digest.Request{}, nil); err == nil {
		t.Fatalf("expected cron parse error")
	}
}

func TestSchedulerRunOncePassesRequest(t *testing.T) {
	runner := &fakeRunner{}
	req := digest.Request{LookbackMinutes: 45, SummaryStyle: "paragraph"}
	s, err := NewScheduler("*/15 * * * *", runner, req, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.RunOnce(context.Background())
	runner.err = digest.ErrNoArticles
	s.RunOnce(context.Background())
	runner.err = errors.New("boom")
	s.RunOnce(context.Background())

	if runner.calls != 3 || runner.req != req {
		t.Fatalf("unexpected runner state calls=%d req=%+v", runner.calls, runner.req)
	}
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s, err := NewScheduler("@hourly", runner, digest.Request{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.RunOnce(context.Background())
		close(done)
	}()
	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatalf("first run did not start")
	}

	s.RunOnce(context.Background())
	close(runner.block)
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.calls != 1 {
		t.Fatalf("expected overlapping run to be skipped, calls=%d", runner.calls)
	}
}
