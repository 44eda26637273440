package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/wikiscrape/internal/page"
)

// slowSite tracks how many scrapes run at once.
type slowSite struct {
	running atomic.Int32
	peak    atomic.Int32
}

func (s *slowSite) Scrape(_ context.Context, u string) page.Result {
	n := s.running.Add(1)
	defer s.running.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	doc, err := page.ParseString(u, "<title>x</title>")
	if err != nil {
		return page.Result{Err: err}
	}
	return page.Result{Document: doc}
}

func TestRunBatch(t *testing.T) {
	t.Parallel()

	site := &slowSite{}
	targets := make([]string, 6)
	for i := range targets {
		targets[i] = fmt.Sprintf("%s/wiki/t%d", host, i)
	}
	targets = append(targets, "not-a-url")

	results := RunBatch(context.Background(), targets, func(string) *Spider {
		return NewSpider(site, nil, WithDelay(0))
	}, 2, nil)

	if len(results) != len(targets) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.URL != targets[i] {
			t.Errorf("result %d: got URL %q, expected %q", i, r.URL, targets[i])
		}
	}
	for _, r := range results[:6] {
		if r.Err != nil || r.Result == nil || len(r.Result.Pages) != 1 {
			t.Errorf("%s: unexpected result %+v", r.URL, r)
		}
	}
	if !errors.Is(results[6].Err, ErrInvalidStartURL) {
		t.Errorf("invalid target should fail alone, got %v", results[6].Err)
	}
	if peak := site.peak.Load(); peak > 2 {
		t.Errorf("concurrency limit exceeded: %d", peak)
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunBatch(ctx, []string{host + "/wiki/a"}, func(string) *Spider {
		return NewSpider(&slowSite{}, nil)
	}, 1, nil)
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("got %v", results[0].Err)
	}
}
