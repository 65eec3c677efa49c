package crawl

import (
	"context"
	"sync"
	"time"
)

// visitTracker records which URLs a crawl has already taken off the
// frontier. One tracker per crawl; never shared between runs.
type visitTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newVisitTracker() *visitTracker {
	return &visitTracker{seen: make(map[string]struct{})}
}

// MarkIfNew stores the URL if it has not been seen before and returns true.
func (t *visitTracker) MarkIfNew(url string) bool {
	if url == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[url]; ok {
		return false
	}
	t.seen[url] = struct{}{}
	return true
}

// Seen reports whether the URL has already been visited.
func (t *visitTracker) Seen(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[url]
	return ok
}

// pauseController abstracts how the crawler waits out the politeness delay.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
