package fetch

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter paces requests per host with a token bucket and an optional
// minimum interval. One limiter shared by several clients enforces the
// pacing in aggregate, which keeps concurrent crawls of the same space
// polite.
//
// A nil *HostLimiter never blocks.
type HostLimiter struct {
	perSecond float64
	burst     int
	interval  time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter returns a limiter allowing perSecond requests per host with
// the given burst. It returns nil when perSecond is not positive.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		perSecond: perSecond,
		burst:     burst,
		last:      make(map[string]time.Time),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// WithMinInterval additionally enforces a minimum gap between two requests
// to the same host.
func (h *HostLimiter) WithMinInterval(d time.Duration) *HostLimiter {
	if h != nil {
		h.interval = d
	}
	return h
}

// Wait blocks until a request to host is permitted or ctx is done.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	now := time.Now()

	h.mu.Lock()
	if h.interval > 0 {
		if last, ok := h.last[host]; ok {
			if rest := last.Add(h.interval).Sub(now); rest > 0 {
				sleep = rest
			}
		}
	}
	limiter := h.ensureLimiterLocked(host)
	h.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	h.mu.Lock()
	h.last[host] = time.Now()
	h.mu.Unlock()
	return nil
}

func (h *HostLimiter) ensureLimiterLocked(host string) *rate.Limiter {
	if limiter, ok := h.limiters[host]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Limit(h.perSecond), h.burst)
	h.limiters[host] = limiter
	return limiter
}
