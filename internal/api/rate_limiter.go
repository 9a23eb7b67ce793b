package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	// defaultBurst applies when no burst is configured
	defaultBurst = 10
	// defaultIdleTTL is how long an unused client limiter is kept
	defaultIdleTTL = 10 * time.Minute
)

// limiterEntry is a client's token bucket and when it was last used
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiter manages per-client token buckets
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex

	limit     rate.Limit
	burstSize int
	idleTTL   time.Duration
	now       func() time.Time

	// sweep loop state
	loopMu  sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRateLimiter creates a new rate limiter. A non-positive rate disables
// limiting; a non-positive idleTTL uses the default.
func NewRateLimiter(requestsPerSecond, burst int, idleTTL time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = defaultBurst
	}
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiters:  make(map[string]*limiterEntry),
		limit:     limit,
		burstSize: burst,
		idleTTL:   idleTTL,
		now:       time.Now,
	}
}

// getLimiter returns the limiter for a client key and marks it as used
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := rl.now().UnixNano()

	rl.mu.RLock()
	entry, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		entry.lastSeen.Store(now)
		return entry.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if entry, exists := rl.limiters[key]; exists {
		entry.lastSeen.Store(now)
		return entry.limiter
	}

	entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burstSize)}
	entry.lastSeen.Store(now)
	rl.limiters[key] = entry

	return entry.limiter
}

// Allow reports whether a request from key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Len is the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// Sweep forgets clients idle for longer than the idle TTL and returns how many were removed
func (rl *RateLimiter) Sweep() int {
	cutoff := rl.now().Add(-rl.idleTTL).UnixNano()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, entry := range rl.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Start sweeps idle clients every interval until Stop is called
func (rl *RateLimiter) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	rl.loopMu.Lock()
	defer rl.loopMu.Unlock()

	if rl.running {
		return errors.New("rate limiter sweep already running")
	}
	rl.running = true
	rl.stopCh = make(chan struct{})
	rl.doneCh = make(chan struct{})

	go rl.loop(interval, rl.stopCh, rl.doneCh)
	return nil
}

// Stop ends the sweep loop
func (rl *RateLimiter) Stop(ctx context.Context) error {
	rl.loopMu.Lock()
	if !rl.running {
		rl.loopMu.Unlock()
		return errors.New("rate limiter sweep not running")
	}
	rl.running = false
	stopCh, doneCh := rl.stopCh, rl.doneCh
	rl.loopMu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rl *RateLimiter) loop(interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// RateLimitMiddleware creates a middleware that enforces rate limiting per
// client IP. Forwarded addresses are used only when trustProxy is set.
func RateLimitMiddleware(rl *RateLimiter, trustProxy bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientIP(r, trustProxy)) {
				respondError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "Rate limit exceeded. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
