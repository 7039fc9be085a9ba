// Package ratelimiter throttles requests per caller with token buckets.
package ratelimiter

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/jobtracker/internal/auth"
	"github.com/patric-chuzhbe/jobtracker/internal/httpresponse"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
)

type clientIPGetter interface {
	GetClientIP(request *http.Request) (net.IP, error)
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated callers are
// keyed by subject, anonymous ones by client address.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rate     rate.Limit
	burst    int
	ips      clientIPGetter
	now      func() time.Time
}

// New creates a limiter allowing requestsPerSecond with the given burst.
func New(requestsPerSecond float64, burst int, ips clientIPGetter) *RateLimiter {
	return &RateLimiter{
		limiters: map[string]*entry{},
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		ips:      ips,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, exists := rl.limiters[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()

	return e.limiter
}

func (rl *RateLimiter) keyFor(request *http.Request) string {
	if subject, ok := auth.SubjectFromContext(request.Context()); ok {
		return "subject:" + subject
	}

	ip, err := rl.ips.GetClientIP(request)
	if err != nil || ip == nil {
		return "addr:" + request.RemoteAddr
	}

	return "ip:" + ip.String()
}

// Handler rejects requests over the limit with 429 Too Many Requests.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFor(r)

		if !rl.getLimiter(key).Allow() {
			logger.Log.Infow("rate limit exceeded", "key", key, "method", r.Method, "uri", r.RequestURI)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.rate)))
			httpresponse.WriteErrorStatus(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup forgets callers idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	deadline := rl.now().Add(-maxIdle)
	for key, e := range rl.limiters {
		if e.lastSeen.Before(deadline) {
			delete(rl.limiters, key)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(maxIdle)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.limiters)
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 1
	}
	seconds := int(1 / float64(limit))
	if seconds < 1 {
		return 1
	}

	return seconds
}
