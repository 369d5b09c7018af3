// Package ratelimit throttles API callers with one token bucket per caller.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"verity/pkg/platform/httputil"
	"verity/pkg/requestcontext"
)

const defaultIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a token bucket per caller key. Authenticated callers are keyed
// by actor, anonymous ones by client IP.
type Limiter struct {
	rps     rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) Option {
	return func(l *Limiter) {
		l.idleTTL = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New builds a limiter allowing rps sustained requests with bursts of burst.
// A non-positive rps disables limiting.
func New(rps float64, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
		logger:  slog.Default(),
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware rejects callers that exhausted their bucket with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.rps <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := callerKey(r)
		allowed, retryAfter := l.allow(key)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if !allowed {
			l.logger.WarnContext(ctx, "rate limit exceeded",
				"caller", key,
				"request_id", requestcontext.RequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
				"retry_after":       retryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) allow(key string) (bool, int) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 1
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, int(math.Ceil(delay.Seconds()))
	}
	return true, 0
}

// prune drops idle buckets at most once per idle period. Callers hold mu.
func (l *Limiter) prune(now time.Time) {
	if now.Sub(l.lastPrune) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastPrune = now
}

func callerKey(r *http.Request) string {
	ctx := r.Context()
	if actor := requestcontext.Actor(ctx); actor != "" {
		return "actor:" + actor
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}
