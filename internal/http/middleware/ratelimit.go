// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the per-channel token-bucket limiter. Buckets live in
// process memory; a sweep at most once per idle TTL drops buckets nobody
// has touched since, so long-gone channels do not pin memory.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the identity its bucket is keyed by.
type KeyFunc func(*gin.Context) string

// KeyByChannelOrIP keys by the :channel_id route parameter ("channel:42")
// and falls back to the client address ("ip:203.0.113.7").
func KeyByChannelOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if ch := c.Param("channel_id"); ch != "" {
			return "channel:" + ch
		}
		return "ip:" + c.ClientIP()
	}
}

// DefaultBucketIdleTTL is how long an untouched bucket survives.
const DefaultBucketIdleTTL = 10 * time.Minute

var (
	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by key kind.",
		},
		[]string{"kind"},
	)
	rateBuckets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_rate_limit_buckets",
			Help: "Live rate-limit buckets.",
		},
	)
)

func init() {
	prometheus.MustRegister(rateLimited, rateBuckets)
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces rps/burst per key. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter returns a limiter refilling rps tokens per second up to
// burst. A burst below 1 is raised to 1.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		ttl:       DefaultBucketIdleTTL,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// limiter returns the bucket for key, creating it on first use. Idle buckets
// are swept before the lookup so a stale bucket is replaced, not revived.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rateBuckets.Set(float64(len(rl.buckets)))
	return b.lim
}

// IsRateBypass reports whether IdempotencyValidator flagged the request as a
// replay, which is served without spending a token.
func IsRateBypass(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyRateBypass).(bool)
	return b
}

// Handler rejects requests over budget with 429, a Retry-After in whole
// seconds and the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.limiter(key)
		now := rl.now()
		if lim.AllowN(now, 1) {
			c.Next()
			return
		}

		rateLimited.WithLabelValues(keyKind(key)).Inc()
		c.Header("Retry-After", strconv.Itoa(retryAfter(lim, now)))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}

// retryAfter is the wait until the next token, rounded up, at least 1s.
func retryAfter(lim *rate.Limiter, now time.Time) int {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return 1
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
