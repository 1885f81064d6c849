package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's retry key. Conversation events
// are the main user: a retried POST must not run the engine twice.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultIdemMaxLen = 200
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the key IdempotencyValidator accepted.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s, _ := c.Value(ctxKeyIdemKey).(string)
	return s, s != ""
}

// IsReplay reports whether a completed request with the same scoped key
// exists. Handlers serve the stored replies instead of re-running.
func IsReplay(c *gin.Context) bool {
	b, _ := c.Value(ctxKeyIdemReplay).(bool)
	return b
}

// IdempotencyOptions bounds accepted keys. Zero values mean 200 bytes of
// token characters ([A-Za-z0-9._~-:]). Expiry belongs to the lookup.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a replayable result exists for key in
// scope at now. Scope is the :channel_id parameter, or "-" on routes
// without one. Errors are logged and treated as a miss.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator checks the Idempotency-Key header when present and
// stashes it. A malformed key is rejected with 400. A lookup hit marks the
// request as a replay and exempts it from rate limiting.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultIdemMaxLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": requestIDOf(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			scope := IdempotencyScope(c)
			exists, err := lookup(c.Request.Context(), scope, key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Debug().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			case exists:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// IdempotencyScope is the channel the request acts on, or "-".
func IdempotencyScope(c *gin.Context) string {
	if ch := c.Param("channel_id"); ch != "" {
		return ch
	}
	return "-"
}

// ScopedIdempotencyKey is the stored form of key, so equal keys sent for
// different channels never collide.
func ScopedIdempotencyKey(scope, key string) string {
	return scope + ":" + key
}
