package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// RedactOptions adds headers to mask on top of the built-in set
// (Authorization, Cookie, Set-Cookie and the Telegram webhook secret).
// Names are case-insensitive.
type RedactOptions struct {
	MaskHeaders []string
}

// redaction rules, applied in order. UUIDs go before phone numbers so the
// loose phone pattern never bites into a reservation id.
var redactions = []struct {
	re   *regexp.Regexp
	repl string
}{
	// bot tokens ("123456789:AAE...") show up in Bot API paths
	{regexp.MustCompile(`\d{5,}:[A-Za-z0-9_\-]{30,}`), "[REDACTED:token]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`(?i)\bcode=\d{4}\b`), "code=[REDACTED:code]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

// Redact scrubs contact data, confirmation codes, reservation ids and bot
// tokens from s.
func Redact(s string) string {
	for _, r := range redactions {
		if s == "" {
			return s
		}
		s = r.re.ReplaceAllString(s, r.repl)
	}
	return s
}

// RedactingLogger is Logger with Redact applied to the raw path and query,
// plus a header dump where sensitive headers are replaced by "[REDACTED]".
// Bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization":                   {},
		"cookie":                          {},
		"set-cookie":                      {},
		"x-telegram-bot-api-secret-token": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	dump := func(h http.Header) map[string]string {
		out := make(map[string]string, len(h))
		for k, vv := range h {
			if _, ok := masked[strings.ToLower(k)]; ok {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = Redact(strings.Join(vv, ", "))
		}
		return out
	}
	return accessLog(Redact, dump)
}
