// Package search provides a small, deterministic, concurrency-safe in-memory
// matcher that maps free-text messages to labelled intents. The conversation
// engine uses it to turn a typed "what are your prices?" into the same
// command a menu button would issue.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// phrase's token set: score = |Q ∩ P| / |Q ∪ P|.
package search

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Result is a ranked phrase with the intent it belongs to.
type Result struct {
	Label  string
	Phrase string
	Score  float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Best(query string) (Result, bool)
}

// Entry is one phrase of an intent. Several entries may share a label.
type Entry struct {
	Label  string
	Phrase string
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	minScore  float64
}

// DefaultStopwords are dropped from phrases and queries unless overridden.
var DefaultStopwords = []string{
	"a", "an", "the", "i", "you", "me", "my", "your", "we", "is", "are", "do",
	"does", "can", "to", "of", "for", "on", "in", "at", "please", "want", "would", "like",
}

func defaultConfig() config {
	c := config{minScore: 0.25}
	WithStopwords(DefaultStopwords)(&c)
	return c
}

// WithStopwords replaces the stop-word list. An empty list disables removal.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) == 0 {
			c.stopwords = nil
			return
		}
		c.stopwords = m
	}
}

// WithMinScore sets the threshold Best requires. Values outside (0,1] are
// ignored.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s > 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	label  string
	text   string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index from entries. Entries without a label or without
// any token after stop-word removal are skipped.
func NewIndex(entries []Entry, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return buildIndex(entries, cfg)
}

// NewIndexFromFile reads intents from path; see NewIndexFromReader.
func NewIndexFromFile(path string, opts ...Option) (Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return &index{cfg: defaultConfig()}, err
	}
	defer f.Close()
	return NewIndexFromReader(f, opts...)
}

// NewIndexFromReader parses intents written as
//
//	# label
//	phrase one
//	phrase two
//
// Blank lines are ignored; phrases before the first heading are dropped.
func NewIndexFromReader(r io.Reader, opts ...Option) (Index, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	entries, err := parseIntents(r)
	if err != nil {
		return &index{cfg: cfg}, err
	}
	return buildIndex(entries, cfg), nil
}

func parseIntents(r io.Reader) ([]Entry, error) {
	var (
		out   []Entry
		label string
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(normalizeWhitespace(sc.Text()))
		switch {
		case line == "":
		case strings.HasPrefix(line, "#"):
			label = strings.TrimSpace(strings.TrimLeft(line, "#"))
		case label != "":
			out = append(out, Entry{Label: label, Phrase: line})
		}
	}
	return out, sc.Err()
}

func buildIndex(entries []Entry, cfg config) *index {
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		label := strings.TrimSpace(e.Label)
		t := strings.TrimSpace(normalizeWhitespace(e.Phrase))
		if label == "" || t == "" {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{label: label, text: t, tokens: toks})
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching phrases by Jaccard similarity. A label
// appears at most once, with its best phrase.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	best := make(map[string]Result)
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(len(qTokens)+len(d.tokens)-over)
		if cur, ok := best[d.label]; !ok || score > cur.Score {
			best[d.label] = Result{Label: d.label, Phrase: d.text, Score: score}
		}
	}
	if len(best) == 0 {
		return nil
	}

	buf := make([]Result, 0, len(best))
	for _, r := range best {
		buf = append(buf, r)
	}
	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].Label < buf[b].Label
	})
	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// Best returns the top result when it reaches the minimum score.
func (i *index) Best(q string) (Result, bool) {
	top := i.TopK(q, 1)
	if len(top) == 0 || top[0].Score < i.cfg.minScore {
		return Result{}, false
	}
	return top[0], true
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
