// Package lexical provides the shared text primitives of the router:
// tokenization, identifier slugging, and the lightweight relevance score
// used to rank tables, knowledge snippets, and stores against a question.
package lexical

import (
	"math"
	"regexp"
	"strings"
)

const (
	// MinTokenLen filters out noise words ("a", "of", "id") before scoring.
	MinTokenLen = 3

	// MaxSlugLen caps store ids derived from long filenames.
	MaxSlugLen = 80

	// lengthNormFactor dampens the score of very long documents so a table
	// with 200 columns does not win on term frequency alone.
	lengthNormFactor = 0.01
)

var (
	splitRegex   = regexp.MustCompile(`[^a-z0-9]+`)
	slugRegex    = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapse = regexp.MustCompile(`_+`)
)

// Tokenize lowercases s and splits it into alphanumeric runs, keeping only
// tokens of MinTokenLen or more.
func Tokenize(s string) []string {
	parts := splitRegex.Split(strings.ToLower(s), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) >= MinTokenLen {
			out = append(out, p)
		}
	}
	return out
}

// Slug derives a stable identifier from a filename: lowercase, runs of
// non-alphanumerics collapsed to single underscores, trimmed, length-capped.
// An input with no usable characters yields "db".
func Slug(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugRegex.ReplaceAllString(s, "_")
	s = slugCollapse.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "db"
	}
	if len(s) > MaxSlugLen {
		s = s[:MaxSlugLen]
	}
	return s
}

// Score is a tiny BM25-flavoured relevance function with no corpus
// statistics: every query token found in the document contributes
// 1+ln(1+tf), and the total is normalized by document length. It is only
// meant for reranking small candidate sets, not for real search.
func Score(query, doc []string) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	tf := make(map[string]int, len(doc))
	for _, t := range doc {
		tf[t]++
	}
	score := 0.0
	for _, qt := range query {
		if n := tf[qt]; n > 0 {
			score += 1.0 + math.Log(1.0+float64(n))
		}
	}
	return score / (1.0 + lengthNormFactor*float64(len(doc)))
}
