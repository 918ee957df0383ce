package lexical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	t.Run("splits on non-alphanumerics and lowercases", func(t *testing.T) {
		assert.Equal(t, []string{"credit", "core", "record"}, Tokenize("Credit/core_record"))
	})

	t.Run("drops short tokens", func(t *testing.T) {
		assert.Equal(t, []string{"signals", "the", "lab"}, Tokenize("signals of the lab id x"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Tokenize(""))
		assert.Empty(t, Tokenize("a b c"))
	})
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Alien DB (2024)":  "alien_db_2024",
		"credit":           "credit",
		"--weird__name--":  "weird_name",
		"":                 "db",
		"!!!":              "db",
		"Ümlaut-data-set!": "mlaut_data_set",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slug(in), "slug of %q", in)
	}

	t.Run("caps length", func(t *testing.T) {
		long := Slug(strings.Repeat("abc_", 60))
		assert.LessOrEqual(t, len(long), MaxSlugLen)
	})
}

func TestScore(t *testing.T) {
	q := Tokenize("alien signals frequency")

	t.Run("zero without overlap", func(t *testing.T) {
		assert.Zero(t, Score(q, Tokenize("customer invoices ledger")))
		assert.Zero(t, Score(nil, Tokenize("anything")))
		assert.Zero(t, Score(q, nil))
	})

	t.Run("positive with overlap", func(t *testing.T) {
		assert.Greater(t, Score(q, Tokenize("signals observed by observatory")), 0.0)
	})

	t.Run("term frequency raises the score", func(t *testing.T) {
		once := Score(q, []string{"signals", "foo", "bar"})
		twice := Score(q, []string{"signals", "signals", "bar"})
		assert.Greater(t, twice, once)
	})

	t.Run("long documents are dampened", func(t *testing.T) {
		short := Score(q, []string{"signals"})
		padded := append([]string{"signals"}, make([]string, 0)...)
		for i := 0; i < 200; i++ {
			padded = append(padded, "filler")
		}
		long := Score(q, padded)
		assert.Greater(t, short, long)
	})
}
