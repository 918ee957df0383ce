package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"askdb/internal/config"
	"askdb/internal/store"
)

func bareTestPipeline() *Pipeline {
	return &Pipeline{cfg: config.Default()}
}

func TestSanitizeQuestion(t *testing.T) {
	p := bareTestPipeline()

	t.Run("keeps only the last question block", func(t *testing.T) {
		in := "some pasted context\nQuestion: old one\nQuestion: what is the peak frequency?"
		assert.Equal(t, "what is the peak frequency?", p.sanitizeQuestion(in))
	})

	t.Run("strips log noise lines", func(t *testing.T) {
		in := "INFO: starting up\nTIMING 12ms\nhow many signals are there"
		assert.Equal(t, "how many signals are there", p.sanitizeQuestion(in))
	})

	t.Run("strips pasted pipeline output", func(t *testing.T) {
		in := "which observer saw it\n**DB:** `alien`  _(lab/alien.db)_\n**SQL**\n```sql\nSELECT 1\n```\n**Result (truncated)**\n| a |"
		out := p.sanitizeQuestion(in)
		assert.Equal(t, "which observer saw it", out)
	})

	t.Run("drops fenced code blocks", func(t *testing.T) {
		in := "here is context ```python\nprint(1)\n``` what is the strongest signal"
		out := p.sanitizeQuestion(in)
		assert.NotContains(t, out, "print")
		assert.Contains(t, out, "what is the strongest signal")
	})

	t.Run("tail-truncates oversized pastes", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 400; i++ {
			b.WriteString("irrelevant pasted line\n")
		}
		b.WriteString("which signal was the strongest?")
		out := p.sanitizeQuestion(b.String())
		assert.LessOrEqual(t, len(out), p.cfg.QuestionMaxChars)
		assert.Contains(t, out, "which signal was the strongest?")
	})
}

func TestEffectiveQuestion(t *testing.T) {
	p := bareTestPipeline()

	t.Run("plain question passes through trimmed", func(t *testing.T) {
		q := p.effectiveQuestion(Request{Question: "  how many rows  "})
		assert.Equal(t, "how many rows", q)
	})

	t.Run("pending clarification merges both turns", func(t *testing.T) {
		q := p.effectiveQuestion(Request{
			Question: "just 2024",
			Pending:  &PendingClarification{OriginalQuestion: "signals per year"},
		})
		assert.Equal(t, "Original question: signals per year\n\nUser clarification: just 2024", q)
	})

	t.Run("empty original degrades to the plain question", func(t *testing.T) {
		q := p.effectiveQuestion(Request{
			Question: "just 2024",
			Pending:  &PendingClarification{},
		})
		assert.Equal(t, "just 2024", q)
	})
}

func TestDirectSQLDetection(t *testing.T) {
	sqlText, ok := directSQL("DB=alien sql: SELECT 1")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", sqlText)

	_, ok = directSQL("what does the sql standard say")
	assert.False(t, ok)
}

func TestRowsToMarkdown(t *testing.T) {
	t.Run("nil and empty render a placeholder", func(t *testing.T) {
		assert.Equal(t, "_(no rows)_", rowsToMarkdown(nil))
		assert.Equal(t, "_(no rows)_", rowsToMarkdown(&store.ResultSet{Columns: []string{"a"}}))
	})

	t.Run("nulls become empty cells", func(t *testing.T) {
		rs := &store.ResultSet{
			Columns: []string{"label", "freq"},
			Rows:    [][]any{{"wow", 1420.456}, {nil, int64(7)}},
		}
		got := rowsToMarkdown(rs)
		assert.Equal(t, "| label | freq |\n| --- | --- |\n| wow | 1420.456 |\n|  | 7 |", got)
	})
}
