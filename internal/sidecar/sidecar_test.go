package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askdb/internal/config"
	"askdb/internal/store"
)

const meaningsJSON = `{
	"alien|signals|freq": "carrier frequency in MHz",
	"alien|signals|meta": {
		"column_meaning": "JSON blob of capture metadata",
		"fields_meaning": {
			"antenna": "dish identifier",
			"weather": {"sky": "cloud cover at capture time"}
		}
	}
}`

const kbJSONL = `{"knowledge":"wow signal","type":"event","description":"the famous 1977 narrowband signal","definition":"freq = 1420.456 MHz"}
{"knowledge":"quiet band","type":"convention","description":"protected radio astronomy band"}
not json at all
{"knowledge":"drift rate","type":"metric","definition":"Hz per second of carrier drift"}`

func testLibrary(t *testing.T, withFiles bool) *Library {
	t.Helper()
	dir := t.TempDir()
	if withFiles {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "alien_column_meaning_base.json"), []byte(meaningsJSON), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "alien_kb.jsonl"), []byte(kbJSONL), 0o644))
	}
	reg := store.NewRegistry([]store.Descriptor{{ID: "alien", Name: "alien", Dir: dir}})
	return NewLibrary(config.Default(), reg)
}

func TestMeaningUnmarshal(t *testing.T) {
	lib := testLibrary(t, true)
	data := lib.Meanings("alien")
	require.Len(t, data, 2)

	plain := data[MeaningKey("alien", "signals", "freq")]
	assert.Equal(t, "carrier frequency in MHz", plain.Text)
	assert.Empty(t, plain.Fields)

	obj := data[MeaningKey("alien", "signals", "meta")]
	assert.Equal(t, "JSON blob of capture metadata", obj.Text)
	assert.Contains(t, obj.Fields, "antenna")
}

func TestAbsentSidecarsAreEmpty(t *testing.T) {
	lib := testLibrary(t, false)
	assert.Empty(t, lib.Meanings("alien"))
	assert.Empty(t, lib.Docs("alien"))
	assert.Empty(t, lib.Meanings("no_such_store"))
}

func TestDocsSkipBrokenLines(t *testing.T) {
	lib := testLibrary(t, true)
	docs := lib.Docs("alien")
	require.Len(t, docs, 3, "the non-JSON line is skipped")
	assert.Equal(t, "wow signal", docs[0].Knowledge)
}

func TestRenderMeanings(t *testing.T) {
	lib := testLibrary(t, true)
	cols := map[string][]string{"signals": {"freq", "meta", "unknown_col"}}

	out := lib.RenderMeanings("alien", []string{"signals"}, cols)
	assert.Contains(t, out, "- signals.freq: carrier frequency in MHz")
	assert.Contains(t, out, "- signals.meta: JSON blob of capture metadata")
	assert.Contains(t, out, "json_fields: antenna=dish identifier, weather=<object>")
	assert.NotContains(t, out, "unknown_col")

	t.Run("budget truncation", func(t *testing.T) {
		short := *lib
		short.cfg.ColumnMeaningsChars = 30
		got := short.RenderMeanings("alien", []string{"signals"}, cols)
		assert.LessOrEqual(t, len(got), 30+len("…"))
		assert.True(t, strings.HasSuffix(got, "…"))
	})

	t.Run("disabled returns nothing", func(t *testing.T) {
		off := *lib
		off.cfg.EnableColumnMeanings = false
		assert.Empty(t, off.RenderMeanings("alien", []string{"signals"}, cols))
	})
}

func TestRetrieveKB(t *testing.T) {
	lib := testLibrary(t, true)

	t.Run("relevant docs are rendered", func(t *testing.T) {
		out := lib.RetrieveKB("alien", "what frequency was the wow signal at?")
		assert.Contains(t, out, "- wow signal (event)")
		assert.Contains(t, out, "def: freq = 1420.456 MHz")
		assert.NotContains(t, out, "quiet band", "documents without overlap stay out")
	})

	t.Run("no overlap means no block", func(t *testing.T) {
		assert.Empty(t, lib.RetrieveKB("alien", "quarterly revenue by region"))
	})

	t.Run("top-k keeps only the best document", func(t *testing.T) {
		one := *lib
		one.cfg.KBTopK = 1
		out := one.RetrieveKB("alien", "signal drift rate")
		assert.Contains(t, out, "drift rate")
		assert.NotContains(t, out, "wow signal")
	})
}
