// Package route decides which store a question belongs to. The inverted
// token index answers the common case without any oracle call; the chooser
// layers override syntax, a confidence gate, and an oracle fallback on top.
package route

import (
	"sort"

	"askdb/internal/config"
	"askdb/internal/lexical"
	"askdb/internal/store"
)

// Index maps lexical tokens to per-store weights. Built once at startup
// from registry descriptors and a bounded column sample; weight per
// (token, store) is the max across contributing signals, never a sum.
type Index struct {
	inv        map[string]map[string]int // token -> store id -> weight
	signatures map[string]map[string]int // store id -> its own contribution
}

// Scored pairs a store id with its additive query-time score.
type Scored struct {
	ID    string
	Score int
}

// BuildIndex constructs the routing index. sampleColumns provides a bounded
// column-name sample per store (may be nil to skip the weakest signal).
func BuildIndex(stores []store.Descriptor, cfg config.Settings, sampleColumns func(store.Descriptor) []string) *Index {
	idx := &Index{
		inv:        make(map[string]map[string]int),
		signatures: make(map[string]map[string]int, len(stores)),
	}

	for _, d := range stores {
		sig := make(map[string]int)

		// strong signals: the store's own identity
		for _, t := range lexical.Tokenize(d.ID) {
			setMax(sig, t, cfg.RouteWeightName)
		}
		for _, t := range lexical.Tokenize(d.Name) {
			setMax(sig, t, cfg.RouteWeightName)
		}

		// table names from the scan preview
		for _, tb := range d.TablesPreview {
			for _, t := range lexical.Tokenize(tb) {
				setMax(sig, t, cfg.RouteWeightTable)
			}
		}

		// weakest tier: a few column names
		if sampleColumns != nil {
			for _, col := range sampleColumns(d) {
				for _, t := range lexical.Tokenize(col) {
					setMax(sig, t, cfg.RouteWeightColumn)
				}
			}
		}

		idx.signatures[d.ID] = sig
		for token, weight := range sig {
			bucket := idx.inv[token]
			if bucket == nil {
				bucket = make(map[string]int)
				idx.inv[token] = bucket
			}
			setMax(bucket, d.ID, weight)
		}
	}

	return idx
}

// SampleColumns reads up to maxTables × maxCols column names from the store
// for index building. Failures yield an empty sample, never an error.
func SampleColumns(d store.Descriptor, maxTables, maxCols int) []string {
	db, err := store.OpenReadOnly(d.Path)
	if err != nil {
		return nil
	}
	defer db.Close()

	tables, err := store.Tables(db)
	if err != nil {
		return nil
	}
	if len(tables) > maxTables {
		tables = tables[:maxTables]
	}

	var names []string
	for _, tb := range tables {
		cols, err := store.Columns(db, tb)
		if err != nil {
			continue
		}
		if len(cols) > maxCols {
			cols = cols[:maxCols]
		}
		for _, c := range cols {
			names = append(names, c.Name)
		}
	}
	return names
}

// Score sums, over the question's tokens, the weight each token contributes
// per store. Additive across tokens, not capped.
func (idx *Index) Score(question string) map[string]int {
	scores := make(map[string]int)
	for _, tok := range lexical.Tokenize(question) {
		for id, w := range idx.inv[tok] {
			scores[id] += w
		}
	}
	return scores
}

// Rank orders scores descending. Exact ties break toward the
// lexicographically smaller store id so routing stays deterministic.
func Rank(scores map[string]int) []Scored {
	ranked := make([]Scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, Scored{ID: id, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// Tokens returns the number of distinct tokens in the index.
func (idx *Index) Tokens() int {
	return len(idx.inv)
}

// Signature exposes a store's own inverted contribution (used by tests and
// diagnostics).
func (idx *Index) Signature(storeID string) map[string]int {
	return idx.signatures[storeID]
}

func setMax(m map[string]int, key string, w int) {
	if m[key] < w {
		m[key] = w
	}
}
