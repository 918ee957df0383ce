package schema

import (
	"sort"
	"strings"

	"askdb/internal/lexical"
	"askdb/internal/sidecar"
)

const (
	maxColsForScoring     = 120
	maxMeaningsForScoring = 25
)

// Packet is the schema context handed to the generation step: the rendered
// text plus the picked tables and their columns, which the augmenter needs
// to look up column meanings.
type Packet struct {
	Schema      string
	Tables      []string
	ColsByTable map[string][]string
}

// RenderForQuestion assembles the schema packet for a question. The full
// schema is used when its rendering fits the configured budget; otherwise
// the topTables most relevant tables are picked and rendered, optionally
// expanded by their one-hop foreign-key neighborhood.
func (a *Assembler) RenderForQuestion(storeID, question string, topTables int) (Packet, error) {
	m, err := a.Map(storeID)
	if err != nil {
		return Packet{}, err
	}

	if a.cfg.FullSchemaIfFits {
		full, err := a.RenderFull(storeID)
		if err != nil {
			return Packet{}, err
		}
		if len(full) <= a.cfg.FullSchemaMaxChars {
			pkt := Packet{Schema: full, ColsByTable: make(map[string][]string, len(m.Tables))}
			for _, t := range m.Tables {
				pkt.Tables = append(pkt.Tables, t.Name)
				pkt.ColsByTable[t.Name] = m.ColumnNames(t.Name)
			}
			return pkt, nil
		}
	}

	picked := a.pickProgressive(m, storeID, question, topTables)

	pkt := Packet{Tables: picked, ColsByTable: make(map[string][]string, len(picked))}
	var b strings.Builder
	for _, name := range picked {
		t, ok := m.Table(name)
		if !ok {
			continue
		}
		pkt.ColsByTable[name] = m.ColumnNames(name)
		renderTable(&b, t, a.cfg.SchemaMaxColsTable)
	}
	pkt.Schema = strings.TrimSpace(b.String())
	return pkt, nil
}

// pickProgressive scores every table against the question and returns the
// topN positive-scoring tables (raw top-N when nothing scores positive),
// plus up to SchemaMaxRelated foreign-key neighbors in both directions.
func (a *Assembler) pickProgressive(m *Map, storeID, question string, topN int) []string {
	if topN < 1 {
		topN = 1
	}
	qTokens := lexical.Tokenize(question)

	var meanings map[string]sidecar.Meaning
	if a.cfg.EnableColumnMeanings {
		meanings = a.sidecars.Meanings(storeID)
	}

	type scoredTable struct {
		score float64
		name  string
	}
	scored := make([]scoredTable, 0, len(m.Tables))
	for _, t := range m.Tables {
		s := a.cfg.RelevanceWeightTable * lexical.Score(qTokens, lexical.Tokenize(t.Name))

		var colTokens []string
		cols := t.Columns
		if len(cols) > maxColsForScoring {
			cols = cols[:maxColsForScoring]
		}
		for _, c := range cols {
			colTokens = append(colTokens, lexical.Tokenize(c.Name)...)
		}
		s += a.cfg.RelevanceWeightColumns * lexical.Score(qTokens, colTokens)

		if len(meanings) > 0 {
			s += a.cfg.RelevanceWeightMeanings * lexical.Score(qTokens, meaningTokens(meanings, storeID, t.Name))
		}

		scored = append(scored, scoredTable{s, t.Name})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	picked := make([]string, 0, topN)
	for _, st := range scored[:min(topN, len(scored))] {
		if st.score > 0 {
			picked = append(picked, st.name)
		}
	}
	if len(picked) == 0 {
		for _, st := range scored[:min(topN, len(scored))] {
			picked = append(picked, st.name)
		}
	}

	if a.cfg.SchemaAddRelated {
		picked = a.expandRelated(m, picked)
	}
	return picked
}

// expandRelated adds one-hop FK neighbors: tables the picked set references
// and tables referencing the picked set, in schema order, capped.
func (a *Assembler) expandRelated(m *Map, picked []string) []string {
	in := make(map[string]bool, len(picked))
	for _, name := range picked {
		in[name] = true
	}

	related := make(map[string]bool)
	for _, name := range picked {
		if t, ok := m.Table(name); ok {
			for _, fk := range t.ForeignKeys {
				if !in[fk.RefTable] {
					related[fk.RefTable] = true
				}
			}
		}
	}
	for _, t := range m.Tables {
		if in[t.Name] {
			continue
		}
		for _, fk := range t.ForeignKeys {
			if in[fk.RefTable] {
				related[t.Name] = true
				break
			}
		}
	}

	added := 0
	for _, t := range m.Tables {
		if added >= a.cfg.SchemaMaxRelated {
			break
		}
		if related[t.Name] && !in[t.Name] {
			picked = append(picked, t.Name)
			in[t.Name] = true
			added++
		}
	}
	return picked
}

// meaningTokens samples the sidecar entries of one table for relevance
// scoring: key tails plus meaning text, bounded and in sorted key order so
// scoring stays deterministic.
func meaningTokens(meanings map[string]sidecar.Meaning, storeID, table string) []string {
	prefix := storeID + "|" + table + "|"
	var keys []string
	for k := range meanings {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > maxMeaningsForScoring {
		keys = keys[:maxMeaningsForScoring]
	}

	var tokens []string
	for _, k := range keys {
		tokens = append(tokens, lexical.Tokenize(k)...)
		tokens = append(tokens, lexical.Tokenize(meanings[k].Text)...)
	}
	return tokens
}
