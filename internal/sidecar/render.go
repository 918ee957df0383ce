package sidecar

import (
	"fmt"
	"sort"
	"strings"

	"askdb/internal/lexical"
)

const maxNestedFields = 10

// RenderMeanings turns the sidecar entries of the picked tables into compact
// bullet lines for the generation prompt, truncated to the configured
// character budget. Deterministic given the sidecar state.
func (l *Library) RenderMeanings(storeID string, tables []string, colsByTable map[string][]string) string {
	if !l.cfg.EnableColumnMeanings {
		return ""
	}
	data := l.Meanings(storeID)
	if len(data) == 0 {
		return ""
	}

	var lines []string
	for _, tb := range tables {
		for _, col := range colsByTable[tb] {
			m, ok := data[MeaningKey(storeID, tb, col)]
			if !ok {
				continue
			}
			if m.Text != "" {
				lines = append(lines, fmt.Sprintf("- %s.%s: %s", tb, col, m.Text))
			}
			if len(m.Fields) > 0 {
				lines = append(lines, "  - json_fields: "+renderFields(m.Fields))
			}
		}
	}

	blob := strings.TrimSpace(strings.Join(lines, "\n"))
	return truncate(blob, l.cfg.ColumnMeaningsChars)
}

// renderFields previews nested field meanings: string values inline,
// anything structured as a placeholder.
func renderFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > maxNestedFields {
		keys = keys[:maxNestedFields]
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		default:
			parts = append(parts, fmt.Sprintf("%s=<object>", k))
		}
	}
	return strings.Join(parts, ", ")
}

// RetrieveKB ranks the store's knowledge documents against the question and
// renders the top positive-scoring ones as compact bullets within the
// character budget.
func (l *Library) RetrieveKB(storeID, question string) string {
	if !l.cfg.EnableKB {
		return ""
	}
	docs := l.Docs(storeID)
	if len(docs) == 0 {
		return ""
	}

	qTokens := lexical.Tokenize(question)
	type scoredDoc struct {
		score float64
		doc   Doc
	}
	var scored []scoredDoc
	for _, d := range docs {
		if s := lexical.Score(qTokens, lexical.Tokenize(d.Text())); s > 0 {
			scored = append(scored, scoredDoc{s, d})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if l.cfg.KBTopK >= 0 && len(scored) > l.cfg.KBTopK {
		scored = scored[:l.cfg.KBTopK]
	}
	if len(scored) == 0 {
		return ""
	}

	var lines []string
	for _, sd := range scored {
		d := sd.doc
		lines = append(lines, fmt.Sprintf("- %s (%s)", strings.TrimSpace(d.Knowledge), strings.TrimSpace(d.Type)))
		if desc := strings.TrimSpace(d.Description); desc != "" {
			lines = append(lines, "  - desc: "+desc)
		}
		if def := strings.TrimSpace(d.Definition); def != "" {
			lines = append(lines, "  - def: "+def)
		}
	}

	return truncate(strings.TrimSpace(strings.Join(lines, "\n")), l.cfg.KBMaxChars)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.TrimRight(s[:max], " \n") + "…"
}
