package pipeline

import (
	"fmt"
	"strings"

	"askdb/internal/store"
)

// formatAnswer renders the success blob: chosen store, final SQL (fenced),
// and the bounded result table.
func (p *Pipeline) formatAnswer(desc store.Descriptor, sql string, rows *store.ResultSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**DB:** `%s`  _(%s)_\n", desc.ID, desc.Rel)
	b.WriteString("**SQL**\n")
	fmt.Fprintf(&b, "```sql\n%s\n```\n", sql)
	b.WriteString("**Result (truncated)**\n")
	b.WriteString(rowsToMarkdown(rows))
	return b.String()
}

// rowsToMarkdown renders a result set as a markdown table. Columns come
// from the engine's ordering; NULLs render as empty cells.
func rowsToMarkdown(rs *store.ResultSet) string {
	if rs == nil || len(rs.Rows) == 0 {
		return "_(no rows)_"
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(rs.Columns, " | ") + " |\n")
	seps := make([]string, len(rs.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = ""
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// listStores renders every registered store with its relative path. This
// path never touches the oracle.
func (p *Pipeline) listStores() string {
	lines := []string{"**Available stores:**"}
	for _, d := range p.registry.All() {
		lines = append(lines, fmt.Sprintf("- `%s`  _(%s)_", d.ID, d.Rel))
	}
	return strings.Join(lines, "\n")
}
