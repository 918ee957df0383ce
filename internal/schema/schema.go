// Package schema builds the textual schema context a translation prompt is
// grounded on: either the store's full schema, or a relevance-ranked subset
// of tables expanded by one foreign-key hop when the full rendering would
// blow the prompt budget.
package schema

import (
	"fmt"
	"strings"

	"askdb/internal/config"
	"askdb/internal/sidecar"
	"askdb/internal/store"
)

// Table is one table of a store with its ordered columns and outgoing
// foreign-key edges.
type Table struct {
	Name        string
	Columns     []store.Column
	ForeignKeys []store.ForeignKey
}

// Map is the full schema of one store. Table order follows the engine's
// name ordering, so renderings are deterministic.
type Map struct {
	Tables []Table
	index  map[string]int
}

// Table returns the named table.
func (m *Map) Table(name string) (Table, bool) {
	i, ok := m.index[name]
	if !ok {
		return Table{}, false
	}
	return m.Tables[i], true
}

// ColumnNames returns the ordered column names of the named table.
func (m *Map) ColumnNames(table string) []string {
	t, ok := m.Table(table)
	if !ok {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Assembler renders schema context for chosen stores, with TTL-cached maps
// and full-schema texts.
type Assembler struct {
	cfg      config.Settings
	registry *store.Registry
	sidecars *sidecar.Library
	maps     *store.TTLCache[*Map]
	fullText *store.TTLCache[string]
}

// New builds an assembler over the registry.
func New(cfg config.Settings, reg *store.Registry, sidecars *sidecar.Library) *Assembler {
	return &Assembler{
		cfg:      cfg,
		registry: reg,
		sidecars: sidecars,
		maps:     store.NewTTLCache[*Map](cfg.CacheTTL()),
		fullText: store.NewTTLCache[string](cfg.CacheTTL()),
	}
}

// Map returns the schema map of storeID, rebuilding it lazily on cache
// expiry or miss.
func (a *Assembler) Map(storeID string) (*Map, error) {
	if cached, ok := a.maps.Get(storeID); ok {
		return cached, nil
	}

	desc, ok := a.registry.Get(storeID)
	if !ok {
		return nil, fmt.Errorf("unknown store: %s", storeID)
	}

	db, err := store.OpenReadOnly(desc.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	names, err := store.Tables(db)
	if err != nil {
		return nil, err
	}

	m := &Map{index: make(map[string]int, len(names))}
	for _, name := range names {
		cols, err := store.Columns(db, name)
		if err != nil {
			return nil, err
		}
		fks, err := store.ForeignKeys(db, name)
		if err != nil {
			return nil, err
		}
		m.index[name] = len(m.Tables)
		m.Tables = append(m.Tables, Table{Name: name, Columns: cols, ForeignKeys: fks})
	}

	a.maps.Put(storeID, m)
	return m, nil
}

// RenderFull renders every table and foreign-key edge of the store.
func (a *Assembler) RenderFull(storeID string) (string, error) {
	if cached, ok := a.fullText.Get(storeID); ok {
		return cached, nil
	}

	m, err := a.Map(storeID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, t := range m.Tables {
		renderTable(&b, t, 0)
	}
	text := strings.TrimSpace(b.String())

	a.fullText.Put(storeID, text)
	return text, nil
}

// renderTable writes one "TABLE name: col (TYPE PK NOT NULL), ..." line plus
// its FK lines. maxCols of 0 means unbounded.
func renderTable(b *strings.Builder, t Table, maxCols int) {
	cols := t.Columns
	truncated := false
	if maxCols > 0 && len(cols) > maxCols {
		cols = cols[:maxCols]
		truncated = true
	}

	parts := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		var meta []string
		if c.Type != "" {
			meta = append(meta, c.Type)
		}
		if c.PK {
			meta = append(meta, "PK")
		}
		if c.NotNull {
			meta = append(meta, "NOT NULL")
		}
		if len(meta) > 0 {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Name, strings.Join(meta, " ")))
		} else {
			parts = append(parts, c.Name)
		}
	}
	if truncated {
		parts = append(parts, "…")
	}

	fmt.Fprintf(b, "TABLE %s: %s\n", t.Name, strings.Join(parts, ", "))
	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(b, "  FK %s.%s -> %s.%s\n", t.Name, fk.From, fk.RefTable, fk.RefColumn)
	}
}
