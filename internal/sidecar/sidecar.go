// Package sidecar loads the optional per-store knowledge files that live
// next to each SQLite file: a column-meaning map and a newline-delimited
// JSON knowledge base. Missing or broken sidecars always degrade to empty
// structures; they never fail a request.
package sidecar

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"askdb/internal/config"
	"askdb/internal/store"
)

// Meaning is one column-meaning entry. The JSON value is either a plain
// string or an object with a primary meaning plus nested field meanings
// (used for JSON-typed text columns).
type Meaning struct {
	Text   string
	Fields map[string]any
}

// UnmarshalJSON accepts both shapes.
func (m *Meaning) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Text = s
		return nil
	}
	var obj struct {
		ColumnMeaning string         `json:"column_meaning"`
		FieldsMeaning map[string]any `json:"fields_meaning"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	m.Text = strings.TrimSpace(obj.ColumnMeaning)
	m.Fields = obj.FieldsMeaning
	return nil
}

// Doc is one knowledge-base document.
type Doc struct {
	Knowledge   string `json:"knowledge"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Definition  string `json:"definition"`
}

// Text concatenates the searchable fields of the document.
func (d Doc) Text() string {
	return strings.Join([]string{d.Knowledge, d.Description, d.Definition, d.Type}, " ")
}

// Library serves sidecar knowledge for all registered stores, TTL-cached.
type Library struct {
	cfg      config.Settings
	registry *store.Registry
	meanings *store.TTLCache[map[string]Meaning]
	docs     *store.TTLCache[[]Doc]
}

// NewLibrary builds a library over the registry.
func NewLibrary(cfg config.Settings, reg *store.Registry) *Library {
	return &Library{
		cfg:      cfg,
		registry: reg,
		meanings: store.NewTTLCache[map[string]Meaning](cfg.CacheTTL()),
		docs:     store.NewTTLCache[[]Doc](cfg.CacheTTL()),
	}
}

// sidecar file naming convention, co-located with the store file:
//   <id>_column_meaning_base.json
//   <id>_kb.jsonl
func (l *Library) meaningsPath(d store.Descriptor) string {
	return filepath.Join(d.Dir, d.ID+"_column_meaning_base.json")
}

func (l *Library) kbPath(d store.Descriptor) string {
	return filepath.Join(d.Dir, d.ID+"_kb.jsonl")
}

// Meanings returns the column-meaning map of storeID, keyed by
// "<store>|<table>|<column>". Absent or unreadable files yield an empty map.
func (l *Library) Meanings(storeID string) map[string]Meaning {
	if cached, ok := l.meanings.Get(storeID); ok {
		return cached
	}

	data := map[string]Meaning{}
	if desc, ok := l.registry.Get(storeID); ok {
		if raw, err := os.ReadFile(l.meaningsPath(desc)); err == nil {
			var parsed map[string]Meaning
			if err := json.Unmarshal(raw, &parsed); err == nil {
				data = parsed
			}
		}
	}

	l.meanings.Put(storeID, data)
	return data
}

// Docs returns the knowledge documents of storeID. Broken lines are
// skipped; an absent file yields an empty slice.
func (l *Library) Docs(storeID string) []Doc {
	if cached, ok := l.docs.Get(storeID); ok {
		return cached
	}

	var docs []Doc
	if desc, ok := l.registry.Get(storeID); ok {
		if f, err := os.Open(l.kbPath(desc)); err == nil {
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				var d Doc
				if err := json.Unmarshal([]byte(line), &d); err == nil {
					docs = append(docs, d)
				}
			}
			f.Close()
		}
	}

	l.docs.Put(storeID, docs)
	return docs
}

// MeaningKey builds the lookup key for one column.
func MeaningKey(storeID, table, column string) string {
	return fmt.Sprintf("%s|%s|%s", storeID, table, column)
}
