package store

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"askdb/internal/lexical"
)

// ScanOptions controls which files qualify as stores.
type ScanOptions struct {
	Extensions       []string // lowercase, with leading dot
	TemplateSuffixes []string // lowercase; files ending in one are skipped
	TablePreviewMax  int
}

// Scan walks root recursively and returns a descriptor for every qualifying
// SQLite file, sorted by id. A file qualifies when its lowercase name ends
// with one of the configured extensions and not with a template suffix
// (templates are deliberately kept out of routing).
//
// Connection failures while building the table preview are swallowed
// per-file: a store we cannot open still gets registered, just with an
// empty preview. Only a broken walk aborts the scan.
func Scan(root string, opts ScanOptions) ([]Descriptor, error) {
	var found []Descriptor

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		low := strings.ToLower(d.Name())
		if !hasAnySuffix(low, opts.Extensions) || hasAnySuffix(low, opts.TemplateSuffixes) {
			return nil
		}

		base := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		desc := Descriptor{
			ID:   lexical.Slug(base),
			Name: base,
			Path: path,
			Rel:  rel,
			Dir:  filepath.Dir(path),
		}
		desc.TablesPreview = previewTables(path, opts.TablePreviewMax)
		found = append(found, desc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return found, nil
}

// previewTables lists up to max base tables of the store. Any failure yields
// an empty preview rather than an error.
func previewTables(path string, max int) []string {
	db, err := OpenReadOnly(path)
	if err != nil {
		return nil
	}
	defer db.Close()

	tables, err := Tables(db)
	if err != nil {
		return nil
	}
	if max > 0 && len(tables) > max {
		tables = tables[:max]
	}
	return tables
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
