package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Column describes one column of a table, in declaration order.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	PK      bool
}

// ForeignKey is one outgoing foreign-key edge of a table.
type ForeignKey struct {
	From      string // column in the owning table
	RefTable  string
	RefColumn string
}

// ResultSet holds the bounded output of one executed statement. Columns
// preserve the engine's order; a nil cell is SQL NULL.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// OpenReadOnly opens the SQLite file in read-only mode. Callers own the
// handle and must close it on every exit path.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return db, nil
}

// Tables lists the base tables of the store, excluding the engine-internal
// sqlite_* tables, in name order.
func Tables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the ordered column descriptors of table.
func Columns(db *sql.DB, table string) ([]Column, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read table info: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid, notnull, pk int
			name             string
			ctype            sql.NullString
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{
			Name:    name,
			Type:    ctype.String,
			NotNull: notnull != 0,
			PK:      pk != 0,
		})
	}
	return cols, rows.Err()
}

// ForeignKeys returns the outgoing foreign-key edges of table.
func ForeignKeys(db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpd, onDel, mtch string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpd, &onDel, &mtch); err != nil {
			return nil, err
		}
		fks = append(fks, ForeignKey{From: from, RefTable: refTable, RefColumn: to.String})
	}
	return fks, rows.Err()
}

// Execute runs one read-only statement against the store at path. It first
// issues an EXPLAIN QUERY PLAN to fail fast on pure syntax errors, then
// fetches at most maxRows rows. The connection lives exactly as long as this
// call.
func Execute(path, query string, maxRows int) (*ResultSet, error) {
	db, err := OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Plan-only check: catches bad syntax and unknown tables without
	// touching any data.
	if _, err := db.Exec("EXPLAIN QUERY PLAN " + query); err != nil {
		return nil, err
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		if maxRows > 0 && len(rs.Rows) >= maxRows {
			break
		}
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, c := range cells {
			if b, ok := c.([]byte); ok {
				cells[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, cells)
	}
	return rs, rows.Err()
}
