// Package catalog holds table/column metadata, following
// original_source/catalog/catalog.h and original_source/catalog/table.h's
// Catalog/Table/Column classes. Metadata can be built in memory (for
// tests and ad hoc scripts) or loaded from a sqlite3 database file via
// github.com/mattn/go-sqlite3, which this package uses the way the
// teacher reaches for a real driver instead of hand-rolling file parsing
// for anything that looks like structured metadata storage.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"kushql/internal/kqerr"
)

// Type is the set of SQL column types kushql understands, modeled on
// original_source/catalog/sql_type.h's SqlType enum.
type Type int

const (
	TypeInt Type = iota
	TypeBigInt
	TypeDouble
	TypeText
	TypeBoolean
	TypeDate
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeBigInt:
		return "BIGINT"
	case TypeDouble:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	default:
		return "UNKNOWN"
	}
}

func ParseType(s string) (Type, error) {
	switch s {
	case "INT", "INTEGER", "INT4":
		return TypeInt, nil
	case "BIGINT", "INT8":
		return TypeBigInt, nil
	case "REAL", "DOUBLE", "FLOAT8":
		return TypeDouble, nil
	case "TEXT", "VARCHAR", "STRING":
		return TypeText, nil
	case "BOOLEAN", "BOOL":
		return TypeBoolean, nil
	case "DATE":
		return TypeDate, nil
	default:
		return 0, kqerr.New(kqerr.Plan, "unknown column type %q", s)
	}
}

// Column describes one column of a Table, following original_source's
// Column{name, type} pair.
type Column struct {
	Name string
	Type Type
	// Path is the column file backing this column on disk, relative to
	// the catalog's data directory. Empty for in-memory-only tables
	// (e.g. test fixtures).
	Path string
}

// Table is a named, ordered list of columns.
type Table struct {
	Name    string
	Columns []Column
}

func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Catalog is the set of known tables, following original_source's
// Catalog class, which in kushdb wraps a small collection of Table
// objects keyed by name.
type Catalog struct {
	tables map[string]*Table
}

func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

func (c *Catalog) AddTable(t *Table) {
	c.tables[t.Name] = t
}

func (c *Catalog) Table(name string) (*Table, error) {
	t, ok := c.tables[name]
	if !ok {
		return nil, kqerr.New(kqerr.Plan, "unknown table %q", name)
	}
	return t, nil
}

func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for n := range c.tables {
		names = append(names, n)
	}
	return names
}

// LoadFromSQLite populates the catalog from a sqlite3 metadata database
// with the schema:
//
//	CREATE TABLE kushql_tables(name TEXT PRIMARY KEY);
//	CREATE TABLE kushql_columns(table_name TEXT, ordinal INT, name TEXT, type TEXT, path TEXT);
//
// This mirrors the teacher's pattern of keeping small, structured
// metadata in a real embedded database rather than a bespoke text
// format, and is how a deployed kushql installation would record which
// column files back which tables.
func LoadFromSQLite(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: open metadata db")
	}
	defer db.Close()

	c := New()

	tableRows, err := db.Query(`SELECT name FROM kushql_tables ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "catalog: query tables")
	}
	defer tableRows.Close()

	var names []string
	for tableRows.Next() {
		var name string
		if err := tableRows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "catalog: scan table row")
		}
		names = append(names, name)
	}
	if err := tableRows.Err(); err != nil {
		return nil, errors.Wrap(err, "catalog: iterate tables")
	}

	for _, name := range names {
		tbl := &Table{Name: name}
		colRows, err := db.Query(
			`SELECT name, type, path FROM kushql_columns WHERE table_name = ? ORDER BY ordinal`, name)
		if err != nil {
			return nil, errors.Wrap(err, "catalog: query columns")
		}
		for colRows.Next() {
			var colName, typeName, colPath string
			if err := colRows.Scan(&colName, &typeName, &colPath); err != nil {
				colRows.Close()
				return nil, errors.Wrap(err, "catalog: scan column row")
			}
			t, err := ParseType(typeName)
			if err != nil {
				colRows.Close()
				return nil, err
			}
			tbl.Columns = append(tbl.Columns, Column{Name: colName, Type: t, Path: colPath})
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return nil, errors.Wrap(err, "catalog: iterate columns")
		}
		colRows.Close()
		c.AddTable(tbl)
	}

	return c, nil
}

// CreateSQLiteSchema initializes an empty metadata database with the
// schema LoadFromSQLite expects; used by ingestion tooling and tests.
func CreateSQLiteSchema(path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrap(err, "catalog: open metadata db")
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kushql_tables(name TEXT PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS kushql_columns(
			table_name TEXT, ordinal INT, name TEXT, type TEXT, path TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return errors.Wrap(err, fmt.Sprintf("catalog: exec %q", s))
		}
	}
	return nil
}

// SaveTable writes a Table's metadata into a sqlite3 database created by
// CreateSQLiteSchema.
func SaveTable(path string, t *Table) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errors.Wrap(err, "catalog: open metadata db")
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT OR REPLACE INTO kushql_tables(name) VALUES (?)`, t.Name); err != nil {
		return errors.Wrap(err, "catalog: insert table")
	}
	if _, err := db.Exec(`DELETE FROM kushql_columns WHERE table_name = ?`, t.Name); err != nil {
		return errors.Wrap(err, "catalog: clear columns")
	}
	for i, col := range t.Columns {
		_, err := db.Exec(
			`INSERT INTO kushql_columns(table_name, ordinal, name, type, path) VALUES (?, ?, ?, ?, ?)`,
			t.Name, i, col.Name, col.Type.String(), col.Path)
		if err != nil {
			return errors.Wrap(err, "catalog: insert column")
		}
	}
	return nil
}
