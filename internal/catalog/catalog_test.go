package catalog

import (
	"path/filepath"
	"testing"
)

func TestSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.db")

	if err := CreateSQLiteSchema(path); err != nil {
		t.Fatal(err)
	}

	tbl := &Table{
		Name: "lineitem",
		Columns: []Column{
			{Name: "l_orderkey", Type: TypeBigInt, Path: "lineitem.l_orderkey.kql"},
			{Name: "l_quantity", Type: TypeDouble, Path: "lineitem.l_quantity.kql"},
		},
	}
	if err := SaveTable(path, tbl); err != nil {
		t.Fatal(err)
	}

	cat, err := LoadFromSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := cat.Table("lineitem")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(got.Columns))
	}
	if got.Columns[0].Name != "l_orderkey" || got.Columns[0].Type != TypeBigInt {
		t.Fatalf("unexpected column 0: %+v", got.Columns[0])
	}
	if idx, ok := got.ColumnIndex("l_quantity"); !ok || idx != 1 {
		t.Fatalf("ColumnIndex(l_quantity) = %d, %v", idx, ok)
	}
}

func TestParseType(t *testing.T) {
	if _, err := ParseType("NOT_A_TYPE"); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if ty, err := ParseType("INTEGER"); err != nil || ty != TypeInt {
		t.Fatalf("ParseType(INTEGER) = %v, %v", ty, err)
	}
}
