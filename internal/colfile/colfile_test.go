package colfile

import (
	"strings"
	"testing"

	"kushql/internal/catalog"
	"kushql/internal/krt"
)

func TestIngestCSVInfersTypesAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	csvData := "orderkey,quantity,shipdate\n1,17.5,1996-03-13\n2,36.0,1996-04-12\n"

	tbl, err := IngestCSV("orders", strings.NewReader(csvData), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Columns) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(tbl.Columns))
	}
	if tbl.Columns[0].Type != catalog.TypeBigInt {
		t.Fatalf("orderkey type = %v, want BigInt", tbl.Columns[0].Type)
	}
	if tbl.Columns[1].Type != catalog.TypeDouble {
		t.Fatalf("quantity type = %v, want Double", tbl.Columns[1].Type)
	}
	if tbl.Columns[2].Type != catalog.TypeDate {
		t.Fatalf("shipdate type = %v, want Date", tbl.Columns[2].Type)
	}

	col, err := krt.OpenInt64Column(dir + "/" + tbl.Columns[0].Path)
	if err != nil {
		t.Fatal(err)
	}
	defer col.Close()
	if col.Get(0) != 1 || col.Get(1) != 2 {
		t.Fatalf("orderkey values wrong: %d, %d", col.Get(0), col.Get(1))
	}

	qcol, err := krt.OpenFloat64Column(dir + "/" + tbl.Columns[1].Path)
	if err != nil {
		t.Fatal(err)
	}
	defer qcol.Close()
	if qcol.Get(0) != 17.5 {
		t.Fatalf("quantity[0] = %v, want 17.5", qcol.Get(0))
	}

	dcol, err := krt.OpenInt32Column(dir + "/" + tbl.Columns[2].Path)
	if err != nil {
		t.Fatal(err)
	}
	defer dcol.Close()
	y, m, d := krt.SplitDate(dcol.Get(0))
	if y != 1996 || m != 3 || d != 13 {
		t.Fatalf("shipdate[0] = %d-%d-%d, want 1996-3-13", y, m, d)
	}
}
