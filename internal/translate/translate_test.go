package translate

import (
	"path/filepath"
	"testing"

	"kushql/internal/catalog"
	"kushql/internal/colfile"
	"kushql/internal/plan"
)

func writeTestTable(t *testing.T) (*catalog.Table, string) {
	t.Helper()
	dir := t.TempDir()
	if err := colfile.WriteInt64Column(filepath.Join(dir, "t.a.kql"), []int64{1, 2, 3, 4, 5}); err != nil {
		t.Fatal(err)
	}
	if err := colfile.WriteFloat64Column(filepath.Join(dir, "t.b.kql"), []float64{10, 20, 30, 40, 50}); err != nil {
		t.Fatal(err)
	}
	tbl := &catalog.Table{
		Name: "t",
		Columns: []catalog.Column{
			{Name: "a", Type: catalog.TypeBigInt, Path: "t.a.kql"},
			{Name: "b", Type: catalog.TypeDouble, Path: "t.b.kql"},
		},
	}
	return tbl, dir
}

func TestScanSelectAggregateEndToEnd(t *testing.T) {
	tbl, dir := writeTestTable(t)
	schema := &plan.OperatorSchema{Columns: []plan.SchemaColumn{
		{Name: "a", Type: catalog.TypeBigInt},
		{Name: "b", Type: catalog.TypeDouble},
	}}
	scan := plan.Scan(tbl, schema)
	sel := plan.Select(scan, []*plan.Expression{
		plan.Compare(plan.CmpGt, plan.ColumnRef(0, catalog.TypeBigInt), plan.LiteralInt(2)),
	})
	agg := plan.AggregateOp(sel, []*plan.Expression{
		plan.Aggregate(plan.AggSum, plan.ColumnRef(1, catalog.TypeDouble)),
		plan.Aggregate(plan.AggCount, plan.ColumnRef(0, catalog.TypeBigInt)),
	}, &plan.OperatorSchema{Columns: []plan.SchemaColumn{
		{Name: "sum_b", Type: catalog.TypeDouble},
		{Name: "count_a", Type: catalog.TypeBigInt},
	}})
	out := plan.Output(agg)

	op, err := Build(out, dir)
	if err != nil {
		t.Fatal(err)
	}
	var rows []Row
	if err := op.Execute(SinkFunc(func(r Row) error {
		rows = append(rows, r)
		return nil
	})); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 aggregate row, got %d", len(rows))
	}
	if rows[0][0].Float != 120 { // 30+40+50
		t.Fatalf("sum_b = %v, want 120", rows[0][0].Float)
	}
	if rows[0][1].Int != 3 {
		t.Fatalf("count_a = %v, want 3", rows[0][1].Int)
	}
}

func TestCompiledPredicateMatchesEval(t *testing.T) {
	schema := []catalog.Type{catalog.TypeBigInt, catalog.TypeDouble}
	expr := plan.Logical(plan.LogicalAnd,
		plan.Compare(plan.CmpGt, plan.ColumnRef(0, catalog.TypeBigInt), plan.LiteralInt(1)),
		plan.Compare(plan.CmpLt, plan.ColumnRef(1, catalog.TypeDouble), plan.LiteralFloat(45)),
	)
	if !CanCompile(expr, schema) {
		t.Fatal("expected expression to be compilable")
	}
	cp, err := CompilePredicate(expr, schema)
	if err != nil {
		t.Fatal(err)
	}

	rows := []Row{
		{IntValue(catalog.TypeBigInt, 1), FloatValue(10)},
		{IntValue(catalog.TypeBigInt, 2), FloatValue(20)},
		{IntValue(catalog.TypeBigInt, 3), FloatValue(50)},
	}
	for _, r := range rows {
		want, err := Eval(expr, r)
		if err != nil {
			t.Fatal(err)
		}
		got, err := cp.Eval(rowToWords(r))
		if err != nil {
			t.Fatal(err)
		}
		if got != want.Bool() {
			t.Fatalf("row %v: compiled=%v eval=%v", r, got, want.Bool())
		}
	}
}
