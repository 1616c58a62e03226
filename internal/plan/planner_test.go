package plan

import (
	"testing"

	"kushql/internal/catalog"
	"kushql/internal/sqlfront"
)

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.AddTable(&catalog.Table{
		Name: "orders",
		Columns: []catalog.Column{
			{Name: "orderkey", Type: catalog.TypeBigInt},
			{Name: "quantity", Type: catalog.TypeDouble},
			{Name: "shipdate", Type: catalog.TypeDate},
			{Name: "name", Type: catalog.TypeText},
		},
	})
	cat.AddTable(&catalog.Table{
		Name: "lineitem",
		Columns: []catalog.Column{
			{Name: "orderkey", Type: catalog.TypeBigInt},
			{Name: "extendedprice", Type: catalog.TypeDouble},
		},
	})
	return cat
}

func planOf(t *testing.T, sql string) *Operator {
	t.Helper()
	stmt, err := sqlfront.ParseSelect(sql)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	op, err := Plan(stmt, testCatalog())
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	return op
}

func TestPlanSimpleProjectionWrapsScanInOutput(t *testing.T) {
	op := planOf(t, "SELECT orderkey, quantity FROM orders")
	if op.Kind != OpOutput {
		t.Fatalf("expected top-level Output, got %v", op.Kind)
	}
	project := op.Children[0]
	if project.Kind != OpProject {
		t.Fatalf("expected Output's child to be Project, got %v", project.Kind)
	}
	if len(project.ProjectExprs) != 2 {
		t.Fatalf("expected 2 projected expressions, got %d", len(project.ProjectExprs))
	}
	scan := project.Children[0]
	if scan.Kind != OpScan {
		t.Fatalf("expected Project's child to be Scan, got %v", scan.Kind)
	}
}

func TestPlanSingleTableFilterPushesIntoSkinnerScanSelect(t *testing.T) {
	op := planOf(t, "SELECT orderkey FROM orders WHERE quantity > 10")
	project := op.Children[0]
	scan := project.Children[0]
	if scan.Kind != OpSkinnerScanSelect {
		t.Fatalf("expected the single-table predicate to push into SkinnerScanSelect, got %v", scan.Kind)
	}
	if len(scan.Predicates) != 1 {
		t.Fatalf("expected 1 predicate, got %d", len(scan.Predicates))
	}
}

func TestPlanTwoWayEquiJoinBecomesSkinnerJoin(t *testing.T) {
	op := planOf(t, "SELECT o.orderkey FROM orders o, lineitem l WHERE o.orderkey = l.orderkey")
	project := op.Children[0]
	join := project.Children[0]
	if join.Kind != OpSkinnerJoin {
		t.Fatalf("expected a single equi-join condition to plan as SkinnerJoin, got %v", join.Kind)
	}
	if len(join.JoinConditions) != 1 {
		t.Fatalf("expected 1 join condition, got %d", len(join.JoinConditions))
	}
	if join.JoinConditions[0].LeftIdx != 0 || join.JoinConditions[0].RightIdx != 0 {
		t.Fatalf("expected join on column index 0 of each side, got %+v", join.JoinConditions[0])
	}
}

func TestPlanCrossProductWhenNoJoinCondition(t *testing.T) {
	op := planOf(t, "SELECT o.orderkey FROM orders o, lineitem l")
	project := op.Children[0]
	cp := project.Children[0]
	if cp.Kind != OpCrossProduct {
		t.Fatalf("expected CrossProduct with no join predicate, got %v", cp.Kind)
	}
}

func TestPlanAggregateWithoutGroupBy(t *testing.T) {
	op := planOf(t, "SELECT SUM(quantity), COUNT(*) FROM orders")
	if op.Kind != OpOutput {
		t.Fatalf("expected top-level Output, got %v", op.Kind)
	}
	agg := op.Children[0]
	if agg.Kind != OpAggregate {
		t.Fatalf("expected Aggregate, got %v", agg.Kind)
	}
	if len(agg.AggregateExprs) != 2 {
		t.Fatalf("expected 2 aggregate expressions, got %d", len(agg.AggregateExprs))
	}
	if agg.AggregateExprs[0].AggKind != AggSum || agg.AggregateExprs[1].AggKind != AggCount {
		t.Fatalf("unexpected aggregate kinds: %+v", agg.AggregateExprs)
	}
	if agg.Schema.Columns[0].Type != catalog.TypeBigInt {
		t.Fatalf("expected SUM to report BIGINT, got %v", agg.Schema.Columns[0].Type)
	}
}

func TestPlanGroupByAggregate(t *testing.T) {
	op := planOf(t, "SELECT name, SUM(quantity) AS total FROM orders GROUP BY name")
	agg := op.Children[0]
	if agg.Kind != OpGroupByAggregate {
		t.Fatalf("expected GroupByAggregate, got %v", agg.Kind)
	}
	if len(agg.GroupByExprs) != 1 {
		t.Fatalf("expected 1 GROUP BY key, got %d", len(agg.GroupByExprs))
	}
	if agg.Schema.Columns[1].Name != "total" {
		t.Fatalf("expected aliased output column 'total', got %+v", agg.Schema.Columns[1])
	}
}

func TestPlanMixingAggregateAndPlainColumnsWithoutGroupByIsAnError(t *testing.T) {
	stmt, err := sqlfront.ParseSelect("SELECT name, SUM(quantity) FROM orders")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(stmt, testCatalog()); err == nil {
		t.Fatal("expected an error mixing aggregate and non-aggregate targets without GROUP BY")
	}
}

func TestPlanOrderBy(t *testing.T) {
	op := planOf(t, "SELECT orderkey FROM orders ORDER BY quantity DESC")
	project := op.Children[0]
	orderBy := project.Children[0]
	if orderBy.Kind != OpOrderBy {
		t.Fatalf("expected OrderBy between Project and its scan, got %v", orderBy.Kind)
	}
	if len(orderBy.OrderByDesc) != 1 || !orderBy.OrderByDesc[0] {
		t.Fatalf("expected a single DESC order key, got %+v", orderBy.OrderByDesc)
	}
}

func TestPlanUnknownTableIsAnError(t *testing.T) {
	stmt, err := sqlfront.ParseSelect("SELECT * FROM nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(stmt, testCatalog()); err == nil {
		t.Fatal("expected an error for an unknown table")
	}
}

func TestPlanAmbiguousColumnIsAnError(t *testing.T) {
	stmt, err := sqlfront.ParseSelect("SELECT orderkey FROM orders o, lineitem l WHERE o.orderkey = l.orderkey")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Plan(stmt, testCatalog()); err == nil {
		t.Fatal("expected an ambiguous-column error: both tables have an orderkey column")
	}
}

func TestPlanStarExpandsToAllColumns(t *testing.T) {
	op := planOf(t, "SELECT * FROM orders")
	project := op.Children[0]
	if len(project.ProjectExprs) != 4 {
		t.Fatalf("expected 4 projected columns matching orders' schema, got %d", len(project.ProjectExprs))
	}
}
