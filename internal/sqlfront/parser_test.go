package sqlfront

import "testing"

func TestParseSelectStar(t *testing.T) {
	stmt, err := ParseSelect("SELECT * FROM orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(stmt.Targets) != 1 || stmt.Targets[0].Expr.Kind != ExprStar {
		t.Fatalf("expected a single star target, got %+v", stmt.Targets)
	}
	if len(stmt.From) != 1 || stmt.From[0].Table != "orders" {
		t.Fatalf("expected FROM orders, got %+v", stmt.From)
	}
}

func TestParseSelectWithAliasAndWhere(t *testing.T) {
	stmt, err := ParseSelect("SELECT o.orderkey AS ok FROM orders AS o WHERE o.quantity > 10")
	if err != nil {
		t.Fatal(err)
	}
	if len(stmt.Targets) != 1 || stmt.Targets[0].Alias != "ok" {
		t.Fatalf("expected target aliased ok, got %+v", stmt.Targets)
	}
	col := stmt.Targets[0].Expr
	if col.Kind != ExprColumn || col.Table != "o" || col.Column != "orderkey" {
		t.Fatalf("expected column o.orderkey, got %+v", col)
	}
	if stmt.From[0].Alias != "o" {
		t.Fatalf("expected FROM alias o, got %+v", stmt.From[0])
	}
	where := stmt.Where
	if where.Kind != ExprBinary || where.Op != OpGt {
		t.Fatalf("expected a > comparison, got %+v", where)
	}
}

func TestParseOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 = 7 should parse as 1 + (2*3), not (1+2)*3.
	stmt, err := ParseSelect("SELECT 1 + 2 * 3 FROM t")
	if err != nil {
		t.Fatal(err)
	}
	top := stmt.Targets[0].Expr
	if top.Kind != ExprBinary || top.Op != OpAdd {
		t.Fatalf("expected top-level +, got %+v", top)
	}
	if top.Right.Kind != ExprBinary || top.Right.Op != OpMul {
		t.Fatalf("expected right side to be a multiplication, got %+v", top.Right)
	}
}

func TestParseAndOrPrecedence(t *testing.T) {
	// a AND b OR c AND d parses as (a AND b) OR (c AND d).
	stmt, err := ParseSelect("SELECT * FROM t WHERE a = 1 AND b = 2 OR c = 3 AND d = 4")
	if err != nil {
		t.Fatal(err)
	}
	top := stmt.Where
	if top.Kind != ExprBinary || top.Op != OpOr {
		t.Fatalf("expected top-level OR, got %+v", top)
	}
	if top.Left.Op != OpAnd || top.Right.Op != OpAnd {
		t.Fatalf("expected both OR operands to be AND expressions, got left=%+v right=%+v", top.Left, top.Right)
	}
}

func TestParseLikeAndNotLike(t *testing.T) {
	stmt, err := ParseSelect("SELECT * FROM t WHERE name LIKE '%foo%'")
	if err != nil {
		t.Fatal(err)
	}
	if stmt.Where.Kind != ExprLike || stmt.Where.Pattern != "%foo%" {
		t.Fatalf("expected a LIKE expression, got %+v", stmt.Where)
	}

	stmt2, err := ParseSelect("SELECT * FROM t WHERE name NOT LIKE '%bar%'")
	if err != nil {
		t.Fatal(err)
	}
	if stmt2.Where.Kind != ExprNot || stmt2.Where.Left.Kind != ExprLike {
		t.Fatalf("expected NOT(LIKE ...), got %+v", stmt2.Where)
	}
}

func TestParseDateLiteral(t *testing.T) {
	stmt, err := ParseSelect("SELECT * FROM t WHERE shipdate = DATE '1996-03-13'")
	if err != nil {
		t.Fatal(err)
	}
	right := stmt.Where.Right
	if right.Kind != ExprDateLit || right.Year != 1996 || right.Month != 3 || right.Day != 13 {
		t.Fatalf("expected DATE 1996-03-13, got %+v", right)
	}
}

func TestParseExtractYear(t *testing.T) {
	stmt, err := ParseSelect("SELECT EXTRACT(YEAR FROM shipdate) FROM t")
	if err != nil {
		t.Fatal(err)
	}
	e := stmt.Targets[0].Expr
	if e.Kind != ExprExtract || e.FuncName != "YEAR" {
		t.Fatalf("expected EXTRACT(YEAR ...), got %+v", e)
	}
	if len(e.Args) != 1 || e.Args[0].Kind != ExprColumn || e.Args[0].Column != "shipdate" {
		t.Fatalf("expected EXTRACT argument shipdate, got %+v", e.Args)
	}
}

func TestParseAggregateCallAndCountStar(t *testing.T) {
	stmt, err := ParseSelect("SELECT SUM(quantity), COUNT(*) FROM t GROUP BY name ORDER BY name DESC")
	if err != nil {
		t.Fatal(err)
	}
	if len(stmt.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %d", len(stmt.Targets))
	}
	sum := stmt.Targets[0].Expr
	if sum.Kind != ExprFuncCall || sum.FuncName != "SUM" {
		t.Fatalf("expected SUM(...), got %+v", sum)
	}
	count := stmt.Targets[1].Expr
	if count.Kind != ExprFuncCall || count.FuncName != "COUNT" || len(count.Args) != 1 || count.Args[0].Kind != ExprStar {
		t.Fatalf("expected COUNT(*), got %+v", count)
	}
	if len(stmt.GroupBy) != 1 || stmt.GroupBy[0].Column != "name" {
		t.Fatalf("expected GROUP BY name, got %+v", stmt.GroupBy)
	}
	if len(stmt.OrderBy) != 1 || !stmt.OrderBy[0].Desc {
		t.Fatalf("expected ORDER BY name DESC, got %+v", stmt.OrderBy)
	}
}

func TestParseMultiTableFromList(t *testing.T) {
	stmt, err := ParseSelect("SELECT * FROM orders o, lineitem l WHERE o.orderkey = l.orderkey")
	if err != nil {
		t.Fatal(err)
	}
	if len(stmt.From) != 2 || stmt.From[0].Alias != "o" || stmt.From[1].Alias != "l" {
		t.Fatalf("expected two aliased tables, got %+v", stmt.From)
	}
}

func TestParseTrailingInputIsAnError(t *testing.T) {
	if _, err := ParseSelect("SELECT * FROM t; SELECT * FROM u"); err == nil {
		t.Fatal("expected an error for trailing input after the first statement")
	}
}

func TestParseMissingFromIsAnError(t *testing.T) {
	if _, err := ParseSelect("SELECT 1"); err == nil {
		t.Fatal("expected an error when FROM is missing")
	}
}

func TestParseParenthesizedExpression(t *testing.T) {
	stmt, err := ParseSelect("SELECT (1 + 2) * 3 FROM t")
	if err != nil {
		t.Fatal(err)
	}
	top := stmt.Targets[0].Expr
	if top.Kind != ExprBinary || top.Op != OpMul {
		t.Fatalf("expected top-level *, got %+v", top)
	}
	if top.Left.Kind != ExprBinary || top.Left.Op != OpAdd {
		t.Fatalf("expected left side to be the parenthesized addition, got %+v", top.Left)
	}
}
