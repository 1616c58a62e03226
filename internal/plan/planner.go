package plan

import (
	"fmt"
	"strings"

	"kushql/internal/catalog"
	"kushql/internal/kqerr"
	"kushql/internal/krt"
	"kushql/internal/sqlfront"
)

// resolvedColumn tracks, for one column position in the planner's
// current combined row schema, which FROM-list table (by alias-or-name)
// it came from — the planner's own name-resolution scope, kept separate
// from OperatorSchema (which only needs display names) the way
// original_source/catalog/catalog.h's name resolution is a planning-time
// concern, not a runtime one.
type resolvedColumn struct {
	Table string
	Name  string
	Type  catalog.Type
}

// Plan resolves a parsed SELECT statement against a Catalog and builds
// the logical Operator tree for it, following
// original_source/compile/translators/query_translator.cc's
// statement-to-operator-tree construction (minus its JOIN-order search,
// which SkinnerJoin/SkinnerScanSelect perform adaptively at execution
// time instead of here).
func Plan(stmt *sqlfront.SelectStmt, cat *catalog.Catalog) (*Operator, error) {
	if len(stmt.From) == 0 {
		return nil, kqerr.New(kqerr.Plan, "plan: SELECT with no FROM clause is not supported")
	}

	conjuncts := flattenAnd(stmt.Where)
	perTablePredicates := map[string][]*sqlfront.Expr{}
	var joinConjuncts []*sqlfront.Expr
	var postJoinConjuncts []*sqlfront.Expr

	for _, c := range conjuncts {
		tables := referencedTables(c)
		if isEquiJoin(c) && len(tables) == 2 {
			joinConjuncts = append(joinConjuncts, c)
			continue
		}
		switch {
		case len(tables) == 1:
			name := ""
			for t := range tables {
				name = t
			}
			perTablePredicates[name] = append(perTablePredicates[name], c)
		case len(tables) == 0 && len(stmt.From) == 1:
			name := stmt.From[0].Name()
			perTablePredicates[name] = append(perTablePredicates[name], c)
		default:
			postJoinConjuncts = append(postJoinConjuncts, c)
		}
	}

	var cur *Operator
	var cols []resolvedColumn

	for _, ref := range stmt.From {
		tbl, err := cat.Table(ref.Table)
		if err != nil {
			return nil, err
		}
		name := ref.Name()

		schema := &OperatorSchema{}
		var tblCols []resolvedColumn
		for _, c := range tbl.Columns {
			schema.Columns = append(schema.Columns, SchemaColumn{Name: c.Name, Type: c.Type})
			tblCols = append(tblCols, resolvedColumn{Table: name, Name: c.Name, Type: c.Type})
		}
		scan := Scan(tbl, schema)

		var node *Operator = scan
		if preds := perTablePredicates[name]; len(preds) > 0 {
			exprs := make([]*Expression, len(preds))
			for i, p := range preds {
				e, err := resolveExpr(p, tblCols)
				if err != nil {
					return nil, err
				}
				exprs[i] = e
			}
			node = SkinnerScanSelect(node, exprs)
		}

		if cur == nil {
			cur, cols = node, tblCols
			continue
		}

		cond, matched, err := findJoinCondition(joinConjuncts, cols, tblCols)
		if err != nil {
			return nil, err
		}
		combinedCols := append(append([]resolvedColumn{}, cols...), tblCols...)
		combinedSchema := schemaOf(combinedCols)

		switch {
		case matched && len(cond) == 1:
			cur = SkinnerJoin([]*Operator{cur, node}, cond, combinedSchema)
		case matched:
			cur = HashJoin(cur, node, cond, combinedSchema)
		default:
			cur = CrossProduct(cur, node, combinedSchema)
		}
		cols = combinedCols
	}

	for _, c := range postJoinConjuncts {
		e, err := resolveExpr(c, cols)
		if err != nil {
			return nil, err
		}
		cur = Select(cur, []*Expression{e})
	}

	if len(stmt.OrderBy) > 0 {
		exprs := make([]*Expression, len(stmt.OrderBy))
		desc := make([]bool, len(stmt.OrderBy))
		for i, term := range stmt.OrderBy {
			e, err := resolveExpr(&term.Expr, cols)
			if err != nil {
				return nil, err
			}
			exprs[i] = e
			desc[i] = term.Desc
		}
		cur = OrderBy(cur, exprs, desc)
	}

	hasAgg := false
	for _, t := range stmt.Targets {
		if isAggregateCall(&t.Expr) {
			hasAgg = true
			break
		}
	}

	if hasAgg {
		if len(stmt.GroupBy) > 0 {
			groupBy := make([]*Expression, len(stmt.GroupBy))
			for i, g := range stmt.GroupBy {
				e, err := resolveExpr(&g, cols)
				if err != nil {
					return nil, err
				}
				groupBy[i] = e
			}
			var aggExprs []*Expression
			var schemaCols []SchemaColumn
			names := map[string]int{}
			for i, t := range stmt.Targets {
				e, err := resolveExpr(&t.Expr, cols)
				if err != nil {
					return nil, err
				}
				aggExprs = append(aggExprs, e)
				schemaCols = append(schemaCols, SchemaColumn{Name: targetName(t, i, names), Type: e.Type})
			}
			schema := &OperatorSchema{Columns: schemaCols}
			return Output(GroupByAggregate(cur, groupBy, aggExprs, schema)), nil
		}

		aggExprs := make([]*Expression, len(stmt.Targets))
		var schemaCols []SchemaColumn
		names := map[string]int{}
		for i, t := range stmt.Targets {
			if !isAggregateCall(&t.Expr) {
				return nil, kqerr.New(kqerr.Plan, "plan: mixing aggregate and non-aggregate SELECT targets requires GROUP BY")
			}
			e, err := resolveExpr(&t.Expr, cols)
			if err != nil {
				return nil, err
			}
			aggExprs[i] = e
			schemaCols = append(schemaCols, SchemaColumn{Name: targetName(t, i, names), Type: e.Type})
		}
		schema := &OperatorSchema{Columns: schemaCols}
		return Output(AggregateOp(cur, aggExprs, schema)), nil
	}

	var exprs []*Expression
	var schemaCols []SchemaColumn
	names := map[string]int{}
	for i, t := range stmt.Targets {
		if t.Expr.Kind == sqlfront.ExprStar {
			for _, c := range cols {
				exprs = append(exprs, ColumnRef(len(exprs), c.Type))
				schemaCols = append(schemaCols, SchemaColumn{Name: c.Name, Type: c.Type})
			}
			continue
		}
		e, err := resolveExpr(&t.Expr, cols)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		schemaCols = append(schemaCols, SchemaColumn{Name: targetName(t, i, names), Type: e.Type})
	}
	schema := &OperatorSchema{Columns: schemaCols}
	return Output(Project(cur, exprs, schema)), nil
}

func schemaOf(cols []resolvedColumn) *OperatorSchema {
	s := &OperatorSchema{}
	for _, c := range cols {
		s.Columns = append(s.Columns, SchemaColumn{Name: c.Name, Type: c.Type})
	}
	return s
}

func targetName(t sqlfront.SelectTarget, idx int, seen map[string]int) string {
	if t.Alias != "" {
		return t.Alias
	}
	base := defaultTargetName(&t.Expr, idx)
	seen[base]++
	if seen[base] > 1 {
		return fmt.Sprintf("%s_%d", base, seen[base])
	}
	return base
}

func defaultTargetName(e *sqlfront.Expr, idx int) string {
	switch e.Kind {
	case sqlfront.ExprColumn:
		return e.Column
	case sqlfront.ExprFuncCall:
		return strings.ToLower(e.FuncName)
	case sqlfront.ExprExtract:
		return "extract_" + strings.ToLower(e.FuncName)
	default:
		return fmt.Sprintf("col_%d", idx)
	}
}

func isAggregateCall(e *sqlfront.Expr) bool {
	if e.Kind != sqlfront.ExprFuncCall {
		return false
	}
	switch e.FuncName {
	case "SUM", "AVG", "COUNT", "MIN", "MAX":
		return true
	default:
		return false
	}
}

func aggKindOf(name string) (AggregateKind, bool) {
	switch name {
	case "SUM":
		return AggSum, true
	case "AVG":
		return AggAvg, true
	case "COUNT":
		return AggCount, true
	case "MIN":
		return AggMin, true
	case "MAX":
		return AggMax, true
	default:
		return 0, false
	}
}

// flattenAnd splits a WHERE clause into its top-level AND-conjuncts, so
// each clause can be independently classified as a join key, a
// single-table filter (applied by a SkinnerScanSelect over that table's
// Scan), or a residual
// multi-table filter applied after the join — following
// original_source/compile/translators/query_translator.cc's predicate
// pull-up/push-down pass.
func flattenAnd(e *sqlfront.Expr) []*sqlfront.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == sqlfront.ExprBinary && e.Op == sqlfront.OpAnd {
		return append(flattenAnd(e.Left), flattenAnd(e.Right)...)
	}
	return []*sqlfront.Expr{e}
}

func referencedTables(e *sqlfront.Expr) map[string]bool {
	out := map[string]bool{}
	var walk func(*sqlfront.Expr)
	walk = func(e *sqlfront.Expr) {
		if e == nil {
			return
		}
		switch e.Kind {
		case sqlfront.ExprColumn:
			if e.Table != "" {
				out[e.Table] = true
			}
		case sqlfront.ExprBinary:
			walk(e.Left)
			walk(e.Right)
		case sqlfront.ExprNot, sqlfront.ExprLike:
			walk(e.Left)
		case sqlfront.ExprFuncCall, sqlfront.ExprExtract:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}

func isEquiJoin(e *sqlfront.Expr) bool {
	if e.Kind != sqlfront.ExprBinary || e.Op != sqlfront.OpEq {
		return false
	}
	return e.Left.Kind == sqlfront.ExprColumn && e.Right.Kind == sqlfront.ExprColumn &&
		e.Left.Table != "" && e.Right.Table != "" && e.Left.Table != e.Right.Table
}

// findJoinCondition locates every joinConjunct connecting the
// already-planned column set to the newly scanned table's columns,
// translating each into index offsets within the eventual concatenated
// row.
func findJoinCondition(joinConjuncts []*sqlfront.Expr, left, right []resolvedColumn) ([]JoinCondition, bool, error) {
	var conds []JoinCondition
	for _, c := range joinConjuncts {
		li, lok := indexOf(left, c.Left.Table, c.Left.Column)
		ri, rok := indexOf(right, c.Right.Table, c.Right.Column)
		if lok && rok {
			conds = append(conds, JoinCondition{LeftIdx: li, RightIdx: ri})
			continue
		}
		// condition may be written with sides swapped relative to FROM order
		li, lok = indexOf(left, c.Right.Table, c.Right.Column)
		ri, rok = indexOf(right, c.Left.Table, c.Left.Column)
		if lok && rok {
			conds = append(conds, JoinCondition{LeftIdx: li, RightIdx: ri})
		}
	}
	return conds, len(conds) > 0, nil
}

func indexOf(cols []resolvedColumn, table, name string) (int, bool) {
	for i, c := range cols {
		if c.Table == table && c.Name == name {
			return i, true
		}
	}
	return -1, false
}

func resolveColumn(table, name string, cols []resolvedColumn) (*Expression, error) {
	if table != "" {
		for i, c := range cols {
			if c.Table == table && c.Name == name {
				return ColumnRef(i, c.Type), nil
			}
		}
		return nil, kqerr.New(kqerr.Plan, "plan: unknown column %s.%s", table, name)
	}
	found := -1
	for i, c := range cols {
		if c.Name == name {
			if found >= 0 {
				return nil, kqerr.New(kqerr.Plan, "plan: ambiguous column reference %q", name)
			}
			found = i
		}
	}
	if found < 0 {
		return nil, kqerr.New(kqerr.Plan, "plan: unknown column %q", name)
	}
	return ColumnRef(found, cols[found].Type), nil
}

// resolveExpr lowers a parsed sqlfront.Expr into a plan.Expression,
// resolving column references against the current combined schema.
func resolveExpr(e *sqlfront.Expr, cols []resolvedColumn) (*Expression, error) {
	switch e.Kind {
	case sqlfront.ExprColumn:
		return resolveColumn(e.Table, e.Column, cols)

	case sqlfront.ExprIntLit:
		return LiteralInt(e.IntVal), nil

	case sqlfront.ExprFloatLit:
		return LiteralFloat(e.FloatVal), nil

	case sqlfront.ExprStringLit:
		return LiteralString(e.StringVal), nil

	case sqlfront.ExprDateLit:
		jd := krt.BuildDate(int32(e.Year), int32(e.Month), int32(e.Day))
		return LiteralDate(int64(jd)), nil

	case sqlfront.ExprNot:
		l, err := resolveExpr(e.Left, cols)
		if err != nil {
			return nil, err
		}
		return Not(l), nil

	case sqlfront.ExprLike:
		l, err := resolveExpr(e.Left, cols)
		if err != nil {
			return nil, err
		}
		return Like(l, e.Pattern), nil

	case sqlfront.ExprBinary:
		l, err := resolveExpr(e.Left, cols)
		if err != nil {
			return nil, err
		}
		r, err := resolveExpr(e.Right, cols)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case sqlfront.OpAnd:
			return Logical(LogicalAnd, l, r), nil
		case sqlfront.OpOr:
			return Logical(LogicalOr, l, r), nil
		case sqlfront.OpAdd:
			return Arith(ArithAdd, l, r), nil
		case sqlfront.OpSub:
			return Arith(ArithSub, l, r), nil
		case sqlfront.OpMul:
			return Arith(ArithMul, l, r), nil
		case sqlfront.OpDiv:
			return Arith(ArithDiv, l, r), nil
		case sqlfront.OpEq:
			return Compare(CmpEq, l, r), nil
		case sqlfront.OpNe:
			return Compare(CmpNe, l, r), nil
		case sqlfront.OpLt:
			return Compare(CmpLt, l, r), nil
		case sqlfront.OpLe:
			return Compare(CmpLe, l, r), nil
		case sqlfront.OpGt:
			return Compare(CmpGt, l, r), nil
		default:
			return Compare(CmpGe, l, r), nil
		}

	case sqlfront.ExprExtract:
		if len(e.Args) != 1 {
			return nil, kqerr.New(kqerr.Plan, "plan: EXTRACT expects exactly one argument")
		}
		arg, err := resolveExpr(e.Args[0], cols)
		if err != nil {
			return nil, err
		}
		return ExtractYear(arg), nil

	case sqlfront.ExprFuncCall:
		kind, ok := aggKindOf(e.FuncName)
		if !ok {
			return nil, kqerr.New(kqerr.Plan, "plan: unsupported function %q", e.FuncName)
		}
		if kind == AggCount && len(e.Args) == 1 && e.Args[0].Kind == sqlfront.ExprStar {
			return Aggregate(AggCount, ColumnRef(0, cols[0].Type)), nil
		}
		if len(e.Args) != 1 {
			return nil, kqerr.New(kqerr.Plan, "plan: %s expects exactly one argument", e.FuncName)
		}
		arg, err := resolveExpr(e.Args[0], cols)
		if err != nil {
			return nil, err
		}
		return Aggregate(kind, arg), nil

	default:
		return nil, kqerr.New(kqerr.Plan, "plan: unsupported expression kind %v", e.Kind)
	}
}
