package translate

import (
	"math"

	"kushql/internal/catalog"
	"kushql/internal/kqerr"
	"kushql/internal/krt"
	"kushql/internal/plan"
)

// Eval tree-walks a plan.Expression against a materialized Row. This is
// the direct, uncompiled evaluation path used by projection, GROUP BY
// keys, ORDER BY keys, and aggregate arguments — expressions that run
// once per row but whose operand count varies per query, so compiling
// each to IR would pay codegen cost without the payoff a hot,
// fixed-shape predicate gets. Select instead uses CompilePredicate
// (compile_predicate.go) to run its filter through internal/khir +
// internal/proxy + internal/exec when the predicate compiles, matching the
// original's "compile the selection, interpret the rest" split for
// translators that are not on the join/filter hot path. SkinnerScanSelect's
// predicates are evaluated through Eval.
func Eval(expr *plan.Expression, row Row) (Value, error) {
	switch expr.Kind {
	case plan.ExprColumnRef:
		if expr.ColumnIdx >= len(row) {
			return Value{}, kqerr.New(kqerr.Runtime, "translate: column index %d out of range for row of %d", expr.ColumnIdx, len(row))
		}
		return row[expr.ColumnIdx], nil
	case plan.ExprLiteralInt:
		return IntValue(expr.Type, expr.IntVal), nil
	case plan.ExprLiteralFloat:
		return FloatValue(expr.FloatVal), nil
	case plan.ExprLiteralString:
		return StringValue(expr.StringVal), nil
	case plan.ExprNot:
		l, err := Eval(expr.Left, row)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(!l.Bool()), nil
	case plan.ExprBinaryLogical:
		l, err := Eval(expr.Left, row)
		if err != nil {
			return Value{}, err
		}
		r, err := Eval(expr.Right, row)
		if err != nil {
			return Value{}, err
		}
		switch expr.LogicalOp {
		case plan.LogicalAnd:
			return BoolValue(l.Bool() && r.Bool()), nil
		default:
			return BoolValue(l.Bool() || r.Bool()), nil
		}
	case plan.ExprBinaryCompare:
		return evalCompare(expr, row)
	case plan.ExprBinaryArith:
		return evalArith(expr, row)
	case plan.ExprLike:
		l, err := Eval(expr.Left, row)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(krt.NewStringView([]byte(l.Str)).Like(expr.Pattern)), nil
	case plan.ExprExtractYear:
		l, err := Eval(expr.Left, row)
		if err != nil {
			return Value{}, err
		}
		return IntValue(catalog.TypeBigInt, int64(krt.ExtractYear(int32(l.Int)))), nil
	default:
		return Value{}, kqerr.New(kqerr.Runtime, "translate: cannot evaluate expression kind %v directly (aggregates are evaluated by their owning operator)", expr.Kind)
	}
}

func asFloat(v Value) float64 {
	if v.Type == catalog.TypeDouble {
		return v.Float
	}
	return float64(v.Int)
}

func isFloaty(l, r Value) bool {
	return l.Type == catalog.TypeDouble || r.Type == catalog.TypeDouble
}

func evalArith(expr *plan.Expression, row Row) (Value, error) {
	l, err := Eval(expr.Left, row)
	if err != nil {
		return Value{}, err
	}
	r, err := Eval(expr.Right, row)
	if err != nil {
		return Value{}, err
	}
	if isFloaty(l, r) {
		lf, rf := asFloat(l), asFloat(r)
		switch expr.ArithOp {
		case plan.ArithAdd:
			return FloatValue(lf + rf), nil
		case plan.ArithSub:
			return FloatValue(lf - rf), nil
		case plan.ArithMul:
			return FloatValue(lf * rf), nil
		default:
			if rf == 0 {
				return Value{}, kqerr.New(kqerr.Runtime, "translate: division by zero")
			}
			return FloatValue(lf / rf), nil
		}
	}
	switch expr.ArithOp {
	case plan.ArithAdd:
		return IntValue(expr.Type, l.Int+r.Int), nil
	case plan.ArithSub:
		return IntValue(expr.Type, l.Int-r.Int), nil
	case plan.ArithMul:
		return IntValue(expr.Type, l.Int*r.Int), nil
	default:
		if r.Int == 0 {
			return Value{}, kqerr.New(kqerr.Runtime, "translate: division by zero")
		}
		return IntValue(expr.Type, l.Int/r.Int), nil
	}
}

func evalCompare(expr *plan.Expression, row Row) (Value, error) {
	l, err := Eval(expr.Left, row)
	if err != nil {
		return Value{}, err
	}
	r, err := Eval(expr.Right, row)
	if err != nil {
		return Value{}, err
	}
	if l.Type == catalog.TypeText || r.Type == catalog.TypeText {
		cmp := compareStrings(l.Str, r.Str)
		return BoolValue(applyCompare(expr.CompareOp, cmp)), nil
	}
	if isFloaty(l, r) {
		lf, rf := asFloat(l), asFloat(r)
		cmp := 0
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
		return BoolValue(applyCompare(expr.CompareOp, cmp)), nil
	}
	cmp := 0
	switch {
	case l.Int < r.Int:
		cmp = -1
	case l.Int > r.Int:
		cmp = 1
	}
	return BoolValue(applyCompare(expr.CompareOp, cmp)), nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func applyCompare(op plan.CompareOp, cmp int) bool {
	switch op {
	case plan.CmpEq:
		return cmp == 0
	case plan.CmpNe:
		return cmp != 0
	case plan.CmpLt:
		return cmp < 0
	case plan.CmpLe:
		return cmp <= 0
	case plan.CmpGt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// aggState (newAggState, step, result) implements the running-accumulator protocol
// Aggregate/GroupByAggregate use, following
// original_source/compile/translators/aggregate_translator.h's
// per-aggregate-function update/finalize split.
type aggState struct {
	count int64
	sum   float64
	isInt bool
	min   float64
	max   float64
	first bool
}

func newAggState() *aggState { return &aggState{first: true} }

func (s *aggState) step(v Value) {
	f := asFloat(v)
	s.isInt = v.Type != catalog.TypeDouble
	if s.first {
		s.min, s.max = f, f
		s.first = false
	} else {
		s.min = math.Min(s.min, f)
		s.max = math.Max(s.max, f)
	}
	s.sum += f
	s.count++
}

func (s *aggState) result(kind plan.AggregateKind) Value {
	switch kind {
	case plan.AggCount:
		return IntValue(catalog.TypeBigInt, s.count)
	case plan.AggAvg:
		if s.count == 0 {
			return FloatValue(0)
		}
		return FloatValue(s.sum / float64(s.count))
	case plan.AggMin:
		if s.isInt {
			return IntValue(catalog.TypeBigInt, int64(s.min))
		}
		return FloatValue(s.min)
	case plan.AggMax:
		if s.isInt {
			return IntValue(catalog.TypeBigInt, int64(s.max))
		}
		return FloatValue(s.max)
	default:
		if s.isInt {
			return IntValue(catalog.TypeBigInt, int64(s.sum))
		}
		return FloatValue(s.sum)
	}
}
