package translate

import (
	"kushql/internal/catalog"
	"kushql/internal/exec"
	"kushql/internal/khir"
	"kushql/internal/kqerr"
	"kushql/internal/ktype"
	"kushql/internal/plan"
	"kushql/internal/proxy"
)

// CompiledPredicate is a boolean row filter built once per query and run
// once per row through internal/exec's Interpreter, following
// original_source/compile/translators/select_translator.h: the
// predicate is the hot inner loop of a scan, so it is the one
// expression shape this package actually compiles to khir IR (via
// internal/proxy) instead of tree-walking with Eval.
type CompiledPredicate struct {
	prog *khir.Program
	fn   *khir.Function
}

// CanCompile reports whether every column the predicate touches has a
// numeric (int or float) static type; string comparisons fall back to
// the tree-walking evaluator, since proxy has no StringView wrapper
// backed by raw column bytes at this layer.
func CanCompile(expr *plan.Expression, schema []catalog.Type) bool {
	switch expr.Kind {
	case plan.ExprColumnRef:
		return schema[expr.ColumnIdx] != catalog.TypeText
	case plan.ExprLiteralString:
		return false
	case plan.ExprLiteralInt, plan.ExprLiteralFloat:
		return true
	case plan.ExprNot:
		return CanCompile(expr.Left, schema)
	case plan.ExprBinaryLogical, plan.ExprBinaryCompare, plan.ExprBinaryArith:
		return CanCompile(expr.Left, schema) && CanCompile(expr.Right, schema)
	default:
		return false
	}
}

// CompilePredicate builds a khir function "predicate" taking one f64 or
// i64 argument per schema column (in schema order) and returning i1.
func CompilePredicate(expr *plan.Expression, schema []catalog.Type) (*CompiledPredicate, error) {
	b := khir.NewProgramBuilder()
	types := b.Types()

	paramTypes := make([]ktype.Type, len(schema))
	for i, t := range schema {
		paramTypes[i] = khirTypeOf(types, t)
	}
	fnType := types.Function(types.I1(), paramTypes)
	b.CreateFunction("predicate", fnType, true)
	entry := b.CreateBlock()
	if err := b.SetCurrentBlock(entry); err != nil {
		return nil, err
	}

	args := make([]khir.Value, len(schema))
	for i := range schema {
		v, err := b.FuncArg(i)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	result, err := compileExpr(b, expr, schema, args)
	if err != nil {
		return nil, err
	}
	bv, ok := result.(proxy.Bool)
	if !ok {
		return nil, kqerr.New(kqerr.IR, "translate: predicate expression did not evaluate to a boolean")
	}
	if err := b.ReturnValue(bv.Get()); err != nil {
		return nil, err
	}

	prog, err := b.Build()
	if err != nil {
		return nil, kqerr.Wrap(kqerr.IR, err, "translate: building compiled predicate")
	}
	return &CompiledPredicate{prog: prog, fn: prog.FuncByName("predicate")}, nil
}

func khirTypeOf(types *ktype.Manager, t catalog.Type) ktype.Type {
	if t == catalog.TypeDouble {
		return types.F64()
	}
	return types.I64()
}

// compileExpr lowers a plan.Expression into proxy values, returning an
// interface{} holding either proxy.Int, proxy.Float64, or proxy.Bool —
// a poor man's sum type in place of the original's templated
// Proxy<T>/SQLValue<T> machinery, since Go generics can't specialize
// the needed arithmetic/comparison methods per wrapped type the way a
// C++ template instantiation can.
func compileExpr(b *khir.ProgramBuilder, expr *plan.Expression, schema []catalog.Type, args []khir.Value) (interface{}, error) {
	switch expr.Kind {
	case plan.ExprColumnRef:
		if schema[expr.ColumnIdx] == catalog.TypeDouble {
			return proxy.WrapFloat64(b, args[expr.ColumnIdx]), nil
		}
		return proxy.WrapInt(b, 64, args[expr.ColumnIdx]), nil
	case plan.ExprLiteralInt:
		return proxy.I64(b, expr.IntVal), nil
	case plan.ExprLiteralFloat:
		return proxy.F64(b, expr.FloatVal), nil
	case plan.ExprNot:
		l, err := compileExpr(b, expr.Left, schema, args)
		if err != nil {
			return nil, err
		}
		lb, ok := l.(proxy.Bool)
		if !ok {
			return nil, kqerr.New(kqerr.IR, "translate: NOT applied to non-boolean expression")
		}
		return lb.Not(), nil
	case plan.ExprBinaryLogical:
		l, err := compileExpr(b, expr.Left, schema, args)
		if err != nil {
			return nil, err
		}
		r, err := compileExpr(b, expr.Right, schema, args)
		if err != nil {
			return nil, err
		}
		lb, lok := l.(proxy.Bool)
		rb, rok := r.(proxy.Bool)
		if !lok || !rok {
			return nil, kqerr.New(kqerr.IR, "translate: AND/OR applied to non-boolean operands")
		}
		if expr.LogicalOp == plan.LogicalAnd {
			return lb.And(rb), nil
		}
		return lb.Or(rb), nil
	case plan.ExprBinaryCompare:
		return compileCompare(b, expr, schema, args)
	case plan.ExprBinaryArith:
		return compileArith(b, expr, schema, args)
	default:
		return nil, kqerr.New(kqerr.IR, "translate: expression kind %v cannot be compiled", expr.Kind)
	}
}

func compileArith(b *khir.ProgramBuilder, expr *plan.Expression, schema []catalog.Type, args []khir.Value) (interface{}, error) {
	l, err := compileExpr(b, expr.Left, schema, args)
	if err != nil {
		return nil, err
	}
	r, err := compileExpr(b, expr.Right, schema, args)
	if err != nil {
		return nil, err
	}
	lf, r2, floaty := promoteToFloat(l, r)
	if floaty {
		switch expr.ArithOp {
		case plan.ArithAdd:
			return lf.Add(r2), nil
		case plan.ArithSub:
			return lf.Sub(r2), nil
		case plan.ArithMul:
			return lf.Mul(r2), nil
		default:
			return lf.Div(r2), nil
		}
	}
	li, ri := l.(proxy.Int), r.(proxy.Int)
	switch expr.ArithOp {
	case plan.ArithAdd:
		return li.Add(ri), nil
	case plan.ArithSub:
		return li.Sub(ri), nil
	case plan.ArithMul:
		return li.Mul(ri), nil
	default:
		return li.Div(ri), nil
	}
}

func compileCompare(b *khir.ProgramBuilder, expr *plan.Expression, schema []catalog.Type, args []khir.Value) (interface{}, error) {
	l, err := compileExpr(b, expr.Left, schema, args)
	if err != nil {
		return nil, err
	}
	r, err := compileExpr(b, expr.Right, schema, args)
	if err != nil {
		return nil, err
	}
	lf, rf, floaty := promoteToFloat(l, r)
	if floaty {
		switch expr.CompareOp {
		case plan.CmpEq:
			return lf.Eq(rf), nil
		case plan.CmpNe:
			return lf.Ne(rf), nil
		case plan.CmpLt:
			return lf.Lt(rf), nil
		case plan.CmpLe:
			return lf.Le(rf), nil
		case plan.CmpGt:
			return lf.Gt(rf), nil
		default:
			return lf.Ge(rf), nil
		}
	}
	li, ri := l.(proxy.Int), r.(proxy.Int)
	switch expr.CompareOp {
	case plan.CmpEq:
		return li.Eq(ri), nil
	case plan.CmpNe:
		return li.Ne(ri), nil
	case plan.CmpLt:
		return li.Lt(ri), nil
	case plan.CmpLe:
		return li.Le(ri), nil
	case plan.CmpGt:
		return li.Gt(ri), nil
	default:
		return li.Ge(ri), nil
	}
}

// promoteToFloat widens an Int operand to Float64 if its partner is a
// Float64, so mixed int/float arithmetic and comparisons share one
// proxy type, mirroring the original's implicit numeric promotion.
func promoteToFloat(l, r interface{}) (proxy.Float64, proxy.Float64, bool) {
	lf, lIsFloat := l.(proxy.Float64)
	rf, rIsFloat := r.(proxy.Float64)
	if !lIsFloat && !rIsFloat {
		return proxy.Float64{}, proxy.Float64{}, false
	}
	if !lIsFloat {
		lf = l.(proxy.Int).ToFloat64()
	}
	if !rIsFloat {
		rf = r.(proxy.Int).ToFloat64()
	}
	return lf, rf, true
}

// Eval runs the compiled predicate against one row's numeric columns.
func (p *CompiledPredicate) Eval(args []int64) (bool, error) {
	interp := exec.NewInterpreter(p.prog, exec.Registry{}, exec.NewMemory(0))
	result, err := interp.Run(p.fn, args)
	if err != nil {
		return false, err
	}
	return result != 0, nil
}
