package translate

import (
	"kushql/internal/catalog"
	"kushql/internal/plan"
)

// orderByOp materializes its child's rows, sorts them by a key
// expression tuple, and re-emits them in order, following
// original_source/compile/translators/order_by_translator.h.
type orderByOp struct {
	child Operator
	exprs []*plan.Expression
	desc  []bool
}

func NewOrderBy(child Operator, exprs []*plan.Expression, desc []bool) *orderByOp {
	return &orderByOp{child: child, exprs: exprs, desc: desc}
}

func (o *orderByOp) Schema() []catalog.Type { return o.child.Schema() }

func (o *orderByOp) Execute(out Sink) error {
	rows, err := MaterializeRows(o.child)
	if err != nil {
		return err
	}
	SortRows(rows, func(r Row) []Value {
		keys := make([]Value, len(o.exprs))
		for i, e := range o.exprs {
			v, err := Eval(e, r)
			if err != nil {
				v = Value{}
			}
			keys[i] = v
		}
		return keys
	}, o.desc)
	for _, r := range rows {
		if err := out.Consume(r); err != nil {
			return err
		}
	}
	return nil
}

// outputOp is the terminal translator: it pushes its child's rows
// straight into the result Sink, following
// original_source/compile/translators/output_translator.h.
type outputOp struct {
	child Operator
}

func NewOutput(child Operator) *outputOp { return &outputOp{child: child} }

func (o *outputOp) Schema() []catalog.Type { return o.child.Schema() }

func (o *outputOp) Execute(out Sink) error { return o.child.Execute(out) }
