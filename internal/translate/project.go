package translate

import (
	"kushql/internal/catalog"
	"kushql/internal/plan"
)

// projectOp evaluates a fixed list of scalar expressions against each
// input row, following original_source/compile/translators/expression_translator.h
// applied per output column rather than per predicate.
type projectOp struct {
	child  Operator
	exprs  []*plan.Expression
	schema []catalog.Type
}

func NewProject(child Operator, exprs []*plan.Expression, schema []catalog.Type) *projectOp {
	return &projectOp{child: child, exprs: exprs, schema: schema}
}

func (p *projectOp) Schema() []catalog.Type { return p.schema }

func (p *projectOp) Execute(out Sink) error {
	return p.child.Execute(SinkFunc(func(row Row) error {
		projected := make(Row, len(p.exprs))
		for i, e := range p.exprs {
			v, err := Eval(e, row)
			if err != nil {
				return err
			}
			projected[i] = v
		}
		return out.Consume(projected)
	}))
}
