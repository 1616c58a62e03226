package translate

import "kushql/internal/catalog"

// crossProductOp materializes its right child (expected to be the
// smaller side) and re-emits it once per left row, following
// original_source/compile/translators/cross_product_translator.h. Used
// when a query has no equi-join condition to drive a HashJoin.
type crossProductOp struct {
	left, right Operator
	schema      []catalog.Type
}

func NewCrossProduct(left, right Operator, outSchema []catalog.Type) *crossProductOp {
	return &crossProductOp{left: left, right: right, schema: outSchema}
}

func (c *crossProductOp) Schema() []catalog.Type { return c.schema }

func (c *crossProductOp) Execute(out Sink) error {
	rightRows, err := rowioMaterializeRows(c.right)
	if err != nil {
		return err
	}
	leftWidth := len(c.left.Schema())
	return c.left.Execute(SinkFunc(func(leftRow Row) error {
		for _, rightRow := range rightRows {
			joined := make(Row, 0, leftWidth+len(rightRow))
			joined = append(joined, leftRow...)
			joined = append(joined, rightRow...)
			if err := out.Consume(joined); err != nil {
				return err
			}
		}
		return nil
	}))
}
