package translate

import (
	"kushql/internal/catalog"
	"kushql/internal/kqerr"
	"kushql/internal/plan"
	"kushql/internal/rowio"
	"kushql/internal/skinner"
)

// Build walks a plan.Operator tree and returns the executable
// translate.Operator pipeline for it, following
// original_source/compile/query_translator.cc's single recursive
// Produce() dispatch over OperatorType.
func Build(op *plan.Operator, dataDir string) (Operator, error) {
	switch op.Kind {
	case plan.OpScan:
		return NewScan(op, dataDir)

	case plan.OpSelect:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewSelect(child, op.Predicates)

	case plan.OpSkinnerScanSelect:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		preds := make([]skinner.Predicate, len(op.Predicates))
		for i, p := range op.Predicates {
			expr := p
			preds[i] = func(row rowio.Row) (bool, error) {
				v, err := Eval(expr, row)
				if err != nil {
					return false, err
				}
				return v.Bool(), nil
			}
		}
		return skinner.NewScanSelect(child, preds), nil

	case plan.OpCrossProduct:
		left, right, err := buildChildren(op, dataDir)
		if err != nil {
			return nil, err
		}
		return NewCrossProduct(left, right, schemaTypes(op.Schema)), nil

	case plan.OpHashJoin:
		left, right, err := buildChildren(op, dataDir)
		if err != nil {
			return nil, err
		}
		return NewHashJoin(left, right, op.JoinConditions, schemaTypes(op.Schema)), nil

	case plan.OpSkinnerJoin:
		if len(op.Children) != 2 || len(op.JoinConditions) != 1 {
			return nil, kqerr.New(kqerr.Plan, "translate: SkinnerJoin currently supports exactly two tables and one equality condition")
		}
		left, right, err := buildChildren(op, dataDir)
		if err != nil {
			return nil, err
		}
		cond := op.JoinConditions[0]
		leftKey := func(row rowio.Row) int64 { return row[cond.LeftIdx].Int }
		rightKey := func(row rowio.Row) int64 { return row[cond.RightIdx].Int }
		return skinner.NewJoin(left, right, leftKey, rightKey, schemaTypes(op.Schema)), nil

	case plan.OpAggregate:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewAggregate(child, op.AggregateExprs), nil

	case plan.OpGroupByAggregate:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewGroupByAggregate(child, op.GroupByExprs, op.AggregateExprs, schemaTypes(op.Schema)), nil

	case plan.OpOrderBy:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewOrderBy(child, op.OrderByExprs, op.OrderByDesc), nil

	case plan.OpProject:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewProject(child, op.ProjectExprs, schemaTypes(op.Schema)), nil

	case plan.OpOutput:
		child, err := Build(op.Children[0], dataDir)
		if err != nil {
			return nil, err
		}
		return NewOutput(child), nil

	default:
		return nil, kqerr.New(kqerr.Plan, "translate: unsupported operator kind %v", op.Kind)
	}
}

func buildChildren(op *plan.Operator, dataDir string) (Operator, Operator, error) {
	left, err := Build(op.Children[0], dataDir)
	if err != nil {
		return nil, nil, err
	}
	right, err := Build(op.Children[1], dataDir)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func schemaTypes(s *plan.OperatorSchema) []catalog.Type {
	out := make([]catalog.Type, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Type
	}
	return out
}
