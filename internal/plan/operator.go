package plan

import "kushql/internal/catalog"

// OperatorKind tags an Operator's concrete shape, following
// plan/operator/operator_type.h's OperatorType enum.
type OperatorKind int

const (
	OpScan OperatorKind = iota
	OpSelect
	OpHashJoin
	OpCrossProduct
	OpAggregate
	OpGroupByAggregate
	OpOrderBy
	OpOutput
	OpSkinnerScanSelect
	OpSkinnerJoin
	OpProject
)

func (k OperatorKind) String() string {
	switch k {
	case OpScan:
		return "Scan"
	case OpSelect:
		return "Select"
	case OpHashJoin:
		return "HashJoin"
	case OpCrossProduct:
		return "CrossProduct"
	case OpAggregate:
		return "Aggregate"
	case OpGroupByAggregate:
		return "GroupByAggregate"
	case OpOrderBy:
		return "OrderBy"
	case OpOutput:
		return "Output"
	case OpSkinnerScanSelect:
		return "SkinnerScanSelect"
	case OpSkinnerJoin:
		return "SkinnerJoin"
	case OpProject:
		return "Project"
	default:
		return "Unknown"
	}
}

// SchemaColumn names one output column of an operator.
type SchemaColumn struct {
	Name string
	Type catalog.Type
}

// OperatorSchema is the ordered output column list an Operator produces,
// following plan/operator/operator_schema.h.
type OperatorSchema struct {
	Columns []SchemaColumn
}

func (s *OperatorSchema) IndexOf(name string) (int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Operator is one node of the logical plan tree, following
// plan/operator/operator.h's Operator base class. Children are walked
// with a type switch by translators instead of an accept()/visitor pair,
// since Go favors switch-on-concrete-type over double dispatch here.
type Operator struct {
	Kind     OperatorKind
	Children []*Operator
	Schema   *OperatorSchema

	// OpScan
	Table *catalog.Table

	// OpSelect / predicate half of OpSkinnerScanSelect
	Predicates []*Expression // conjunction of independently reorderable clauses

	// OpHashJoin / OpSkinnerJoin
	JoinConditions []JoinCondition

	// OpAggregate / OpGroupByAggregate
	GroupByExprs  []*Expression
	AggregateExprs []*Expression

	// OpProject
	ProjectExprs []*Expression

	// OpOrderBy
	OrderByExprs []*Expression
	OrderByDesc  []bool

	// OpOutput has no extra fields; it just materializes Children[0]'s
	// rows to the result sink.
}

// JoinCondition is one equality clause of a (possibly multi-way)
// equi-join, following plan/operator/hash_join_operator.h's
// left/right-column-index pairing.
type JoinCondition struct {
	LeftIdx  int
	RightIdx int
}

func Scan(table *catalog.Table, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpScan, Table: table, Schema: schema}
}

func Select(child *Operator, predicates []*Expression) *Operator {
	return &Operator{Kind: OpSelect, Children: []*Operator{child}, Predicates: predicates, Schema: child.Schema}
}

func CrossProduct(left, right *Operator, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpCrossProduct, Children: []*Operator{left, right}, Schema: schema}
}

func HashJoin(left, right *Operator, conditions []JoinCondition, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpHashJoin, Children: []*Operator{left, right}, JoinConditions: conditions, Schema: schema}
}

func AggregateOp(child *Operator, aggregateExprs []*Expression, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpAggregate, Children: []*Operator{child}, AggregateExprs: aggregateExprs, Schema: schema}
}

func GroupByAggregate(child *Operator, groupBy, aggregateExprs []*Expression, schema *OperatorSchema) *Operator {
	return &Operator{
		Kind: OpGroupByAggregate, Children: []*Operator{child},
		GroupByExprs: groupBy, AggregateExprs: aggregateExprs, Schema: schema,
	}
}

func OrderBy(child *Operator, exprs []*Expression, desc []bool) *Operator {
	return &Operator{Kind: OpOrderBy, Children: []*Operator{child}, OrderByExprs: exprs, OrderByDesc: desc, Schema: child.Schema}
}

func Output(child *Operator) *Operator {
	return &Operator{Kind: OpOutput, Children: []*Operator{child}, Schema: child.Schema}
}

func SkinnerScanSelect(child *Operator, predicates []*Expression) *Operator {
	return &Operator{Kind: OpSkinnerScanSelect, Children: []*Operator{child}, Predicates: predicates, Schema: child.Schema}
}

func SkinnerJoin(tables []*Operator, conditions []JoinCondition, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpSkinnerJoin, Children: tables, JoinConditions: conditions, Schema: schema}
}

// Project evaluates a list of scalar expressions per row, following
// plan/operator/expression_translator-backed projection in
// original_source/compile/translators/scan_translator.h's downstream
// SELECT-list evaluation; kushql gives it its own operator since
// SPEC_FULL.md's planner needs a plain non-aggregating projection step
// for queries whose SELECT list is not entirely aggregate calls.
func Project(child *Operator, exprs []*Expression, schema *OperatorSchema) *Operator {
	return &Operator{Kind: OpProject, Children: []*Operator{child}, ProjectExprs: exprs, Schema: schema}
}
