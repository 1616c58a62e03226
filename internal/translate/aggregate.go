package translate

import (
	"encoding/binary"
	"math"

	"kushql/internal/catalog"
	"kushql/internal/krt"
	"kushql/internal/plan"
)

// aggregateOp computes one row of whole-table aggregates (no GROUP BY),
// following original_source/compile/translators/aggregate_translator.h.
type aggregateOp struct {
	child Operator
	exprs []*plan.Expression
}

func NewAggregate(child Operator, exprs []*plan.Expression) *aggregateOp {
	return &aggregateOp{child: child, exprs: exprs}
}

func (a *aggregateOp) Schema() []catalog.Type {
	out := make([]catalog.Type, len(a.exprs))
	for i, e := range a.exprs {
		out[i] = e.Type
	}
	return out
}

func (a *aggregateOp) Execute(out Sink) error {
	states := make([]*aggState, len(a.exprs))
	for i := range states {
		states[i] = newAggState()
	}
	err := a.child.Execute(SinkFunc(func(row Row) error {
		for i, e := range a.exprs {
			v, err := Eval(e.Arg, row)
			if err != nil {
				return err
			}
			states[i].step(v)
		}
		return nil
	}))
	if err != nil {
		return err
	}
	result := make(Row, len(a.exprs))
	for i, e := range a.exprs {
		result[i] = states[i].result(e.AggKind)
	}
	return out.Consume(result)
}

// groupByAggregateOp groups rows by a key tuple and computes aggregates
// per group, following
// original_source/compile/translators/group_by_aggregate_translator.h.
// Groups are keyed in a krt.HashTable on their stringified key tuple,
// since group-by key arity/type varies per query and krt.HashTable
// needs a comparable key type.
type groupByAggregateOp struct {
	child        Operator
	groupByExprs []*plan.Expression
	aggExprs     []*plan.Expression
	schema       []catalog.Type
}

func NewGroupByAggregate(child Operator, groupBy, aggExprs []*plan.Expression, outSchema []catalog.Type) *groupByAggregateOp {
	return &groupByAggregateOp{child: child, groupByExprs: groupBy, aggExprs: aggExprs, schema: outSchema}
}

func (g *groupByAggregateOp) Schema() []catalog.Type { return g.schema }

type groupEntry struct {
	key   []Value
	state []*aggState
}

func (g *groupByAggregateOp) Execute(out Sink) error {
	groups := krt.NewHashTable[string, *groupEntry]()
	var order []string
	firstRows := map[string]Row{}

	err := g.child.Execute(SinkFunc(func(row Row) error {
		key := make([]Value, len(g.groupByExprs))
		for i, e := range g.groupByExprs {
			v, err := Eval(e, row)
			if err != nil {
				return err
			}
			key[i] = v
		}
		keyStr := groupKeyString(key)
		entries := groups.Get(keyStr)
		var entry *groupEntry
		if len(entries) == 0 {
			entry = &groupEntry{key: key, state: make([]*aggState, len(g.aggExprs))}
			for i := range entry.state {
				entry.state[i] = newAggState()
			}
			groups.Insert(keyStr, entry)
			order = append(order, keyStr)
			firstRows[keyStr] = row.Clone()
		} else {
			entry = entries[0]
		}
		for i, e := range g.aggExprs {
			if e.Kind != plan.ExprAggregate {
				continue
			}
			v, err := Eval(e.Arg, row)
			if err != nil {
				return err
			}
			entry.state[i].step(v)
		}
		return nil
	}))
	if err != nil {
		return err
	}

	for _, keyStr := range order {
		entry := groups.Get(keyStr)[0]
		result := make(Row, 0, len(g.aggExprs))
		for i, e := range g.aggExprs {
			if e.Kind != plan.ExprAggregate {
				v, err := Eval(e, firstRows[keyStr])
				if err != nil {
					return err
				}
				result = append(result, v)
				continue
			}
			result = append(result, entry.state[i].result(e.AggKind))
		}
		if err := out.Consume(result); err != nil {
			return err
		}
	}
	return nil
}

func groupKeyString(key []Value) string {
	buf := make([]byte, 0, 32)
	var word [8]byte
	for _, v := range key {
		buf = append(buf, byte(v.Type))
		switch v.Type {
		case catalog.TypeText:
			buf = append(buf, v.Str...)
		case catalog.TypeDouble:
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v.Float))
			buf = append(buf, word[:]...)
		default:
			binary.LittleEndian.PutUint64(word[:], uint64(v.Int))
			buf = append(buf, word[:]...)
		}
		buf = append(buf, 0)
	}
	return string(buf)
}
