package skinner

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"kushql/internal/catalog"
	"kushql/internal/krt"
	"kushql/internal/rowio"
)

// KeyFn extracts a join key word from a row; equal keys from the left
// and right side are joined, following plan.JoinCondition's
// column-index pairing but expressed as closures so this package
// doesn't need to import internal/plan.
type KeyFn func(row rowio.Row) int64

// Join is the "permutable" SkinnerJoin variant from
// original_source/execution/skinner_join.cc, specialized to a two-way
// equi-join: rather than recompiling machine code per explored join
// order (the original's "recompiling" variant — not implemented here,
// see DESIGN.md), it adaptively chooses which side builds the hash
// table and which side probes, scored by an episode's elapsed build+
// probe cost, while a krt.TupleIdxTable records which (left,right) row
// index pairs have already been emitted so that re-probing during a
// later episode never double-counts a match.
type Join struct {
	left, right Operator
	leftKey     KeyFn
	rightKey    KeyFn
	schema      []catalog.Type

	RunID uuid.UUID
}

// Operator is the subset of rowio.Operator Join needs from its inputs;
// named locally so this file reads self-containedly.
type Operator = rowio.Operator

func NewJoin(left, right Operator, leftKey, rightKey KeyFn, outSchema []catalog.Type) *Join {
	return &Join{left: left, right: right, leftKey: leftKey, rightKey: rightKey, schema: outSchema, RunID: uuid.New()}
}

func (j *Join) Schema() []catalog.Type { return j.schema }

// Execute picks, per episode, which side to (re)build the hash table
// from; both choices must and do produce the same join result, which is
// exactly testable property 9 (SkinnerJoin output equivalence).
func (j *Join) Execute(out rowio.Sink) error {
	// Both sides are independent reads, so materializing them is the one
	// place this package can genuinely run work in parallel rather than
	// pipelining rows one at a time.
	var leftRows, rightRows []rowio.Row
	var g errgroup.Group
	g.Go(func() error {
		rows, err := rowio.MaterializeRows(j.left)
		leftRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := rowio.MaterializeRows(j.right)
		rightRows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	bandit := NewUCB1(2) // arm 0: build left, probe right; arm 1: build right, probe left
	visited := krt.NewTupleIdxTable()
	leftWidth := len(j.left.Schema())

	const episodes = 4
	for ep := 0; ep < episodes; ep++ {
		arm := bandit.Select()
		begin := time.Now()
		emitted := 0

		emit := func(leftIdx, rightIdx int) error {
			if visited.Contains([]int32{int32(leftIdx), int32(rightIdx)}) {
				return nil
			}
			visited.Insert([]int32{int32(leftIdx), int32(rightIdx)})
			joined := make(rowio.Row, 0, leftWidth+len(rightRows[0]))
			joined = append(joined, leftRows[leftIdx]...)
			joined = append(joined, rightRows[rightIdx]...)
			emitted++
			return out.Consume(joined)
		}

		if len(leftRows) == 0 || len(rightRows) == 0 {
			bandit.Update(arm, 0)
			continue
		}

		if arm == 0 {
			ht := buildIndex(leftRows, j.leftKey)
			for ri, rrow := range rightRows {
				for _, li := range ht[j.rightKey(rrow)] {
					if err := emit(li, ri); err != nil {
						return err
					}
				}
			}
		} else {
			ht := buildIndex(rightRows, j.rightKey)
			for li, lrow := range leftRows {
				for _, ri := range ht[j.leftKey(lrow)] {
					if err := emit(li, ri); err != nil {
						return err
					}
				}
			}
		}

		elapsed := time.Since(begin).Seconds() * 1e6
		if elapsed <= 0 {
			elapsed = 1
		}
		bandit.Update(arm, float64(emitted+1)/elapsed)
	}
	return nil
}

func buildIndex(rows []rowio.Row, key KeyFn) map[int64][]int {
	idx := make(map[int64][]int)
	for i, r := range rows {
		k := key(r)
		idx[k] = append(idx[k], i)
	}
	return idx
}
