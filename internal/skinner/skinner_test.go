package skinner

import (
	"sort"
	"testing"

	"kushql/internal/catalog"
	"kushql/internal/rowio"
)

type sliceOp struct {
	rows   []rowio.Row
	schema []catalog.Type
}

func (s *sliceOp) Schema() []catalog.Type { return s.schema }
func (s *sliceOp) Execute(out rowio.Sink) error {
	for _, r := range s.rows {
		if err := out.Consume(r); err != nil {
			return err
		}
	}
	return nil
}

func makeRows(n int) []rowio.Row {
	rows := make([]rowio.Row, n)
	for i := range rows {
		rows[i] = rowio.Row{rowio.IntValue(catalog.TypeBigInt, int64(i))}
	}
	return rows
}

// TestScanSelectOutputEquivalence checks testable property 8: regardless
// of which predicate ordering the bandit explores, ScanSelect's total
// output (as a set) matches sequential evaluation of the same
// conjunction.
func TestScanSelectOutputEquivalence(t *testing.T) {
	rows := makeRows(1000)
	child := &sliceOp{rows: rows, schema: []catalog.Type{catalog.TypeBigInt}}

	predicates := []Predicate{
		func(r rowio.Row) (bool, error) { return r[0].Int%2 == 0, nil },
		func(r rowio.Row) (bool, error) { return r[0].Int%3 == 0, nil },
		func(r rowio.Row) (bool, error) { return r[0].Int < 700, nil },
	}

	scanSelect := NewScanSelect(child, predicates)
	var got []int64
	if err := scanSelect.Execute(rowio.SinkFunc(func(r rowio.Row) error {
		got = append(got, r[0].Int)
		return nil
	})); err != nil {
		t.Fatal(err)
	}

	var want []int64
	for _, r := range rows {
		ok := true
		for _, p := range predicates {
			v, _ := p(r)
			if !v {
				ok = false
				break
			}
		}
		if ok {
			want = append(want, r[0].Int)
		}
	}

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

// TestJoinOutputEquivalence checks testable property 9: Join's output,
// regardless of which side the bandit picks to build from across
// episodes, matches a naive nested-loop equi-join.
func TestJoinOutputEquivalence(t *testing.T) {
	leftRows := make([]rowio.Row, 50)
	for i := range leftRows {
		leftRows[i] = rowio.Row{rowio.IntValue(catalog.TypeBigInt, int64(i%10)), rowio.IntValue(catalog.TypeBigInt, int64(i))}
	}
	rightRows := make([]rowio.Row, 30)
	for i := range rightRows {
		rightRows[i] = rowio.Row{rowio.IntValue(catalog.TypeBigInt, int64(i%10)), rowio.IntValue(catalog.TypeBigInt, int64(i*100))}
	}

	left := &sliceOp{rows: leftRows, schema: []catalog.Type{catalog.TypeBigInt, catalog.TypeBigInt}}
	right := &sliceOp{rows: rightRows, schema: []catalog.Type{catalog.TypeBigInt, catalog.TypeBigInt}}

	join := NewJoin(left, right,
		func(r rowio.Row) int64 { return r[0].Int },
		func(r rowio.Row) int64 { return r[0].Int },
		[]catalog.Type{catalog.TypeBigInt, catalog.TypeBigInt, catalog.TypeBigInt, catalog.TypeBigInt})

	type pair struct{ l, r int64 }
	var got []pair
	if err := join.Execute(rowio.SinkFunc(func(r rowio.Row) error {
		got = append(got, pair{r[1].Int, r[3].Int})
		return nil
	})); err != nil {
		t.Fatal(err)
	}

	var want []pair
	for _, l := range leftRows {
		for _, r := range rightRows {
			if l[0].Int == r[0].Int {
				want = append(want, pair{l[1].Int, r[1].Int})
			}
		}
	}

	sort.Slice(got, func(i, j int) bool {
		if got[i].l != got[j].l {
			return got[i].l < got[j].l
		}
		return got[i].r < got[j].r
	})
	sort.Slice(want, func(i, j int) bool {
		if want[i].l != want[j].l {
			return want[i].l < want[j].l
		}
		return want[i].r < want[j].r
	})
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("match %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
