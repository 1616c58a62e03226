package krt

import "sort"

// ColumnIndex is an in-memory sorted index over a column's (value, row)
// pairs, supporting equality/range lookups by binary search. It generalizes
// original_source/compile/proxy/column_data.h's ColumnData access
// pattern with a sorted-order side structure, per spec.md §4.4. No
// operator in kushql builds one.
type ColumnIndex[T int32 | int64 | float64] struct {
	entries []indexEntry[T]
}

type indexEntry[T int32 | int64 | float64] struct {
	value T
	row   uint32
}

// BuildColumnIndex sorts the full column's (value, row) pairs once;
// lookups afterward are binary searches.
func BuildColumnIndex[T int32 | int64 | float64](values []T) *ColumnIndex[T] {
	entries := make([]indexEntry[T], len(values))
	for i, v := range values {
		entries[i] = indexEntry[T]{value: v, row: uint32(i)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })
	return &ColumnIndex[T]{entries: entries}
}

// Equal returns every row index whose column value equals key.
func (ix *ColumnIndex[T]) Equal(key T) []uint32 {
	lo := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].value >= key })
	var rows []uint32
	for i := lo; i < len(ix.entries) && ix.entries[i].value == key; i++ {
		rows = append(rows, ix.entries[i].row)
	}
	return rows
}

// Range returns every row index whose column value is in [lo, hi).
func (ix *ColumnIndex[T]) Range(lo, hi T) []uint32 {
	start := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].value >= lo })
	end := sort.Search(len(ix.entries), func(i int) bool { return ix.entries[i].value >= hi })
	rows := make([]uint32, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, ix.entries[i].row)
	}
	return rows
}

// Selectivity estimates the fraction of rows [lo, hi) covers.
func (ix *ColumnIndex[T]) Selectivity(lo, hi T) float64 {
	if len(ix.entries) == 0 {
		return 0
	}
	rows := ix.Range(lo, hi)
	return float64(len(rows)) / float64(len(ix.entries))
}
