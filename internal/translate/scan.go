package translate

import (
	"fmt"
	"path/filepath"
	"sort"

	"kushql/internal/catalog"
	"kushql/internal/kqerr"
	"kushql/internal/krt"
	"kushql/internal/plan"
	"kushql/internal/rowio"
)

var rowioMaterializeRows = rowio.MaterializeRows

// scanOp reads a catalog.Table's column files row by row, following
// original_source/compile/translators/scan_translator.h's ScanTranslator,
// which loops rowIdx from 0 to cardinality and pushes one Row per
// iteration into its consumer.
type scanOp struct {
	table   *catalog.Table
	dataDir string
	schema  []catalog.Type
}

func NewScan(op *plan.Operator, dataDir string) (*scanOp, error) {
	schema := make([]catalog.Type, len(op.Schema.Columns))
	for i, c := range op.Schema.Columns {
		schema[i] = c.Type
	}
	return &scanOp{table: op.Table, dataDir: dataDir, schema: schema}, nil
}

func (s *scanOp) Schema() []catalog.Type { return s.schema }

func (s *scanOp) Execute(out Sink) error {
	type opened struct {
		i32 *krt.ColumnData[int32]
		i64 *krt.ColumnData[int64]
		f64 *krt.ColumnData[float64]
	}
	cols := make([]opened, len(s.table.Columns))
	defer func() {
		for _, c := range cols {
			if c.i32 != nil {
				c.i32.Close()
			}
			if c.i64 != nil {
				c.i64.Close()
			}
			if c.f64 != nil {
				c.f64.Close()
			}
		}
	}()

	size := -1
	for i, col := range s.table.Columns {
		path := filepath.Join(s.dataDir, col.Path)
		switch col.Type {
		case catalog.TypeDate:
			c, err := krt.OpenInt32Column(path)
			if err != nil {
				return kqerr.Wrap(kqerr.Runtime, err, fmt.Sprintf("scan %s.%s", s.table.Name, col.Name))
			}
			cols[i].i32 = c
			size = maxSize(size, c.Size())
		case catalog.TypeDouble:
			c, err := krt.OpenFloat64Column(path)
			if err != nil {
				return kqerr.Wrap(kqerr.Runtime, err, fmt.Sprintf("scan %s.%s", s.table.Name, col.Name))
			}
			cols[i].f64 = c
			size = maxSize(size, c.Size())
		default:
			c, err := krt.OpenInt64Column(path)
			if err != nil {
				return kqerr.Wrap(kqerr.Runtime, err, fmt.Sprintf("scan %s.%s", s.table.Name, col.Name))
			}
			cols[i].i64 = c
			size = maxSize(size, c.Size())
		}
	}
	if size < 0 {
		size = 0
	}

	for row := 0; row < size; row++ {
		r := make(Row, len(cols))
		for i, col := range s.table.Columns {
			switch col.Type {
			case catalog.TypeDate:
				r[i] = IntValue(catalog.TypeDate, int64(cols[i].i32.Get(row)))
			case catalog.TypeDouble:
				r[i] = FloatValue(cols[i].f64.Get(row))
			default:
				r[i] = IntValue(col.Type, cols[i].i64.Get(row))
			}
		}
		if err := out.Consume(r); err != nil {
			return err
		}
	}
	return nil
}

func maxSize(a, b int) int {
	if b > a {
		return b
	}
	return a
}

// MaterializeRows runs op to completion and returns every row, used by
// translators whose algorithm needs random access to their child's full
// output (OrderBy; CrossProduct calls rowioMaterializeRows directly) rather than a
// single streaming pass.
var MaterializeRows = rowioMaterializeRows

// SortRows orders rows in place by the given key extractor and
// ascending/descending flags, following
// original_source/compile/translators/order_by_translator.h's sort-all
// strategy (no external/merge sort — the corpus's test workloads fit in
// memory, and SPEC_FULL.md does not call for spill-to-disk sorting).
func SortRows(rows []Row, keys func(Row) []Value, desc []bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := keys(rows[i]), keys(rows[j])
		for k := range ki {
			c := compareValues(ki[k], kj[k])
			if c == 0 {
				continue
			}
			if k < len(desc) && desc[k] {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b Value) int {
	if a.Type == catalog.TypeText || b.Type == catalog.TypeText {
		return compareStrings(a.Str, b.Str)
	}
	if isFloaty(a, b) {
		af, bf := asFloat(a), asFloat(b)
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.Int < b.Int:
		return -1
	case a.Int > b.Int:
		return 1
	default:
		return 0
	}
}
