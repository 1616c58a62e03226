package translate

import (
	"math"

	"kushql/internal/catalog"
	"kushql/internal/plan"
)

func floatBits(f float64) int64 { return int64(math.Float64bits(f)) }

// selectOp filters its child's rows by a conjunction of predicates,
// following original_source/compile/translators/select_translator.h.
// Each predicate that touches only numeric columns is compiled once
// (via CompilePredicate) and re-run through internal/exec per row;
// predicates that touch a text column fall back to the uncompiled
// Eval tree-walker.
type selectOp struct {
	child      Operator
	predicates []*plan.Expression
	compiled   []*CompiledPredicate // compiled[i] is nil if predicates[i] wasn't compilable
	schema     []catalog.Type
}

func NewSelect(child Operator, predicates []*plan.Expression) (*selectOp, error) {
	schema := child.Schema()
	s := &selectOp{child: child, predicates: predicates, schema: schema, compiled: make([]*CompiledPredicate, len(predicates))}
	for i, p := range predicates {
		if CanCompile(p, schema) {
			cp, err := CompilePredicate(p, schema)
			if err != nil {
				return nil, err
			}
			s.compiled[i] = cp
		}
	}
	return s, nil
}

func (s *selectOp) Schema() []catalog.Type { return s.schema }

func (s *selectOp) Execute(out Sink) error {
	return s.child.Execute(SinkFunc(func(row Row) error {
		ok, err := s.matches(row)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return out.Consume(row)
	}))
}

func (s *selectOp) matches(row Row) (bool, error) {
	for i, p := range s.predicates {
		if s.compiled[i] != nil {
			args := rowToWords(row)
			ok, err := s.compiled[i].Eval(args)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			continue
		}
		v, err := Eval(p, row)
		if err != nil {
			return false, err
		}
		if !v.Bool() {
			return false, nil
		}
	}
	return true, nil
}

// rowToWords packs a Row's numeric columns into the interpreter's
// raw-word argument convention: int columns pass through directly,
// float columns pass through their IEEE-754 bit pattern (see
// internal/exec's word representation).
func rowToWords(row Row) []int64 {
	words := make([]int64, len(row))
	for i, v := range row {
		if v.Type == catalog.TypeDouble {
			words[i] = floatBits(v.Float)
		} else {
			words[i] = v.Int
		}
	}
	return words
}
