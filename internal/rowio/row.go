// Package rowio defines the row/value/operator vocabulary shared by
// internal/translate's operator translators and internal/skinner's
// adaptive operators, split into its own leaf package purely so the two
// can depend on identical types without translate importing skinner or
// vice versa (skinner operators are translate.Operators too).
package rowio

import "kushql/internal/catalog"

// Value is one column's runtime value inside a Row. Exactly one of the
// fields is meaningful, selected by Type.
type Value struct {
	Type   catalog.Type
	Int    int64
	Float  float64
	Str    string
	IsNull bool
}

func IntValue(t catalog.Type, v int64) Value { return Value{Type: t, Int: v} }
func FloatValue(v float64) Value             { return Value{Type: catalog.TypeDouble, Float: v} }
func StringValue(v string) Value             { return Value{Type: catalog.TypeText, Str: v} }

func BoolValue(v bool) Value {
	i := int64(0)
	if v {
		i = 1
	}
	return Value{Type: catalog.TypeBoolean, Int: i}
}

func (v Value) Bool() bool { return v.Int != 0 }

// Row is one tuple flowing between operators.
type Row []Value

func (r Row) Clone() Row { return append(Row(nil), r...) }

// Sink receives rows produced by an operator; HashJoin/Aggregate consume
// their children's rows through SinkFunc adapters.
type Sink interface {
	Consume(row Row) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(row Row) error

func (f SinkFunc) Consume(row Row) error { return f(row) }

// Operator is the common interface every translated operator satisfies:
// push all of its rows through out, following
// original_source/compile/translators/operator_translator.h's
// Produce(consumer) signature generalized to a plain callback since Go
// has no coroutine-based generator primitive.
type Operator interface {
	Execute(out Sink) error
	Schema() []catalog.Type
}

// MaterializeRows runs op to completion and returns every row produced.
func MaterializeRows(op Operator) ([]Row, error) {
	var rows []Row
	err := op.Execute(SinkFunc(func(r Row) error {
		rows = append(rows, r.Clone())
		return nil
	}))
	return rows, err
}
