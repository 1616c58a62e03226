// Package translate turns a plan.Operator tree into an executable
// pipeline of translate.Operator values, following
// original_source/compile/translators/operator_translator.h's
// Produce/Consume push model: each translator "produces" its child's
// rows and "consumes" them by applying its own logic, one row at a
// time. Values flow as Row (a slice of rowio.Value) rather than
// machine registers, since kushql interprets rather than JIT-compiles
// row processing (see internal/exec's Interpreter); the compiled part
// of "compiling query engine" lives in the scalar expressions this
// package compiles through internal/khir + internal/proxy and hands to
// the interpreter per row.
//
// Row/Value/Sink/Operator themselves live in internal/rowio so that
// internal/skinner's adaptive operators can implement the same
// Operator interface without importing this package (which in turn
// wires skinner's constructors into its own operator-tree builder).
package translate

import "kushql/internal/rowio"

type (
	Value    = rowio.Value
	Row      = rowio.Row
	Sink     = rowio.Sink
	SinkFunc = rowio.SinkFunc
	Operator = rowio.Operator
)

var (
	IntValue    = rowio.IntValue
	FloatValue  = rowio.FloatValue
	StringValue = rowio.StringValue
	BoolValue   = rowio.BoolValue
)
