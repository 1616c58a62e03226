package khir

import (
	"fmt"

	"kushql/internal/ktype"
)

// TypeOf dispatches on v's defining opcode to recover its static type. For
// an instruction this is the type recorded at construction time (itself
// derived from the opcode and its operands' types); for a constant it is
// the constant pool entry's type. Because both are fixed at construction
// and never mutated afterward, appending unrelated instructions can never
// change the result (testable property 4).
func (b *ProgramBuilder) TypeOf(v Value) (ktype.Type, error) {
	if v.IsUndef() {
		return ktype.Type{}, fmt.Errorf("khir: TypeOf(undef)")
	}
	if v.IsConstantGlobal() {
		if int(v.Idx()) >= len(b.consts) {
			return ktype.Type{}, fmt.Errorf("khir: constant index %d out of range", v.Idx())
		}
		return b.consts[v.Idx()].Type, nil
	}
	f := b.fn()
	if int(v.Idx()) >= len(f.Instrs) {
		return ktype.Type{}, fmt.Errorf("khir: instruction index %d out of range", v.Idx())
	}
	return f.Instrs[v.Idx()].Type, nil
}

// TypeOfIn is TypeOf against an already-built Function/Program pair,
// usable once the builder has moved on to a different current function.
func TypeOfIn(prog *Program, f *Function, v Value) (ktype.Type, error) {
	if v.IsUndef() {
		return ktype.Type{}, fmt.Errorf("khir: TypeOf(undef)")
	}
	if v.IsConstantGlobal() {
		if int(v.Idx()) >= len(prog.Consts) {
			return ktype.Type{}, fmt.Errorf("khir: constant index %d out of range", v.Idx())
		}
		return prog.Consts[v.Idx()].Type, nil
	}
	if int(v.Idx()) >= len(f.Instrs) {
		return ktype.Type{}, fmt.Errorf("khir: instruction index %d out of range", v.Idx())
	}
	return f.Instrs[v.Idx()].Type, nil
}
