package khir

import "kushql/internal/ktype"

// Instr is one instruction inside a function's instruction vector. The
// original encodes this into a single 64-bit word across five formats
// (opcode+imm, opcode+2 values, opcode+value+type+byte, opcode+value+2
// block labels, plus the phi/call-arg/GEP pairings); this port keeps the
// same invariants but represents an instruction as a small tagged struct —
// the Go-idiomatic rendering of that sum type (see DESIGN.md).
type Instr struct {
	Op   Opcode
	Type ktype.Type // static result type, set at construction time

	Arg0, Arg1 Value // operand values (unused operands are Undef)

	Imm int64 // constant payload / byte offset (GEP_STATIC_OFFSET) / call-arg position

	Succ0, Succ1 int // block indices for BR/CONDBR; -1 if unused

	PhiBackref int // for PHI_MEMBER: index of the PHI instruction it feeds; for PHI: unused
}

// ConstEntry is one entry in the program-wide constant/global pool.
type ConstEntry struct {
	Op   ConstOpcode
	Type ktype.Type

	I1  bool
	I64 int64 // also holds i8/i16/i32 payloads, sign-extended
	F64 float64

	Str string // GLOBAL_CHAR_ARRAY_CONST payload

	Vec4 [4]int32
	Vec8 [8]int32

	Fields []Value // STRUCT_CONST / ARRAY_CONST element list

	FuncRef string // FUNC_PTR: function name
	CastOf  Value  // PTR_CAST_CONST: operand being cast
}
