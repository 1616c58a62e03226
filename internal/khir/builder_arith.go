package khir

import "kushql/internal/ktype"

// width identifies which integer width a set of opcodes operates over, so
// the arithmetic/comparison builders below can be written once and
// table-driven per width instead of four times over.
type width int

const (
	w8 width = iota
	w16
	w32
	w64
)

type intOps struct {
	add, sub, mul, div                     Opcode
	eq, ne, lt, le, gt, ge                  Opcode
	constKind                              ConstOpcode
}

var intOpTable = map[width]intOps{
	w8:  {I8_ADD, I8_SUB, I8_MUL, I8_DIV, I8_CMP_EQ, I8_CMP_NE, I8_CMP_LT, I8_CMP_LE, I8_CMP_GT, I8_CMP_GE, I8_CONST},
	w16: {I16_ADD, I16_SUB, I16_MUL, I16_DIV, I16_CMP_EQ, I16_CMP_NE, I16_CMP_LT, I16_CMP_LE, I16_CMP_GT, I16_CMP_GE, I16_CONST},
	w32: {I32_ADD, I32_SUB, I32_MUL, I32_DIV, I32_CMP_EQ, I32_CMP_NE, I32_CMP_LT, I32_CMP_LE, I32_CMP_GT, I32_CMP_GE, I32_CONST},
	w64: {I64_ADD, I64_SUB, I64_MUL, I64_DIV, I64_CMP_EQ, I64_CMP_NE, I64_CMP_LT, I64_CMP_LE, I64_CMP_GT, I64_CMP_GE, I64_CONST},
}

func (b *ProgramBuilder) intType(w width) ktype.Type {
	switch w {
	case w8:
		return b.types.I8()
	case w16:
		return b.types.I16()
	case w32:
		return b.types.I32()
	default:
		return b.types.I64()
	}
}

// constInt resolves v's integer payload if it is an integer constant-global
// of any width; ok is false for non-constants (instructions are never
// folded).
func (b *ProgramBuilder) constInt(v Value) (int64, bool) {
	if !v.IsConstantGlobal() {
		return 0, false
	}
	e := b.consts[v.Idx()]
	switch e.Op {
	case I1_CONST, I8_CONST, I16_CONST, I32_CONST, I64_CONST:
		return e.I64, true
	}
	return 0, false
}

func commutative(op Opcode) bool {
	switch op {
	case I8_ADD, I16_ADD, I32_ADD, I64_ADD, I8_MUL, I16_MUL, I32_MUL, I64_MUL,
		F64_ADD, F64_MUL,
		I8_CMP_EQ, I16_CMP_EQ, I32_CMP_EQ, I64_CMP_EQ, F64_CMP_EQ,
		I8_CMP_NE, I16_CMP_NE, I32_CMP_NE, I64_CMP_NE, F64_CMP_NE:
		return true
	}
	return false
}

// flipCompare returns the opcode for "b CMP a" given "a CMP b" == op, used
// when canonicalizing constant-first operand order swaps a non-symmetric
// comparison's operands.
func flipCompare(op Opcode) Opcode {
	switch op {
	case I8_CMP_LT:
		return I8_CMP_GT
	case I8_CMP_LE:
		return I8_CMP_GE
	case I8_CMP_GT:
		return I8_CMP_LT
	case I8_CMP_GE:
		return I8_CMP_LE
	case I16_CMP_LT:
		return I16_CMP_GT
	case I16_CMP_LE:
		return I16_CMP_GE
	case I16_CMP_GT:
		return I16_CMP_LT
	case I16_CMP_GE:
		return I16_CMP_LE
	case I32_CMP_LT:
		return I32_CMP_GT
	case I32_CMP_LE:
		return I32_CMP_GE
	case I32_CMP_GT:
		return I32_CMP_LT
	case I32_CMP_GE:
		return I32_CMP_LE
	case I64_CMP_LT:
		return I64_CMP_GT
	case I64_CMP_LE:
		return I64_CMP_GE
	case I64_CMP_GT:
		return I64_CMP_LT
	case I64_CMP_GE:
		return I64_CMP_LE
	case F64_CMP_LT:
		return F64_CMP_GT
	case F64_CMP_LE:
		return F64_CMP_GE
	case F64_CMP_GT:
		return F64_CMP_LT
	case F64_CMP_GE:
		return F64_CMP_LE
	}
	return op
}

func isCompare(op Opcode) bool {
	switch op {
	case I8_CMP_EQ, I8_CMP_NE, I8_CMP_LT, I8_CMP_LE, I8_CMP_GT, I8_CMP_GE,
		I16_CMP_EQ, I16_CMP_NE, I16_CMP_LT, I16_CMP_LE, I16_CMP_GT, I16_CMP_GE,
		I32_CMP_EQ, I32_CMP_NE, I32_CMP_LT, I32_CMP_LE, I32_CMP_GT, I32_CMP_GE,
		I64_CMP_EQ, I64_CMP_NE, I64_CMP_LT, I64_CMP_LE, I64_CMP_GT, I64_CMP_GE,
		F64_CMP_EQ, F64_CMP_NE, F64_CMP_LT, F64_CMP_LE, F64_CMP_GT, F64_CMP_GE:
		return true
	}
	return false
}

// canonicalize puts a constant-global operand first whenever the opcode is
// commutative, or flips a non-symmetric comparison when only b is constant.
func (b *ProgramBuilder) canonicalize(op Opcode, a, bv Value) (Opcode, Value, Value) {
	aConst, bConst := a.IsConstantGlobal(), bv.IsConstantGlobal()
	if aConst || !bConst {
		return op, a, bv
	}
	// only bv is constant: swap to put it first.
	if isCompare(op) {
		return flipCompare(op), bv, a
	}
	if commutative(op) {
		return op, bv, a
	}
	return op, a, bv
}

func (b *ProgramBuilder) emitIntBinOp(op Opcode, resultType ktype.Type, a, bv Value, fold func(x, y int64) int64) (Value, error) {
	op, a, bv = b.canonicalize(op, a, bv)
	if x, ok1 := b.constInt(a); ok1 {
		if y, ok2 := b.constInt(bv); ok2 && fold != nil {
			r := fold(x, y)
			return b.foldedIntConst(resultType, r), nil
		}
	}
	return b.append(Instr{Op: op, Arg0: a, Arg1: bv, Type: resultType, Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) foldedIntConst(t ktype.Type, v int64) Value {
	switch b.types.Kind(t) {
	case ktype.KindI1:
		return b.ConstI1(v != 0)
	case ktype.KindI8:
		return b.ConstI8(int8(v))
	case ktype.KindI16:
		return b.ConstI16(int16(v))
	case ktype.KindI32:
		return b.ConstI32(int32(v))
	default:
		return b.ConstI64(v)
	}
}

func (b *ProgramBuilder) arith(w width, kind string, a, bv Value) (Value, error) {
	t := intOpTable[w]
	rt := b.intType(w)
	switch kind {
	case "add":
		return b.emitIntBinOp(t.add, rt, a, bv, func(x, y int64) int64 { return x + y })
	case "sub":
		return b.emitIntBinOp(t.sub, rt, a, bv, func(x, y int64) int64 { return x - y })
	case "mul":
		return b.emitIntBinOp(t.mul, rt, a, bv, func(x, y int64) int64 { return x * y })
	case "div":
		return b.emitIntBinOp(t.div, rt, a, bv, nil)
	}
	return Value{}, nil
}

func (b *ProgramBuilder) I8Add(a, x Value) (Value, error) { return b.arith(w8, "add", a, x) }
func (b *ProgramBuilder) I8Sub(a, x Value) (Value, error) { return b.arith(w8, "sub", a, x) }
func (b *ProgramBuilder) I8Mul(a, x Value) (Value, error) { return b.arith(w8, "mul", a, x) }
func (b *ProgramBuilder) I16Add(a, x Value) (Value, error) { return b.arith(w16, "add", a, x) }
func (b *ProgramBuilder) I16Sub(a, x Value) (Value, error) { return b.arith(w16, "sub", a, x) }
func (b *ProgramBuilder) I16Mul(a, x Value) (Value, error) { return b.arith(w16, "mul", a, x) }
func (b *ProgramBuilder) I32Add(a, x Value) (Value, error) { return b.arith(w32, "add", a, x) }
func (b *ProgramBuilder) I32Sub(a, x Value) (Value, error) { return b.arith(w32, "sub", a, x) }
func (b *ProgramBuilder) I32Mul(a, x Value) (Value, error) { return b.arith(w32, "mul", a, x) }
func (b *ProgramBuilder) I32Div(a, x Value) (Value, error) { return b.arith(w32, "div", a, x) }
func (b *ProgramBuilder) I64Add(a, x Value) (Value, error) { return b.arith(w64, "add", a, x) }
func (b *ProgramBuilder) I64Sub(a, x Value) (Value, error) { return b.arith(w64, "sub", a, x) }
func (b *ProgramBuilder) I64Mul(a, x Value) (Value, error) { return b.arith(w64, "mul", a, x) }
func (b *ProgramBuilder) I64Div(a, x Value) (Value, error) { return b.arith(w64, "div", a, x) }

func (b *ProgramBuilder) cmp(w width, which string, a, bv Value) (Value, error) {
	t := intOpTable[w]
	var op Opcode
	switch which {
	case "eq":
		op = t.eq
	case "ne":
		op = t.ne
	case "lt":
		op = t.lt
	case "le":
		op = t.le
	case "gt":
		op = t.gt
	case "ge":
		op = t.ge
	}
	op, a, bv = b.canonicalize(op, a, bv)
	if x, ok1 := b.constInt(a); ok1 {
		if y, ok2 := b.constInt(bv); ok2 {
			return b.ConstI1(evalIntCompare(op, x, y)), nil
		}
	}
	return b.append(Instr{Op: op, Arg0: a, Arg1: bv, Type: b.types.I1(), Succ0: -1, Succ1: -1})
}

func evalIntCompare(op Opcode, x, y int64) bool {
	switch op {
	case I8_CMP_EQ, I16_CMP_EQ, I32_CMP_EQ, I64_CMP_EQ:
		return x == y
	case I8_CMP_NE, I16_CMP_NE, I32_CMP_NE, I64_CMP_NE:
		return x != y
	case I8_CMP_LT, I16_CMP_LT, I32_CMP_LT, I64_CMP_LT:
		return x < y
	case I8_CMP_LE, I16_CMP_LE, I32_CMP_LE, I64_CMP_LE:
		return x <= y
	case I8_CMP_GT, I16_CMP_GT, I32_CMP_GT, I64_CMP_GT:
		return x > y
	case I8_CMP_GE, I16_CMP_GE, I32_CMP_GE, I64_CMP_GE:
		return x >= y
	}
	return false
}

func (b *ProgramBuilder) I32CmpEq(a, x Value) (Value, error) { return b.cmp(w32, "eq", a, x) }
func (b *ProgramBuilder) I32CmpNe(a, x Value) (Value, error) { return b.cmp(w32, "ne", a, x) }
func (b *ProgramBuilder) I32CmpLt(a, x Value) (Value, error) { return b.cmp(w32, "lt", a, x) }
func (b *ProgramBuilder) I32CmpLe(a, x Value) (Value, error) { return b.cmp(w32, "le", a, x) }
func (b *ProgramBuilder) I32CmpGt(a, x Value) (Value, error) { return b.cmp(w32, "gt", a, x) }
func (b *ProgramBuilder) I32CmpGe(a, x Value) (Value, error) { return b.cmp(w32, "ge", a, x) }
func (b *ProgramBuilder) I64CmpEq(a, x Value) (Value, error) { return b.cmp(w64, "eq", a, x) }
func (b *ProgramBuilder) I64CmpNe(a, x Value) (Value, error) { return b.cmp(w64, "ne", a, x) }
func (b *ProgramBuilder) I64CmpLt(a, x Value) (Value, error) { return b.cmp(w64, "lt", a, x) }
func (b *ProgramBuilder) I64CmpLe(a, x Value) (Value, error) { return b.cmp(w64, "le", a, x) }
func (b *ProgramBuilder) I64CmpGt(a, x Value) (Value, error) { return b.cmp(w64, "gt", a, x) }
func (b *ProgramBuilder) I64CmpGe(a, x Value) (Value, error) { return b.cmp(w64, "ge", a, x) }

// ---- i1 ----

func (b *ProgramBuilder) I1Not(a Value) (Value, error) {
	if a.IsConstantGlobal() {
		if x, ok := b.constInt(a); ok {
			return b.ConstI1(x == 0), nil
		}
	}
	return b.append(Instr{Op: I1_LNOT, Arg0: a, Type: b.types.I1(), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) I1And(a, bv Value) (Value, error) {
	return b.emitIntBinOp(I1_AND, b.types.I1(), a, bv, func(x, y int64) int64 {
		if x != 0 && y != 0 {
			return 1
		}
		return 0
	})
}

func (b *ProgramBuilder) I1Or(a, bv Value) (Value, error) {
	return b.emitIntBinOp(I1_OR, b.types.I1(), a, bv, func(x, y int64) int64 {
		if x != 0 || y != 0 {
			return 1
		}
		return 0
	})
}

// ---- f64 ----

func (b *ProgramBuilder) constF64(v Value) (float64, bool) {
	if !v.IsConstantGlobal() {
		return 0, false
	}
	e := b.consts[v.Idx()]
	if e.Op == F64_CONST {
		return e.F64, true
	}
	return 0, false
}

func (b *ProgramBuilder) f64BinOp(op Opcode, a, bv Value, fold func(x, y float64) float64) (Value, error) {
	op, a, bv = b.canonicalize(op, a, bv)
	if x, ok1 := b.constF64(a); ok1 {
		if y, ok2 := b.constF64(bv); ok2 && fold != nil {
			return b.ConstF64(fold(x, y)), nil
		}
	}
	return b.append(Instr{Op: op, Arg0: a, Arg1: bv, Type: b.types.F64(), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) F64Add(a, x Value) (Value, error) {
	return b.f64BinOp(F64_ADD, a, x, func(p, q float64) float64 { return p + q })
}
func (b *ProgramBuilder) F64Sub(a, x Value) (Value, error) {
	return b.f64BinOp(F64_SUB, a, x, func(p, q float64) float64 { return p - q })
}
func (b *ProgramBuilder) F64Mul(a, x Value) (Value, error) {
	return b.f64BinOp(F64_MUL, a, x, func(p, q float64) float64 { return p * q })
}
func (b *ProgramBuilder) F64Div(a, x Value) (Value, error) {
	return b.f64BinOp(F64_DIV, a, x, func(p, q float64) float64 { return p / q })
}

func (b *ProgramBuilder) f64Cmp(which string, a, bv Value) (Value, error) {
	var op Opcode
	switch which {
	case "eq":
		op = F64_CMP_EQ
	case "ne":
		op = F64_CMP_NE
	case "lt":
		op = F64_CMP_LT
	case "le":
		op = F64_CMP_LE
	case "gt":
		op = F64_CMP_GT
	case "ge":
		op = F64_CMP_GE
	}
	op, a, bv = b.canonicalize(op, a, bv)
	if x, ok1 := b.constF64(a); ok1 {
		if y, ok2 := b.constF64(bv); ok2 {
			return b.ConstI1(evalF64Compare(op, x, y)), nil
		}
	}
	return b.append(Instr{Op: op, Arg0: a, Arg1: bv, Type: b.types.I1(), Succ0: -1, Succ1: -1})
}

func evalF64Compare(op Opcode, x, y float64) bool {
	switch op {
	case F64_CMP_EQ:
		return x == y
	case F64_CMP_NE:
		return x != y
	case F64_CMP_LT:
		return x < y
	case F64_CMP_LE:
		return x <= y
	case F64_CMP_GT:
		return x > y
	case F64_CMP_GE:
		return x >= y
	}
	return false
}

func (b *ProgramBuilder) F64CmpEq(a, x Value) (Value, error) { return b.f64Cmp("eq", a, x) }
func (b *ProgramBuilder) F64CmpNe(a, x Value) (Value, error) { return b.f64Cmp("ne", a, x) }
func (b *ProgramBuilder) F64CmpLt(a, x Value) (Value, error) { return b.f64Cmp("lt", a, x) }
func (b *ProgramBuilder) F64CmpLe(a, x Value) (Value, error) { return b.f64Cmp("le", a, x) }
func (b *ProgramBuilder) F64CmpGt(a, x Value) (Value, error) { return b.f64Cmp("gt", a, x) }
func (b *ProgramBuilder) F64CmpGe(a, x Value) (Value, error) { return b.f64Cmp("ge", a, x) }

// ---- conversions ----

func (b *ProgramBuilder) I32ConvF64(v Value) (Value, error) {
	if x, ok := b.constInt(v); ok {
		return b.ConstF64(float64(int32(x))), nil
	}
	return b.append(Instr{Op: I32_CONV_F64, Arg0: v, Type: b.types.F64(), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) I64ConvF64(v Value) (Value, error) {
	if x, ok := b.constInt(v); ok {
		return b.ConstF64(float64(x)), nil
	}
	return b.append(Instr{Op: I64_CONV_F64, Arg0: v, Type: b.types.F64(), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) F64ConvI64(v Value) (Value, error) {
	if x, ok := b.constF64(v); ok {
		return b.ConstI64(int64(x)), nil
	}
	return b.append(Instr{Op: F64_CONV_I64, Arg0: v, Type: b.types.I64(), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) I32ZextI64(v Value) (Value, error) {
	if x, ok := b.constInt(v); ok {
		return b.ConstI64(int64(uint32(x))), nil
	}
	return b.append(Instr{Op: I32_ZEXT_I64, Arg0: v, Type: b.types.I64(), Succ0: -1, Succ1: -1})
}
