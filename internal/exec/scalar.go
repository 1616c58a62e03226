package exec

import (
	"encoding/binary"
	"math"

	"kushql/internal/khir"
	"kushql/internal/kqerr"
)

// evalScalar computes the result word of any non-control-flow,
// non-phi, non-call instruction: arithmetic, comparisons, conversions,
// memory, and pointer-arithmetic opcodes. Values are always carried as
// raw int64 words; float instructions reinterpret through
// math.Float64bits/frombits, matching how the original stores a double
// in a general register when it must cross an interpreter boundary.
func (in *Interpreter) evalScalar(fr *frame, fn *khir.Function, instr khir.Instr) (int64, error) {
	a := in.read(fr, instr.Arg0)
	switch instr.Op {
	case khir.I1_CMP_EQ:
		return boolWord(a == in.read(fr, instr.Arg1)), nil
	case khir.I1_CMP_NE:
		return boolWord(a != in.read(fr, instr.Arg1)), nil
	case khir.I1_LNOT:
		return boolWord(a == 0), nil
	case khir.I1_AND:
		return boolWord(a != 0 && in.read(fr, instr.Arg1) != 0), nil
	case khir.I1_OR:
		return boolWord(a != 0 || in.read(fr, instr.Arg1) != 0), nil
	case khir.I1_ZEXT_I64, khir.I1_ZEXT_I8:
		return a, nil

	case khir.I8_ADD, khir.I16_ADD, khir.I32_ADD, khir.I64_ADD:
		return a + in.read(fr, instr.Arg1), nil
	case khir.I8_SUB, khir.I16_SUB, khir.I32_SUB, khir.I64_SUB:
		return a - in.read(fr, instr.Arg1), nil
	case khir.I8_MUL, khir.I16_MUL, khir.I32_MUL, khir.I64_MUL:
		return a * in.read(fr, instr.Arg1), nil
	case khir.I8_DIV, khir.I16_DIV, khir.I32_DIV, khir.I64_DIV:
		b := in.read(fr, instr.Arg1)
		if b == 0 {
			return 0, kqerr.New(kqerr.Runtime, "exec: integer division by zero")
		}
		return a / b, nil

	case khir.I8_CMP_EQ, khir.I16_CMP_EQ, khir.I32_CMP_EQ, khir.I64_CMP_EQ:
		return boolWord(a == in.read(fr, instr.Arg1)), nil
	case khir.I8_CMP_NE, khir.I16_CMP_NE, khir.I32_CMP_NE, khir.I64_CMP_NE:
		return boolWord(a != in.read(fr, instr.Arg1)), nil
	case khir.I8_CMP_LT, khir.I16_CMP_LT, khir.I32_CMP_LT, khir.I64_CMP_LT:
		return boolWord(a < in.read(fr, instr.Arg1)), nil
	case khir.I8_CMP_LE, khir.I16_CMP_LE, khir.I32_CMP_LE, khir.I64_CMP_LE:
		return boolWord(a <= in.read(fr, instr.Arg1)), nil
	case khir.I8_CMP_GT, khir.I16_CMP_GT, khir.I32_CMP_GT, khir.I64_CMP_GT:
		return boolWord(a > in.read(fr, instr.Arg1)), nil
	case khir.I8_CMP_GE, khir.I16_CMP_GE, khir.I32_CMP_GE, khir.I64_CMP_GE:
		return boolWord(a >= in.read(fr, instr.Arg1)), nil

	case khir.I8_ZEXT_I64, khir.I16_ZEXT_I64, khir.I32_ZEXT_I64:
		return a, nil
	case khir.I64_TRUNC_I32:
		return int64(int32(a)), nil
	case khir.I64_TRUNC_I16:
		return int64(int16(a)), nil
	case khir.I64_TRUNC_I8:
		return int64(int8(a)), nil

	case khir.I8_CONV_F64, khir.I16_CONV_F64, khir.I32_CONV_F64, khir.I64_CONV_F64:
		return int64(math.Float64bits(float64(a))), nil
	case khir.F64_CONV_I64:
		return int64(fword(a)), nil

	case khir.I64_AND:
		return a & in.read(fr, instr.Arg1), nil
	case khir.I64_OR:
		return a | in.read(fr, instr.Arg1), nil
	case khir.I64_XOR:
		return a ^ in.read(fr, instr.Arg1), nil
	case khir.I64_LSHIFT:
		return a << uint(in.read(fr, instr.Arg1)), nil
	case khir.I64_RSHIFT:
		return a >> uint(in.read(fr, instr.Arg1)), nil

	case khir.F64_ADD:
		return fwordBits(fword(a) + fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_SUB:
		return fwordBits(fword(a) - fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_MUL:
		return fwordBits(fword(a) * fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_DIV:
		return fwordBits(fword(a) / fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_EQ:
		return boolWord(fword(a) == fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_NE:
		return boolWord(fword(a) != fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_LT:
		return boolWord(fword(a) < fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_LE:
		return boolWord(fword(a) <= fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_GT:
		return boolWord(fword(a) > fword(in.read(fr, instr.Arg1))), nil
	case khir.F64_CMP_GE:
		return boolWord(fword(a) >= fword(in.read(fr, instr.Arg1))), nil

	case khir.ALLOCA:
		return in.mem.Alloc(8), nil

	case khir.I1_LOAD:
		return int64(in.mem.bytesAt(a, 1)[0]), nil
	case khir.I8_LOAD:
		return int64(int8(in.mem.bytesAt(a, 1)[0])), nil
	case khir.I16_LOAD:
		return int64(int16(binary.LittleEndian.Uint16(in.mem.bytesAt(a, 2)))), nil
	case khir.I32_LOAD:
		return int64(int32(binary.LittleEndian.Uint32(in.mem.bytesAt(a, 4)))), nil
	case khir.I64_LOAD, khir.PTR_LOAD:
		return int64(binary.LittleEndian.Uint64(in.mem.bytesAt(a, 8))), nil
	case khir.F64_LOAD:
		return int64(binary.LittleEndian.Uint64(in.mem.bytesAt(a, 8))), nil

	case khir.I1_STORE:
		in.mem.bytesAt(a, 1)[0] = byte(in.read(fr, instr.Arg1))
		return 0, nil
	case khir.I8_STORE:
		in.mem.bytesAt(a, 1)[0] = byte(in.read(fr, instr.Arg1))
		return 0, nil
	case khir.I16_STORE:
		binary.LittleEndian.PutUint16(in.mem.bytesAt(a, 2), uint16(in.read(fr, instr.Arg1)))
		return 0, nil
	case khir.I32_STORE:
		binary.LittleEndian.PutUint32(in.mem.bytesAt(a, 4), uint32(in.read(fr, instr.Arg1)))
		return 0, nil
	case khir.I64_STORE, khir.PTR_STORE, khir.F64_STORE:
		binary.LittleEndian.PutUint64(in.mem.bytesAt(a, 8), uint64(in.read(fr, instr.Arg1)))
		return 0, nil

	case khir.PTR_CAST:
		return a, nil
	case khir.PTR_CMP_NULLPTR:
		return boolWord(a == 0), nil
	case khir.PTR_MATERIALIZE:
		return a, nil

	case khir.GEP_STATIC_OFFSET, khir.GEP_DYNAMIC_OFFSET:
		if instr.Op == khir.GEP_DYNAMIC_OFFSET {
			return a * instr.Imm, nil
		}
		return instr.Imm, nil
	case khir.GEP_STATIC, khir.GEP_DYNAMIC:
		return a + in.read(fr, instr.Arg1), nil

	default:
		return 0, kqerr.New(kqerr.Runtime, "exec: opcode %v not supported by the interpreter", instr.Op)
	}
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func fword(bits int64) float64 { return math.Float64frombits(uint64(bits)) }
func fwordBits(f float64) int64 { return int64(math.Float64bits(f)) }
