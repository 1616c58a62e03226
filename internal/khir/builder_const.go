package khir

import "kushql/internal/ktype"

// internConst appends entry to the constant pool. Scalar primitive
// constants are interned by value, as required by §3's "append-only,
// interned by value for scalar primitives" lifecycle rule.
func (b *ProgramBuilder) internConst(entry ConstEntry) Value {
	switch entry.Op {
	case I1_CONST, I8_CONST, I16_CONST, I32_CONST, I64_CONST:
		key := scalarKey{op: entry.Op, i64: entry.I64}
		if v, ok := b.scalarDedup[key]; ok {
			return v
		}
		b.consts = append(b.consts, entry)
		v := constValue(uint32(len(b.consts) - 1))
		b.scalarDedup[key] = v
		return v
	case F64_CONST:
		key := scalarKey{op: entry.Op, f64: entry.F64}
		if v, ok := b.scalarDedup[key]; ok {
			return v
		}
		b.consts = append(b.consts, entry)
		v := constValue(uint32(len(b.consts) - 1))
		b.scalarDedup[key] = v
		return v
	default:
		b.consts = append(b.consts, entry)
		return constValue(uint32(len(b.consts) - 1))
	}
}

func (b *ProgramBuilder) ConstI1(v bool) Value {
	i := int64(0)
	if v {
		i = 1
	}
	return b.internConst(ConstEntry{Op: I1_CONST, Type: b.types.I1(), I1: v, I64: i})
}

func (b *ProgramBuilder) ConstI8(v int8) Value {
	return b.internConst(ConstEntry{Op: I8_CONST, Type: b.types.I8(), I64: int64(v)})
}

func (b *ProgramBuilder) ConstI16(v int16) Value {
	return b.internConst(ConstEntry{Op: I16_CONST, Type: b.types.I16(), I64: int64(v)})
}

func (b *ProgramBuilder) ConstI32(v int32) Value {
	return b.internConst(ConstEntry{Op: I32_CONST, Type: b.types.I32(), I64: int64(v)})
}

func (b *ProgramBuilder) ConstI64(v int64) Value {
	return b.internConst(ConstEntry{Op: I64_CONST, Type: b.types.I64(), I64: v})
}

func (b *ProgramBuilder) ConstF64(v float64) Value {
	return b.internConst(ConstEntry{Op: F64_CONST, Type: b.types.F64(), F64: v})
}

func (b *ProgramBuilder) ConstI32Vec8(v [8]int32) Value {
	return b.internConst(ConstEntry{Op: I32_CONST_VEC8, Type: b.types.I32x8(), Vec8: v})
}

func (b *ProgramBuilder) ConstI32Vec4(v [4]int32) Value {
	return b.internConst(ConstEntry{Op: I32_CONST_VEC4, Type: b.types.I32x4(), Vec4: v})
}

func (b *ProgramBuilder) ConstCharArray(s string) Value {
	arr := b.types.Array(b.types.I8(), len(s)+1)
	return b.internConst(ConstEntry{Op: GLOBAL_CHAR_ARRAY_CONST, Type: b.types.Pointer(arr), Str: s})
}

func (b *ProgramBuilder) ConstStruct(t ktype.Type, fields []Value) Value {
	return b.internConst(ConstEntry{Op: STRUCT_CONST, Type: t, Fields: append([]Value(nil), fields...)})
}

func (b *ProgramBuilder) ConstArray(t ktype.Type, elems []Value) Value {
	return b.internConst(ConstEntry{Op: ARRAY_CONST, Type: t, Fields: append([]Value(nil), elems...)})
}

func (b *ProgramBuilder) ConstNullptr(pointeeType ktype.Type) Value {
	return b.internConst(ConstEntry{Op: NULLPTR_CONST, Type: b.types.Pointer(pointeeType)})
}

func (b *ProgramBuilder) ConstFuncPtr(name string, fnType ktype.Type) Value {
	return b.internConst(ConstEntry{Op: FUNC_PTR, Type: b.types.Pointer(fnType), FuncRef: name})
}
