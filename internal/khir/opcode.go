package khir

// Opcode enumerates every instruction opcode the IR can contain. Naming and
// grouping follows khir/opcode.h in the original source, widened with the
// i32x8/i1x8 SIMD forms and pointer/null-check opcodes spec.md calls for.
type Opcode uint8

const (
	RETURN Opcode = iota
	RETURN_VALUE

	I1_CMP_EQ
	I1_CMP_NE
	I1_LNOT
	I1_AND
	I1_OR
	I1_ZEXT_I64
	I1_ZEXT_I8

	I8_ADD
	I8_SUB
	I8_MUL
	I8_DIV
	I8_CMP_EQ
	I8_CMP_NE
	I8_CMP_LT
	I8_CMP_LE
	I8_CMP_GT
	I8_CMP_GE
	I8_ZEXT_I64
	I8_CONV_F64

	I16_ADD
	I16_SUB
	I16_MUL
	I16_DIV
	I16_CMP_EQ
	I16_CMP_NE
	I16_CMP_LT
	I16_CMP_LE
	I16_CMP_GT
	I16_CMP_GE
	I16_ZEXT_I64
	I16_CONV_F64

	I32_ADD
	I32_SUB
	I32_MUL
	I32_DIV
	I32_CMP_EQ
	I32_CMP_NE
	I32_CMP_LT
	I32_CMP_LE
	I32_CMP_GT
	I32_CMP_GE
	I32_ZEXT_I64
	I32_CONV_F64

	I64_ADD
	I64_SUB
	I64_MUL
	I64_DIV
	I64_AND
	I64_OR
	I64_XOR
	I64_LSHIFT
	I64_RSHIFT
	I64_TRUNC_I32
	I64_TRUNC_I16
	I64_TRUNC_I8
	I64_CMP_EQ
	I64_CMP_NE
	I64_CMP_LT
	I64_CMP_LE
	I64_CMP_GT
	I64_CMP_GE
	I64_CONV_F64

	F64_ADD
	F64_SUB
	F64_MUL
	F64_DIV
	F64_CMP_EQ
	F64_CMP_NE
	F64_CMP_LT
	F64_CMP_LE
	F64_CMP_GT
	F64_CMP_GE
	F64_CONV_I64

	// i32x8 / i1x8 SIMD
	I32X8_ADD
	I32X8_CMP_EQ
	I32X8_LOAD
	I32X8_CONST
	I1X8_AND
	I1X8_OR
	I1X8_EXTRACT_MASK
	I1X8_CONST

	I1_LOAD
	I8_LOAD
	I16_LOAD
	I32_LOAD
	I64_LOAD
	F64_LOAD
	PTR_LOAD

	I1_STORE
	I8_STORE
	I16_STORE
	I32_STORE
	I64_STORE
	F64_STORE
	PTR_STORE

	BR
	CONDBR

	PHI
	PHI_MEMBER

	CALL
	CALL_INDIRECT
	CALL_ARG

	ALLOCA

	PTR_CAST
	PTR_CMP_NULLPTR
	PTR_MATERIALIZE

	FUNC_ARG

	GEP_STATIC
	GEP_STATIC_OFFSET
	GEP_DYNAMIC
	GEP_DYNAMIC_OFFSET
)

// ConstOpcode enumerates the parallel constant-pool opcode space.
type ConstOpcode uint8

const (
	I1_CONST ConstOpcode = iota
	I8_CONST
	I16_CONST
	I32_CONST
	I64_CONST
	F64_CONST
	I32_CONST_VEC4
	I32_CONST_VEC8
	GLOBAL_CHAR_ARRAY_CONST
	STRUCT_CONST
	ARRAY_CONST
	NULLPTR_CONST
	GLOBAL_REF
	FUNC_PTR
	PTR_CONST
	PTR_CAST_CONST
)

// IsTerminator reports whether op closes a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case BR, CONDBR, RETURN, RETURN_VALUE:
		return true
	}
	return false
}
