package regalloc

// System V AMD64 argument-passing order, by class. codegen consults these
// when lowering FUNC_ARG (the callee side, reading an incoming argument)
// and CALL_ARG (the caller side, placing an outgoing one); the general
// linear-scan pass above still owns every other value's register, but
// these two opcodes are fixed points the allocator must work around
// rather than assign freely.
var gpArgRegisters = []int{7 /* RDI */, 6 /* RSI */, 2 /* RDX */, 1 /* RCX */, 8 /* R8 */, 9 /* R9 */}
var xmmArgRegisters = []int{0, 1, 2, 3, 4, 5, 6, 7}

// ArgRegister returns the fixed physical register the nth argument of the
// given class is passed in, or ok=false once the register file for that
// class is exhausted and the argument spills to the stack per the calling
// convention (not handled by this allocator; codegen falls back to memory
// operands for those).
func ArgRegister(class Class, ordinal int) (reg int, ok bool) {
	table := gpArgRegisters
	if class == XMM {
		table = xmmArgRegisters
	}
	if ordinal < 0 || ordinal >= len(table) {
		return 0, false
	}
	return table[ordinal], true
}

// ReturnRegister is the fixed register a RETURN_VALUE's operand must sit
// in just before the corresponding RETURN, and the register a CALL's
// result is read from just after.
func ReturnRegister(class Class) int {
	if class == XMM {
		return 0 // XMM0
	}
	return 0 // RAX, register id 0 in this allocator's GP numbering
}
