// Package codegen lowers a khir.Program, once regalloc has assigned every
// value a physical register or spill slot, into raw x86-64 machine code.
// It follows khir/asm/asm_backend.h's instruction selection, expressed as
// a from-scratch Go encoder (the original emits through asmjit; kushql has
// no equivalent dependency in the example pack, so this package hand-rolls
// REX/ModRM/SIB encoding directly — see DESIGN.md).
package codegen

import "kushql/internal/khir/regalloc"

// physGP maps a regalloc GP allocator id (0..NumGPRegisters-1) to the
// physical x86-64 register number used in ModRM/REX encoding. The mapping
// is pinned at the fixed points regalloc/calling_convention.go names by
// comment (RAX=0, RCX=1, RDX=2, RSI=6, RDI=7, R8=8, R9=9) and fills the
// rest with RBX, R10 and R12-R15, holding R11
// back as codegen's own scratch register for spill reloads and materializing
// 64-bit immediates into a call target.
var physGP = [regalloc.NumGPRegisters]int{
	0,  // id 0 -> RAX
	1,  // id 1 -> RCX
	2,  // id 2 -> RDX
	3,  // id 3 -> RBX
	10, // id 4 -> R10
	12, // id 5 -> R12
	6,  // id 6 -> RSI
	7,  // id 7 -> RDI
	8,  // id 8 -> R8
	9,  // id 9 -> R9
	13, // id 10 -> R13
	14, // id 11 -> R14
	15, // id 12 -> R15
}

// scratchGP is the physical register codegen itself uses for spill
// reloads and indirect call targets; never handed out by regalloc.
const scratchGP = 11 // R11

// gpName maps a physical GP register number to its assembler name.
var gpName = [16]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func physXMM(allocID int) int { return allocID } // xmm0..xmm14 direct; xmm15 reserved as scratch

const scratchXMM = 15

// PhysicalGP resolves an Assignment of class GP to its physical register
// number. It does not check Spilled; callers check it first, as this is
// only for the common register-register path.
func PhysicalGP(a regalloc.Assignment) int { return physGP[a.Register] }

// PhysicalXMM resolves an Assignment of class XMM to its physical xmm
// register number.
func PhysicalXMM(a regalloc.Assignment) int { return physXMM(a.Register) }
