// Package regalloc implements live-interval computation and linear-scan
// register allocation over khir functions, following
// khir/asm/live_intervals.h and khir/asm/linear_scan_register_alloc.h.
package regalloc

// Class distinguishes the two physical register files a value can be
// assigned to: general-purpose integer/pointer registers, and the xmm
// file used for F64 values. A third pseudo-class, Flag, is reserved for
// i1 values that feed a CONDBR directly and never need a physical
// register at all (the comparison that produced them sets the hardware
// flags register, and CONDBR reads it back immediately).
type Class int

const (
	GP Class = iota
	XMM
	Flag
)

// Number of addressable GP registers available to the allocator, holding
// back RSP/RBP (frame management) and one scratch register the codegen
// backend reserves for spill reloads/materialization.
const NumGPRegisters = 13

// Number of addressable xmm registers available to the allocator.
const NumXMMRegisters = 15

// Assignment is the outcome of allocation for a single live interval:
// either a physical register id (interpreted against Class) or a spill
// slot index into the function's spill area.
type Assignment struct {
	Class    Class
	Register int  // valid when !Spilled
	Spilled  bool
	SpillIdx int // valid when Spilled
}
