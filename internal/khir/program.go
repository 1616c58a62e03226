package khir

import "kushql/internal/ktype"

// Segment is a contiguous run of instruction indices [Start, End) within a
// function's instruction vector. A BasicBlock is a list of segments rather
// than a single range so that CFG simplification can splice blocks together
// by concatenating segment lists instead of copying instructions.
type Segment struct {
	Start, End int
}

// BasicBlock is the original khir::BasicBlock: an ordered list of
// instruction segments plus explicit successor/predecessor block indices.
type BasicBlock struct {
	Segments []Segment
	Succ     []int
	Pred     []int
}

// LastInstrIdx returns the instruction index of the block's last
// instruction (its terminator, once the block is closed), or -1 if empty.
func (b *BasicBlock) LastInstrIdx() int {
	for i := len(b.Segments) - 1; i >= 0; i-- {
		if b.Segments[i].End > b.Segments[i].Start {
			return b.Segments[i].End - 1
		}
	}
	return -1
}

// Function is either external (host address known, no body) or internal
// (owns an instruction vector and ordered basic blocks).
type Function struct {
	Name string
	Type ktype.Type

	External bool
	HostAddr uintptr // valid only when External

	Public bool
	Instrs []Instr
	Blocks []BasicBlock
}

// Program is the immutable artifact Build() yields: a type manager, the
// functions defined/declared against it, and the program-wide constant pool.
type Program struct {
	Types     *ktype.Manager
	Functions []*Function
	Consts    []ConstEntry
}

// FuncByName looks up a function by name (internal or external).
func (p *Program) FuncByName(name string) *Function {
	for _, f := range p.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
