package regalloc

import (
	"kushql/internal/khir"
	"kushql/internal/khir/passes"
	"kushql/internal/ktype"
)

// LiveInterval is the original source's LiveInterval: the [Start, End]
// linear-position range a defined value must occupy a register (or spill
// slot) for.
type LiveInterval struct {
	Value khir.Value
	Class Class
	Start int
	End   int
}

// hasResult reports whether op produces a usable value; instructions that
// do not never get a live interval of their own.
func hasResult(op khir.Opcode) bool {
	switch op {
	case khir.RETURN, khir.RETURN_VALUE, khir.BR, khir.CONDBR,
		khir.I1_STORE, khir.I8_STORE, khir.I16_STORE, khir.I32_STORE,
		khir.I64_STORE, khir.F64_STORE, khir.PTR_STORE,
		khir.CALL_ARG, khir.PHI_MEMBER:
		return false
	}
	return true
}

// linearize assigns every instruction a position in reverse-postorder
// block order, following possibly-discontiguous segments (left behind by
// CFG simplification's block merges).
func linearize(f *khir.Function) []int {
	order := passes.BlockOrder(f)
	var posToInstr []int
	for _, bi := range order {
		for _, seg := range f.Blocks[bi].Segments {
			for i := seg.Start; i < seg.End; i++ {
				posToInstr = append(posToInstr, i)
			}
		}
	}
	return posToInstr
}

// classOf picks GP, XMM, or the Flag pseudo-class for a defined value: an
// i1 result consumed solely as a CONDBR's own condition operand never
// needs a physical register because the comparison that produced it left
// the answer in the hardware flags register, read back immediately by
// CONDBR.
func classOf(types *ktype.Manager, f *khir.Function, idx int, soleCondbrUse bool) Class {
	if soleCondbrUse {
		return Flag
	}
	if types.IsFloat(f.Instrs[idx].Type) {
		return XMM
	}
	return GP
}

// ComputeLiveIntervals computes one LiveInterval per value-producing
// instruction plus the linear position->instruction-index order that
// intervals are expressed against (matching khir::ComputeLiveIntervals,
// which returns the same pair).
func ComputeLiveIntervals(types *ktype.Manager, f *khir.Function) ([]LiveInterval, []int) {
	posToInstr := linearize(f)

	start := make(map[int]int)
	end := make(map[int]int)
	condbrUse := make(map[int]bool) // instr idx -> used as CONDBR's own cond
	condbrSoleUse := make(map[int]int)

	touch := func(idx int, pos int) {
		if s, ok := start[idx]; !ok || pos < s {
			start[idx] = pos
		}
		if e, ok := end[idx]; !ok || pos > e {
			end[idx] = pos
		}
	}
	use := func(v khir.Value, pos int) {
		if v.IsUndef() || v.IsConstantGlobal() {
			return
		}
		idx := int(v.Idx())
		if e, ok := end[idx]; !ok || pos > e {
			end[idx] = pos
		}
		condbrSoleUse[idx]++
	}

	for pos, idx := range posToInstr {
		in := f.Instrs[idx]
		if hasResult(in.Op) {
			touch(idx, pos)
		}
		if !in.Arg0.IsUndef() && !in.Arg0.IsConstantGlobal() {
			use(in.Arg0, pos)
			if in.Op == khir.CONDBR {
				condbrUse[int(in.Arg0.Idx())] = true
			}
		}
		if in.Op != khir.PHI && !in.Arg1.IsUndef() && !in.Arg1.IsConstantGlobal() {
			use(in.Arg1, pos)
		}
	}

	var intervals []LiveInterval
	for idx, s := range start {
		sole := condbrUse[idx] && condbrSoleUse[idx] == 1
		intervals = append(intervals, LiveInterval{
			Value: khir.DeserializeValue(uint32(idx)),
			Class: classOf(types, f, idx, sole),
			Start: s,
			End:   end[idx],
		})
	}

	return intervals, posToInstr
}
