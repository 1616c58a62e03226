package passes

import "kushql/internal/khir"

// insertBefore splices instr into f.Instrs immediately before instruction
// index at, shifting every later instruction index (segments, operand
// references, and phi backrefs) up by one. Block-label fields (Succ0/Succ1)
// are untouched since they index blocks, not instructions.
func insertBefore(f *khir.Function, at int, instr khir.Instr) khir.Value {
	f.Instrs = append(f.Instrs, khir.Instr{})
	copy(f.Instrs[at+1:], f.Instrs[at:])
	f.Instrs[at] = instr

	shift := func(idx int) int {
		if idx >= at {
			return idx + 1
		}
		return idx
	}

	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for si := range bb.Segments {
			if bb.Segments[si].Start > at {
				bb.Segments[si].Start++
			}
			if bb.Segments[si].End > at {
				bb.Segments[si].End++
			}
		}
	}

	resolveVal := func(v khir.Value) khir.Value {
		if v.IsUndef() || v.IsConstantGlobal() {
			return v
		}
		return khir.DeserializeValue(uint32(shift(int(v.Idx()))))
	}

	for i := range f.Instrs {
		if i == at {
			continue // the instruction we just inserted
		}
		f.Instrs[i].Arg0 = resolveVal(f.Instrs[i].Arg0)
		if f.Instrs[i].Op != khir.PHI {
			f.Instrs[i].Arg1 = resolveVal(f.Instrs[i].Arg1)
		}
		if f.Instrs[i].Op == khir.PHI_MEMBER && f.Instrs[i].PhiBackref >= at {
			f.Instrs[i].PhiBackref++
		}
	}

	return khir.DeserializeValue(uint32(at))
}
