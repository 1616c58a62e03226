package passes

import "kushql/internal/khir"

func isLazyGEP(f *khir.Function, v khir.Value) bool {
	if v.IsUndef() || v.IsConstantGlobal() {
		return false
	}
	op := f.Instrs[v.Idx()].Op
	return op == khir.GEP_STATIC || op == khir.GEP_DYNAMIC
}

// MaterializeGEP enforces testable property 6: after this pass, no
// non-GEP, non-PTR_MATERIALIZE instruction has more than one operand whose
// defining opcode is a GEP. Instructions in this IR almost always carry at
// most one pointer-valued operand already (loads/stores/further GEPs each
// consume a single base pointer), so this pass is typically a no-op; it
// exists as the safety net the backend's addressing-mode folding relies on
// for any instruction shape that does carry two.
func MaterializeGEP(f *khir.Function) {
	i := 0
	for i < len(f.Instrs) {
		op := f.Instrs[i].Op
		if op == khir.GEP_STATIC || op == khir.GEP_DYNAMIC || op == khir.PTR_MATERIALIZE {
			i++
			continue
		}

		arg0 := f.Instrs[i].Arg0
		var arg1 khir.Value
		hasArg1 := op != khir.PHI
		if hasArg1 {
			arg1 = f.Instrs[i].Arg1
		}

		if isLazyGEP(f, arg0) && hasArg1 && isLazyGEP(f, arg1) {
			mat := khir.Instr{
				Op:    khir.PTR_MATERIALIZE,
				Type:  f.Instrs[arg1.Idx()].Type,
				Arg0:  arg1,
				Succ0: -1,
				Succ1: -1,
			}
			newVal := insertBefore(f, i, mat)
			f.Instrs[i+1].Arg1 = newVal
			i += 2
			continue
		}
		i++
	}
}
