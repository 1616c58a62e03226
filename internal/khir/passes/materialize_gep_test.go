package passes

import (
	"testing"

	"kushql/internal/khir"
	"kushql/internal/ktype"
)

// TestMaterializeGEPSynthetic builds a function with a synthetic instruction
// that has two lazy-GEP operands (a shape normal translators never produce,
// since every real consumer takes at most one base pointer) and checks that
// MaterializeGEP inserts a PTR_MATERIALIZE to restore the one-lazy-operand
// invariant (testable property 6).
func TestMaterializeGEPSynthetic(t *testing.T) {
	types := ktype.NewManager()
	i64 := types.I64()
	ptrT := types.Pointer(i64)

	f := &khir.Function{Name: "synthetic", Type: types.Function(i64, nil)}

	// v1, v3: two independent GEP_STATIC instructions (both "lazy"), over
	// the offsets v0 and v2.
	f.Instrs = append(f.Instrs,
		khir.Instr{Op: khir.GEP_STATIC_OFFSET, Type: ptrT, Imm: 0, Succ0: -1, Succ1: -1},
		khir.Instr{Op: khir.GEP_STATIC, Type: ptrT, Arg0: khir.DeserializeValue(0), Succ0: -1, Succ1: -1},
		khir.Instr{Op: khir.GEP_STATIC_OFFSET, Type: ptrT, Imm: 8, Succ0: -1, Succ1: -1},
		khir.Instr{Op: khir.GEP_STATIC, Type: ptrT, Arg0: khir.DeserializeValue(2), Succ0: -1, Succ1: -1},
	)
	gep0 := khir.DeserializeValue(1)
	gep1 := khir.DeserializeValue(3)

	// v4: synthetic consumer with two lazy-GEP operands.
	f.Instrs = append(f.Instrs, khir.Instr{Op: khir.I64_ADD, Type: i64, Arg0: gep0, Arg1: gep1, Succ0: -1, Succ1: -1})
	f.Instrs = append(f.Instrs, khir.Instr{Op: khir.RETURN_VALUE, Arg0: khir.DeserializeValue(4), Succ0: -1, Succ1: -1})

	f.Blocks = []khir.BasicBlock{{Segments: []khir.Segment{{Start: 0, End: len(f.Instrs)}}}}

	MaterializeGEP(f)

	matCount := 0
	for _, in := range f.Instrs {
		if in.Op == khir.PTR_MATERIALIZE {
			matCount++
		}
	}
	if matCount != 1 {
		t.Fatalf("expected exactly 1 PTR_MATERIALIZE inserted, got %d", matCount)
	}

	for i, in := range f.Instrs {
		if in.Op != khir.I64_ADD {
			continue
		}
		lazy0 := !in.Arg0.IsUndef() && !in.Arg0.IsConstantGlobal() && isLazyGEP(f, in.Arg0)
		lazy1 := !in.Arg1.IsUndef() && !in.Arg1.IsConstantGlobal() && isLazyGEP(f, in.Arg1)
		if lazy0 && lazy1 {
			t.Fatalf("instr %d still has two lazy-GEP operands after materialization", i)
		}
	}
}

func TestMaterializeGEPNoopOnSingleOperand(t *testing.T) {
	types := ktype.NewManager()
	i64 := types.I64()
	ptrT := types.Pointer(i64)

	f := &khir.Function{Name: "normal", Type: types.Function(i64, nil)}
	f.Instrs = append(f.Instrs,
		khir.Instr{Op: khir.GEP_STATIC_OFFSET, Type: ptrT, Imm: 0, Succ0: -1, Succ1: -1},
		khir.Instr{Op: khir.GEP_STATIC, Type: ptrT, Arg0: khir.DeserializeValue(0), Succ0: -1, Succ1: -1},
	)
	f.Instrs = append(f.Instrs, khir.Instr{Op: khir.I64_LOAD, Type: i64, Arg0: khir.DeserializeValue(1), Succ0: -1, Succ1: -1})
	f.Instrs = append(f.Instrs, khir.Instr{Op: khir.RETURN_VALUE, Arg0: khir.DeserializeValue(2), Succ0: -1, Succ1: -1})
	f.Blocks = []khir.BasicBlock{{Segments: []khir.Segment{{Start: 0, End: len(f.Instrs)}}}}

	before := len(f.Instrs)
	MaterializeGEP(f)
	if len(f.Instrs) != before {
		t.Fatalf("expected no change for single-lazy-operand instructions, len went from %d to %d", before, len(f.Instrs))
	}
}
