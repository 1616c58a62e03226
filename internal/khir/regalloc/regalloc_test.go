package regalloc

import (
	"testing"

	"kushql/internal/khir"
	"kushql/internal/ktype"
)

func buildManyLiveValues(t *testing.T) (*khir.Function, *ktype.Manager) {
	t.Helper()
	b := khir.NewProgramBuilder()
	i64 := b.Types().I64()

	n := NumGPRegisters + 4
	params := make([]ktype.Type, n)
	for i := range params {
		params[i] = i64
	}
	fnType := b.Types().Function(i64, params)
	b.CreateFunction("hot", fnType, true)

	entry := b.CreateBlock()
	if err := b.SetCurrentBlock(entry); err != nil {
		t.Fatal(err)
	}

	// Each argument plus 1 is a distinct non-constant i64 value; keeping
	// all of them alive until the final reduction forces more simultaneous
	// GP-class live intervals than there are GP registers, guaranteeing a
	// spill.
	var vals []khir.Value
	for i := 0; i < n; i++ {
		arg, err := b.FuncArg(i)
		if err != nil {
			t.Fatal(err)
		}
		v, err := b.I64Add(arg, b.ConstI64(1))
		if err != nil {
			t.Fatal(err)
		}
		vals = append(vals, v)
	}
	sum := vals[0]
	for _, v := range vals[1:] {
		var err error
		sum, err = b.I64Add(sum, v)
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := b.ReturnValue(sum); err != nil {
		t.Fatal(err)
	}

	prog, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return prog.FuncByName("hot"), prog.Types
}

// TestNoOverlappingSameRegister checks testable property 7: no two live
// intervals assigned the same physical register (within a class) overlap.
func TestNoOverlappingSameRegister(t *testing.T) {
	f, types := buildManyLiveValues(t)

	intervals, _ := ComputeLiveIntervals(types, f)
	assignments := AssignRegisters(intervals)

	spilled := false
	type key struct {
		class Class
		reg   int
	}
	byReg := make(map[key][]int)
	for i, a := range assignments {
		if a.Spilled {
			spilled = true
			continue
		}
		if a.Class == Flag {
			continue
		}
		k := key{a.Class, a.Register}
		byReg[k] = append(byReg[k], i)
	}
	if !spilled {
		t.Fatalf("expected at least one spill with %d live i64 values competing for %d registers", NumGPRegisters+4, NumGPRegisters)
	}

	for k, idxs := range byReg {
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				ia, ib := intervals[idxs[a]], intervals[idxs[b]]
				if ia.Start <= ib.End && ib.Start <= ia.End {
					t.Fatalf("class %v register %d: intervals [%d,%d] and [%d,%d] overlap",
						k.class, k.reg, ia.Start, ia.End, ib.Start, ib.End)
				}
			}
		}
	}
}
