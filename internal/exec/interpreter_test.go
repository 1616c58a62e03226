package exec

import (
	"testing"

	"kushql/internal/khir"
	"kushql/internal/ktype"
)

// TestInterpreterSumLoop builds sum(n) = 0+1+...+n via a phi-based loop
// (FUNC_ARG n, loop header phi(i, acc), CONDBR on i<=n) and checks the
// interpreter computes the closed-form result, exercising PHI/PHI_MEMBER
// resolution, CONDBR, and I64 arithmetic together.
func TestInterpreterSumLoop(t *testing.T) {
	b := khir.NewProgramBuilder()
	prog, fn := buildSumLoop(t, b)

	interp := NewInterpreter(prog, Registry{}, NewMemory(0))
	for _, n := range []int64{0, 1, 5, 10} {
		got, err := interp.Run(fn, []int64{n})
		if err != nil {
			t.Fatalf("Run(%d): %v", n, err)
		}
		want := n * (n + 1) / 2
		if got != want {
			t.Fatalf("sum(%d) = %d, want %d", n, got, want)
		}
	}
}

func buildSumLoop(t *testing.T, b *khir.ProgramBuilder) (*khir.Program, *khir.Function) {
	t.Helper()
	types := b.Types()
	fnType := types.Function(types.I64(), []ktype.Type{types.I64()})
	b.CreateFunction("sum", fnType, true)

	entry := b.CreateBlock()
	header := b.CreateBlock()
	body := b.CreateBlock()
	exit := b.CreateBlock()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustV := func(v khir.Value, err error) khir.Value {
		t.Helper()
		must(err)
		return v
	}

	must(b.SetCurrentBlock(entry))
	n := mustV(b.FuncArg(0))
	zero := b.ConstI64(0)
	one := b.ConstI64(1)
	iPre := mustV(b.PhiMember(zero))
	accPre := mustV(b.PhiMember(zero))
	must(b.Branch(header))

	must(b.SetCurrentBlock(header))
	iPhi := mustV(b.Phi(types.I64()))
	accPhi := mustV(b.Phi(types.I64()))
	must(b.UpdatePhi(iPhi, iPre))
	must(b.UpdatePhi(accPhi, accPre))
	cond := mustV(b.I64CmpLe(iPhi, n))
	must(b.CondBranch(cond, body, exit))

	must(b.SetCurrentBlock(body))
	newAcc := mustV(b.I64Add(accPhi, iPhi))
	newI := mustV(b.I64Add(iPhi, one))
	accMember := mustV(b.PhiMember(newAcc))
	iMember := mustV(b.PhiMember(newI))
	must(b.UpdatePhi(accPhi, accMember))
	must(b.UpdatePhi(iPhi, iMember))
	must(b.Branch(header))

	must(b.SetCurrentBlock(exit))
	must(b.ReturnValue(accPhi))

	prog, err := b.Build()
	must(err)
	return prog, prog.FuncByName("sum")
}
