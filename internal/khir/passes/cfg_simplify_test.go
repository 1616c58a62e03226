package passes

import (
	"testing"

	"kushql/internal/khir"
)

// buildChain builds entry -> mid -> tail, each block with a single
// unconditional branch, to exercise the merge loop.
func buildChain(t *testing.T) *khir.Function {
	t.Helper()
	b := khir.NewProgramBuilder()
	i32 := b.Types().I32()
	fnType := b.Types().Function(i32, nil)
	b.CreateFunction("chain", fnType, true)

	entry := b.CreateBlock()
	mid := b.CreateBlock()
	tail := b.CreateBlock()

	if err := b.SetCurrentBlock(entry); err != nil {
		t.Fatal(err)
	}
	if err := b.Branch(mid); err != nil {
		t.Fatal(err)
	}

	if err := b.SetCurrentBlock(mid); err != nil {
		t.Fatal(err)
	}
	if err := b.Branch(tail); err != nil {
		t.Fatal(err)
	}

	if err := b.SetCurrentBlock(tail); err != nil {
		t.Fatal(err)
	}
	if err := b.ReturnValue(b.ConstI32(7)); err != nil {
		t.Fatal(err)
	}

	prog, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return prog.FuncByName("chain")
}

func TestCFGSimplifyMergesChain(t *testing.T) {
	f := buildChain(t)
	CFGSimplify(f)
	if len(f.Blocks) != 1 {
		t.Fatalf("expected chain to merge to 1 block, got %d", len(f.Blocks))
	}
	if err := khir.VerifyTerminators(f); err != nil {
		t.Fatalf("VerifyTerminators after merge: %v", err)
	}
}

// TestCFGSimplifyIdempotent checks testable property 12: running
// CFGSimplify again over its own output is a no-op.
func TestCFGSimplifyIdempotent(t *testing.T) {
	f := buildChain(t)
	CFGSimplify(f)

	before := len(f.Blocks)
	beforeInstrs := len(f.Instrs)

	CFGSimplify(f)

	if len(f.Blocks) != before || len(f.Instrs) != beforeInstrs {
		t.Fatalf("CFGSimplify not idempotent: blocks %d->%d, instrs %d->%d",
			before, len(f.Blocks), beforeInstrs, len(f.Instrs))
	}
}
