package khir

import (
	"testing"

	"kushql/internal/ktype"
)

func buildSimpleFunc(t *testing.T) (*ProgramBuilder, *Function) {
	t.Helper()
	b := NewProgramBuilder()
	i32 := b.Types().I32()
	fnType := b.Types().Function(i32, nil)
	b.CreateFunction("main", fnType, true)

	entry := b.CreateBlock()
	must(t, b.SetCurrentBlock(entry))

	sum, err := b.I32Add(b.ConstI32(2), b.ConstI32(3))
	must(t, err)
	must(t, b.ReturnValue(sum))

	return b, b.fn()
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConstantFolding(t *testing.T) {
	b, f := buildSimpleFunc(t)
	ret := f.Instrs[f.LastInstrIdx(0)]
	if ret.Op != RETURN_VALUE {
		t.Fatalf("expected RETURN_VALUE, got %v", ret.Op)
	}
	if !ret.Arg0.IsConstantGlobal() {
		t.Fatalf("expected constant-folded sum, got instruction %v", ret.Arg0)
	}
	entry := b.consts[ret.Arg0.Idx()]
	if entry.I64 != 5 {
		t.Fatalf("expected 2+3=5, got %d", entry.I64)
	}
}

func (f *Function) LastInstrIdx(bi int) int { return f.Blocks[bi].LastInstrIdx() }

func TestTerminatorInvariant(t *testing.T) {
	_, f := buildSimpleFunc(t)
	if err := VerifyTerminators(f); err != nil {
		t.Fatalf("VerifyTerminators: %v", err)
	}
}

func TestAppendToTerminatedBlockErrors(t *testing.T) {
	b, _ := buildSimpleFunc(t)
	if err := b.Return(); err == nil {
		t.Fatalf("expected error appending to terminated block")
	}
}

func TestPhiAndDominance(t *testing.T) {
	b := NewProgramBuilder()
	i32 := b.Types().I32()
	fnType := b.Types().Function(i32, nil)
	b.CreateFunction("branchy", fnType, true)

	entry := b.CreateBlock()
	thenBB := b.CreateBlock()
	elseBB := b.CreateBlock()
	joinBB := b.CreateBlock()

	must(t, b.SetCurrentBlock(entry))
	cond, err := b.I32CmpLt(b.ConstI32(1), b.ConstI32(2))
	must(t, err)
	must(t, b.CondBranch(cond, thenBB, elseBB))

	must(t, b.SetCurrentBlock(thenBB))
	thenVal := b.ConstI32(10)
	thenMember, err := b.PhiMember(thenVal)
	must(t, err)
	must(t, b.Branch(joinBB))

	must(t, b.SetCurrentBlock(elseBB))
	elseVal := b.ConstI32(20)
	elseMember, err := b.PhiMember(elseVal)
	must(t, err)
	must(t, b.Branch(joinBB))

	must(t, b.SetCurrentBlock(joinBB))
	phi, err := b.Phi(i32)
	must(t, err)
	must(t, b.UpdatePhi(phi, thenMember))
	must(t, b.UpdatePhi(phi, elseMember))
	must(t, b.ReturnValue(phi))

	f := b.fn()
	if err := VerifyTerminators(f); err != nil {
		t.Fatalf("VerifyTerminators: %v", err)
	}
	if err := VerifyPhis(f); err != nil {
		t.Fatalf("VerifyPhis: %v", err)
	}
	if err := VerifyDominance(f); err != nil {
		t.Fatalf("VerifyDominance: %v", err)
	}
}

func TestGEPPairing(t *testing.T) {
	b := NewProgramBuilder()
	i32 := b.Types().I32()
	structT, err := b.Types().Struct([]ktype.Type{i32, i32}, "")
	must(t, err)

	fnType := b.Types().Function(b.Types().Void(), nil)
	b.CreateFunction("gep", fnType, true)
	entry := b.CreateBlock()
	must(t, b.SetCurrentBlock(entry))

	ptr, err := b.Alloca(structT)
	must(t, err)
	fieldPtr, err := b.ConstGEP(ptr, b.Types().Pointer(structT), []int{1})
	must(t, err)
	must(t, b.Store(fieldPtr, b.ConstI32(42)))
	must(t, b.Return())

	f := b.fn()
	// find the GEP_STATIC/GEP_STATIC_OFFSET pairing
	offsetInstr := f.Instrs[fieldPtr.Idx()-1]
	gepInstr := f.Instrs[fieldPtr.Idx()]
	if offsetInstr.Op != GEP_STATIC_OFFSET || gepInstr.Op != GEP_STATIC {
		t.Fatalf("expected paired GEP_STATIC_OFFSET/GEP_STATIC, got %v/%v", offsetInstr.Op, gepInstr.Op)
	}
	if offsetInstr.Imm != 4 {
		t.Fatalf("expected field 1 offset 4, got %d", offsetInstr.Imm)
	}
}
