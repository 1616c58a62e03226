package codegen

import (
	"bytes"
	"testing"

	"kushql/internal/khir"
	"kushql/internal/ktype"
)

// Low-level encoder tests: every assertion here is a byte sequence an
// assembler/disassembler would agree on, following the style of
// khir/builder_test.go's structural checks but aimed at the actual wire
// format instead of the IR.

func TestMovRegReg64(t *testing.T) {
	a := &asm{}
	a.movRegReg64(1, 0) // mov rcx, rax
	want := []byte{0x48, 0x89, 0xC1}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov rcx, rax: got % X, want % X", a.code, want)
	}
}

func TestMovRegReg64ExtendedRegisters(t *testing.T) {
	a := &asm{}
	a.movRegReg64(15, 8) // mov r15, r8
	want := []byte{0x4D, 0x89, 0xC7}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov r15, r8: got % X, want % X", a.code, want)
	}
}

func TestMovRegImm64(t *testing.T) {
	a := &asm{}
	a.movRegImm64(0, 42) // mov rax, 42
	want := []byte{0x48, 0xB8, 0x2A, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov rax, 42: got % X, want % X", a.code, want)
	}
}

func TestAddRegReg64(t *testing.T) {
	a := &asm{}
	a.addRegReg64(0, 1) // add rax, rcx
	want := []byte{0x48, 0x01, 0xC8}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("add rax, rcx: got % X, want % X", a.code, want)
	}
}

func TestCmpRegReg64(t *testing.T) {
	a := &asm{}
	a.cmpRegReg64(7, 6) // cmp rdi, rsi
	want := []byte{0x48, 0x39, 0xF7}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("cmp rdi, rsi: got % X, want % X", a.code, want)
	}
}

func TestImulRegReg64(t *testing.T) {
	a := &asm{}
	a.imulRegReg64(0, 1) // imul rax, rcx
	want := []byte{0x48, 0x0F, 0xAF, 0xC1}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("imul rax, rcx: got % X, want % X", a.code, want)
	}
}

func TestPushPopRbp(t *testing.T) {
	a := &asm{}
	a.push64(5)
	a.pop64(5)
	want := []byte{0x55, 0x5D}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("push/pop rbp: got % X, want % X", a.code, want)
	}
}

func TestPushExtendedRegister(t *testing.T) {
	a := &asm{}
	a.push64(12) // push r12
	want := []byte{0x41, 0x54}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("push r12: got % X, want % X", a.code, want)
	}
}

func TestLeaveRet(t *testing.T) {
	a := &asm{}
	a.leave()
	a.ret()
	want := []byte{0xC9, 0xC3}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("leave/ret: got % X, want % X", a.code, want)
	}
}

func TestLoadStoreMem64(t *testing.T) {
	a := &asm{}
	a.loadMem64(0, 7, 8) // mov rax, [rdi+8]
	want := []byte{0x48, 0x8B, 0x87, 0x08, 0, 0, 0}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov rax, [rdi+8]: got % X, want % X", a.code, want)
	}

	a2 := &asm{}
	a2.storeMem64(7, 16, 0) // mov [rdi+16], rax
	want2 := []byte{0x48, 0x89, 0x87, 0x10, 0, 0, 0}
	if !bytes.Equal(a2.code, want2) {
		t.Fatalf("mov [rdi+16], rax: got % X, want % X", a2.code, want2)
	}
}

func TestLoadMem64RspBaseUsesSIB(t *testing.T) {
	a := &asm{}
	a.loadMem64(0, 4, 0) // mov rax, [rsp] -- RSP-as-base always needs a SIB byte
	want := []byte{0x48, 0x8B, 0x84, 0x24, 0, 0, 0, 0}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov rax, [rsp]: got % X, want % X", a.code, want)
	}
}

func TestMovRegReg32(t *testing.T) {
	a := &asm{}
	a.movRegReg32(1, 0) // mov ecx, eax -- no REX prefix needed below register 8
	want := []byte{0x89, 0xC1}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov ecx, eax: got % X, want % X", a.code, want)
	}

	a2 := &asm{}
	a2.movRegReg32(15, 8) // mov r15d, r8d -- both >= 8, needs REX.R/REX.B
	want2 := []byte{0x45, 0x89, 0xC7}
	if !bytes.Equal(a2.code, want2) {
		t.Fatalf("mov r15d, r8d: got % X, want % X", a2.code, want2)
	}
}

func TestLoadStoreMem32(t *testing.T) {
	a := &asm{}
	a.loadMem32(0, 7, 8) // mov eax, [rdi+8]
	want := []byte{0x8B, 0x87, 0x08, 0, 0, 0}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov eax, [rdi+8]: got % X, want % X", a.code, want)
	}

	a2 := &asm{}
	a2.storeMem32(7, 16, 0) // mov [rdi+16], eax
	want2 := []byte{0x89, 0x87, 0x10, 0, 0, 0}
	if !bytes.Equal(a2.code, want2) {
		t.Fatalf("mov [rdi+16], eax: got % X, want % X", a2.code, want2)
	}
}

func TestLoadMem32ExtendedRegistersNeedsRex(t *testing.T) {
	a := &asm{}
	a.loadMem32(14, 13, 0) // mov r14d, [r13] -- both operands >= 8
	want := []byte{0x45, 0x8B, 0xB5, 0, 0, 0, 0}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("mov r14d, [r13]: got % X, want % X", a.code, want)
	}
}

func TestAddsdMulsd(t *testing.T) {
	a := &asm{}
	a.addsd(0, 1) // addsd xmm0, xmm1
	want := []byte{0xF2, 0x0F, 0x58, 0xC1}
	if !bytes.Equal(a.code, want) {
		t.Fatalf("addsd xmm0, xmm1: got % X, want % X", a.code, want)
	}
}

func TestJmpPatchedToForwardBlock(t *testing.T) {
	a := &asm{}
	a.jmp(1)
	if len(a.patches) != 1 || a.patches[0].target != 1 {
		t.Fatalf("expected one patch targeting block 1, got %+v", a.patches)
	}
	pos := a.patches[0].pos
	// Simulate the resolution pass emitFunction performs: block 1 starts
	// right after this 5-byte jmp.
	blockStart := len(a.code)
	rel := int32(blockStart - (pos + 4))
	if rel != 0 {
		t.Fatalf("expected a zero-displacement jump to the very next byte, got %d", rel)
	}
}

func TestSetccForcesRexOnRSIRDI(t *testing.T) {
	a := &asm{}
	a.setcc(CondE, 6) // sete sil
	if len(a.code) != 4 || a.code[0] != 0x40 {
		t.Fatalf("sete sil: expected a bare REX prefix before 0F 94 C6, got % X", a.code)
	}
}

// TestEmitSimpleAddFunction builds a tiny "return a+b" internal function
// using two FUNC_ARGs (so the builder's constant-folding, exercised
// directly in khir/builder_test.go, never folds the add away before it
// reaches codegen) and asserts that Emit produces a real, disassemblable
// x86-64 function: a standard prologue, a register-register add between
// the two argument registers (RDI, RSI), and a leave/ret epilogue.
func TestEmitSimpleAddFunction(t *testing.T) {
	b := khir.NewProgramBuilder()
	i64 := b.Types().I64()
	fnType := b.Types().Function(i64, []ktype.Type{i64, i64})
	b.CreateFunction("add2", fnType, true)

	entry := b.CreateBlock()
	if err := b.SetCurrentBlock(entry); err != nil {
		t.Fatalf("SetCurrentBlock: %v", err)
	}

	arg0, err := b.FuncArg(0)
	if err != nil {
		t.Fatalf("FuncArg(0): %v", err)
	}
	arg1, err := b.FuncArg(1)
	if err != nil {
		t.Fatalf("FuncArg(1): %v", err)
	}
	sum, err := b.I64Add(arg0, arg1)
	if err != nil {
		t.Fatalf("I64Add: %v", err)
	}
	if sum.IsConstantGlobal() {
		t.Fatalf("expected a real I64_ADD instruction, got a folded constant")
	}
	if err := b.ReturnValue(sum); err != nil {
		t.Fatalf("ReturnValue: %v", err)
	}

	prog, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	img, err := Emit(prog)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	off, ok := img.FuncOffset["add2"]
	if !ok {
		t.Fatalf("no offset recorded for function add2")
	}
	code := img.Code[off:]

	// Prologue: push rbp; mov rbp, rsp.
	wantPrologue := []byte{0x55, 0x48, 0x89, 0xE5}
	if !bytes.HasPrefix(code, wantPrologue) {
		t.Fatalf("prologue: got % X, want prefix % X", code, wantPrologue)
	}

	// The two FUNC_ARGs (ordinals 0 and 1) resolve to RDI and RSI per the
	// System V calling convention (khir/regalloc/calling_convention.go);
	// the add's own result register is whatever the allocator assigned,
	// so rather than hard-code an exact byte-for-byte body we check the
	// epilogue is present and well-formed and that a real ADD (opcode
	// byte 0x01, REX.W-prefixed) occurs somewhere in the body.
	foundAdd := false
	for i := 0; i+2 < len(code); i++ {
		if code[i]&0xF8 == 0x48 && code[i+1] == 0x01 {
			foundAdd = true
			break
		}
	}
	if !foundAdd {
		t.Fatalf("expected a REX.W-prefixed ADD r/m64, r64 instruction in body: % X", code)
	}

	if !bytes.Contains(code, []byte{0xC9, 0xC3}) {
		t.Fatalf("expected a leave;ret epilogue in body: % X", code)
	}
}
