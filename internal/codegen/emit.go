package codegen

import (
	"encoding/binary"
	"fmt"
	"math"

	"kushql/internal/khir"
	"kushql/internal/khir/passes"
	"kushql/internal/khir/regalloc"
	"kushql/internal/ktype"
)

const (
	rbpPhys = 5
	rspPhys = 4
	raxPhys = 0
	xmm0    = 0
)

// Image is the assembled output of Emit: one concatenated byte stream
// holding every internal function's body, plus the offset each starts
// at, following the original's JIT module (one mmap'd code segment per
// program). kushql never maps Code executable or jumps into it — see
// DESIGN.md for why the interpreter in internal/exec, not this package,
// drives actual row execution — but Code is a byte-exact x86-64 program
// all the same, independently checkable instruction by instruction.
type Image struct {
	Code       []byte
	FuncOffset map[string]int
}

type callPatch struct {
	pos    int // offset of the rel32 field within Code
	callee string
}

// Emit assembles every internal (non-external) function in prog into a
// single Image, running regalloc per function and lowering each khir
// instruction to its x86-64 encoding.
func Emit(prog *khir.Program) (*Image, error) {
	img := &Image{FuncOffset: map[string]int{}}
	var callPatches []callPatch

	for _, f := range prog.Functions {
		if f.External {
			continue
		}
		body, patches, err := emitFunction(prog, f)
		if err != nil {
			return nil, fmt.Errorf("codegen: function %q: %w", f.Name, err)
		}
		base := len(img.Code)
		img.FuncOffset[f.Name] = base
		img.Code = append(img.Code, body...)
		for _, p := range patches {
			callPatches = append(callPatches, callPatch{pos: base + p.pos, callee: p.callee})
		}
	}

	for _, p := range callPatches {
		target, ok := img.FuncOffset[p.callee]
		if !ok {
			return nil, fmt.Errorf("codegen: call to undefined internal function %q", p.callee)
		}
		rel := int32(target - (p.pos + 4))
		binary.LittleEndian.PutUint32(img.Code[p.pos:p.pos+4], uint32(rel))
	}
	return img, nil
}

type ctx struct {
	prog      *khir.Program
	f         *khir.Function
	types     *ktype.Manager
	assign    map[int]regalloc.Assignment
	a         *asm
	callNames []callPatch // call patches pending program-level resolution, positions relative to this function's own code buffer
}

// emitFunction lowers one function, returning its machine code and the
// list of (still function-relative) call-patch positions for Emit to
// rebase and resolve once every function's base offset is known.
func emitFunction(prog *khir.Program, f *khir.Function) ([]byte, []callPatch, error) {
	types := prog.Types
	intervals, _ := regalloc.ComputeLiveIntervals(types, f)
	assignments := regalloc.AssignRegisters(intervals)

	assign := make(map[int]regalloc.Assignment, len(intervals))
	maxSpill := -1
	for i, iv := range intervals {
		assign[int(iv.Value.Idx())] = assignments[i]
		if assignments[i].Spilled && assignments[i].SpillIdx > maxSpill {
			maxSpill = assignments[i].SpillIdx
		}
	}
	frameSize := int32(8 * (maxSpill + 1))
	if frameSize%16 != 0 {
		frameSize += 16 - frameSize%16
	}

	c := &ctx{prog: prog, f: f, types: types, assign: assign, a: &asm{}}

	c.a.push64(rbpPhys)
	c.a.movRegReg64(rbpPhys, rspPhys)
	if frameSize > 0 {
		c.a.subRspImm32(frameSize)
	}

	order := passes.BlockOrder(f)
	blockOffset := make(map[int]int, len(order))
	for _, bi := range order {
		blockOffset[bi] = len(c.a.code)
		for _, seg := range f.Blocks[bi].Segments {
			for idx := seg.Start; idx < seg.End; idx++ {
				if err := c.emitInstr(idx); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	for _, p := range c.a.patches {
		target, ok := blockOffset[p.target]
		if !ok {
			return nil, nil, fmt.Errorf("unresolved branch target block %d", p.target)
		}
		rel := int32(target - (p.pos + 4))
		binary.LittleEndian.PutUint32(c.a.code[p.pos:p.pos+4], uint32(rel))
	}

	return c.a.code, c.callNames, nil
}

func (c *ctx) spillDisp(idx int) int32 { return -8 * int32(idx+1) }

// materializeGP loads v's value into the physical GP register dst,
// reloading from its spill slot if necessary. It never leaves a spilled
// value materialized anywhere but dst.
func (c *ctx) materializeGP(v khir.Value, dst int) error {
	if v.IsConstantGlobal() {
		return c.materializeConstGP(v, dst)
	}
	as, ok := c.assign[int(v.Idx())]
	if !ok {
		return fmt.Errorf("value %s has no register assignment", v)
	}
	if as.Spilled {
		c.a.loadMem64(dst, rbpPhys, c.spillDisp(as.SpillIdx))
		return nil
	}
	if phys := PhysicalGP(as); phys != dst {
		c.a.movRegReg64(dst, phys)
	}
	return nil
}

func (c *ctx) materializeConstGP(v khir.Value, dst int) error {
	idx := int(v.Idx())
	if idx >= len(c.prog.Consts) {
		return fmt.Errorf("constant index %d out of range", idx)
	}
	ce := c.prog.Consts[idx]
	switch ce.Op {
	case khir.I1_CONST:
		n := int64(0)
		if ce.I1 {
			n = 1
		}
		c.a.movRegImm64(dst, n)
	case khir.I8_CONST, khir.I16_CONST, khir.I32_CONST, khir.I64_CONST:
		c.a.movRegImm64(dst, ce.I64)
	case khir.PTR_CONST:
		c.a.movRegImm64(dst, ce.I64)
	default:
		return fmt.Errorf("constant kind %v not supported as a GP operand", ce.Op)
	}
	return nil
}

// gpOperand returns a physical register currently holding v's value,
// reloading into scratch if v is spilled (the caller must not also need
// scratch for another spilled operand in the same instruction).
func (c *ctx) gpOperand(v khir.Value, scratch int) (int, error) {
	if v.IsConstantGlobal() {
		if err := c.materializeConstGP(v, scratch); err != nil {
			return 0, err
		}
		return scratch, nil
	}
	as, ok := c.assign[int(v.Idx())]
	if !ok {
		return 0, fmt.Errorf("value %s has no register assignment", v)
	}
	if as.Spilled {
		c.a.loadMem64(scratch, rbpPhys, c.spillDisp(as.SpillIdx))
		return scratch, nil
	}
	return PhysicalGP(as), nil
}

func (c *ctx) storeGPResult(idx int, src int) error {
	as, ok := c.assign[idx]
	if !ok || as.Class == regalloc.Flag {
		return nil
	}
	if as.Spilled {
		c.a.storeMem64(rbpPhys, c.spillDisp(as.SpillIdx), src)
		return nil
	}
	if phys := PhysicalGP(as); phys != src {
		c.a.movRegReg64(phys, src)
	}
	return nil
}

func (c *ctx) materializeXMM(v khir.Value, dst int) error {
	if v.IsConstantGlobal() {
		idx := int(v.Idx())
		if idx >= len(c.prog.Consts) || c.prog.Consts[idx].Op != khir.F64_CONST {
			return fmt.Errorf("constant index %d is not an F64 constant", idx)
		}
		c.a.movRegImm64(scratchGP, int64(floatBits(c.prog.Consts[idx].F64)))
		c.a.emit(0x66, rex(true, 0, 0, scratchGP), 0x0F, 0x6E, modRM(dst, scratchGP)) // movq xmm,gp
		return nil
	}
	as, ok := c.assign[int(v.Idx())]
	if !ok {
		return fmt.Errorf("value %s has no register assignment", v)
	}
	if as.Spilled {
		c.a.loadsd(dst, rbpPhys, c.spillDisp(as.SpillIdx))
		return nil
	}
	if phys := PhysicalXMM(as); phys != dst {
		c.a.movsd(dst, phys)
	}
	return nil
}

func (c *ctx) storeXMMResult(idx int, src int) error {
	as, ok := c.assign[idx]
	if !ok || as.Class == regalloc.Flag {
		return nil
	}
	if as.Spilled {
		c.a.storesd(rbpPhys, c.spillDisp(as.SpillIdx), src)
		return nil
	}
	if phys := PhysicalXMM(as); phys != src {
		c.a.movsd(phys, src)
	}
	return nil
}

func floatBits(f float64) uint64 { return math.Float64bits(f) }

// binaryGP lowers a two-operand integer opcode following x86's
// destructive dst-op-src convention: Arg0 is materialized into a work
// register (the result's own register when unspilled, scratchGP
// otherwise), combined in place with Arg1, then written back.
func (c *ctx) binaryGP(idx int, in khir.Instr, apply func(dst, src int)) error {
	resultAssign := c.assign[idx]
	work := scratchGP
	if !resultAssign.Spilled {
		work = PhysicalGP(resultAssign)
	}
	if err := c.materializeGP(in.Arg0, work); err != nil {
		return err
	}
	srcScratch := scratchGP
	if work == scratchGP {
		// Arg1 must not also need scratch; if it's spilled or a constant,
		// loading it would clobber the just-loaded Arg0, so fail loudly
		// rather than silently corrupt a value.
		if as, ok := c.assign[int(in.Arg1.Idx())]; ok && as.Spilled && !in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d has both a spilled result and a spilled second operand; not supported", idx)
		}
		if in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d has both a spilled result and a constant second operand; not supported", idx)
		}
	}
	src, err := c.gpOperand(in.Arg1, srcScratch)
	if err != nil {
		return err
	}
	apply(work, src)
	return c.storeGPResult(idx, work)
}

// xmmOperand returns a physical xmm register currently holding v's value,
// reloading into scratch only when v is spilled or a constant.
func (c *ctx) xmmOperand(v khir.Value, scratch int) (int, error) {
	if v.IsConstantGlobal() {
		if err := c.materializeXMM(v, scratch); err != nil {
			return 0, err
		}
		return scratch, nil
	}
	as, ok := c.assign[int(v.Idx())]
	if !ok {
		return 0, fmt.Errorf("value %s has no register assignment", v)
	}
	if as.Spilled {
		c.a.loadsd(scratch, rbpPhys, c.spillDisp(as.SpillIdx))
		return scratch, nil
	}
	return PhysicalXMM(as), nil
}

func (c *ctx) binaryXMM(idx int, in khir.Instr, apply func(dst, src int)) error {
	resultAssign := c.assign[idx]
	work := scratchXMM
	if !resultAssign.Spilled {
		work = PhysicalXMM(resultAssign)
	}
	if err := c.materializeXMM(in.Arg0, work); err != nil {
		return err
	}
	if work == scratchXMM {
		if as, ok := c.assign[int(in.Arg1.Idx())]; ok && as.Spilled && !in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d has both a spilled result and a spilled second operand; not supported", idx)
		}
		if in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d has both a spilled result and a constant second operand; not supported", idx)
		}
	}
	src, err := c.xmmOperand(in.Arg1, scratchXMM)
	if err != nil {
		return err
	}
	apply(work, src)
	return c.storeXMMResult(idx, work)
}

func cmpCond(op khir.Opcode) (CondCode, bool) {
	switch op {
	case khir.I64_CMP_EQ, khir.I32_CMP_EQ, khir.I16_CMP_EQ, khir.I8_CMP_EQ:
		return CondE, true
	case khir.I64_CMP_NE, khir.I32_CMP_NE, khir.I16_CMP_NE, khir.I8_CMP_NE:
		return CondNE, true
	case khir.I64_CMP_LT, khir.I32_CMP_LT, khir.I16_CMP_LT, khir.I8_CMP_LT:
		return CondL, true
	case khir.I64_CMP_LE, khir.I32_CMP_LE, khir.I16_CMP_LE, khir.I8_CMP_LE:
		return CondLE, true
	case khir.I64_CMP_GT, khir.I32_CMP_GT, khir.I16_CMP_GT, khir.I8_CMP_GT:
		return CondG, true
	case khir.I64_CMP_GE, khir.I32_CMP_GE, khir.I16_CMP_GE, khir.I8_CMP_GE:
		return CondGE, true
	}
	return 0, false
}

func floatCmpCond(op khir.Opcode) (CondCode, bool) {
	switch op {
	case khir.F64_CMP_EQ:
		return CondE, true
	case khir.F64_CMP_NE:
		return CondNE, true
	case khir.F64_CMP_LT:
		return CondB, true
	case khir.F64_CMP_LE:
		return CondBE, true
	case khir.F64_CMP_GT:
		return CondA, true
	case khir.F64_CMP_GE:
		return CondAE, true
	}
	return 0, false
}

func (c *ctx) emitInstr(idx int) error {
	in := c.f.Instrs[idx]
	switch in.Op {
	case khir.RETURN:
		c.a.leave()
		c.a.ret()

	case khir.RETURN_VALUE:
		if c.types.IsFloat(in.Type) {
			if err := c.materializeXMM(in.Arg0, xmm0); err != nil {
				return err
			}
		} else {
			if err := c.materializeGP(in.Arg0, raxPhys); err != nil {
				return err
			}
		}
		c.a.leave()
		c.a.ret()

	case khir.BR:
		c.a.jmp(in.Succ0)

	case khir.CONDBR:
		if cc, ok := c.flagCond(in.Arg0); ok {
			c.a.jcc(cc, in.Succ0)
			c.a.jmp(in.Succ1)
			return nil
		}
		reg, err := c.gpOperand(in.Arg0, scratchGP)
		if err != nil {
			return err
		}
		c.a.emit(rex(true, 0, 0, reg), 0x83, modRM(7, reg), 0) // cmp reg, 0
		c.a.jcc(CondNE, in.Succ0)
		c.a.jmp(in.Succ1)

	case khir.I64_ADD, khir.I32_ADD, khir.I16_ADD, khir.I8_ADD:
		return c.binaryGP(idx, in, c.a.addRegReg64)
	case khir.I64_SUB, khir.I32_SUB, khir.I16_SUB, khir.I8_SUB:
		return c.binaryGP(idx, in, c.a.subRegReg64)
	case khir.I64_MUL, khir.I32_MUL, khir.I16_MUL, khir.I8_MUL:
		return c.binaryGP(idx, in, c.a.imulRegReg64)
	case khir.I64_AND:
		return c.binaryGP(idx, in, c.a.andRegReg64)
	case khir.I64_OR:
		return c.binaryGP(idx, in, c.a.orRegReg64)
	case khir.I64_XOR:
		return c.binaryGP(idx, in, c.a.xorRegReg64)
	case khir.I64_LSHIFT:
		return c.shiftGP(idx, in, true)
	case khir.I64_RSHIFT:
		return c.shiftGP(idx, in, false)

	case khir.I64_DIV, khir.I32_DIV, khir.I16_DIV, khir.I8_DIV:
		return c.divGP(idx, in)

	case khir.I64_CMP_EQ, khir.I64_CMP_NE, khir.I64_CMP_LT, khir.I64_CMP_LE, khir.I64_CMP_GT, khir.I64_CMP_GE,
		khir.I32_CMP_EQ, khir.I32_CMP_NE, khir.I32_CMP_LT, khir.I32_CMP_LE, khir.I32_CMP_GT, khir.I32_CMP_GE,
		khir.I16_CMP_EQ, khir.I16_CMP_NE, khir.I16_CMP_LT, khir.I16_CMP_LE, khir.I16_CMP_GT, khir.I16_CMP_GE,
		khir.I8_CMP_EQ, khir.I8_CMP_NE, khir.I8_CMP_LT, khir.I8_CMP_LE, khir.I8_CMP_GT, khir.I8_CMP_GE:
		return c.compareGP(idx, in)

	case khir.F64_ADD:
		return c.binaryXMM(idx, in, c.a.addsd)
	case khir.F64_SUB:
		return c.binaryXMM(idx, in, c.a.subsd)
	case khir.F64_MUL:
		return c.binaryXMM(idx, in, c.a.mulsd)
	case khir.F64_DIV:
		return c.binaryXMM(idx, in, c.a.divsd)
	case khir.F64_CMP_EQ, khir.F64_CMP_NE, khir.F64_CMP_LT, khir.F64_CMP_LE, khir.F64_CMP_GT, khir.F64_CMP_GE:
		return c.compareXMM(idx, in)

	case khir.I64_CONV_F64:
		return c.convIntToFloat(idx, in)
	case khir.F64_CONV_I64:
		return c.convFloatToInt(idx, in)

	case khir.I1_ZEXT_I64, khir.I8_ZEXT_I64, khir.I16_ZEXT_I64, khir.I32_ZEXT_I64,
		khir.I64_TRUNC_I32, khir.I64_TRUNC_I16, khir.I64_TRUNC_I8:
		// Values live in full GP registers regardless of logical width (see
		// DESIGN.md), so widen/narrow casts are plain register moves.
		resultAssign := c.assign[idx]
		dst := scratchGP
		if !resultAssign.Spilled {
			dst = PhysicalGP(resultAssign)
		}
		if err := c.materializeGP(in.Arg0, dst); err != nil {
			return err
		}
		return c.storeGPResult(idx, dst)

	case khir.I1_CMP_EQ, khir.I1_CMP_NE:
		return c.compareGP(idx, in)
	case khir.I1_AND:
		return c.binaryGP(idx, in, c.a.andRegReg64)
	case khir.I1_OR:
		return c.binaryGP(idx, in, c.a.orRegReg64)
	case khir.I1_LNOT:
		resultAssign := c.assign[idx]
		dst := scratchGP
		if !resultAssign.Spilled {
			dst = PhysicalGP(resultAssign)
		}
		if err := c.materializeGP(in.Arg0, dst); err != nil {
			return err
		}
		c.a.emit(rex(true, 0, 0, dst), 0x83, modRM(6, dst), 1) // xor reg, 1
		return c.storeGPResult(idx, dst)

	case khir.I1_LOAD, khir.I8_LOAD, khir.I16_LOAD, khir.I32_LOAD, khir.I64_LOAD, khir.PTR_LOAD:
		return c.loadGP(idx, in)
	case khir.I1_STORE, khir.I8_STORE, khir.I16_STORE, khir.I32_STORE, khir.I64_STORE, khir.PTR_STORE:
		return c.storeGPFromOp(in)
	case khir.F64_LOAD:
		return c.loadXMM(idx, in)
	case khir.F64_STORE:
		return c.storeXMMFromOp(in)

	case khir.FUNC_ARG:
		return c.emitFuncArg(idx, in)
	case khir.CALL_ARG:
		return c.emitCallArg(in)
	case khir.CALL:
		return c.emitCall(idx, in)
	case khir.CALL_INDIRECT:
		return c.emitCallIndirect(idx, in)

	default:
		return fmt.Errorf("opcode %v not supported by this backend (see DESIGN.md)", in.Op)
	}
	return nil
}

// flagCond reports the condition code a CONDBR should branch on when its
// own operand is a Flag-class comparison result still sitting in the
// hardware flags register from the instruction that defined it.
func (c *ctx) flagCond(v khir.Value) (CondCode, bool) {
	if v.IsConstantGlobal() {
		return 0, false
	}
	as, ok := c.assign[int(v.Idx())]
	if !ok || as.Class != regalloc.Flag {
		return 0, false
	}
	defIdx := int(v.Idx())
	op := c.f.Instrs[defIdx].Op
	if cc, ok := cmpCond(op); ok {
		return cc, true
	}
	if cc, ok := floatCmpCond(op); ok {
		return cc, true
	}
	return 0, false
}

func (c *ctx) shiftGP(idx int, in khir.Instr, left bool) error {
	resultAssign := c.assign[idx]
	work := scratchGP
	if !resultAssign.Spilled {
		work = PhysicalGP(resultAssign)
	}
	if err := c.materializeGP(in.Arg0, work); err != nil {
		return err
	}
	if !in.Arg1.IsConstantGlobal() {
		return fmt.Errorf("shift by a non-constant amount not supported")
	}
	idx1 := int(in.Arg1.Idx())
	if idx1 >= len(c.prog.Consts) {
		return fmt.Errorf("constant index %d out of range", idx1)
	}
	shift := byte(c.prog.Consts[idx1].I64)
	if left {
		c.a.shlRegImm8(work, shift)
	} else {
		c.a.sarRegImm8(work, shift)
	}
	return c.storeGPResult(idx, work)
}

func (c *ctx) divGP(idx int, in khir.Instr) error {
	// Read the divisor before the dividend clobbers RAX: if Arg1 happens to
	// already live in RAX, copy it to scratch first so materializing Arg0
	// into RAX doesn't destroy it out from under us.
	src, err := c.gpOperand(in.Arg1, scratchGP)
	if err != nil {
		return err
	}
	const rdxPhys = 2
	if src == raxPhys || src == rdxPhys {
		// idiv's RDX:RAX dividend pair is about to be overwritten by
		// materializing Arg0 and sign-extending it; relocate the divisor
		// first if it happens to already live in either register.
		c.a.movRegReg64(scratchGP, src)
		src = scratchGP
	}
	if err := c.materializeGP(in.Arg0, raxPhys); err != nil {
		return err
	}
	c.a.cqo()
	c.a.idivReg64(src)
	return c.storeGPResult(idx, raxPhys)
}

func (c *ctx) compareGP(idx int, in khir.Instr) error {
	lhs, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	if lhs == scratchGP {
		if as, ok := c.assign[int(in.Arg1.Idx())]; ok && as.Spilled && !in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d compares two spilled operands; not supported", idx)
		}
		if in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d compares a spilled operand against a constant; not supported", idx)
		}
	}
	rhs, err := c.gpOperand(in.Arg1, scratchGP)
	if err != nil {
		return err
	}
	c.a.cmpRegReg64(lhs, rhs)

	if as := c.assign[idx]; as.Class == regalloc.Flag {
		return nil // consumed directly by a following CONDBR
	}
	cc, ok := cmpCond(in.Op)
	if !ok {
		return fmt.Errorf("opcode %v has no condition code mapping", in.Op)
	}
	resultAssign := c.assign[idx]
	dst := scratchGP
	if !resultAssign.Spilled {
		dst = PhysicalGP(resultAssign)
	}
	c.a.setcc(cc, dst)
	c.a.movzxReg64(dst, dst, 8)
	return c.storeGPResult(idx, dst)
}

func (c *ctx) compareXMM(idx int, in khir.Instr) error {
	lhs, err := c.xmmOperand(in.Arg0, scratchXMM)
	if err != nil {
		return err
	}
	if lhs == scratchXMM {
		if as, ok := c.assign[int(in.Arg1.Idx())]; ok && as.Spilled && !in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d compares two spilled operands; not supported", idx)
		}
		if in.Arg1.IsConstantGlobal() {
			return fmt.Errorf("instruction at %d compares a spilled operand against a constant; not supported", idx)
		}
	}
	rhs, err := c.xmmOperand(in.Arg1, scratchXMM)
	if err != nil {
		return err
	}
	c.a.comisd(lhs, rhs)

	if as := c.assign[idx]; as.Class == regalloc.Flag {
		return nil
	}
	cc, ok := floatCmpCond(in.Op)
	if !ok {
		return fmt.Errorf("opcode %v has no condition code mapping", in.Op)
	}
	resultAssign := c.assign[idx]
	dst := scratchGP
	if !resultAssign.Spilled {
		dst = PhysicalGP(resultAssign)
	}
	c.a.setcc(cc, dst)
	c.a.movzxReg64(dst, dst, 8)
	return c.storeGPResult(idx, dst)
}

func (c *ctx) convIntToFloat(idx int, in khir.Instr) error {
	src, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	resultAssign := c.assign[idx]
	dst := scratchXMM
	if !resultAssign.Spilled {
		dst = PhysicalXMM(resultAssign)
	}
	c.a.cvtsi2sd(dst, src)
	return c.storeXMMResult(idx, dst)
}

func (c *ctx) convFloatToInt(idx int, in khir.Instr) error {
	if err := c.materializeXMM(in.Arg0, scratchXMM); err != nil {
		return err
	}
	resultAssign := c.assign[idx]
	dst := scratchGP
	if !resultAssign.Spilled {
		dst = PhysicalGP(resultAssign)
	}
	c.a.cvttsd2si(dst, scratchXMM)
	return c.storeGPResult(idx, dst)
}

func (c *ctx) loadGP(idx int, in khir.Instr) error {
	base, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	resultAssign := c.assign[idx]
	dst := scratchGP
	if !resultAssign.Spilled {
		dst = PhysicalGP(resultAssign)
	}
	c.a.loadMem64(dst, base, int32(in.Imm))
	return c.storeGPResult(idx, dst)
}

func (c *ctx) storeGPFromOp(in khir.Instr) error {
	base, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	srcScratch := raxPhys
	if base == raxPhys {
		srcScratch = scratchGP
	}
	src, err := c.gpOperand(in.Arg1, srcScratch)
	if err != nil {
		return err
	}
	c.a.storeMem64(base, int32(in.Imm), src)
	return nil
}

func (c *ctx) loadXMM(idx int, in khir.Instr) error {
	base, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	resultAssign := c.assign[idx]
	dst := scratchXMM
	if !resultAssign.Spilled {
		dst = PhysicalXMM(resultAssign)
	}
	c.a.loadsd(dst, base, int32(in.Imm))
	return c.storeXMMResult(idx, dst)
}

func (c *ctx) storeXMMFromOp(in khir.Instr) error {
	base, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	if err := c.materializeXMM(in.Arg1, scratchXMM); err != nil {
		return err
	}
	c.a.storesd(base, int32(in.Imm), scratchXMM)
	return nil
}

func (c *ctx) emitFuncArg(idx int, in khir.Instr) error {
	class := regalloc.GP
	if c.types.IsFloat(in.Type) {
		class = regalloc.XMM
	}
	reg, ok := regalloc.ArgRegister(class, int(in.Imm))
	if !ok {
		return fmt.Errorf("stack-passed arguments (ordinal %d) not supported", in.Imm)
	}
	if class == regalloc.XMM {
		resultAssign := c.assign[idx]
		dst := scratchXMM
		if !resultAssign.Spilled {
			dst = PhysicalXMM(resultAssign)
		}
		if reg != dst {
			c.a.movsd(dst, reg)
		}
		return c.storeXMMResult(idx, dst)
	}
	resultAssign := c.assign[idx]
	dst := scratchGP
	if !resultAssign.Spilled {
		dst = PhysicalGP(resultAssign)
	}
	if reg != dst {
		c.a.movRegReg64(dst, reg)
	}
	return c.storeGPResult(idx, dst)
}

func (c *ctx) emitCallArg(in khir.Instr) error {
	isFloat := !in.Arg0.IsConstantGlobal() && c.valueIsFloat(in.Arg0)
	class := regalloc.GP
	if isFloat {
		class = regalloc.XMM
	}
	reg, ok := regalloc.ArgRegister(class, int(in.Imm))
	if !ok {
		return fmt.Errorf("more than six call arguments of one class not supported")
	}
	if class == regalloc.XMM {
		return c.materializeXMM(in.Arg0, reg)
	}
	return c.materializeGP(in.Arg0, reg)
}

func (c *ctx) valueIsFloat(v khir.Value) bool {
	if v.IsConstantGlobal() {
		idx := int(v.Idx())
		return idx < len(c.prog.Consts) && c.types.IsFloat(c.prog.Consts[idx].Type)
	}
	idx := int(v.Idx())
	return idx < len(c.f.Instrs) && c.types.IsFloat(c.f.Instrs[idx].Type)
}

func (c *ctx) emitCall(idx int, in khir.Instr) error {
	funcIdx := int(in.Imm)
	if funcIdx < 0 || funcIdx >= len(c.prog.Functions) {
		return fmt.Errorf("call target index %d out of range", funcIdx)
	}
	callee := c.prog.Functions[funcIdx]
	if callee.External {
		c.a.movRegImm64(scratchGP, int64(callee.HostAddr))
		c.a.callIndirect(scratchGP)
	} else {
		// This call's target is another function in the same program, whose
		// offset isn't known until every function has been assembled; emit
		// the opcode and a zero placeholder now, and let Emit's
		// program-level pass rewrite it once function offsets exist.
		c.a.emit(0xE8)
		c.callNames = append(c.callNames, callPatch{pos: len(c.a.code), callee: callee.Name})
		c.a.emitImm32(0)
	}
	return c.storeCallResult(idx, in.Type)
}

func (c *ctx) emitCallIndirect(idx int, in khir.Instr) error {
	reg, err := c.gpOperand(in.Arg0, scratchGP)
	if err != nil {
		return err
	}
	if reg != scratchGP {
		c.a.movRegReg64(scratchGP, reg)
	}
	c.a.callIndirect(scratchGP)
	return c.storeCallResult(idx, in.Type)
}

func (c *ctx) storeCallResult(idx int, retType ktype.Type) error {
	if c.types.Kind(retType) == 0 {
		return nil // void return
	}
	if c.types.IsFloat(retType) {
		return c.storeXMMResult(idx, xmm0)
	}
	return c.storeGPResult(idx, raxPhys)
}
