package khir

import (
	"fmt"

	"kushql/internal/ktype"
)

// ProgramBuilder multiplexes construction of every function in a program.
// It owns the mutable instruction/basic-block vectors for whichever
// function is currently being built; Build() consumes it and yields an
// immutable Program. Functions are append-only.
type ProgramBuilder struct {
	types *ktype.Manager

	funcs   []*Function
	byName  map[string]int
	curFunc int // index into funcs, -1 if none active
	curBB   int // index into funcs[curFunc].Blocks

	consts     []ConstEntry
	scalarDedup map[scalarKey]Value
}

type scalarKey struct {
	op  ConstOpcode
	i64 int64
	f64 float64
}

// NewProgramBuilder creates an empty builder against a fresh type manager.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{
		types:       ktype.NewManager(),
		byName:      make(map[string]int),
		curFunc:     -1,
		curBB:       -1,
		scalarDedup: make(map[scalarKey]Value),
	}
}

func (b *ProgramBuilder) Types() *ktype.Manager { return b.types }

// DeclareExternalFunction registers a host function by name/type/address.
func (b *ProgramBuilder) DeclareExternalFunction(name string, fnType ktype.Type, addr uintptr) {
	f := &Function{Name: name, Type: fnType, External: true, HostAddr: addr}
	b.funcs = append(b.funcs, f)
	b.byName[name] = len(b.funcs) - 1
}

// CreateFunction appends a new internal function and makes it current.
func (b *ProgramBuilder) CreateFunction(name string, fnType ktype.Type, public bool) int {
	f := &Function{Name: name, Type: fnType, Public: public}
	b.funcs = append(b.funcs, f)
	idx := len(b.funcs) - 1
	b.byName[name] = idx
	b.curFunc = idx
	b.curBB = -1
	return idx
}

// SetFunction switches the insertion point to a previously created function.
func (b *ProgramBuilder) SetFunction(idx int) { b.curFunc = idx; b.curBB = -1 }

func (b *ProgramBuilder) FuncIdxByName(name string) (int, bool) {
	idx, ok := b.byName[name]
	return idx, ok
}

func (b *ProgramBuilder) fn() *Function { return b.funcs[b.curFunc] }

func (b *ProgramBuilder) curBlock() *BasicBlock { return &b.fn().Blocks[b.curBB] }

func (b *ProgramBuilder) blockTerminated(bi int) bool {
	f := b.fn()
	last := f.Blocks[bi].LastInstrIdx()
	if last < 0 {
		return false
	}
	return f.Instrs[last].Op.IsTerminator()
}

// CreateBlock appends a new, empty basic block to the current function and
// returns its index.
func (b *ProgramBuilder) CreateBlock() int {
	f := b.fn()
	f.Blocks = append(f.Blocks, BasicBlock{})
	return len(f.Blocks) - 1
}

// SetCurrentBlock switches the insertion point. Switching away from a
// non-terminated, non-empty block is a construction error.
func (b *ProgramBuilder) SetCurrentBlock(bi int) error {
	if b.curBB >= 0 && b.fn().Blocks[b.curBB].LastInstrIdx() >= 0 && !b.blockTerminated(b.curBB) {
		return fmt.Errorf("khir: switched away from non-terminated block %d", b.curBB)
	}
	b.curBB = bi
	return nil
}

func (b *ProgramBuilder) CurrentBlock() int { return b.curBB }

// append writes instr to the current block, opening a new segment on first
// use, and returns the Value naming it.
func (b *ProgramBuilder) append(instr Instr) (Value, error) {
	f := b.fn()
	if b.curBB < 0 {
		return Value{}, fmt.Errorf("khir: append with no current block")
	}
	if b.blockTerminated(b.curBB) {
		return Value{}, fmt.Errorf("khir: append to terminated block %d", b.curBB)
	}

	idx := len(f.Instrs)
	f.Instrs = append(f.Instrs, instr)

	bb := &f.Blocks[b.curBB]
	if n := len(bb.Segments); n > 0 && bb.Segments[n-1].End == idx {
		bb.Segments[n-1].End = idx + 1
	} else {
		bb.Segments = append(bb.Segments, Segment{Start: idx, End: idx + 1})
	}

	if instr.Op.IsTerminator() {
		b.linkEdges(b.curBB, instr)
	}

	return instrValue(uint32(idx)), nil
}

func (b *ProgramBuilder) linkEdges(bi int, term Instr) {
	f := b.fn()
	bb := &f.Blocks[bi]
	addEdge := func(succ int) {
		bb.Succ = append(bb.Succ, succ)
		f.Blocks[succ].Pred = append(f.Blocks[succ].Pred, bi)
	}
	switch term.Op {
	case BR:
		addEdge(term.Succ0)
	case CONDBR:
		addEdge(term.Succ0)
		addEdge(term.Succ1)
	}
}

func (b *ProgramBuilder) instrAt(v Value) *Instr {
	return &b.fn().Instrs[v.Idx()]
}

// ---- control flow ----

func (b *ProgramBuilder) Branch(target int) error {
	_, err := b.append(Instr{Op: BR, Succ0: target, Succ1: -1})
	return err
}

func (b *ProgramBuilder) CondBranch(cond Value, thenBB, elseBB int) error {
	_, err := b.append(Instr{Op: CONDBR, Arg0: cond, Succ0: thenBB, Succ1: elseBB})
	return err
}

func (b *ProgramBuilder) Return() error {
	_, err := b.append(Instr{Op: RETURN, Succ0: -1, Succ1: -1})
	return err
}

func (b *ProgramBuilder) ReturnValue(v Value) error {
	_, err := b.append(Instr{Op: RETURN_VALUE, Arg0: v, Succ0: -1, Succ1: -1})
	return err
}

// ---- phis ----

// Phi creates a phi instruction of type t at the current block's head. Phis
// must be emitted before any non-phi instruction in the block.
func (b *ProgramBuilder) Phi(t ktype.Type) (Value, error) {
	return b.append(Instr{Op: PHI, Type: t, Succ0: -1, Succ1: -1})
}

// PhiMember emits, in the current (predecessor) block, the value that flows
// into a phi along this edge.
func (b *ProgramBuilder) PhiMember(v Value) (Value, error) {
	return b.append(Instr{Op: PHI_MEMBER, Arg0: v, Succ0: -1, Succ1: -1})
}

// UpdatePhi back-patches phi to include member as one of its incoming
// values (the two-instruction phi/phi-member pattern described in §4.2).
func (b *ProgramBuilder) UpdatePhi(phi, member Value) error {
	if phi.IsUndef() || member.IsUndef() {
		return fmt.Errorf("khir: UpdatePhi on undef value")
	}
	m := b.instrAt(member)
	m.PhiBackref = int(phi.Idx())
	m.Arg1 = phi
	return nil
}

// PhiIncoming returns the predecessor block index and fed-in value for each
// PHI_MEMBER instruction that backrefs the given phi.
func (b *ProgramBuilder) PhiIncoming(fn *Function, phi Value) map[int]Value {
	out := make(map[int]Value)
	for bi := range fn.Blocks {
		bb := &fn.Blocks[bi]
		for _, seg := range bb.Segments {
			for i := seg.Start; i < seg.End; i++ {
				in := fn.Instrs[i]
				if in.Op == PHI_MEMBER && in.PhiBackref == int(phi.Idx()) {
					out[bi] = in.Arg0
				}
			}
		}
	}
	return out
}

// ---- memory ----

func (b *ProgramBuilder) Alloca(t ktype.Type) (Value, error) {
	return b.append(Instr{Op: ALLOCA, Type: b.types.Pointer(t), Succ0: -1, Succ1: -1})
}

var loadOpByKind = map[ktype.Kind]Opcode{
	ktype.KindI1: I1_LOAD, ktype.KindI8: I8_LOAD, ktype.KindI16: I16_LOAD,
	ktype.KindI32: I32_LOAD, ktype.KindI64: I64_LOAD, ktype.KindF64: F64_LOAD,
	ktype.KindPointer: PTR_LOAD,
}

var storeOpByKind = map[ktype.Kind]Opcode{
	ktype.KindI1: I1_STORE, ktype.KindI8: I8_STORE, ktype.KindI16: I16_STORE,
	ktype.KindI32: I32_STORE, ktype.KindI64: I64_STORE, ktype.KindF64: F64_STORE,
	ktype.KindPointer: PTR_STORE,
}

func (b *ProgramBuilder) Load(ptr Value) (Value, error) {
	pt, err := b.TypeOf(ptr)
	if err != nil {
		return Value{}, err
	}
	if !b.types.IsPointer(pt) {
		return Value{}, fmt.Errorf("khir: Load of non-pointer")
	}
	elem := b.types.PointeeType(pt)
	op, ok := loadOpByKind[b.types.Kind(elem)]
	if !ok {
		return Value{}, fmt.Errorf("khir: unsupported Load element kind")
	}
	return b.append(Instr{Op: op, Arg0: ptr, Type: elem, Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) Store(ptr, v Value) error {
	pt, err := b.TypeOf(ptr)
	if err != nil {
		return err
	}
	elem := b.types.PointeeType(pt)
	op, ok := storeOpByKind[b.types.Kind(elem)]
	if !ok {
		return fmt.Errorf("khir: unsupported Store element kind")
	}
	_, err = b.append(Instr{Op: op, Arg0: ptr, Arg1: v, Succ0: -1, Succ1: -1})
	return err
}

// ---- calls ----

// Call emits the argument sequence (CALL_ARG per §4.2) followed by CALL.
func (b *ProgramBuilder) Call(funcIdx int, args []Value) (Value, error) {
	callee := b.funcs[funcIdx]
	retType := b.types.FunctionReturnType(callee.Type)
	for i, a := range args {
		if _, err := b.append(Instr{Op: CALL_ARG, Arg0: a, Imm: int64(i), Succ0: -1, Succ1: -1}); err != nil {
			return Value{}, err
		}
	}
	return b.append(Instr{Op: CALL, Type: retType, Imm: int64(funcIdx), Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) CallIndirect(fnPtr Value, fnType ktype.Type, args []Value) (Value, error) {
	retType := b.types.FunctionReturnType(fnType)
	for i, a := range args {
		if _, err := b.append(Instr{Op: CALL_ARG, Arg0: a, Imm: int64(i), Succ0: -1, Succ1: -1}); err != nil {
			return Value{}, err
		}
	}
	return b.append(Instr{Op: CALL_INDIRECT, Type: retType, Arg0: fnPtr, Succ0: -1, Succ1: -1})
}

// FuncArg references the i-th formal parameter inside an internal function
// body — emitted once per parameter at function entry.
func (b *ProgramBuilder) FuncArg(i int) (Value, error) {
	params := b.types.FunctionParamTypes(b.fn().Type)
	return b.append(Instr{Op: FUNC_ARG, Type: params[i], Imm: int64(i), Succ0: -1, Succ1: -1})
}

// ---- pointer casts ----

// PtrCast yields a constant if its operand is already a constant pointer.
func (b *ProgramBuilder) PtrCast(v Value, to ktype.Type) (Value, error) {
	if v.IsConstantGlobal() {
		return b.internConst(ConstEntry{Op: PTR_CAST_CONST, Type: to, CastOf: v}), nil
	}
	return b.append(Instr{Op: PTR_CAST, Arg0: v, Type: to, Succ0: -1, Succ1: -1})
}

func (b *ProgramBuilder) PtrCmpNullptr(v Value) (Value, error) {
	return b.append(Instr{Op: PTR_CMP_NULLPTR, Arg0: v, Type: b.types.I1(), Succ0: -1, Succ1: -1})
}

// PtrMaterialize forces a lazy GEP chain down to a concrete pointer value,
// used when an instruction would otherwise hold more than one pending GEP
// operand (see passes.MaterializeGEP).
func (b *ProgramBuilder) PtrMaterialize(v Value) (Value, error) {
	t, err := b.TypeOf(v)
	if err != nil {
		return Value{}, err
	}
	return b.append(Instr{Op: PTR_MATERIALIZE, Arg0: v, Type: t, Succ0: -1, Succ1: -1})
}

// ---- GEP ----

// ConstGEP walks indices statically via the type manager and emits the
// paired GEP_STATIC_OFFSET/GEP_STATIC instructions.
func (b *ProgramBuilder) ConstGEP(base Value, baseType ktype.Type, indices []int) (Value, error) {
	offset, resultElem, err := b.types.PointerOffset(baseType, indices)
	if err != nil {
		return Value{}, err
	}
	resultType := b.types.Pointer(resultElem)
	offsetV, err := b.append(Instr{Op: GEP_STATIC_OFFSET, Imm: int64(offset), Type: resultType, Succ0: -1, Succ1: -1})
	if err != nil {
		return Value{}, err
	}
	return b.append(Instr{Op: GEP_STATIC, Arg0: base, Arg1: offsetV, Type: resultType, Succ0: -1, Succ1: -1})
}

// DynamicGEP computes a single runtime index (e.g. array subscript) scaled
// by the element size, emitting GEP_DYNAMIC_OFFSET/GEP_DYNAMIC.
func (b *ProgramBuilder) DynamicGEP(base Value, elemType ktype.Type, index Value) (Value, error) {
	elemSize := b.types.Size(elemType)
	resultType := b.types.Pointer(elemType)
	offsetV, err := b.append(Instr{Op: GEP_DYNAMIC_OFFSET, Arg0: index, Imm: int64(elemSize), Type: resultType, Succ0: -1, Succ1: -1})
	if err != nil {
		return Value{}, err
	}
	return b.append(Instr{Op: GEP_DYNAMIC, Arg0: base, Arg1: offsetV, Type: resultType, Succ0: -1, Succ1: -1})
}

// isLazyGEP reports whether v's defining instruction is a GEP result that
// the backend may later fold into an addressing mode.
func (b *ProgramBuilder) isLazyGEP(v Value) bool {
	if v.IsConstantGlobal() || v.IsUndef() {
		return false
	}
	op := b.instrAt(v).Op
	return op == GEP_STATIC || op == GEP_DYNAMIC
}

// Build consumes the builder and yields an immutable Program.
func (b *ProgramBuilder) Build() (*Program, error) {
	return &Program{Types: b.types, Functions: b.funcs, Consts: b.consts}, nil
}
