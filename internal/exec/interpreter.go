// Package exec executes compiled khir IR by tree-walking it rather than
// machine-code dispatch, mirroring the teacher's internal/jit package,
// whose ExecuteJITUnsafe always reports it could not produce native
// code and falls back to an interpreter; kushql's internal/codegen can
// emit real x86-64 bytes (independently tested), but query execution
// here always goes through this Interpreter, exercising the IR
// directly rather than the bytes codegen produces.
package exec

import (
	"math"

	"kushql/internal/khir"
	"kushql/internal/kqerr"
)

// Builtin is a named host function the interpreter can CALL into. Every
// argument and the return value are raw 64-bit words: integers in their
// natural encoding, floats as math.Float64bits, booleans as 0/1,
// pointers as Arena offsets (see Memory).
type Builtin func(args []int64) int64

// Registry maps external function names (Function.Name for functions
// with External == true) to their Go implementation, standing in for
// the host addresses original_source's runtime links against.
type Registry map[string]Builtin

// Memory is a flat byte arena standing in for process memory: ALLOCA
// reserves a span, GEP computes byte offsets into it, Load/Store
// encode/decode through it. This is the interpreter's rendering of
// "real" pointers, since there's no native stack frame to point into.
type Memory struct {
	buf []byte
}

func NewMemory(capacityHint int) *Memory {
	return &Memory{buf: make([]byte, 0, capacityHint)}
}

// Alloc reserves n bytes and returns their offset.
func (m *Memory) Alloc(n int) int64 {
	off := len(m.buf)
	m.buf = append(m.buf, make([]byte, n)...)
	return int64(off)
}

func (m *Memory) ensure(off int64, n int) {
	need := int(off) + n
	for len(m.buf) < need {
		m.buf = append(m.buf, 0)
	}
}

func (m *Memory) bytesAt(off int64, n int) []byte {
	m.ensure(off, n)
	return m.buf[off : int(off)+n]
}

// Interpreter walks one khir.Function's instructions, dispatching by
// opcode, following the original's bytecode-interpreter fallback
// structure generalized from a switch-on-opcode loop.
type Interpreter struct {
	prog     *khir.Program
	registry Registry
	mem      *Memory
}

func NewInterpreter(prog *khir.Program, registry Registry, mem *Memory) *Interpreter {
	return &Interpreter{prog: prog, registry: registry, mem: mem}
}

// frame holds one call's working state: per-instruction computed words
// and whether each has been computed yet (set is written as values are
// computed; nothing reads it back).
type frame struct {
	vals []int64
	set  []bool
}

// Run executes fn with the given argument words and returns its
// RETURN_VALUE payload (0 if the function RETURNs void).
func (in *Interpreter) Run(fn *khir.Function, args []int64) (int64, error) {
	if fn.External {
		return 0, kqerr.New(kqerr.Runtime, "exec: cannot interpret external function %s directly", fn.Name)
	}

	fr := &frame{vals: make([]int64, len(fn.Instrs)), set: make([]bool, len(fn.Instrs))}
	var pendingArgs []int64
	block := 0
	prevBlock := -1

	for {
		bb := &fn.Blocks[block]
		nextBlock := -2 // sentinel: "not yet decided by a terminator this block"

		for _, seg := range bb.Segments {
			for i := seg.Start; i < seg.End && nextBlock == -2; i++ {
				instr := fn.Instrs[i]
				switch instr.Op {
				case khir.PHI:
					fr.vals[i] = in.phiIncoming(fn, i, prevBlock, fr)
					fr.set[i] = true
				case khir.PHI_MEMBER:
					fr.vals[i] = in.read(fr, instr.Arg0)
					fr.set[i] = true
				case khir.FUNC_ARG:
					if int(instr.Imm) >= len(args) {
						return 0, kqerr.New(kqerr.Runtime, "exec: function %s missing argument %d", fn.Name, instr.Imm)
					}
					fr.vals[i] = args[instr.Imm]
					fr.set[i] = true
				case khir.CALL_ARG:
					pendingArgs = append(pendingArgs, in.read(fr, instr.Arg0))
				case khir.CALL:
					callee := in.prog.Functions[instr.Imm]
					callArgs := pendingArgs
					pendingArgs = nil
					result, err := in.call(callee, callArgs)
					if err != nil {
						return 0, err
					}
					fr.vals[i] = result
					fr.set[i] = true
				case khir.BR:
					prevBlock = block
					nextBlock = instr.Succ0
				case khir.CONDBR:
					cond := in.read(fr, instr.Arg0)
					prevBlock = block
					if cond != 0 {
						nextBlock = instr.Succ0
					} else {
						nextBlock = instr.Succ1
					}
				case khir.RETURN:
					return 0, nil
				case khir.RETURN_VALUE:
					return in.read(fr, instr.Arg0), nil
				default:
					result, err := in.evalScalar(fr, fn, instr)
					if err != nil {
						return 0, err
					}
					fr.vals[i] = result
					fr.set[i] = true
				}
			}
		}

		if nextBlock == -2 {
			return 0, kqerr.New(kqerr.Runtime, "exec: fell off the end of function %s without a terminator", fn.Name)
		}
		block = nextBlock
	}
}

func (in *Interpreter) call(callee *khir.Function, args []int64) (int64, error) {
	if callee.External {
		fn, ok := in.registry[callee.Name]
		if !ok {
			return 0, kqerr.New(kqerr.Runtime, "exec: no builtin registered for %s", callee.Name)
		}
		return fn(args), nil
	}
	return in.Run(callee, args)
}

// phiIncoming finds the PHI_MEMBER instruction in prevBlock that feeds
// the phi at phiInstrIdx and returns its already-computed value. Phi
// members are always executed (as ordinary instructions in their
// predecessor block) before the branch that leaves that block runs, so
// by the time the successor's PHI instruction is reached, fr.vals
// already holds the member's value.
func (in *Interpreter) phiIncoming(fn *khir.Function, phiInstrIdx int, prevBlock int, fr *frame) int64 {
	if prevBlock < 0 {
		return 0
	}
	pb := &fn.Blocks[prevBlock]
	for _, seg := range pb.Segments {
		for i := seg.Start; i < seg.End; i++ {
			m := fn.Instrs[i]
			if m.Op == khir.PHI_MEMBER && m.PhiBackref == phiInstrIdx {
				return fr.vals[i]
			}
		}
	}
	return 0
}

func (in *Interpreter) read(fr *frame, v khir.Value) int64 {
	if v.IsUndef() {
		return 0
	}
	if v.IsConstantGlobal() {
		return constWord(in.prog.Consts[v.Idx()])
	}
	return fr.vals[v.Idx()]
}

func constWord(c khir.ConstEntry) int64 {
	switch c.Op {
	case khir.F64_CONST:
		return int64(math.Float64bits(c.F64))
	default:
		return c.I64
	}
}
