package proxy

import "kushql/internal/khir"

// If emits cond as a CONDBR and runs thenFn in the taken branch, following
// original_source/compile/proxy/if.{h,cc}. thenFn must leave its block
// unterminated: If appends the branch to the join block itself.
func If(b *khir.ProgramBuilder, cond Bool, thenFn func()) {
	thenBB := b.CreateBlock()
	joinBB := b.CreateBlock()

	must(b.CondBranch(cond.Get(), thenBB, joinBB))

	must(b.SetCurrentBlock(thenBB))
	thenFn()
	must(b.Branch(joinBB))

	must(b.SetCurrentBlock(joinBB))
}

// IfElse is the two-armed form of If.
func IfElse(b *khir.ProgramBuilder, cond Bool, thenFn, elseFn func()) {
	thenBB := b.CreateBlock()
	elseBB := b.CreateBlock()
	joinBB := b.CreateBlock()

	must(b.CondBranch(cond.Get(), thenBB, elseBB))

	must(b.SetCurrentBlock(thenBB))
	thenFn()
	must(b.Branch(joinBB))

	must(b.SetCurrentBlock(elseBB))
	elseFn()
	must(b.Branch(joinBB))

	must(b.SetCurrentBlock(joinBB))
}

// Ternary runs thenFn/elseFn, each producing a single khir.Value, and
// joins them behind a phi of the given type, following the original's
// vector-of-values Ternary generalized here to the common single-value
// case translators actually need.
func Ternary(b *khir.ProgramBuilder, cond Bool, thenFn, elseFn func() khir.Value) khir.Value {
	thenBB := b.CreateBlock()
	elseBB := b.CreateBlock()
	joinBB := b.CreateBlock()

	must(b.CondBranch(cond.Get(), thenBB, elseBB))

	must(b.SetCurrentBlock(thenBB))
	thenVal := thenFn()
	thenMember, err := b.PhiMember(thenVal)
	must(err)
	must(b.Branch(joinBB))

	must(b.SetCurrentBlock(elseBB))
	elseVal := elseFn()
	elseMember, err := b.PhiMember(elseVal)
	must(err)
	must(b.Branch(joinBB))

	must(b.SetCurrentBlock(joinBB))
	phiType, err := b.TypeOf(thenVal)
	must(err)
	phi, err := b.Phi(phiType)
	must(err)
	must(b.UpdatePhi(phi, thenMember))
	must(b.UpdatePhi(phi, elseMember))
	return phi
}

// Loop threads a single loop-carried khir.Value (e.g. a running index or
// accumulator) through a condition/body pair, following
// original_source/compile/proxy/loop.h's phi-based loop construction: a
// phi seeded from the preheader, a conditional exit, and a back-edge that
// feeds the phi the body's updated value.
func Loop(b *khir.ProgramBuilder, init khir.Value, cond func(cur khir.Value) Bool, body func(cur khir.Value) khir.Value) khir.Value {
	headerBB := b.CreateBlock()
	bodyBB := b.CreateBlock()
	exitBB := b.CreateBlock()

	// The preheader's phi-member must be emitted before the preheader
	// itself is terminated by the branch into the header (append refuses
	// writes to an already-terminated block); UpdatePhi can patch it in
	// later once the header's phi exists, since it mutates the member
	// instruction in place rather than re-opening the preheader block.
	preMember, err := b.PhiMember(init)
	must(err)
	must(b.Branch(headerBB))

	must(b.SetCurrentBlock(headerBB))
	phiType, err := b.TypeOf(init)
	must(err)
	phi, err := b.Phi(phiType)
	must(err)
	must(b.UpdatePhi(phi, preMember))

	keepGoing := cond(phi)
	must(b.CondBranch(keepGoing.Get(), bodyBB, exitBB))

	must(b.SetCurrentBlock(bodyBB))
	updated := body(phi)
	bodyMember, err := b.PhiMember(updated)
	must(err)
	must(b.UpdatePhi(phi, bodyMember))
	must(b.Branch(headerBB))

	must(b.SetCurrentBlock(exitBB))
	return phi
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
