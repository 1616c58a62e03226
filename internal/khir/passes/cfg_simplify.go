// Package passes implements the pre-allocation IR analyses and
// transformations: CFG simplification, GEP materialization, and
// live-interval computation (the latter lives in regalloc, which consumes
// this package's BlockOrder).
package passes

import "kushql/internal/khir"

// CFGSimplify runs the single pre-allocation pass described in spec §4.10:
// it deletes blocks unreachable from the entry, then repeatedly merges any
// (A -> B) edge where A has exactly one successor and B has exactly one
// predecessor, aliasing B's phis to their unique incoming value. It is
// idempotent (testable property 12): a second run over its own output is a
// no-op because no more such edges remain (testable property 5).
func CFGSimplify(f *khir.Function) {
	removeUnreachable(f)
	for mergeOnePair(f) {
	}
	renumberBlocks(f)
}

func removeUnreachable(f *khir.Function) {
	if len(f.Blocks) == 0 {
		return
	}
	reachable := make([]bool, len(f.Blocks))
	queue := []int{0}
	reachable[0] = true
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, s := range f.Blocks[b].Succ {
			if !reachable[s] {
				reachable[s] = true
				queue = append(queue, s)
			}
		}
	}
	keep := make([]int, 0, len(f.Blocks))
	remap := make(map[int]int)
	for i := range f.Blocks {
		if !reachable[i] {
			continue
		}
		remap[i] = len(keep)
		keep = append(keep, i)
	}
	newBlocks := make([]khir.BasicBlock, len(keep))
	for newIdx, oldIdx := range keep {
		bb := f.Blocks[oldIdx]
		bb.Succ = remapList(bb.Succ, remap)
		bb.Pred = remapList(bb.Pred, remap)
		newBlocks[newIdx] = bb
	}
	f.Blocks = newBlocks
	retargetTerminators(f, remap)
}

func remapList(xs []int, remap map[int]int) []int {
	out := make([]int, 0, len(xs))
	for _, x := range xs {
		if nx, ok := remap[x]; ok {
			out = append(out, nx)
		}
	}
	return out
}

func retargetTerminators(f *khir.Function, remap map[int]int) {
	for bi := range f.Blocks {
		last := f.Blocks[bi].LastInstrIdx()
		if last < 0 {
			continue
		}
		in := &f.Instrs[last]
		if nx, ok := remap[in.Succ0]; ok {
			in.Succ0 = nx
		}
		if nx, ok := remap[in.Succ1]; ok {
			in.Succ1 = nx
		}
	}
}

// mergeOnePair finds and merges a single (A -> B) pair with |succ(A)| ==
// |pred(B)| == 1, returning true if it did so (the caller loops until none
// remain).
func mergeOnePair(f *khir.Function) bool {
	for a := range f.Blocks {
		succ := f.Blocks[a].Succ
		if len(succ) != 1 {
			continue
		}
		b := succ[0]
		if a == b {
			continue
		}
		if len(f.Blocks[b].Pred) != 1 {
			continue
		}
		mergeBlocks(f, a, b)
		return true
	}
	return false
}

func mergeBlocks(f *khir.Function, a, b int) {
	// Alias B's phis to their unique incoming member from A, rewriting all
	// uses of the phi throughout the function.
	for _, seg := range f.Blocks[b].Segments {
		for i := seg.Start; i < seg.End; i++ {
			if f.Instrs[i].Op != khir.PHI {
				continue
			}
			phiVal := i
			member := findSolePhiMember(f, phiVal)
			rewriteUses(f, uint32(phiVal), member)
		}
	}

	// Drop A's terminator (the BR into B) by shrinking its last segment.
	aBB := &f.Blocks[a]
	lastSeg := len(aBB.Segments) - 1
	aBB.Segments[lastSeg].End--
	if aBB.Segments[lastSeg].Start == aBB.Segments[lastSeg].End {
		aBB.Segments = aBB.Segments[:lastSeg]
	}

	// Concatenate B's segments (skipping its phis, now dead) onto A.
	for _, seg := range f.Blocks[b].Segments {
		start := seg.Start
		for start < seg.End && f.Instrs[start].Op == khir.PHI {
			start++
		}
		if start < seg.End {
			aBB.Segments = append(aBB.Segments, khir.Segment{Start: start, End: seg.End})
		}
	}

	aBB.Succ = f.Blocks[b].Succ
	for _, s := range aBB.Succ {
		preds := f.Blocks[s].Pred
		for i, p := range preds {
			if p == b {
				preds[i] = a
			}
		}
		f.Blocks[s].Pred = dedupInts(preds)
	}

	f.Blocks[b] = khir.BasicBlock{} // orphaned; removeUnreachable below drops it
	removeUnreachable(f)
}

func dedupInts(xs []int) []int {
	seen := make(map[int]bool)
	out := xs[:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func findSolePhiMember(f *khir.Function, phiIdx int) khir.Value {
	for bi := range f.Blocks {
		for _, seg := range f.Blocks[bi].Segments {
			for i := seg.Start; i < seg.End; i++ {
				in := f.Instrs[i]
				if in.Op == khir.PHI_MEMBER && in.PhiBackref == phiIdx {
					return in.Arg0
				}
			}
		}
	}
	return khir.Undef
}

// rewriteUses replaces every operand reference to instruction index oldIdx
// with replacement, following alias chains so repeated merges converge.
func rewriteUses(f *khir.Function, oldIdx uint32, replacement khir.Value) {
	resolve := func(v khir.Value) khir.Value {
		if v.IsUndef() || v.IsConstantGlobal() || v.Idx() != oldIdx {
			return v
		}
		return replacement
	}
	for i := range f.Instrs {
		f.Instrs[i].Arg0 = resolve(f.Instrs[i].Arg0)
		if f.Instrs[i].Op != khir.PHI {
			f.Instrs[i].Arg1 = resolve(f.Instrs[i].Arg1)
		}
	}
}

// renumberBlocks compacts block indices to be contiguous, dropping any
// emptied-out (orphan) blocks left behind by mergeBlocks.
func renumberBlocks(f *khir.Function) {
	remap := make(map[int]int)
	var kept []khir.BasicBlock
	for i, bb := range f.Blocks {
		if len(bb.Segments) == 0 && len(bb.Succ) == 0 && len(bb.Pred) == 0 && i != 0 {
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, bb)
	}
	for i := range kept {
		kept[i].Succ = remapList(kept[i].Succ, remap)
		kept[i].Pred = remapList(kept[i].Pred, remap)
	}
	f.Blocks = kept
	retargetTerminators(f, remap)
}
