package khir

import "fmt"

// VerifyTerminators checks testable property 2: every basic block is
// terminated by exactly one terminator, at the end of its last segment.
func VerifyTerminators(f *Function) error {
	for bi, bb := range f.Blocks {
		last := bb.LastInstrIdx()
		if last < 0 {
			return fmt.Errorf("khir: block %d has no instructions", bi)
		}
		if !f.Instrs[last].Op.IsTerminator() {
			return fmt.Errorf("khir: block %d does not end in a terminator", bi)
		}
		for _, seg := range bb.Segments {
			for i := seg.Start; i < seg.End-1; i++ {
				if f.Instrs[i].Op.IsTerminator() && i != last {
					return fmt.Errorf("khir: block %d has a terminator before its end (instr %d)", bi, i)
				}
			}
		}
	}
	return nil
}

// VerifyPhis checks testable property 3: a PHI's incoming PHI_MEMBER blocks
// exactly match the block's predecessor set.
func VerifyPhis(f *Function) error {
	for bi := range f.Blocks {
		bb := &f.Blocks[bi]
		for _, seg := range bb.Segments {
			for i := seg.Start; i < seg.End; i++ {
				if f.Instrs[i].Op != PHI {
					continue
				}
				phi := instrValue(uint32(i))
				members := make(map[int]bool)
				for bj := range f.Blocks {
					for _, s2 := range f.Blocks[bj].Segments {
						for k := s2.Start; k < s2.End; k++ {
							m := f.Instrs[k]
							if m.Op == PHI_MEMBER && m.PhiBackref == int(phi.Idx()) {
								members[bj] = true
							}
						}
					}
				}
				preds := make(map[int]bool)
				for _, p := range bb.Pred {
					preds[p] = true
				}
				if len(members) != len(preds) {
					return fmt.Errorf("khir: phi %d member block set != predecessor set", i)
				}
				for p := range preds {
					if !members[p] {
						return fmt.Errorf("khir: phi %d missing member from predecessor block %d", i, p)
					}
				}
			}
		}
	}
	return nil
}

// dominators computes, for each reachable block, its immediate dominator
// via the standard iterative reverse-postorder dataflow algorithm.
func dominators(f *Function) map[int]int {
	order := reversePostorder(f)
	idom := make(map[int]int)
	if len(order) == 0 {
		return idom
	}
	entry := order[0]
	idom[entry] = entry

	rpoIndex := make(map[int]int, len(order))
	for i, b := range order {
		rpoIndex[b] = i
	}

	changed := true
	for changed {
		changed = false
		for _, b := range order[1:] {
			var newIdom int = -1
			for _, p := range f.Blocks[b].Pred {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, rpoIndex, newIdom, p)
			}
			if cur, ok := idom[b]; newIdom != -1 && (!ok || cur != newIdom) {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(idom map[int]int, rpo map[int]int, a, b int) int {
	for a != b {
		for rpo[a] > rpo[b] {
			a = idom[a]
		}
		for rpo[b] > rpo[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(f *Function) []int {
	visited := make([]bool, len(f.Blocks))
	var post []int
	var visit func(int)
	visit = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range f.Blocks[b].Succ {
			visit(s)
		}
		post = append(post, b)
	}
	if len(f.Blocks) > 0 {
		visit(0)
	}
	// reverse
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

func dominates(idom map[int]int, a, b int) bool {
	if a == b {
		return true
	}
	for {
		next, ok := idom[b]
		if !ok {
			return false
		}
		if next == b {
			return a == b
		}
		if next == a {
			return true
		}
		b = next
	}
}

// VerifyDominance checks testable property 1: every use of a non-constant
// value is dominated by its def. Phi operands are checked against their
// incoming edge's predecessor block rather than the phi's own block.
func VerifyDominance(f *Function) error {
	idom := dominators(f)

	defBlock := make(map[uint32]int)
	for bi := range f.Blocks {
		for _, seg := range f.Blocks[bi].Segments {
			for i := seg.Start; i < seg.End; i++ {
				defBlock[uint32(i)] = bi
			}
		}
	}

	checkUse := func(useBlock int, v Value) error {
		if v.IsUndef() || v.IsConstantGlobal() {
			return nil
		}
		db, ok := defBlock[v.Idx()]
		if !ok {
			return fmt.Errorf("khir: use of unknown value v%d", v.Idx())
		}
		if db == useBlock {
			return nil // same-block defs are checked by construction order
		}
		if !dominates(idom, db, useBlock) {
			return fmt.Errorf("khir: def of v%d (block %d) does not dominate use in block %d", v.Idx(), db, useBlock)
		}
		return nil
	}

	for bi := range f.Blocks {
		for _, seg := range f.Blocks[bi].Segments {
			for i := seg.Start; i < seg.End; i++ {
				in := f.Instrs[i]
				if in.Op == PHI_MEMBER {
					// Arg0 must be dominated by the predecessor block this
					// member is attached to, i.e. bi itself.
					if err := checkUse(bi, in.Arg0); err != nil {
						return err
					}
					continue
				}
				if err := checkUse(bi, in.Arg0); err != nil {
					return err
				}
				if in.Op != PHI {
					if err := checkUse(bi, in.Arg1); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
