package passes

import "kushql/internal/khir"

// BlockOrder returns block indices in reverse-postorder from the entry
// block. regalloc walks instructions in this order to compute live
// intervals, matching the original source's linearization of the CFG
// into a single instruction stream for the linear-scan pass.
func BlockOrder(f *khir.Function) []int {
	if len(f.Blocks) == 0 {
		return nil
	}
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
	visit(0)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
