// Package skinner implements kushql's adaptive execution operators —
// SkinnerScanSelect and SkinnerJoin — following
// original_source/execution/{skinner_scan_select,skinner_join}.cc: a
// multi-armed-bandit loop that tries different predicate/join orderings
// across short episodes of the same query and converges toward the
// cheapest ordering, without ever re-deriving results already produced
// (tracked via internal/krt's TupleIdxTable).
package skinner

import "math"

// Arm is one candidate ordering (a permutation of predicate or table
// indices) the bandit can choose between.
type Arm struct {
	Order []int
}

// UCB1 is the classic upper-confidence-bound bandit
// (original_source/execution/bandits/ucb.cc), balancing exploration of
// under-tried arms against exploitation of the arm with the best
// observed average reward.
type UCB1 struct {
	pulls   []int
	rewards []float64
	total   int
}

func NewUCB1(numArms int) *UCB1 {
	return &UCB1{pulls: make([]int, numArms), rewards: make([]float64, numArms)}
}

// Select returns the arm index to try next: any never-pulled arm is
// tried first (round-robin), then the arm maximizing mean reward plus
// the UCB exploration bonus sqrt(2*ln(total)/pulls[i]).
func (u *UCB1) Select() int {
	for i, p := range u.pulls {
		if p == 0 {
			return i
		}
	}
	best, bestScore := 0, math.Inf(-1)
	for i := range u.pulls {
		mean := u.rewards[i] / float64(u.pulls[i])
		bonus := math.Sqrt(2 * math.Log(float64(u.total)) / float64(u.pulls[i]))
		score := mean + bonus
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Update records a reward observation (higher is better — ScanSelect
// feeds in rows rejected per unit of elapsed time and Join feeds in rows
// emitted, plus one, per unit of elapsed time, so cheaper/more-selective
// orderings win out) for the arm that was just pulled.
func (u *UCB1) Update(arm int, reward float64) {
	u.pulls[arm]++
	u.rewards[arm] += reward
	u.total++
}

// BestArm returns the index with the highest mean reward observed so
// far, used once exploration episodes are exhausted to commit to a
// final ordering.
func (u *UCB1) BestArm() int {
	best, bestMean := 0, math.Inf(-1)
	for i, p := range u.pulls {
		if p == 0 {
			continue
		}
		mean := u.rewards[i] / float64(p)
		if mean > bestMean {
			best, bestMean = i, mean
		}
	}
	return best
}

func permutations(n int) [][]int {
	if n <= 0 {
		return [][]int{{}}
	}
	base := make([]int, n)
	for i := range base {
		base[i] = i
	}
	var out [][]int
	var permute func(prefix, rest []int)
	permute = func(prefix, rest []int) {
		if len(rest) == 0 {
			out = append(out, append([]int(nil), prefix...))
			return
		}
		for i, v := range rest {
			next := append(append([]int(nil), rest[:i]...), rest[i+1:]...)
			permute(append(prefix, v), next)
		}
	}
	permute(nil, base)
	return out
}

// candidateOrders caps the explored permutation space the way the
// original bounds its join-order search: full n! enumeration only up to
// a small n, otherwise a fixed sample of orderings (identity, reverse,
// and single adjacent-swaps) stands in for the original's
// budget-limited search over the permutation lattice.
func candidateOrders(n int) [][]int {
	if n <= 4 {
		return permutations(n)
	}
	identity := make([]int, n)
	for i := range identity {
		identity[i] = i
	}
	reverse := make([]int, n)
	for i := range reverse {
		reverse[i] = identity[n-1-i]
	}
	out := [][]int{identity, reverse}
	for i := 0; i+1 < n; i++ {
		swap := append([]int(nil), identity...)
		swap[i], swap[i+1] = swap[i+1], swap[i]
		out = append(out, swap)
	}
	return out
}
