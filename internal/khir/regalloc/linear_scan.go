package regalloc

import "sort"

type activeEntry struct {
	idx int // index into intervals/result
	reg int
}

// AssignRegisters runs linear-scan register allocation over intervals,
// returning one Assignment per interval in the same order. It follows
// khir::AssignRegisters: an ascending-start ordering, two active
// multisets (one per register class, since Flag-class intervals never
// compete for a physical register), and a spill-the-longest-remaining-
// interval heuristic when a class runs out of free registers.
func AssignRegisters(intervals []LiveInterval) []Assignment {
	order := make([]int, len(intervals))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return intervals[order[i]].Start < intervals[order[j]].Start
	})

	result := make([]Assignment, len(intervals))
	nextSpillIdx := 0

	var activeGP, activeXMM []activeEntry
	freeGP := freeRegisters(NumGPRegisters)
	freeXMM := freeRegisters(NumXMMRegisters)

	expireOld := func(now int) {
		activeGP = expire(activeGP, intervals, now, &freeGP)
		activeXMM = expire(activeXMM, intervals, now, &freeXMM)
	}

	for _, i := range order {
		iv := intervals[i]
		if iv.Class == Flag {
			result[i] = Assignment{Class: Flag}
			continue
		}
		expireOld(iv.Start)

		active, free := &activeGP, &freeGP
		if iv.Class == XMM {
			active, free = &activeXMM, &freeXMM
		}

		if len(*free) > 0 {
			reg := (*free)[len(*free)-1]
			*free = (*free)[:len(*free)-1]
			*active = append(*active, activeEntry{idx: i, reg: reg})
			result[i] = Assignment{Class: iv.Class, Register: reg}
			continue
		}

		// No free register: find the active interval that ends last. If
		// the new interval ends later still, spill the new interval;
		// otherwise spill that active interval and take its register.
		spillPos := 0
		for k, a := range *active {
			if intervals[a.idx].End > intervals[(*active)[spillPos].idx].End {
				spillPos = k
			}
		}
		if len(*active) == 0 || intervals[(*active)[spillPos].idx].End < iv.End {
			result[i] = Assignment{Class: iv.Class, Spilled: true, SpillIdx: nextSpillIdx}
			nextSpillIdx++
			continue
		}

		victim := (*active)[spillPos]
		spillSlot := nextSpillIdx
		nextSpillIdx++
		result[victim.idx] = Assignment{Class: iv.Class, Spilled: true, SpillIdx: spillSlot}
		result[i] = Assignment{Class: iv.Class, Register: victim.reg}
		(*active)[spillPos] = activeEntry{idx: i, reg: victim.reg}
	}

	return result
}

func freeRegisters(n int) []int {
	regs := make([]int, n)
	for i := range regs {
		regs[i] = n - 1 - i // pop from the back, so register 0 is handed out first
	}
	return regs
}

func expire(active []activeEntry, intervals []LiveInterval, now int, free *[]int) []activeEntry {
	kept := active[:0]
	for _, a := range active {
		if intervals[a.idx].End < now {
			*free = append(*free, a.reg)
		} else {
			kept = append(kept, a)
		}
	}
	return kept
}
