package optimize

import (
	"math"
	"sort"
)

// Individual is one member of the population, tagged with its objectives
// and NSGA-II bookkeeping.
type Individual struct {
	Perm     Permutation
	Obj      Objectives
	Rank     int     // front index, 1 = non-dominated
	Crowding float64 // diversity within the front
}

// nonDominatedSort partitions the population into fronts F1, F2, ... by
// dominance counting. Indices within a front keep their population order so
// the sort is deterministic.
func nonDominatedSort(pop []Individual) [][]int {
	n := len(pop)
	dominatedBy := make([]int, n) // how many dominate i
	dominates := make([][]int, n) // who i dominates
	var first []int

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if pop[i].Obj.Dominates(pop[j].Obj) {
				dominates[i] = append(dominates[i], j)
			} else if pop[j].Obj.Dominates(pop[i].Obj) {
				dominatedBy[i]++
			}
		}
		if dominatedBy[i] == 0 {
			first = append(first, i)
		}
	}

	var fronts [][]int
	cur := first
	for len(cur) > 0 {
		fronts = append(fronts, cur)
		var next []int
		for _, i := range cur {
			for _, j := range dominates[i] {
				dominatedBy[j]--
				if dominatedBy[j] == 0 {
					next = append(next, j)
				}
			}
		}
		cur = next
	}

	for rank, front := range fronts {
		for _, i := range front {
			pop[i].Rank = rank + 1
		}
	}
	return fronts
}

// crowdingDistance assigns the diversity metric within one front: boundary
// individuals per objective get infinite distance, interior ones accumulate
// the normalised gap between their neighbours.
func crowdingDistance(pop []Individual, front []int) {
	for _, i := range front {
		pop[i].Crowding = 0
	}
	if len(front) <= 2 {
		for _, i := range front {
			pop[i].Crowding = math.Inf(1)
		}
		return
	}

	objs := []func(Objectives) float64{
		func(o Objectives) float64 { return o.Cost },
		func(o Objectives) float64 { return o.Risk },
		func(o Objectives) float64 { return o.Delay },
	}
	idx := make([]int, len(front))
	for _, get := range objs {
		copy(idx, front)
		sort.SliceStable(idx, func(a, b int) bool {
			return get(pop[idx[a]].Obj) < get(pop[idx[b]].Obj)
		})
		lo := get(pop[idx[0]].Obj)
		hi := get(pop[idx[len(idx)-1]].Obj)
		pop[idx[0]].Crowding = math.Inf(1)
		pop[idx[len(idx)-1]].Crowding = math.Inf(1)
		if hi == lo {
			continue
		}
		for k := 1; k < len(idx)-1; k++ {
			gap := (get(pop[idx[k+1]].Obj) - get(pop[idx[k-1]].Obj)) / (hi - lo)
			pop[idx[k]].Crowding += gap
		}
	}
}

// selectNext fills the next generation front by front; the last partially
// included front is truncated by descending crowding distance.
func selectNext(pop []Individual, fronts [][]int, size int) []Individual {
	next := make([]Individual, 0, size)
	for _, front := range fronts {
		crowdingDistance(pop, front)
		if len(next)+len(front) <= size {
			for _, i := range front {
				next = append(next, pop[i])
			}
			continue
		}
		rest := append([]int(nil), front...)
		sort.SliceStable(rest, func(a, b int) bool {
			return pop[rest[a]].Crowding > pop[rest[b]].Crowding
		})
		for _, i := range rest[:size-len(next)] {
			next = append(next, pop[i])
		}
		break
	}
	return next
}
