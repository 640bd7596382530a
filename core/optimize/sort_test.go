package optimize

import (
	"math"
	"testing"
)

func obj(c, r, d float64) Objectives { return Objectives{Cost: c, Risk: r, Delay: d} }

func TestDominates(t *testing.T) {
	cases := []struct {
		a, b Objectives
		want bool
	}{
		{obj(1, 1, 1), obj(2, 2, 2), true},
		{obj(1, 2, 1), obj(1, 2, 2), true},  // weakly better, strictly on delay
		{obj(1, 1, 1), obj(1, 1, 1), false}, // equal
		{obj(1, 3, 1), obj(2, 2, 2), false}, // trade-off
	}
	for _, c := range cases {
		if got := c.a.Dominates(c.b); got != c.want {
			t.Fatalf("%v dominates %v = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestNonDominatedSortFronts(t *testing.T) {
	pop := []Individual{
		{Obj: obj(1, 1, 1)}, // F1
		{Obj: obj(2, 2, 2)}, // F2, dominated by 0
		{Obj: obj(1, 2, 0)}, // F1, trade-off with 0
		{Obj: obj(3, 3, 3)}, // F3
	}
	fronts := nonDominatedSort(pop)
	if len(fronts) != 3 {
		t.Fatalf("got %d fronts", len(fronts))
	}
	if pop[0].Rank != 1 || pop[2].Rank != 1 {
		t.Fatalf("front 1 ranks wrong: %d %d", pop[0].Rank, pop[2].Rank)
	}
	if pop[1].Rank != 2 || pop[3].Rank != 3 {
		t.Fatalf("deeper ranks wrong: %d %d", pop[1].Rank, pop[3].Rank)
	}

	// No member of F1 may dominate another.
	for _, i := range fronts[0] {
		for _, j := range fronts[0] {
			if i != j && pop[i].Obj.Dominates(pop[j].Obj) {
				t.Fatalf("front 1 member %d dominates %d", i, j)
			}
		}
	}
}

func TestCrowdingDistance(t *testing.T) {
	pop := []Individual{
		{Obj: obj(1, 4, 0)},
		{Obj: obj(2, 3, 0)},
		{Obj: obj(3, 2, 0)},
		{Obj: obj(4, 1, 0)},
	}
	front := []int{0, 1, 2, 3}
	crowdingDistance(pop, front)

	if !math.IsInf(pop[0].Crowding, 1) || !math.IsInf(pop[3].Crowding, 1) {
		t.Fatalf("boundary individuals must be infinite")
	}
	for _, i := range []int{1, 2} {
		if math.IsInf(pop[i].Crowding, 1) || pop[i].Crowding <= 0 {
			t.Fatalf("interior crowding %v at %d", pop[i].Crowding, i)
		}
	}
}

func TestCrowdingDistanceTinyFront(t *testing.T) {
	pop := []Individual{{Obj: obj(1, 1, 1)}, {Obj: obj(2, 0, 1)}}
	crowdingDistance(pop, []int{0, 1})
	if !math.IsInf(pop[0].Crowding, 1) || !math.IsInf(pop[1].Crowding, 1) {
		t.Fatalf("fronts of two keep everyone")
	}
}

func TestRankPopulation(t *testing.T) {
	pop := []Individual{
		{Obj: obj(1, 1, 1)},
		{Obj: obj(2, 2, 2)}, // dominated
		{Obj: obj(0, 2, 1)}, // trade-off with 0
	}
	rankPopulation(pop)
	if pop[0].Rank != 1 || pop[2].Rank != 1 || pop[1].Rank != 2 {
		t.Fatalf("ranks %d %d %d", pop[0].Rank, pop[1].Rank, pop[2].Rank)
	}
	// Crowding is set too, so the very first tournament has selection
	// pressure on fresh populations.
	for i := range pop {
		if pop[i].Crowding == 0 {
			t.Fatalf("crowding unset at %d", i)
		}
	}
}

func TestSelectNextTruncatesByCrowding(t *testing.T) {
	// One front of five, room for three: the two boundary points survive and
	// the most crowded interior point is dropped.
	pop := []Individual{
		{Obj: obj(0, 10, 0)},
		{Obj: obj(1, 9, 0)},     // tight gap
		{Obj: obj(1.1, 8.9, 0)}, // tightest gap
		{Obj: obj(5, 5, 0)},
		{Obj: obj(10, 0, 0)},
	}
	fronts := nonDominatedSort(pop)
	if len(fronts) != 1 {
		t.Fatalf("expected one front, got %d", len(fronts))
	}
	next := selectNext(pop, fronts, 3)
	if len(next) != 3 {
		t.Fatalf("selected %d", len(next))
	}
	seenBoundary := 0
	for _, ind := range next {
		if math.IsInf(ind.Crowding, 1) {
			seenBoundary++
		}
	}
	if seenBoundary < 2 {
		t.Fatalf("boundary points lost: %+v", next)
	}
}

func TestSelectNextWholeFrontsFirst(t *testing.T) {
	pop := []Individual{
		{Obj: obj(1, 1, 1)},
		{Obj: obj(2, 2, 2)},
		{Obj: obj(3, 3, 3)},
	}
	fronts := nonDominatedSort(pop)
	next := selectNext(pop, fronts, 2)
	if len(next) != 2 {
		t.Fatalf("selected %d", len(next))
	}
	if next[0].Rank != 1 || next[1].Rank != 2 {
		t.Fatalf("front order broken: ranks %d %d", next[0].Rank, next[1].Rank)
	}
}

func TestRecommendScalarization(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	front := []Individual{
		{Obj: obj(0, 1, 1)}, // cheapest, worst elsewhere
		{Obj: obj(1, 0, 0)}, // best risk and delay
		{Obj: obj(0.5, 0.5, 0.5)},
	}
	// Risk carries the largest weight, so the risk-free member wins:
	// 0.35*1 + 0 + 0 beats 0 + 0.45 + 0.20 and the midpoint.
	if got := recommend(front, cfg); got != 1 {
		t.Fatalf("recommended %d", got)
	}
	if got := recommend(nil, cfg); got != 0 {
		t.Fatalf("empty front should yield 0")
	}
}
