// Package optimize searches execution orders with an NSGA-II evolutionary
// loop, ranking candidate schedules by Pareto dominance over cost, risk and
// delay and preserving diversity through crowding distance.
package optimize

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yw35561-wq/Mic-Scheduler/core/logger"
)

// Config holds the evolutionary parameters.
type Config struct {
	PopulationSize int     `json:"population_size"`
	Generations    int     `json:"generations"`
	CrossoverProb  float64 `json:"crossover_prob"`
	// MutationProb defaults to 1/n over n clusters when zero.
	MutationProb float64 `json:"mutation_prob"`
	// StableWindow stops early once the front's objective set is unchanged
	// for this many consecutive generations. Zero disables early stop.
	StableWindow int `json:"stable_window"`
	// Workers bounds the parallel fitness evaluation pool; zero means one
	// worker per CPU. Parallelism never changes results: decoding is pure
	// and objective values are written by individual index.
	Workers int   `json:"workers"`
	Seed    int64 `json:"seed"`
	// Scalarization weights for the recommended pick.
	CostWeight  float64 `json:"cost_weight"`
	RiskWeight  float64 `json:"risk_weight"`
	DelayWeight float64 `json:"delay_weight"`
}

// SetDefaults applies the standard parameters.
func (c *Config) SetDefaults() {
	if c.PopulationSize == 0 {
		c.PopulationSize = 50
	}
	if c.Generations == 0 {
		c.Generations = 100
	}
	if c.CrossoverProb == 0 {
		c.CrossoverProb = 0.9
	}
	if c.StableWindow == 0 {
		c.StableWindow = 10
	}
	if c.CostWeight == 0 && c.RiskWeight == 0 && c.DelayWeight == 0 {
		c.CostWeight, c.RiskWeight, c.DelayWeight = 0.35, 0.45, 0.20
	}
}

// Validate checks parameter sanity.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size %d too small", c.PopulationSize)
	}
	if c.CrossoverProb < 0 || c.CrossoverProb > 1 {
		return fmt.Errorf("crossover probability %v outside [0,1]", c.CrossoverProb)
	}
	if c.MutationProb < 0 || c.MutationProb > 1 {
		return fmt.Errorf("mutation probability %v outside [0,1]", c.MutationProb)
	}
	return nil
}

// Front is the optimizer output: the final non-dominated set.
type Front struct {
	RunID       string
	Individuals []Individual
	// Recommended indexes the scalarization pick within Individuals.
	Recommended int
	// Converged is false when the run was cut short by its budget; the
	// front is then the best found so far, not a converged one.
	Converged   bool
	Generations int
}

// Optimizer evolves populations of cluster orderings.
type Optimizer struct {
	Cfg Config
	Log logger.Logger
}

// Run evolves the population until the generation budget, front stability,
// or context expiry. On expiry the best front found so far is returned with
// Converged=false; the result is always usable.
func (o Optimizer) Run(ctx context.Context, ev *Evaluator, nClusters int) (Front, error) {
	cfg := o.Cfg
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Front{}, err
	}
	if nClusters < 1 {
		return Front{}, fmt.Errorf("optimize: no clusters")
	}
	pm := cfg.MutationProb
	if pm == 0 {
		pm = 1.0 / float64(nClusters)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	pop := make([]Individual, cfg.PopulationSize)
	for i := range pop {
		pop[i] = Individual{Perm: randomPermutation(nClusters, rng)}
	}
	evaluate(pop, ev, workers)
	// The first tournament already needs ranks and crowding; without them
	// generation one selects uniformly.
	rankPopulation(pop)

	front := Front{RunID: uuid.NewString(), Converged: true}
	stable := 0
	var lastSig string

	gen := 0
	for ; gen < cfg.Generations; gen++ {
		if ctx.Err() != nil {
			front.Converged = false
			if o.Log != nil {
				o.Log.Warnf("optimization budget exhausted at generation %d, returning best so far", gen)
			}
			break
		}

		offspring := breed(pop, cfg, pm, nClusters, rng)
		evaluate(offspring, ev, workers)

		pool := append(append([]Individual(nil), pop...), offspring...)
		fronts := nonDominatedSort(pool)
		pop = selectNext(pool, fronts, cfg.PopulationSize)

		sig := frontSignature(pool, fronts[0])
		if sig == lastSig {
			stable++
			if cfg.StableWindow > 0 && stable >= cfg.StableWindow {
				gen++
				break
			}
		} else {
			stable = 0
			lastSig = sig
		}
	}

	front.Generations = gen
	front.Individuals = finalFront(pop)
	front.Recommended = recommend(front.Individuals, cfg)
	if o.Log != nil {
		o.Log.Debugw("optimization finished", map[string]any{
			"run_id":      front.RunID,
			"generations": gen,
			"front_size":  len(front.Individuals),
			"converged":   front.Converged,
		})
	}
	return front, nil
}

// rankPopulation assigns front ranks and crowding distances across the whole
// population, preparing it for tournament selection.
func rankPopulation(pop []Individual) {
	fronts := nonDominatedSort(pop)
	for _, f := range fronts {
		crowdingDistance(pop, f)
	}
}

// breed produces one offspring population via binary tournament selection,
// order crossover and exchange mutation. Parents are read-only.
func breed(pop []Individual, cfg Config, pm float64, n int, rng *rand.Rand) []Individual {
	offspring := make([]Individual, 0, cfg.PopulationSize)
	for len(offspring) < cfg.PopulationSize {
		p1 := tournament(pop, rng)
		p2 := tournament(pop, rng)
		var c1, c2 Permutation
		if rng.Float64() < cfg.CrossoverProb {
			c1, c2 = orderCrossover(p1.Perm, p2.Perm, rng)
		} else {
			c1, c2 = p1.Perm.Clone(), p2.Perm.Clone()
		}
		c1 = mutate(c1, pm, rng)
		c2 = mutate(c2, pm, rng)
		offspring = append(offspring, Individual{Perm: c1})
		if len(offspring) < cfg.PopulationSize {
			offspring = append(offspring, Individual{Perm: c2})
		}
	}
	return offspring
}

// tournament picks the better of two random individuals by (rank, crowding).
func tournament(pop []Individual, rng *rand.Rand) Individual {
	a := pop[rng.Intn(len(pop))]
	b := pop[rng.Intn(len(pop))]
	if a.Rank != b.Rank {
		if a.Rank < b.Rank {
			return a
		}
		return b
	}
	if a.Crowding >= b.Crowding {
		return a
	}
	return b
}

// evaluate scores every individual, fanning out across a bounded worker
// pool. Results land at fixed indices so evaluation order cannot influence
// the outcome.
func evaluate(pop []Individual, ev *Evaluator, workers int) {
	if workers > len(pop) {
		workers = len(pop)
	}
	if workers <= 1 {
		for i := range pop {
			pop[i].Obj, _ = ev.Evaluate(pop[i].Perm)
		}
		return
	}
	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				pop[i].Obj, _ = ev.Evaluate(pop[i].Perm)
			}
		}()
	}
	for i := range pop {
		idx <- i
	}
	close(idx)
	wg.Wait()
}

// finalFront extracts the non-dominated members of the final population,
// deduplicated by permutation, in a fixed order.
func finalFront(pop []Individual) []Individual {
	fronts := nonDominatedSort(pop)
	crowdingDistance(pop, fronts[0])
	seen := make(map[string]bool)
	var out []Individual
	for _, i := range fronts[0] {
		key := fmt.Sprint([]int(pop[i].Perm))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, pop[i])
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Obj.Cost != out[b].Obj.Cost {
			return out[a].Obj.Cost < out[b].Obj.Cost
		}
		if out[a].Obj.Risk != out[b].Obj.Risk {
			return out[a].Obj.Risk < out[b].Obj.Risk
		}
		return out[a].Obj.Delay < out[b].Obj.Delay
	})
	return out
}

// frontSignature fingerprints the current first front for the early-stop
// stability check.
func frontSignature(pop []Individual, front []int) string {
	objs := make([]Objectives, len(front))
	for k, i := range front {
		objs[k] = pop[i].Obj
	}
	sort.Slice(objs, func(a, b int) bool {
		if objs[a].Cost != objs[b].Cost {
			return objs[a].Cost < objs[b].Cost
		}
		if objs[a].Risk != objs[b].Risk {
			return objs[a].Risk < objs[b].Risk
		}
		return objs[a].Delay < objs[b].Delay
	})
	return fmt.Sprint(objs)
}

// recommend scalarizes the front with the configured weights, normalising
// each objective across the front first. Callers are free to ignore it and
// pick any Pareto member.
func recommend(front []Individual, cfg Config) int {
	if len(front) == 0 {
		return 0
	}
	minO := front[0].Obj
	maxO := front[0].Obj
	for _, ind := range front[1:] {
		minO.Cost = math.Min(minO.Cost, ind.Obj.Cost)
		minO.Risk = math.Min(minO.Risk, ind.Obj.Risk)
		minO.Delay = math.Min(minO.Delay, ind.Obj.Delay)
		maxO.Cost = math.Max(maxO.Cost, ind.Obj.Cost)
		maxO.Risk = math.Max(maxO.Risk, ind.Obj.Risk)
		maxO.Delay = math.Max(maxO.Delay, ind.Obj.Delay)
	}
	norm := func(v, lo, hi float64) float64 {
		if hi == lo {
			return 0
		}
		return (v - lo) / (hi - lo)
	}
	best := 0
	bestScore := math.Inf(1)
	for i, ind := range front {
		score := cfg.CostWeight*norm(ind.Obj.Cost, minO.Cost, maxO.Cost) +
			cfg.RiskWeight*norm(ind.Obj.Risk, minO.Risk, maxO.Risk) +
			cfg.DelayWeight*norm(ind.Obj.Delay, minO.Delay, maxO.Delay)
		if score < bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
