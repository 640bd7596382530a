// Package cluster groups tasks into execution batches by spatial, system,
// resource and criticality similarity. Each run produces an immutable
// snapshot; the next run supersedes it rather than mutating it.
package cluster

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/yw35561-wq/Mic-Scheduler/core/logger"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Config holds the clustering parameters.
type Config struct {
	KMin int `json:"k_min"`
	KMax int `json:"k_max"`
	// ForcedK overrides elbow selection when positive.
	ForcedK         int     `json:"forced_k"`
	Weights         Weights `json:"weights"`
	MaxIterations   int     `json:"max_iterations"`
	SilhouetteFloor float64 `json:"silhouette_floor"`
	MaxRetries      int     `json:"max_retries"`
	Seed            int64   `json:"seed"`
}

// SetDefaults applies the standard parameters.
func (c *Config) SetDefaults() {
	if c.KMin == 0 {
		c.KMin = 2
	}
	if c.KMax == 0 {
		c.KMax = 10
	}
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights()
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 50
	}
	if c.SilhouetteFloor == 0 {
		c.SilhouetteFloor = 0.5
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

// Validate checks parameter sanity.
func (c Config) Validate() error {
	if c.KMin < 1 || c.KMax < c.KMin {
		return fmt.Errorf("invalid K range [%d,%d]", c.KMin, c.KMax)
	}
	sum := c.Weights.Spatial + c.Weights.System + c.Weights.Resource + c.Weights.Criticality
	if sum <= 0 {
		return fmt.Errorf("similarity weights sum to %v", sum)
	}
	return nil
}

// Cluster is one execution batch.
type Cluster struct {
	ID      int
	TaskIDs []int

	// Centroid summary.
	MeanX, MeanY, MeanZ float64
	DominantSystem      model.System
	MeanDemand          []float64
	MeanCriticality     float64
}

// Result is an immutable clustering snapshot.
type Result struct {
	RunID      string
	K          int
	Clusters   []Cluster
	Silhouette float64
	// SSEByK records the elbow sweep, keyed in ascending K order.
	KsTried []int
	SSEByK  []float64
	// QualityWarning is set when the silhouette stayed below the floor
	// after the bounded retries. The result is still usable.
	QualityWarning bool
}

// Engine runs the clustering preprocessor.
type Engine struct {
	Cfg Config
	Log logger.Logger
}

// Run clusters the task batch. Identical tasks and seed produce an identical
// assignment; input tasks are never mutated.
func (e Engine) Run(tasks []model.Task) (Result, error) {
	cfg := e.Cfg
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(tasks) == 0 {
		return Result{}, fmt.Errorf("cluster: no tasks")
	}

	rows, ids := featureMatrix(tasks, cfg.Weights)
	byID := make(map[int]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	kMax := cfg.KMax
	if kMax > len(tasks) {
		kMax = len(tasks)
	}
	kMin := cfg.KMin
	if kMin > kMax {
		kMin = kMax
	}

	// Elbow sweep.
	runs := make(map[int]kmeansRun)
	var ksTried []int
	var sses []float64
	runFor := func(k int) kmeansRun {
		if r, ok := runs[k]; ok {
			return r
		}
		rng := rand.New(rand.NewSource(cfg.Seed + int64(k)))
		r := kmeans(rows, k, cfg.MaxIterations, rng)
		runs[k] = r
		return r
	}
	for k := kMin; k <= kMax; k++ {
		ksTried = append(ksTried, k)
		sses = append(sses, runFor(k).sse)
	}

	k := cfg.ForcedK
	if k <= 0 {
		k = elbowK(ksTried, sses)
	}
	if k > len(tasks) {
		k = len(tasks)
	}

	best := k
	bestSil := silhouette(rows, runFor(k).assignment, k)
	warning := false
	if bestSil < cfg.SilhouetteFloor && cfg.ForcedK <= 0 {
		for attempt, cand := range retryCandidates(k, kMin, kMax, cfg.MaxRetries) {
			sil := silhouette(rows, runFor(cand).assignment, cand)
			if e.Log != nil {
				e.Log.Debugf("cluster retry %d: K=%d silhouette=%.3f", attempt+1, cand, sil)
			}
			if sil > bestSil {
				best, bestSil = cand, sil
			}
			if bestSil >= cfg.SilhouetteFloor {
				break
			}
		}
		if bestSil < cfg.SilhouetteFloor {
			warning = true
			if e.Log != nil {
				e.Log.Warnf("cluster quality below %.2f after retries: K=%d silhouette=%.3f", cfg.SilhouetteFloor, best, bestSil)
			}
		}
	}

	run := runFor(best)
	return Result{
		RunID:          uuid.NewString(),
		K:              best,
		Clusters:       buildClusters(run.assignment, best, ids, byID),
		Silhouette:     bestSil,
		KsTried:        ksTried,
		SSEByK:         sses,
		QualityWarning: warning,
	}, nil
}

// retryCandidates yields K+1 then K-1 around the starting K, clamped to the
// configured range, up to maxRetries entries.
func retryCandidates(k, kMin, kMax, maxRetries int) []int {
	var out []int
	for _, cand := range []int{k + 1, k - 1} {
		if len(out) >= maxRetries {
			break
		}
		if cand >= kMin && cand <= kMax && cand != k {
			out = append(out, cand)
		}
	}
	return out
}

func buildClusters(assignment []int, k int, ids []int, byID map[int]model.Task) []Cluster {
	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c].ID = c
	}
	for i, c := range assignment {
		clusters[c].TaskIDs = append(clusters[c].TaskIDs, ids[i])
	}

	out := clusters[:0]
	for _, c := range clusters {
		if len(c.TaskIDs) == 0 {
			continue
		}
		sort.Ints(c.TaskIDs)
		sysCount := make(map[model.System]int)
		var demand []float64
		for _, id := range c.TaskIDs {
			t := byID[id]
			c.MeanX += t.X
			c.MeanY += t.Y
			c.MeanZ += t.Z
			c.MeanCriticality += float64(t.Criticality)
			sysCount[t.System]++
			if demand == nil {
				demand = make([]float64, len(t.Demand))
			}
			for r, d := range t.Demand {
				demand[r] += float64(d)
			}
		}
		n := float64(len(c.TaskIDs))
		c.MeanX /= n
		c.MeanY /= n
		c.MeanZ /= n
		c.MeanCriticality /= n
		for r := range demand {
			demand[r] /= n
		}
		c.MeanDemand = demand
		c.DominantSystem = dominantSystem(sysCount)
		out = append(out, c)
	}
	// Renumber after dropping empty clusters so chromosome ids are dense.
	for i := range out {
		out[i].ID = i
	}
	return out
}

func dominantSystem(counts map[model.System]int) model.System {
	best := model.SystemStruct
	bestN := -1
	for _, s := range model.Systems {
		if counts[s] > bestN {
			best, bestN = s, counts[s]
		}
	}
	return best
}
