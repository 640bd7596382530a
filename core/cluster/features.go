package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Weights control how much each similarity component contributes to the
// clustering feature space.
type Weights struct {
	Spatial     float64 `json:"spatial"`
	System      float64 `json:"system"`
	Resource    float64 `json:"resource"`
	Criticality float64 `json:"criticality"`
}

// DefaultWeights returns the standard component weights.
func DefaultWeights() Weights {
	return Weights{Spatial: 0.35, System: 0.25, Resource: 0.15, Criticality: 0.25}
}

// featureMatrix builds one weighted feature row per task. Tasks are ordered
// by ascending id so identical inputs always yield identical rows. Spatial
// and resource columns are min-max normalised to [0,1]; the system category
// becomes a weighted one-hot block; criticality is scaled by 1/10.
func featureMatrix(tasks []model.Task, w Weights) ([][]float64, []int) {
	ordered := append([]model.Task(nil), tasks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	ids := make([]int, len(ordered))
	for i, t := range ordered {
		ids[i] = t.ID
	}

	nRes := 0
	if len(ordered) > 0 {
		nRes = len(ordered[0].Demand)
	}
	dim := 3 + len(model.Systems) + nRes + 1
	rows := make([][]float64, len(ordered))
	for i := range rows {
		rows[i] = make([]float64, dim)
	}

	// Spatial block.
	for axis := 0; axis < 3; axis++ {
		col := make([]float64, len(ordered))
		for i, t := range ordered {
			switch axis {
			case 0:
				col[i] = t.X
			case 1:
				col[i] = t.Y
			default:
				col[i] = t.Z
			}
		}
		minMaxScale(col)
		for i := range rows {
			rows[i][axis] = col[i] * w.Spatial
		}
	}

	// System one-hot block.
	for i, t := range ordered {
		rows[i][3+int(t.System)] = w.System
	}

	// Resource block.
	for r := 0; r < nRes; r++ {
		col := make([]float64, len(ordered))
		for i, t := range ordered {
			col[i] = float64(t.Demand[r])
		}
		minMaxScale(col)
		for i := range rows {
			rows[i][3+len(model.Systems)+r] = col[i] * w.Resource
		}
	}

	// Criticality column.
	for i, t := range ordered {
		rows[i][dim-1] = float64(t.Criticality) / 10.0 * w.Criticality
	}
	return rows, ids
}

// minMaxScale rescales col in place to [0,1]; a constant column becomes all
// zeros.
func minMaxScale(col []float64) {
	if len(col) == 0 {
		return
	}
	lo := floats.Min(col)
	hi := floats.Max(col)
	if hi == lo {
		for i := range col {
			col[i] = 0
		}
		return
	}
	for i := range col {
		col[i] = (col[i] - lo) / (hi - lo)
	}
}

func sqDist(a, b []float64) float64 {
	d := 0.0
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

func dist(a, b []float64) float64 {
	return math.Sqrt(sqDist(a, b))
}
