// Package source provides a JSON file implementation of model.TaskSource.
// The full spreadsheet importer lives outside the engine; this adapter keeps
// standalone runs and fixtures simple.
package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

type fileFormat struct {
	Resources struct {
		Types    []string `json:"types"`
		Capacity []int    `json:"capacity"`
	} `json:"resources"`
	Tasks []taskRecord `json:"tasks"`
}

type taskRecord struct {
	ID           int     `json:"id"`
	System       string  `json:"system"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	Demand       []int   `json:"demand"`
	Duration     int     `json:"duration_hours"`
	Predecessors []int   `json:"predecessors"`
	// Criticality may be given directly, or derived from the S/O/D triple.
	Criticality int    `json:"criticality"`
	Severity    int    `json:"severity"`
	Occurrence  int    `json:"occurrence"`
	Detection   int    `json:"detection"`
	Remarks     string `json:"remarks"`
}

// File is a JSON-backed TaskSource.
type File struct {
	Path string
}

var _ model.TaskSource = File{}

// Load implements model.TaskSource. Tasks without a criticality or S/O/D
// triple receive the project mean as a fallback.
func (f File) Load() ([]model.Task, model.ResourcePool, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, model.ResourcePool{}, err
	}
	var data fileFormat
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, model.ResourcePool{}, fmt.Errorf("parse %s: %w", f.Path, err)
	}

	pool := model.ResourcePool{Types: data.Resources.Types, Capacity: data.Resources.Capacity}
	if len(pool.Types) == 0 {
		pool = model.DefaultResourcePool()
	}

	tasks := make([]model.Task, 0, len(data.Tasks))
	var missing []int
	for _, r := range data.Tasks {
		sys, err := model.ParseSystem(r.System)
		if err != nil {
			return nil, pool, fmt.Errorf("task %d: %w", r.ID, err)
		}
		crit := r.Criticality
		if crit == 0 && r.Severity > 0 {
			crit = model.CriticalityFromRPN(r.Severity, r.Occurrence, r.Detection)
		}
		demand := r.Demand
		if demand == nil {
			demand = make([]int, len(pool.Types))
		}
		t := model.Task{
			ID:            r.ID,
			System:        sys,
			X:             r.X,
			Y:             r.Y,
			Z:             r.Z,
			Demand:        demand,
			DurationHours: r.Duration,
			Predecessors:  r.Predecessors,
			Criticality:   crit,
			Status:        model.StatusPending,
			Remarks:       r.Remarks,
		}
		if crit == 0 {
			missing = append(missing, len(tasks))
		}
		tasks = append(tasks, t)
	}
	if len(missing) > 0 {
		fallback := model.DefaultCriticality(withCriticality(tasks))
		for _, i := range missing {
			tasks[i].Criticality = fallback
		}
	}
	return tasks, pool, nil
}

func withCriticality(tasks []model.Task) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Criticality > 0 {
			out = append(out, t)
		}
	}
	return out
}
