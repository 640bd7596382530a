package model

import (
	"errors"
	"fmt"
	"sort"
)

// Bounds declares the valid spatial extent of the project. Zero-valued
// bounds disable the coordinate check.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

func (b Bounds) enabled() bool {
	return b != Bounds{}
}

func (b Bounds) contains(x, y, z float64) bool {
	return x >= b.MinX && x <= b.MaxX &&
		y >= b.MinY && y <= b.MaxY &&
		z >= b.MinZ && z <= b.MaxZ
}

// ValidationError reports a single rejected task field. Validation rejects
// the whole batch before any clustering or optimization runs.
type ValidationError struct {
	TaskID int
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("task %d: invalid %s: %s", e.TaskID, e.Field, e.Reason)
}

// ValidateTasks checks the task batch against the pool and bounds. All
// problems found are returned joined, so callers can report every offending
// task at once.
func ValidateTasks(tasks []Task, pool ResourcePool, bounds Bounds) error {
	var errs []error
	seen := make(map[int]bool, len(tasks))
	ids := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}

	for _, t := range tasks {
		if seen[t.ID] {
			errs = append(errs, ValidationError{t.ID, "id", "duplicate"})
			continue
		}
		seen[t.ID] = true
		if t.DurationHours < 1 {
			errs = append(errs, ValidationError{t.ID, "duration", fmt.Sprintf("%d hours, must be >= 1", t.DurationHours)})
		}
		if t.Criticality < 1 || t.Criticality > 10 {
			errs = append(errs, ValidationError{t.ID, "criticality", fmt.Sprintf("%d outside [1,10]", t.Criticality)})
		}
		if len(t.Demand) != len(pool.Types) {
			errs = append(errs, ValidationError{t.ID, "demand", fmt.Sprintf("%d entries, pool declares %d types", len(t.Demand), len(pool.Types))})
		}
		for i, d := range t.Demand {
			if d < 0 {
				name := fmt.Sprintf("resource %d", i)
				if i < len(pool.Types) {
					name = pool.Types[i]
				}
				errs = append(errs, ValidationError{t.ID, "demand", fmt.Sprintf("negative units for %s", name)})
			}
		}
		if bounds.enabled() && !bounds.contains(t.X, t.Y, t.Z) {
			errs = append(errs, ValidationError{t.ID, "coordinates", fmt.Sprintf("(%.1f,%.1f,%.1f) outside project bounds", t.X, t.Y, t.Z)})
		}
		for _, p := range t.Predecessors {
			if !ids[p] {
				errs = append(errs, ValidationError{t.ID, "predecessors", fmt.Sprintf("unknown task %d", p)})
			}
		}
	}

	if cyc := FindCycle(tasks); len(cyc) > 0 {
		errs = append(errs, ValidationError{cyc[0], "predecessors", fmt.Sprintf("dependency cycle %v", cyc)})
	}
	return errors.Join(errs...)
}

// FindCycle returns the ids of a dependency cycle among the tasks, or nil if
// the precedence edges form a DAG. Traversal order is fixed by ascending id
// so the reported cycle is deterministic.
func FindCycle(tasks []Task) []int {
	graph := make(map[int][]int, len(tasks))
	order := make([]int, 0, len(tasks))
	for _, t := range tasks {
		graph[t.ID] = append([]int(nil), t.Predecessors...)
		sort.Ints(graph[t.ID])
		order = append(order, t.ID)
	}
	sort.Ints(order)

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[int]int, len(tasks))
	var cycle []int

	var visit func(id int) bool
	visit = func(id int) bool {
		state[id] = inStack
		for _, p := range graph[id] {
			switch state[p] {
			case inStack:
				cycle = []int{p, id}
				return true
			case unvisited:
				if visit(p) {
					return true
				}
			}
		}
		state[id] = done
		return false
	}

	for _, id := range order {
		if state[id] == unvisited && visit(id) {
			return cycle
		}
	}
	return nil
}
