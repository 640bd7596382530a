// Package export writes schedules, Pareto fronts and utilization series in
// JSON or CSV for the downstream reporting tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/optimize"
	"github.com/yw35561-wq/Mic-Scheduler/core/schedule"
)

// Report bundles the full output contract of one optimization run.
type Report struct {
	RunID       string                       `json:"run_id"`
	Assignments []schedule.Assignment        `json:"assignments"`
	Front       []FrontMember                `json:"pareto_front"`
	Recommended int                          `json:"recommended"`
	Converged   bool                         `json:"converged"`
	Utilization []schedule.UtilizationSample `json:"utilization"`
}

// FrontMember is one Pareto solution: its objective triple and chromosome.
type FrontMember struct {
	Objectives optimize.Objectives `json:"objectives"`
	Chromosome []int               `json:"chromosome"`
}

// Build assembles a Report from the optimizer output and the decoded
// recommended schedule.
func Build(front optimize.Front, res schedule.Result, cal model.Calendar, pool model.ResourcePool, from, to time.Time) Report {
	members := make([]FrontMember, len(front.Individuals))
	for i, ind := range front.Individuals {
		members[i] = FrontMember{Objectives: ind.Obj, Chromosome: append([]int(nil), ind.Perm...)}
	}
	return Report{
		RunID:       front.RunID,
		Assignments: res.Assignments,
		Front:       members,
		Recommended: front.Recommended,
		Converged:   front.Converged,
		Utilization: res.Utilization(cal, pool, from, to),
	}
}

// WriteJSON writes the report to w in JSON format.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the per-task assignment rows to w.
func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task_id", "cluster_id", "start", "end"}); err != nil {
		return err
	}
	for _, a := range r.Assignments {
		rec := []string{
			strconv.Itoa(a.TaskID),
			strconv.Itoa(a.ClusterID),
			a.Start.Format(time.RFC3339),
			a.End.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
