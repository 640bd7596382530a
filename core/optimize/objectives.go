package optimize

import (
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/risk"
	"github.com/yw35561-wq/Mic-Scheduler/core/schedule"
)

// Objectives are the three minimised values of a candidate schedule.
type Objectives struct {
	Cost  float64 `json:"cost"`
	Risk  float64 `json:"risk"`
	Delay float64 `json:"delay"`
}

// Dominates reports whether a is weakly better than b on all three
// objectives and strictly better on at least one.
func (a Objectives) Dominates(b Objectives) bool {
	if a.Cost > b.Cost || a.Risk > b.Risk || a.Delay > b.Delay {
		return false
	}
	return a.Cost < b.Cost || a.Risk < b.Risk || a.Delay < b.Delay
}

// Evaluator scores a chromosome by decoding it and summing the cost, risk
// and delay of the resulting schedule. It holds only immutable snapshots, so
// evaluations may run concurrently.
type Evaluator struct {
	In    schedule.Input
	Costs model.CostTable
	Risk  risk.Provider

	tasks map[int]model.Task
}

// NewEvaluator prepares an evaluator over the decode input.
func NewEvaluator(in schedule.Input, costs model.CostTable, rp risk.Provider) *Evaluator {
	tasks := make(map[int]model.Task, len(in.Tasks))
	for _, t := range in.Tasks {
		tasks[t.ID] = t
	}
	return &Evaluator{In: in, Costs: costs, Risk: rp, tasks: tasks}
}

// Evaluate decodes the chromosome and computes its objective triple.
func (e *Evaluator) Evaluate(perm Permutation) (Objectives, schedule.Result) {
	res := schedule.Decode(perm, e.In)
	return e.score(res), res
}

func (e *Evaluator) score(res schedule.Result) Objectives {
	var obj Objectives
	clustersUsed := make(map[int]bool)

	for _, a := range res.Assignments {
		t, ok := e.tasks[a.TaskID]
		if !ok {
			continue
		}
		hours := e.In.Calendar.CountWorkHours(a.Start, a.End)

		direct := 0.0
		for i, u := range a.Units {
			if i < len(e.Costs.PerUnitHour) {
				direct += float64(u) * e.Costs.PerUnitHour[i] * float64(hours)
			}
		}
		if t.Urgent {
			direct *= e.Costs.EmergencyMultiplier
		}
		obj.Cost += direct
		clustersUsed[a.ClusterID] = true

		obj.Risk += e.riskIntegral(a.Start, a.End, t)

		if a.End.After(a.PlannedEnd) && !a.PlannedEnd.IsZero() {
			late := e.In.Calendar.CountWorkHours(a.PlannedEnd, a.End)
			obj.Delay += float64(late) * float64(t.Criticality) / 10.0
		}
	}

	obj.Cost += float64(len(clustersUsed)) * e.Costs.SetupCost
	obj.Cost += float64(res.Diag.OverflowUnitHours) * e.Costs.OverloadPenalty

	// Unplaceable work must not look free, or the search would prefer
	// orders that crowd tasks out of the horizon.
	for _, inf := range res.Diag.Infeasible {
		if t, ok := e.tasks[inf.TaskID]; ok {
			obj.Cost += float64(t.DurationHours) * e.Costs.DowntimeCost
		}
	}
	return obj
}

// riskIntegral accumulates the environmental risk of the task hour by hour
// across its working interval, scaled by criticality.
func (e *Evaluator) riskIntegral(start, end time.Time, t model.Task) float64 {
	total := 0.0
	weight := float64(t.Criticality) / 10.0
	for cur := start; cur.Before(end); cur = cur.Add(time.Hour) {
		if !e.In.Calendar.IsWorkingHour(cur) {
			continue
		}
		total += e.Risk.Factor(cur, t.System) * weight
	}
	return total * 100
}
