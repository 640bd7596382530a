package schedule

import (
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/cluster"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Assignment places one task on the calendar with its resource units.
type Assignment struct {
	TaskID    int
	ClusterID int
	Start     time.Time
	End       time.Time
	// Units are the resource units reserved for the task, indexed like the
	// pool types. They equal the task demand; partial assignment is not
	// modelled.
	Units []int
	// PlannedEnd is the baseline finish used by the delay objective: the
	// task's own planned end when set, otherwise its precedence-only
	// earliest finish.
	PlannedEnd time.Time
	// Overflow is the number of overflowed unit-hours this placement
	// incurred under penalty-based overflow.
	Overflow int
}

// InfeasibleTask describes a task the decoder could not place for a
// structural reason, with the blocking resource or predecessor named.
type InfeasibleTask struct {
	TaskID      int
	Resource    string
	Predecessor int
	Reason      string
}

// CapacityMismatch reports an instant where committed (frozen) work alone
// exceeds a declared capacity.
type CapacityMismatch struct {
	Resource string
	Time     time.Time
	Used     int
	Capacity int
}

// Diagnostics collects everything the decoder wants the caller to know
// beyond the placements themselves.
type Diagnostics struct {
	Infeasible        []InfeasibleTask
	CapacityMismatch  []CapacityMismatch
	OverflowUnitHours int
	DelayedTasks      []int
}

// Input is the immutable snapshot a decode runs against.
type Input struct {
	Tasks    []model.Task
	Clusters []cluster.Cluster
	Pool     model.ResourcePool
	Calendar model.Calendar
	// Frozen placements are committed or in-progress work. They are placed
	// first and never rescheduled.
	Frozen      []Assignment
	WindowStart time.Time
	// AllowOverflow permits placements that exceed capacity, accruing a
	// penalty instead of delaying further. Off by default.
	AllowOverflow bool
	// HorizonHours bounds the forward scan for a feasible start.
	HorizonHours int
}

// Result is a decoded, concrete schedule.
type Result struct {
	Assignments []Assignment
	ByTask      map[int]Assignment
	Feasible    bool
	Diag        Diagnostics
	Makespan    time.Time
}

// UtilizationSample is one point of the resource-utilization time series.
type UtilizationSample struct {
	Time time.Time
	Used []int
}

// Utilization builds the hourly resource-utilization series of the schedule
// over [from, to), counting working hours only.
func (r Result) Utilization(cal model.Calendar, pool model.ResourcePool, from, to time.Time) []UtilizationSample {
	var out []UtilizationSample
	for cur := cal.NextWorkingHour(from); cur.Before(to); cur = cur.Add(time.Hour) {
		if !cal.IsWorkingHour(cur) {
			continue
		}
		used := make([]int, len(pool.Types))
		for _, a := range r.Assignments {
			if !a.Start.After(cur) && a.End.After(cur) {
				for i, u := range a.Units {
					used[i] += u
				}
			}
		}
		out = append(out, UtilizationSample{Time: cur, Used: used})
	}
	return out
}
