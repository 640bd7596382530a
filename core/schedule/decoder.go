// Package schedule turns a chromosome ordering into a concrete timed,
// resourced schedule. Decoding is a pure function of its input: identical
// inputs always produce identical placements.
package schedule

import (
	"sort"
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

const defaultHorizonHours = 24 * 365

// Decode walks the chromosome cluster order and places every schedulable
// task at its earliest feasible start. Frozen placements are consumed first
// and never moved. Only structural problems (demand beyond total capacity,
// an unplaceable predecessor chain) clear the Feasible flag; resource
// contention just delays work.
func Decode(chrom []int, in Input) Result {
	res := Result{ByTask: make(map[int]Assignment), Feasible: true}
	horizon := in.HorizonHours
	if horizon <= 0 {
		horizon = defaultHorizonHours
	}

	byID := make(map[int]model.Task, len(in.Tasks))
	for _, t := range in.Tasks {
		byID[t.ID] = t
	}

	usage := newUsage(len(in.Pool.Types))
	placed := make(map[int]time.Time) // task id -> finish
	dead := make(map[int]bool)        // structurally unplaceable

	// Frozen work first, in a fixed order.
	frozen := append([]Assignment(nil), in.Frozen...)
	sort.Slice(frozen, func(i, j int) bool {
		if !frozen[i].Start.Equal(frozen[j].Start) {
			return frozen[i].Start.Before(frozen[j].Start)
		}
		return frozen[i].TaskID < frozen[j].TaskID
	})
	for _, a := range frozen {
		usage.occupy(in.Calendar, a.Start, a.End, a.Units)
		placed[a.TaskID] = a.End
		res.Assignments = append(res.Assignments, a)
		res.ByTask[a.TaskID] = a
	}
	res.Diag.CapacityMismatch = usage.overCapacity(in.Pool)

	clusterOf := make(map[int]int)
	for _, c := range in.Clusters {
		for _, id := range c.TaskIDs {
			clusterOf[id] = c.ID
		}
	}

	for _, t := range orderTasks(chrom, in, byID, placed) {
		resName, over := in.Pool.Exceeds(t.Demand)
		if over {
			res.Feasible = false
			dead[t.ID] = true
			res.Diag.Infeasible = append(res.Diag.Infeasible, InfeasibleTask{
				TaskID: t.ID, Resource: resName,
				Reason: "demand exceeds total capacity",
			})
			continue
		}

		earliest, blocked := earliestAfterPredecessors(t, in.WindowStart, placed, dead)
		if blocked >= 0 {
			res.Feasible = false
			dead[t.ID] = true
			res.Diag.Infeasible = append(res.Diag.Infeasible, InfeasibleTask{
				TaskID: t.ID, Predecessor: blocked,
				Reason: "predecessor cannot be scheduled",
			})
			continue
		}

		start, overflow, ok := usage.findStart(in.Calendar, in.Pool, earliest, t.DurationHours, t.Demand, horizon, in.AllowOverflow)
		if !ok {
			res.Feasible = false
			dead[t.ID] = true
			res.Diag.Infeasible = append(res.Diag.Infeasible, InfeasibleTask{
				TaskID: t.ID,
				Reason: "no capacity within the scan horizon",
			})
			continue
		}
		end := in.Calendar.AddWorkHours(start, t.DurationHours)
		usage.occupy(in.Calendar, start, end, t.Demand)
		placed[t.ID] = end

		a := Assignment{
			TaskID:    t.ID,
			ClusterID: clusterOf[t.ID],
			Start:     start,
			End:       end,
			Units:     append([]int(nil), t.Demand...),
			Overflow:  overflow,
		}
		a.PlannedEnd = t.PlannedEnd
		if a.PlannedEnd.IsZero() {
			a.PlannedEnd = in.Calendar.AddWorkHours(earliest, t.DurationHours)
		}
		if end.After(a.PlannedEnd) {
			res.Diag.DelayedTasks = append(res.Diag.DelayedTasks, t.ID)
		}
		res.Diag.OverflowUnitHours += overflow

		res.Assignments = append(res.Assignments, a)
		res.ByTask[t.ID] = a
		if end.After(res.Makespan) {
			res.Makespan = end
		}
	}
	return res
}

// orderTasks yields schedulable tasks in cluster-then-intra-cluster order,
// intra-cluster ties broken by ascending criticality then ascending id.
// Chromosome entries naming unknown clusters are skipped.
func orderTasks(chrom []int, in Input, byID map[int]model.Task, alreadyPlaced map[int]time.Time) []model.Task {
	clusters := make(map[int][]int, len(in.Clusters))
	for _, c := range in.Clusters {
		clusters[c.ID] = c.TaskIDs
	}
	var out []model.Task
	for _, cid := range chrom {
		members := append([]int(nil), clusters[cid]...)
		tasks := make([]model.Task, 0, len(members))
		for _, id := range members {
			t, ok := byID[id]
			if !ok || !t.Status.Schedulable() {
				continue
			}
			if _, done := alreadyPlaced[id]; done {
				continue
			}
			tasks = append(tasks, t)
		}
		sort.Slice(tasks, func(i, j int) bool {
			if tasks[i].Criticality != tasks[j].Criticality {
				return tasks[i].Criticality < tasks[j].Criticality
			}
			return tasks[i].ID < tasks[j].ID
		})
		out = append(out, tasks...)
	}
	return out
}

// earliestAfterPredecessors returns the earliest start honoring precedence,
// or the id of a structurally blocked predecessor.
func earliestAfterPredecessors(t model.Task, windowStart time.Time, placed map[int]time.Time, dead map[int]bool) (time.Time, int) {
	earliest := windowStart
	for _, p := range t.Predecessors {
		if dead[p] {
			return time.Time{}, p
		}
		if finish, ok := placed[p]; ok {
			if finish.After(earliest) {
				earliest = finish
			}
		}
		// An unplaced predecessor outside the snapshot is treated as
		// already satisfied; the controller strips satisfied edges when it
		// archives completed work.
	}
	return earliest, -1
}

// usage tracks per-hour unit consumption.
type usage struct {
	nTypes int
	hours  map[int64][]int
}

func newUsage(nTypes int) *usage {
	return &usage{nTypes: nTypes, hours: make(map[int64][]int)}
}

func hourKey(t time.Time) int64 { return t.Truncate(time.Hour).Unix() }

func (u *usage) occupy(cal model.Calendar, start, end time.Time, units []int) {
	for cur := start; cur.Before(end); cur = cur.Add(time.Hour) {
		if !cal.IsWorkingHour(cur) {
			continue
		}
		k := hourKey(cur)
		row := u.hours[k]
		if row == nil {
			row = make([]int, u.nTypes)
			u.hours[k] = row
		}
		for i, n := range units {
			row[i] += n
		}
	}
}

func (u *usage) fits(cal model.Calendar, pool model.ResourcePool, start time.Time, hours int, demand []int) bool {
	counted := 0
	for cur := start; counted < hours; cur = cur.Add(time.Hour) {
		if !cal.IsWorkingHour(cur) {
			continue
		}
		counted++
		row := u.hours[hourKey(cur)]
		for i, d := range demand {
			used := 0
			if row != nil {
				used = row[i]
			}
			if used+d > pool.Capacity[i] {
				return false
			}
		}
	}
	return true
}

// findStart scans forward from earliest for the first working hour where the
// full duration fits within capacity. When the scan exhausts the horizon and
// overflow is permitted, the task is placed at its earliest start and the
// overflowed unit-hours are reported for the penalty term; with overflow
// disabled the task is unplaceable and ok is false.
func (u *usage) findStart(cal model.Calendar, pool model.ResourcePool, earliest time.Time, hours int, demand []int, horizon int, allowOverflow bool) (time.Time, int, bool) {
	start := cal.NextWorkingHour(earliest)
	for scanned := 0; scanned < horizon; scanned++ {
		if u.fits(cal, pool, start, hours, demand) {
			return start, 0, true
		}
		start = cal.NextWorkingHour(start.Add(time.Hour))
	}
	// Oversubscribed for the whole horizon.
	if !allowOverflow {
		return time.Time{}, 0, false
	}
	fallback := cal.NextWorkingHour(earliest)
	overflow := u.countOverflow(cal, pool, fallback, hours, demand)
	return fallback, overflow, true
}

func (u *usage) countOverflow(cal model.Calendar, pool model.ResourcePool, start time.Time, hours int, demand []int) int {
	overflow := 0
	counted := 0
	for cur := start; counted < hours; cur = cur.Add(time.Hour) {
		if !cal.IsWorkingHour(cur) {
			continue
		}
		counted++
		row := u.hours[hourKey(cur)]
		for i, d := range demand {
			used := 0
			if row != nil {
				used = row[i]
			}
			if over := used + d - pool.Capacity[i]; over > 0 {
				overflow += over
			}
		}
	}
	return overflow
}

func (u *usage) overCapacity(pool model.ResourcePool) []CapacityMismatch {
	var out []CapacityMismatch
	keys := make([]int64, 0, len(u.hours))
	for k := range u.hours {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		row := u.hours[k]
		for i, used := range row {
			if used > pool.Capacity[i] {
				out = append(out, CapacityMismatch{
					Resource: pool.Types[i],
					Time:     time.Unix(k, 0).UTC(),
					Used:     used,
					Capacity: pool.Capacity[i],
				})
			}
		}
	}
	return out
}
