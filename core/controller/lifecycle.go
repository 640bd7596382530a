package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/events"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Tick advances the window origin to now and applies the lifecycle
// transitions driven by time: scheduled work entering the commit window
// freezes, started work becomes in-progress, finished work completes. A
// re-plan over the remaining horizon follows.
func (c *Controller) Tick(ctx context.Context, now time.Time) error {
	c.mu.Lock()
	if now.After(c.origin) {
		c.origin = now
	}
	commitEdge := c.origin.Add(time.Duration(c.cfg.CommitHours) * time.Hour)
	for _, t := range c.tasks {
		a, ok := c.committed.ByTask[t.ID]
		if !ok {
			continue
		}
		switch t.Status {
		case model.StatusPending, model.StatusSplitRemainder:
			if !a.Start.After(commitEdge) {
				t.Status = model.StatusScheduled
			}
		}
		if t.Status == model.StatusScheduled && !a.Start.After(now) {
			t.Status = model.StatusInProgress
			t.ActualStart = a.Start
		}
		if t.Status == model.StatusInProgress && !a.End.After(now) {
			t.Status = model.StatusCompleted
			t.ActualEnd = a.End
		}
	}
	c.mu.Unlock()

	if _, err := c.Replan(ctx, "tick"); err != nil && !errors.Is(err, ErrReplanQueued) {
		return err
	}
	return nil
}

// InjectEmergency registers an urgency-flagged task and, when it cannot be
// resourced alongside the running work, preempts the least critical
// in-progress task competing for the same resources. Returns the assigned
// task id. A re-plan follows.
func (c *Controller) InjectEmergency(ctx context.Context, t model.Task, now time.Time) (int, error) {
	c.mu.Lock()
	t.Urgent = true
	t.Status = model.StatusPending
	if t.Criticality == 0 {
		t.Criticality = 10
	}
	if t.ID == 0 {
		t.ID = c.nextID
	}
	if t.Criticality < 1 || t.Criticality > 10 || t.DurationHours < 1 || len(t.Demand) != len(c.pool.Types) {
		c.mu.Unlock()
		return 0, model.ValidationError{TaskID: t.ID, Field: "emergency", Reason: "bad criticality, duration or demand"}
	}
	if t.ID >= c.nextID {
		c.nextID = t.ID + 1
	}
	// The window origin moves up to the injection time, so the follow-up
	// re-plan cannot place the emergency or the split remainder in the past
	// over hours the displaced work already consumed.
	if now.After(c.origin) {
		c.origin = now
	}
	tc := t.Clone()
	c.tasks[t.ID] = &tc

	victim := c.findPreemptionVictim(tc, now)
	var preempted int
	if victim != nil {
		remID := c.preemptLocked(victim, now)
		preempted = victim.ID
		c.publish(events.PreemptionEvent{
			PreemptedID: victim.ID,
			RemainderID: remID,
			EmergencyID: t.ID,
			PreemptedAt: now,
		})
	}
	c.mu.Unlock()

	if preempted != 0 {
		if err := c.sink.RecordPreemption(preempted); err != nil {
			c.log.Errorf("record preemption: %v", err)
		}
		c.log.Infof("emergency %d preempted task %d", t.ID, preempted)
	}
	if _, err := c.Replan(ctx, "emergency"); err != nil && !errors.Is(err, ErrReplanQueued) {
		return t.ID, err
	}
	return t.ID, nil
}

// findPreemptionVictim returns the in-progress task to preempt for the
// emergency, or nil when the emergency fits without displacing anyone. A
// victim must compete for a resource the emergency needs and carry a
// materially lower criticality.
func (c *Controller) findPreemptionVictim(em model.Task, now time.Time) *model.Task {
	if c.fitsAlongsideRunning(em, now) {
		return nil
	}
	var victim *model.Task
	for _, t := range c.tasks {
		if t.Status != model.StatusInProgress {
			continue
		}
		if !sharesResource(em.Demand, t.Demand) {
			continue
		}
		if t.Criticality >= em.Criticality {
			continue
		}
		if victim == nil || t.Criticality < victim.Criticality ||
			(t.Criticality == victim.Criticality && t.ID < victim.ID) {
			victim = t
		}
	}
	return victim
}

// fitsAlongsideRunning checks whether the running tasks leave enough
// capacity for the emergency right now.
func (c *Controller) fitsAlongsideRunning(em model.Task, now time.Time) bool {
	for i, d := range em.Demand {
		if d == 0 {
			continue
		}
		used := 0
		for _, t := range c.tasks {
			if t.Status != model.StatusInProgress {
				continue
			}
			if i < len(t.Demand) {
				used += t.Demand[i]
			}
		}
		if used+d > c.pool.Capacity[i] {
			return false
		}
	}
	return true
}

func sharesResource(a, b []int) bool {
	for i := range a {
		if i < len(b) && a[i] > 0 && b[i] > 0 {
			return true
		}
	}
	return false
}

// preemptLocked splits the running task at now: the original becomes a
// Preempted record covering the elapsed working hours, and a remainder task
// re-enters the pool carrying the unfinished duration. The remainder depends
// on the preempted portion; successors of the original are satisfied by the
// preempted portion alone. Callers hold the lock.
func (c *Controller) preemptLocked(t *model.Task, now time.Time) int {
	start := t.ActualStart
	if start.IsZero() {
		if a, ok := c.committed.ByTask[t.ID]; ok {
			start = a.Start
		}
	}
	elapsed := c.calendar.CountWorkHours(start, now)
	if elapsed >= t.DurationHours {
		t.Status = model.StatusCompleted
		t.ActualEnd = now
		return 0
	}

	remaining := t.DurationHours - elapsed

	rem := t.Clone()
	rem.ID = c.nextID
	c.nextID++
	rem.DurationHours = remaining
	rem.Status = model.StatusSplitRemainder
	rem.Urgent = false
	rem.ActualStart = time.Time{}
	rem.ActualEnd = time.Time{}
	rem.PlannedStart = time.Time{}
	rem.PlannedEnd = time.Time{}
	rem.Predecessors = remainderPredecessors(t, c.tasks)
	rem.Remarks = fmt.Sprintf("remainder of task %d", t.ID)
	c.tasks[rem.ID] = &rem

	t.Status = model.StatusPreempted
	t.DurationHours = elapsed
	t.ActualEnd = now
	return rem.ID
}

// remainderPredecessors keeps the preempted portion plus any original
// predecessor that has not finished yet.
func remainderPredecessors(orig *model.Task, registry map[int]*model.Task) []int {
	preds := []int{orig.ID}
	for _, p := range orig.Predecessors {
		if pt, ok := registry[p]; ok && !pt.Status.Done() {
			preds = append(preds, p)
		}
	}
	return preds
}

// ArchiveCompleted drops finished tasks (completed or preempted portions)
// whose end fell behind the window origin and strips them from remaining
// predecessor lists. Only what is needed to resume rolling-horizon state is
// kept.
func (c *Controller) ArchiveCompleted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var drop []int
	for id, t := range c.tasks {
		if t.Status.Done() && !t.ActualEnd.IsZero() && t.ActualEnd.Before(c.origin) {
			drop = append(drop, id)
		}
	}
	dropped := make(map[int]bool, len(drop))
	for _, id := range drop {
		dropped[id] = true
		delete(c.tasks, id)
	}
	for _, t := range c.tasks {
		kept := t.Predecessors[:0]
		for _, p := range t.Predecessors {
			if !dropped[p] {
				kept = append(kept, p)
			}
		}
		t.Predecessors = kept
	}
	return len(drop)
}
