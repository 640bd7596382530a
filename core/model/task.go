package model

import (
	"fmt"
	"math"
	"time"
)

// System identifies the building system a task belongs to.
type System int

const (
	SystemStruct System = iota
	SystemElec
	SystemPlumb
	SystemHVAC
	SystemFacade
)

// Systems lists all known building systems.
var Systems = []System{SystemStruct, SystemElec, SystemPlumb, SystemHVAC, SystemFacade}

// String returns a human-readable representation of the system.
func (s System) String() string {
	switch s {
	case SystemStruct:
		return "Struct"
	case SystemElec:
		return "Elec"
	case SystemPlumb:
		return "Plumb"
	case SystemHVAC:
		return "HVAC"
	case SystemFacade:
		return "Facade"
	default:
		return "unknown"
	}
}

// ParseSystem maps a system name to its System value.
func ParseSystem(name string) (System, error) {
	for _, s := range Systems {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown system %q", name)
}

// Status describes where a task sits in its lifecycle.
type Status int

const (
	StatusPending Status = iota
	StatusScheduled
	StatusInProgress
	StatusPreempted
	StatusCompleted
	StatusSplitRemainder
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusScheduled:
		return "Scheduled"
	case StatusInProgress:
		return "InProgress"
	case StatusPreempted:
		return "Preempted"
	case StatusCompleted:
		return "Completed"
	case StatusSplitRemainder:
		return "SplitRemainder"
	default:
		return "unknown"
	}
}

// Schedulable reports whether the task may still be placed by the decoder.
func (s Status) Schedulable() bool {
	return s == StatusPending || s == StatusScheduled || s == StatusSplitRemainder
}

// Done reports whether the task has reached a terminal state: finished, or
// cut short by a preemption with its remaining work reissued as a split
// remainder.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusPreempted
}

// Task is a unit of inspection, maintenance or construction work.
type Task struct {
	ID            int
	System        System
	X, Y, Z       float64
	Demand        []int // required units per resource type
	DurationHours int
	Predecessors  []int
	Criticality   int // 1..10, from the external risk assessment
	Status        Status
	Urgent        bool // true for emergency-injected tasks

	PlannedStart time.Time
	PlannedEnd   time.Time
	ActualStart  time.Time
	ActualEnd    time.Time

	Remarks string
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	c := t
	c.Demand = append([]int(nil), t.Demand...)
	c.Predecessors = append([]int(nil), t.Predecessors...)
	return c
}

// CriticalityFromRPN derives a task criticality from a severity, occurrence
// and detection triple: floor(S*O*D/100), clamped to [1,10].
func CriticalityFromRPN(severity, occurrence, detection int) int {
	c := int(math.Floor(float64(severity*occurrence*detection) / 100.0))
	if c < 1 {
		c = 1
	}
	if c > 10 {
		c = 10
	}
	return c
}

// DefaultCriticality returns the fallback criticality used when a task
// arrives without a usable S/O/D triple: the rounded project mean, or 5 on
// an empty project.
func DefaultCriticality(tasks []Task) int {
	if len(tasks) == 0 {
		return 5
	}
	sum := 0
	for _, t := range tasks {
		sum += t.Criticality
	}
	c := int(math.Round(float64(sum) / float64(len(tasks))))
	if c < 1 {
		c = 1
	}
	if c > 10 {
		c = 10
	}
	return c
}
