// Package events defines the controller events emitted on the event bus.
//
// Available event types:
//   - ReplanEvent: a re-optimization started or finished
//   - PreemptionEvent: an in-progress task was preempted and split
//   - BudgetEvent: a re-optimization hit its wall-clock budget
//   - CapacityEvent: a capacity update left committed work oversubscribed
package events

import "time"

// ReplanEvent is emitted around each re-optimization. Action is "start",
// "done" or "coalesced".
type ReplanEvent struct {
	Reason    string
	Action    string
	RunID     string
	FrontSize int
	Elapsed   time.Duration
}

// PreemptionEvent is emitted when an emergency displaces in-progress work.
type PreemptionEvent struct {
	PreemptedID  int
	RemainderID  int
	EmergencyID  int
	PreemptedAt  time.Time
	ElapsedHours int
}

// BudgetEvent is emitted when the optimizer is cut short by its wall-clock
// budget and the best-so-far front is substituted.
type BudgetEvent struct {
	Budget     time.Duration
	Generation int
}

// CapacityEvent is emitted when frozen work exceeds an updated capacity.
type CapacityEvent struct {
	Resource string
	Used     int
	Capacity int
	At       time.Time
}
