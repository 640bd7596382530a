package model

import "testing"

func TestCriticalityFromRPN(t *testing.T) {
	cases := []struct {
		s, o, d int
		want    int
	}{
		{10, 10, 10, 10},
		{5, 5, 5, 1},
		{8, 7, 6, 3},
		{1, 1, 1, 1},
		{9, 9, 9, 7},
	}
	for _, c := range cases {
		if got := CriticalityFromRPN(c.s, c.o, c.d); got != c.want {
			t.Fatalf("RPN(%d,%d,%d) = %d, want %d", c.s, c.o, c.d, got, c.want)
		}
	}
}

func TestDefaultCriticality(t *testing.T) {
	if got := DefaultCriticality(nil); got != 5 {
		t.Fatalf("empty project fallback = %d, want 5", got)
	}
	tasks := []Task{{Criticality: 2}, {Criticality: 9}, {Criticality: 4}}
	if got := DefaultCriticality(tasks); got != 5 {
		t.Fatalf("mean fallback = %d, want 5", got)
	}
}

func TestStatusSchedulable(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusScheduled, StatusSplitRemainder} {
		if !s.Schedulable() {
			t.Fatalf("%s should be schedulable", s)
		}
	}
	for _, s := range []Status{StatusInProgress, StatusPreempted, StatusCompleted} {
		if s.Schedulable() {
			t.Fatalf("%s should not be schedulable", s)
		}
	}
}

func TestStatusDone(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusPreempted} {
		if !s.Done() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusScheduled, StatusInProgress, StatusSplitRemainder} {
		if s.Done() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestParseSystem(t *testing.T) {
	for _, s := range Systems {
		got, err := ParseSystem(s.String())
		if err != nil || got != s {
			t.Fatalf("round trip %s failed: %v", s, err)
		}
	}
	if _, err := ParseSystem("Roof"); err == nil {
		t.Fatalf("expected error for unknown system")
	}
}

func TestTaskCloneIsIndependent(t *testing.T) {
	orig := Task{ID: 1, Demand: []int{1, 2}, Predecessors: []int{3}}
	c := orig.Clone()
	c.Demand[0] = 9
	c.Predecessors[0] = 9
	if orig.Demand[0] != 1 || orig.Predecessors[0] != 3 {
		t.Fatalf("clone shares backing arrays")
	}
}
