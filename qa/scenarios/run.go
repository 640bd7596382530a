package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/cluster"
	"github.com/yw35561-wq/Mic-Scheduler/core/controller"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/optimize"
	"github.com/yw35561-wq/Mic-Scheduler/core/risk"
	"github.com/yw35561-wq/Mic-Scheduler/infra/logger"
	"github.com/yw35561-wq/Mic-Scheduler/internal/eventbus"
	"github.com/yw35561-wq/Mic-Scheduler/metrics"
)

// countingSink tallies sink calls for scenario expectations.
type countingSink struct {
	replans     int
	preemptions int
}

func (c *countingSink) RecordReplan(metrics.ReplanStats) error             { c.replans++; return nil }
func (c *countingSink) RecordPreemption(int) error                         { c.preemptions++; return nil }
func (c *countingSink) RecordUtilization([]metrics.UtilizationStats) error { return nil }

// RunScenario drives the controller through the scenario timeline and checks
// the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	ctx := context.Background()
	sink := &countingSink{}
	bus := eventbus.New()

	ctrl, err := controller.New(
		controller.Config{BudgetSeconds: 30},
		cluster.Config{Seed: 1},
		optimize.Config{PopulationSize: 16, Generations: 20, Seed: 1},
		sc.Pool(),
		model.DefaultCostTable(),
		model.DefaultCalendar(),
		risk.DefaultTable(),
		logger.NopLogger{},
		sink,
		bus,
	)
	if err != nil {
		t.Fatalf("%s: controller: %v", sc.Name, err)
	}

	tasks := make([]model.Task, len(sc.Tasks))
	for i, d := range sc.Tasks {
		if tasks[i], err = d.ToModel(); err != nil {
			t.Fatalf("%s: %v", sc.Name, err)
		}
	}
	if err := ctrl.AddTasks(tasks, model.Bounds{}); err != nil {
		t.Fatalf("%s: add tasks: %v", sc.Name, err)
	}

	origin, err := sc.OriginTime()
	if err != nil {
		t.Fatalf("%s: origin: %v", sc.Name, err)
	}
	ctrl.SetOrigin(origin)
	if _, err := ctrl.Replan(ctx, "initial"); err != nil {
		t.Fatalf("%s: initial replan: %v", sc.Name, err)
	}

	emergencies := append([]EmergencyDef(nil), sc.Emergencies...)
	changes := append([]CapacityDef(nil), sc.CapacityChanges...)

	for h := 0; h <= sc.Days*24; h += sc.TickHours {
		now := origin.Add(time.Duration(h) * time.Hour)

		for len(emergencies) > 0 && emergencies[0].AtHours <= h {
			em, err := emergencies[0].Task.ToModel()
			if err != nil {
				t.Fatalf("%s: emergency: %v", sc.Name, err)
			}
			if _, err := ctrl.InjectEmergency(ctx, em, now); err != nil {
				t.Fatalf("%s: inject at %dh: %v", sc.Name, emergencies[0].AtHours, err)
			}
			emergencies = emergencies[1:]
		}
		for len(changes) > 0 && changes[0].AtHours <= h {
			pool := sc.Pool()
			pool.Capacity = changes[0].Capacity
			if _, err := ctrl.UpdateCapacity(ctx, pool); err != nil {
				t.Fatalf("%s: capacity change at %dh: %v", sc.Name, changes[0].AtHours, err)
			}
			changes = changes[1:]
		}

		if err := ctrl.Tick(ctx, now); err != nil {
			t.Fatalf("%s: tick at %dh: %v", sc.Name, h, err)
		}
	}

	completed := 0
	pending := 0
	for _, task := range ctrl.Tasks() {
		if task.Status.Done() {
			completed++
		} else {
			pending++
		}
	}

	if sc.Expected.AllDone && pending > 0 {
		t.Fatalf("%s: %d tasks unfinished", sc.Name, pending)
	}
	if sc.Expected.Completed > 0 && completed < sc.Expected.Completed {
		t.Fatalf("%s: completed %d, expected at least %d", sc.Name, completed, sc.Expected.Completed)
	}
	if sink.preemptions != sc.Expected.Preemptions {
		t.Fatalf("%s: %d preemptions, expected %d", sc.Name, sink.preemptions, sc.Expected.Preemptions)
	}
}
