package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yw35561-wq/Mic-Scheduler/config"
	"github.com/yw35561-wq/Mic-Scheduler/core/controller"
	"github.com/yw35561-wq/Mic-Scheduler/core/events"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/infra/logger"
	"github.com/yw35561-wq/Mic-Scheduler/infra/mqtt"
	"github.com/yw35561-wq/Mic-Scheduler/infra/source"
	"github.com/yw35561-wq/Mic-Scheduler/internal/eventbus"
	"github.com/yw35561-wq/Mic-Scheduler/metrics"
)

var (
	simDays   int
	tickHours int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the rolling-horizon loop over a simulated clock",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simDays, "days", 30, "simulated project days")
	simulateCmd.Flags().IntVar(&tickHours, "tick", 24, "hours between rolling ticks")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("simulate")

	var sink metrics.Sink = metrics.NopSink{}
	if cfg.Metrics.PrometheusEnabled {
		prom, err := metrics.NewPromSink(nil)
		if err != nil {
			return fmt.Errorf("prom sink: %w", err)
		}
		sink = prom
		go func() {
			if err := metrics.StartPromServer(cfg.Metrics.PrometheusPort); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	tasks, pool, err := source.File{Path: tasksPath}.Load()
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	bus := eventbus.New()
	defer bus.Close()
	go logEvents(bus.Subscribe(), log)

	ctrl, err := controller.New(cfg.Controller, cfg.Cluster, cfg.Optimize,
		pool, cfg.CostTable(), cfg.BuildCalendar(), cfg.RiskTable(), log, sink, bus)
	if err != nil {
		return err
	}
	if err := ctrl.AddTasks(tasks, cfg.Bounds); err != nil {
		return fmt.Errorf("add tasks: %w", err)
	}

	if cfg.MQTT.Enabled {
		ing, err := mqtt.NewIngress(cfg.MQTT, log, func(t model.Task) {
			if _, err := ctrl.InjectEmergency(ctx, t, ctrl.Origin()); err != nil &&
				!errors.Is(err, controller.ErrReplanQueued) {
				log.Errorf("emergency injection: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("mqtt ingress: %w", err)
		}
		defer ing.Close()
	}

	now := time.Now().Truncate(time.Hour)
	ctrl.SetOrigin(now)
	end := now.Add(time.Duration(simDays) * 24 * time.Hour)
	for clock := now; clock.Before(end); clock = clock.Add(time.Duration(tickHours) * time.Hour) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := ctrl.Tick(ctx, clock); err != nil {
			return fmt.Errorf("tick at %s: %w", clock, err)
		}
		ctrl.ArchiveCompleted()
	}

	remaining := 0
	for _, t := range ctrl.Tasks() {
		if !t.Status.Done() {
			remaining++
		}
	}
	log.Infof("simulation finished: %d tasks remaining after %d days", remaining, simDays)
	return nil
}

func logEvents(ch <-chan eventbus.Event, log logger.Logger) {
	for e := range ch {
		switch ev := e.(type) {
		case events.PreemptionEvent:
			log.Infof("preempted task %d for emergency %d (remainder %d)", ev.PreemptedID, ev.EmergencyID, ev.RemainderID)
		case events.BudgetEvent:
			log.Warnf("optimizer budget %s hit at generation %d", ev.Budget, ev.Generation)
		case events.CapacityEvent:
			log.Warnf("capacity mismatch on %s: %d over %d", ev.Resource, ev.Used, ev.Capacity)
		}
	}
}
