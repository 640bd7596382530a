package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yw35561-wq/Mic-Scheduler/config"
	"github.com/yw35561-wq/Mic-Scheduler/core/cluster"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/optimize"
	"github.com/yw35561-wq/Mic-Scheduler/core/schedule"
	"github.com/yw35561-wq/Mic-Scheduler/infra/logger"
	"github.com/yw35561-wq/Mic-Scheduler/infra/source"
	"github.com/yw35561-wq/Mic-Scheduler/pkg/export"
)

var (
	outPath   string
	outFormat string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run one clustering + optimization pass and export the report",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVarP(&outPath, "out", "o", "schedule.json", "report output file")
	scheduleCmd.Flags().StringVar(&outFormat, "format", "json", "report format: json or csv")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("schedule")

	tasks, pool, err := source.File{Path: tasksPath}.Load()
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if err := model.ValidateTasks(tasks, pool, cfg.Bounds); err != nil {
		return fmt.Errorf("validate tasks: %w", err)
	}

	eng := cluster.Engine{Cfg: cfg.Cluster, Log: log}
	clustering, err := eng.Run(tasks)
	if err != nil {
		return err
	}
	log.Infof("clustered %d tasks into %d batches (silhouette %.3f)", len(tasks), clustering.K, clustering.Silhouette)

	cal := cfg.BuildCalendar()
	origin := cal.NextWorkingHour(time.Now())
	in := schedule.Input{
		Tasks:         tasks,
		Clusters:      clustering.Clusters,
		Pool:          pool,
		Calendar:      cal,
		WindowStart:   origin,
		AllowOverflow: cfg.Controller.AllowOverflow,
		HorizonHours:  cfg.Controller.LookaheadHours,
	}
	ev := optimize.NewEvaluator(in, cfg.CostTable(), cfg.RiskTable())

	budget := time.Duration(cfg.Controller.BudgetSeconds) * time.Second
	optCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	opt := optimize.Optimizer{Cfg: cfg.Optimize, Log: log}
	front, err := opt.Run(optCtx, ev, len(clustering.Clusters))
	if err != nil {
		return err
	}
	recommended := front.Individuals[front.Recommended]
	_, decoded := ev.Evaluate(recommended.Perm)

	report := export.Build(front, decoded, cal, pool, origin, decoded.Makespan)
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	switch outFormat {
	case "csv":
		err = export.WriteCSV(f, report)
	default:
		err = export.WriteJSON(f, report)
	}
	if err != nil {
		return err
	}
	log.Infof("front size %d, recommended cost=%.0f risk=%.1f delay=%.1f, wrote %s",
		len(front.Individuals), recommended.Obj.Cost, recommended.Obj.Risk, recommended.Obj.Delay, outPath)
	return nil
}
