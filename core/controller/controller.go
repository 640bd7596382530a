// Package controller drives the rolling-horizon re-planning loop. It owns
// the task registry and the rolling window; the clustering engine and the
// optimizer only ever see immutable snapshots.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/cluster"
	"github.com/yw35561-wq/Mic-Scheduler/core/events"
	"github.com/yw35561-wq/Mic-Scheduler/core/logger"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/optimize"
	"github.com/yw35561-wq/Mic-Scheduler/core/risk"
	"github.com/yw35561-wq/Mic-Scheduler/core/schedule"
	"github.com/yw35561-wq/Mic-Scheduler/internal/eventbus"
	"github.com/yw35561-wq/Mic-Scheduler/metrics"
)

// ErrReplanQueued is returned when a re-optimization request arrives while
// one is already in flight; the request is coalesced into a single follow-up
// run.
var ErrReplanQueued = errors.New("replan already in flight, request coalesced")

// Config holds the rolling-window parameters.
type Config struct {
	// CommitHours is the commit-window length: tasks starting within it
	// freeze and become immutable inputs to the next optimization.
	CommitHours int `json:"commit_hours"`
	// LookaheadHours bounds how far ahead of the window origin the decoder
	// scans for feasible starts.
	LookaheadHours int `json:"lookahead_hours"`
	// BudgetSeconds is the soft wall-clock budget per re-optimization.
	BudgetSeconds int `json:"budget_seconds"`
	// AllowOverflow enables penalty-based capacity overflow in decoding.
	AllowOverflow bool `json:"allow_overflow"`
}

// SetDefaults applies the standard window parameters.
func (c *Config) SetDefaults() {
	if c.CommitHours == 0 {
		c.CommitHours = 48
	}
	if c.LookaheadHours == 0 {
		c.LookaheadHours = 24 * 90
	}
	if c.BudgetSeconds == 0 {
		c.BudgetSeconds = 10
	}
}

// Validate checks parameter sanity.
func (c Config) Validate() error {
	if c.CommitHours < 0 || c.LookaheadHours < 0 || c.BudgetSeconds < 0 {
		return fmt.Errorf("window parameters must be non-negative")
	}
	return nil
}

// ReplanResult is what one re-optimization handed back to the caller.
type ReplanResult struct {
	Front    optimize.Front
	Schedule schedule.Result
	// Converged is false when the budget cut the run short and the
	// best-so-far front was substituted.
	Converged bool
	Warning   bool // clustering quality stayed below the floor
}

// Controller serializes re-optimizations over a single project state.
type Controller struct {
	cfg        Config
	clusterCfg cluster.Config
	optCfg     optimize.Config
	costs      model.CostTable
	calendar   model.Calendar
	riskProv   risk.Provider
	log        logger.Logger
	sink       metrics.Sink
	bus        eventbus.EventBus

	mu         sync.Mutex
	pool       model.ResourcePool
	tasks      map[int]*model.Task
	nextID     int
	origin     time.Time
	committed  schedule.Result
	replanning bool
	queued     string // coalesced reason, empty when none
}

// New creates a controller. sink and bus may be nil.
func New(cfg Config, clusterCfg cluster.Config, optCfg optimize.Config, pool model.ResourcePool, costs model.CostTable, cal model.Calendar, rp risk.Provider, log logger.Logger, sink metrics.Sink, bus eventbus.EventBus) (*Controller, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if rp == nil {
		return nil, fmt.Errorf("controller: nil risk provider")
	}
	if log == nil {
		return nil, fmt.Errorf("controller: nil logger")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Controller{
		cfg:        cfg,
		clusterCfg: clusterCfg,
		optCfg:     optCfg,
		costs:      costs,
		calendar:   cal,
		riskProv:   rp,
		log:        log,
		sink:       sink,
		bus:        bus,
		pool:       pool,
		tasks:      make(map[int]*model.Task),
		nextID:     1,
	}, nil
}

// AddTasks validates and registers a task batch. The batch is rejected as a
// whole if any task fails validation; nothing runs on a partial batch.
func (c *Controller) AddTasks(tasks []model.Task, bounds model.Bounds) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := model.ValidateTasks(tasks, c.pool, bounds); err != nil {
		return err
	}
	for _, t := range tasks {
		if _, exists := c.tasks[t.ID]; exists {
			return model.ValidationError{TaskID: t.ID, Field: "id", Reason: "already registered"}
		}
	}
	for _, t := range tasks {
		tc := t.Clone()
		c.tasks[t.ID] = &tc
		if t.ID >= c.nextID {
			c.nextID = t.ID + 1
		}
	}
	return nil
}

// SetOrigin initialises the window origin. The origin only ever moves
// forward afterwards.
func (c *Controller) SetOrigin(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = c.calendar.NextWorkingHour(t)
}

// Origin returns the current window origin.
func (c *Controller) Origin() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.origin
}

// Tasks returns a copy of the task registry.
func (c *Controller) Tasks() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Committed returns the currently committed schedule.
func (c *Controller) Committed() schedule.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committed
}

// Replan re-runs clustering and optimization over the unfrozen remainder of
// the horizon and commits the recommended schedule. Requests arriving while
// a run is in flight are coalesced; the caller gets ErrReplanQueued and the
// in-flight run triggers one follow-up when it finishes.
func (c *Controller) Replan(ctx context.Context, reason string) (ReplanResult, error) {
	c.mu.Lock()
	if c.replanning {
		c.queued = reason
		c.mu.Unlock()
		c.publish(events.ReplanEvent{Reason: reason, Action: "coalesced"})
		return ReplanResult{}, ErrReplanQueued
	}
	c.replanning = true
	c.mu.Unlock()

	res, err := c.replanOnce(ctx, reason)

	for {
		c.mu.Lock()
		next := c.queued
		c.queued = ""
		if next == "" {
			c.replanning = false
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()
		if _, ferr := c.replanOnce(ctx, next); ferr != nil {
			c.log.Errorf("coalesced replan (%s): %v", next, ferr)
		}
	}
	return res, err
}

func (c *Controller) replanOnce(ctx context.Context, reason string) (ReplanResult, error) {
	started := time.Now()
	c.publish(events.ReplanEvent{Reason: reason, Action: "start"})

	snapTasks, frozen, origin, pool := c.snapshot()
	if len(snapTasks) == 0 {
		// Everything is frozen or finished; nothing to re-order.
		c.log.Debugf("replan (%s): no unfrozen tasks", reason)
		return ReplanResult{Schedule: c.Committed(), Converged: true}, nil
	}

	clusterCfg := c.clusterCfg
	eng := cluster.Engine{Cfg: clusterCfg, Log: c.log}
	clustering, err := eng.Run(snapTasks)
	if err != nil {
		return ReplanResult{}, fmt.Errorf("clustering: %w", err)
	}

	in := schedule.Input{
		Tasks:         snapTasks,
		Clusters:      clustering.Clusters,
		Pool:          pool,
		Calendar:      c.calendar,
		Frozen:        frozen,
		WindowStart:   origin,
		AllowOverflow: c.cfg.AllowOverflow,
		HorizonHours:  c.cfg.LookaheadHours,
	}
	ev := optimize.NewEvaluator(in, c.costs, c.riskProv)

	budget := time.Duration(c.cfg.BudgetSeconds) * time.Second
	optCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	opt := optimize.Optimizer{Cfg: c.optCfg, Log: c.log}
	front, err := opt.Run(optCtx, ev, len(clustering.Clusters))
	if err != nil {
		return ReplanResult{}, fmt.Errorf("optimize: %w", err)
	}
	if !front.Converged {
		c.publish(events.BudgetEvent{Budget: budget, Generation: front.Generations})
	}

	recommended := front.Individuals[front.Recommended]
	_, decoded := ev.Evaluate(recommended.Perm)
	c.commit(decoded)

	elapsed := time.Since(started)
	c.publish(events.ReplanEvent{
		Reason: reason, Action: "done", RunID: front.RunID,
		FrontSize: len(front.Individuals), Elapsed: elapsed,
	})
	if err := c.sink.RecordReplan(metrics.ReplanStats{
		Reason: reason, RunID: front.RunID, FrontSize: len(front.Individuals),
		Generations: front.Generations, Converged: front.Converged, Elapsed: elapsed,
	}); err != nil {
		c.log.Errorf("record replan: %v", err)
	}
	c.recordUtilization(decoded)

	c.log.Infof("replan (%s): front=%d k=%d converged=%v in %s",
		reason, len(front.Individuals), clustering.K, front.Converged, elapsed)
	return ReplanResult{
		Front:     front,
		Schedule:  decoded,
		Converged: front.Converged,
		Warning:   clustering.QualityWarning,
	}, nil
}

// snapshot collects the schedulable tasks, the frozen placements, the window
// origin and the pool under the lock. Decode inputs are built only from the
// snapshot; UpdateCapacity swaps the pool concurrently.
func (c *Controller) snapshot() ([]model.Task, []schedule.Assignment, time.Time, model.ResourcePool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var tasks []model.Task
	var frozen []schedule.Assignment
	for _, t := range c.tasks {
		switch t.Status {
		case model.StatusCompleted, model.StatusPreempted:
			continue
		case model.StatusInProgress:
			if a, ok := c.committed.ByTask[t.ID]; ok {
				frozen = append(frozen, a)
			}
		case model.StatusScheduled:
			if a, ok := c.committed.ByTask[t.ID]; ok && c.inCommitWindow(a.Start) {
				frozen = append(frozen, a)
				continue
			}
			tasks = append(tasks, t.Clone())
		default:
			tasks = append(tasks, t.Clone())
		}
	}
	return tasks, frozen, c.origin, c.pool
}

func (c *Controller) inCommitWindow(start time.Time) bool {
	return !start.After(c.origin.Add(time.Duration(c.cfg.CommitHours) * time.Hour))
}

// commit stores the decoded schedule and propagates planned times to the
// registry.
func (c *Controller) commit(res schedule.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.committed = res
	for id, a := range res.ByTask {
		t, ok := c.tasks[id]
		if !ok || !t.Status.Schedulable() {
			continue
		}
		t.PlannedStart = a.Start
		t.PlannedEnd = a.End
	}
}

func (c *Controller) recordUtilization(res schedule.Result) {
	c.mu.Lock()
	pool := c.pool
	origin := c.origin
	c.mu.Unlock()
	samples := res.Utilization(c.calendar, pool, origin, origin.Add(24*time.Hour))
	if len(samples) == 0 {
		return
	}
	stats := make([]metrics.UtilizationStats, len(pool.Types))
	for i, name := range pool.Types {
		peak := 0
		for _, s := range samples {
			if s.Used[i] > peak {
				peak = s.Used[i]
			}
		}
		stats[i] = metrics.UtilizationStats{Resource: name, Used: peak, Capacity: pool.Capacity[i]}
	}
	if err := c.sink.RecordUtilization(stats); err != nil {
		c.log.Errorf("record utilization: %v", err)
	}
}

// UpdateCapacity replaces the resource pool. If the change leaves frozen
// work oversubscribed, the mismatches are reported for the caller to decide
// on force-preemption; they are never silently dropped. A re-plan on the
// unfrozen remainder follows either way.
func (c *Controller) UpdateCapacity(ctx context.Context, pool model.ResourcePool) ([]schedule.CapacityMismatch, error) {
	if err := pool.Validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pool = pool
	c.mu.Unlock()

	_, frozen, _, _ := c.snapshot()
	mismatches := frozenMismatches(frozen, c.calendar, pool)
	for _, m := range mismatches {
		c.publish(events.CapacityEvent{Resource: m.Resource, Used: m.Used, Capacity: m.Capacity, At: m.Time})
		c.log.Warnf("capacity mismatch: %s used %d > capacity %d at %s", m.Resource, m.Used, m.Capacity, m.Time)
	}

	if _, err := c.Replan(ctx, "capacity"); err != nil && !errors.Is(err, ErrReplanQueued) {
		return mismatches, err
	}
	return mismatches, nil
}

func frozenMismatches(frozen []schedule.Assignment, cal model.Calendar, pool model.ResourcePool) []schedule.CapacityMismatch {
	in := schedule.Input{Pool: pool, Calendar: cal, Frozen: frozen}
	res := schedule.Decode(nil, in)
	return res.Diag.CapacityMismatch
}

func (c *Controller) publish(e eventbus.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}
