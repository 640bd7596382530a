// Package scenarios runs end-to-end scheduling scenarios described in YAML:
// a project, a tick cadence and a timeline of disruptions, with expectations
// on the final state. The files double as executable documentation of the
// rolling-horizon behavior.
package scenarios

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// TaskDef is the YAML shape of one project task.
type TaskDef struct {
	ID           int     `yaml:"id"`
	System       string  `yaml:"system"`
	X            float64 `yaml:"x"`
	Y            float64 `yaml:"y"`
	Z            float64 `yaml:"z"`
	Demand       []int   `yaml:"demand"`
	Duration     int     `yaml:"duration_hours"`
	Predecessors []int   `yaml:"predecessors,omitempty"`
	Criticality  int     `yaml:"criticality"`
}

// ToModel converts the definition to a model.Task.
func (d TaskDef) ToModel() (model.Task, error) {
	sys, err := model.ParseSystem(d.System)
	if err != nil {
		return model.Task{}, fmt.Errorf("task %d: %w", d.ID, err)
	}
	return model.Task{
		ID:            d.ID,
		System:        sys,
		X:             d.X,
		Y:             d.Y,
		Z:             d.Z,
		Demand:        d.Demand,
		DurationHours: d.Duration,
		Predecessors:  d.Predecessors,
		Criticality:   d.Criticality,
	}, nil
}

// EmergencyDef injects an urgent task a number of hours into the run.
type EmergencyDef struct {
	AtHours int     `yaml:"at_hours"`
	Task    TaskDef `yaml:"task"`
}

// CapacityDef replaces the pool capacities a number of hours into the run.
type CapacityDef struct {
	AtHours  int   `yaml:"at_hours"`
	Capacity []int `yaml:"capacity"`
}

// Expected states what must hold once the scenario has run out.
type Expected struct {
	Completed   int  `yaml:"completed"`
	Preemptions int  `yaml:"preemptions"`
	AllDone     bool `yaml:"all_done"`
}

// Scenario is one YAML scenario file.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Resources struct {
		Types    []string `yaml:"types"`
		Capacity []int    `yaml:"capacity"`
	} `yaml:"resources"`
	Tasks []TaskDef `yaml:"tasks"`

	// Origin is the project start, RFC3339. Defaults to a fixed Monday
	// morning so scenarios stay reproducible.
	Origin string `yaml:"origin,omitempty"`

	TickHours int `yaml:"tick_hours"`
	Days      int `yaml:"days"`

	Emergencies     []EmergencyDef `yaml:"emergencies,omitempty"`
	CapacityChanges []CapacityDef  `yaml:"capacity_changes,omitempty"`

	Expected Expected `yaml:"expected"`
}

// OriginTime parses the origin, falling back to the default.
func (s *Scenario) OriginTime() (time.Time, error) {
	if s.Origin == "" {
		return time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, s.Origin)
}

// Pool builds the scenario resource pool.
func (s *Scenario) Pool() model.ResourcePool {
	if len(s.Resources.Types) == 0 {
		return model.DefaultResourcePool()
	}
	return model.ResourcePool{Types: s.Resources.Types, Capacity: s.Resources.Capacity}
}

// Load reads one scenario file.
func Load(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if sc.TickHours == 0 {
		sc.TickHours = 24
	}
	if sc.Days == 0 {
		sc.Days = 30
	}
	return &sc, nil
}

// LoadDir reads every .yaml scenario under dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	out := make([]*Scenario, 0, len(names))
	for _, n := range names {
		sc, err := Load(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}
