// Package config loads the scheduler configuration from YAML or JSON with
// environment overrides, applying the documented defaults for every knob.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yw35561-wq/Mic-Scheduler/core/cluster"
	"github.com/yw35561-wq/Mic-Scheduler/core/controller"
	"github.com/yw35561-wq/Mic-Scheduler/core/model"
	"github.com/yw35561-wq/Mic-Scheduler/core/optimize"
	"github.com/yw35561-wq/Mic-Scheduler/core/risk"
	"github.com/yw35561-wq/Mic-Scheduler/infra/mqtt"
	"github.com/yw35561-wq/Mic-Scheduler/metrics"
)

// Config is the full configuration surface of the scheduler.
type Config struct {
	Cluster    cluster.Config    `json:"cluster"`
	Optimize   optimize.Config   `json:"optimize"`
	Controller controller.Config `json:"controller"`
	Resources  ResourcesConfig   `json:"resources"`
	Costs      CostsConfig       `json:"costs"`
	Calendar   CalendarConfig    `json:"calendar"`
	Risk       RiskConfig        `json:"risk"`
	Bounds     model.Bounds      `json:"bounds"`
	Metrics    metrics.Config    `json:"metrics"`
	MQTT       mqtt.Config       `json:"mqtt"`
	// Seed fixes every random draw; identical seed and inputs reproduce
	// runs bit for bit.
	Seed int64 `json:"seed"`
}

// ResourcesConfig declares the resource types and capacities.
type ResourcesConfig struct {
	Types    []string `json:"types"`
	Capacity []int    `json:"capacity"`
}

// CostsConfig mirrors model.CostTable.
type CostsConfig struct {
	PerUnitHour         []float64 `json:"per_unit_hour"`
	SetupCost           float64   `json:"setup_cost"`
	OverloadPenalty     float64   `json:"overload_penalty"`
	DowntimeCost        float64   `json:"downtime_cost"`
	EmergencyMultiplier float64   `json:"emergency_multiplier"`
}

// CalendarConfig declares the legal working windows.
type CalendarConfig struct {
	// Windows are [start,end) hour pairs, e.g. [[8,12],[13,17]].
	Windows [][2]int `json:"windows"`
	RestDay int      `json:"rest_day"` // time.Weekday, 0 = Sunday
}

// RiskConfig overrides entries of the monthly risk table. Keys are month
// numbers 1-12.
type RiskConfig struct {
	Months map[int]MonthRisk `json:"months"`
}

// MonthRisk mirrors risk.MonthRisk.
type MonthRisk struct {
	Probability float64 `json:"probability"`
	DelayDays   int     `json:"delay_days"`
}

// Load reads the configuration file, applies K_-prefixed environment
// overrides, then defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// The callback emits dot-separated keys, so the provider must unflatten
	// on "." for them to land on the nested paths.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every knob at its documented
// default.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills missing values.
func (c *Config) SetDefaults() {
	c.Cluster.SetDefaults()
	c.Optimize.SetDefaults()
	c.Controller.SetDefaults()
	c.Metrics.SetDefaults()
	if c.Seed != 0 {
		if c.Cluster.Seed == 0 {
			c.Cluster.Seed = c.Seed
		}
		if c.Optimize.Seed == 0 {
			c.Optimize.Seed = c.Seed
		}
	}
	if len(c.Resources.Types) == 0 {
		pool := model.DefaultResourcePool()
		c.Resources.Types = pool.Types
		c.Resources.Capacity = pool.Capacity
	}
	if len(c.Costs.PerUnitHour) == 0 {
		costs := model.DefaultCostTable()
		c.Costs = CostsConfig{
			PerUnitHour:         costs.PerUnitHour,
			SetupCost:           costs.SetupCost,
			OverloadPenalty:     costs.OverloadPenalty,
			DowntimeCost:        costs.DowntimeCost,
			EmergencyMultiplier: costs.EmergencyMultiplier,
		}
	}
	if len(c.Calendar.Windows) == 0 {
		c.Calendar.Windows = [][2]int{{8, 12}, {13, 17}}
	}
}

// Validate checks the aggregate.
func (c *Config) Validate() error {
	if err := c.Cluster.Validate(); err != nil {
		return fmt.Errorf("cluster: %w", err)
	}
	if err := c.Optimize.Validate(); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := c.Pool().Validate(); err != nil {
		return fmt.Errorf("resources: %w", err)
	}
	if err := c.BuildCalendar().Validate(); err != nil {
		return fmt.Errorf("calendar: %w", err)
	}
	return nil
}

// Pool builds the model.ResourcePool.
func (c *Config) Pool() model.ResourcePool {
	return model.ResourcePool{Types: c.Resources.Types, Capacity: c.Resources.Capacity}
}

// CostTable builds the model.CostTable.
func (c *Config) CostTable() model.CostTable {
	return model.CostTable{
		PerUnitHour:         c.Costs.PerUnitHour,
		SetupCost:           c.Costs.SetupCost,
		OverloadPenalty:     c.Costs.OverloadPenalty,
		DowntimeCost:        c.Costs.DowntimeCost,
		EmergencyMultiplier: c.Costs.EmergencyMultiplier,
	}
}

// BuildCalendar builds the model.Calendar.
func (c *Config) BuildCalendar() model.Calendar {
	cal := model.Calendar{RestDay: timeWeekday(c.Calendar.RestDay)}
	for _, w := range c.Calendar.Windows {
		cal.Windows = append(cal.Windows, model.WorkWindow{StartHour: w[0], EndHour: w[1]})
	}
	return cal
}

// RiskTable builds the monthly table, applying configured overrides on top
// of the defaults.
func (c *Config) RiskTable() risk.MonthlyTable {
	table := risk.DefaultTable()
	for m, r := range c.Risk.Months {
		if m >= 1 && m <= 12 {
			table.Months[timeMonth(m)] = risk.MonthRisk{Probability: r.Probability, DelayDays: r.DelayDays}
		}
	}
	return table
}
