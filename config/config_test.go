package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Cluster.KMin)
	assert.Equal(t, 10, cfg.Cluster.KMax)
	assert.Equal(t, 50, cfg.Optimize.PopulationSize)
	assert.Equal(t, 100, cfg.Optimize.Generations)
	assert.Equal(t, 0.9, cfg.Optimize.CrossoverProb)
	assert.Equal(t, 48, cfg.Controller.CommitHours)
	assert.Equal(t, 10, cfg.Controller.BudgetSeconds)
	assert.Equal(t, 9090, cfg.Metrics.PrometheusPort)

	pool := cfg.Pool()
	assert.Len(t, pool.Types, 6)
	assert.Equal(t, []int{10, 15, 30, 2, 5, 5}, pool.Capacity)

	costs := cfg.CostTable()
	assert.Equal(t, 1.2, costs.EmergencyMultiplier)
	assert.Equal(t, 2000.0, costs.SetupCost)

	cal := cfg.BuildCalendar()
	assert.Equal(t, time.Sunday, cal.RestDay)
	assert.Len(t, cal.Windows, 2)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
seed: 42
cluster:
  k_min: 3
  k_max: 6
optimize:
  population_size: 30
controller:
  commit_hours: 24
resources:
  types: ["skilled", "crane"]
  capacity: [4, 1]
risk:
  months:
    8:
      probability: 0.8
      delay_days: 7
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Cluster.KMin)
	assert.Equal(t, 6, cfg.Cluster.KMax)
	assert.Equal(t, 30, cfg.Optimize.PopulationSize)
	assert.Equal(t, 24, cfg.Controller.CommitHours)
	assert.Equal(t, []string{"skilled", "crane"}, cfg.Resources.Types)

	// The project seed propagates to both stochastic stages.
	assert.EqualValues(t, 42, cfg.Cluster.Seed)
	assert.EqualValues(t, 42, cfg.Optimize.Seed)

	// Overridden month replaces the default, the rest stay.
	tbl := cfg.RiskTable()
	assert.Equal(t, 0.8, tbl.Months[time.August].Probability)
	assert.Equal(t, 7, tbl.Months[time.August].DelayDays)
	assert.Equal(t, 0.50, tbl.Months[time.July].Probability)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 1\n"), 0o600))

	t.Setenv("K_OPTIMIZE__GENERATIONS", "25")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Optimize.Generations)
}

func TestLoadRejects(t *testing.T) {
	_, err := Load("config.toml")
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cluster:\n  k_min: 5\n  k_max: 2\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "cluster")
}
