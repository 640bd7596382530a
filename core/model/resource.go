package model

import "fmt"

// ResourcePool declares the project-wide resource types and their available
// units. Capacity[i] is the number of units of Types[i] that may be in use at
// any instant.
type ResourcePool struct {
	Types    []string
	Capacity []int
}

// DefaultResourcePool returns the six standard MiC site resource types with
// their default capacities.
func DefaultResourcePool() ResourcePool {
	return ResourcePool{
		Types:    []string{"skilled", "semi", "unskilled", "crane", "testing", "specialized"},
		Capacity: []int{10, 15, 30, 2, 5, 5},
	}
}

// Validate checks that the pool declaration is sound.
func (p ResourcePool) Validate() error {
	if len(p.Types) == 0 {
		return fmt.Errorf("resource pool has no types")
	}
	if len(p.Types) != len(p.Capacity) {
		return fmt.Errorf("resource pool: %d types but %d capacities", len(p.Types), len(p.Capacity))
	}
	for i, c := range p.Capacity {
		if c < 0 {
			return fmt.Errorf("resource %s: negative capacity %d", p.Types[i], c)
		}
	}
	return nil
}

// Exceeds reports the first resource type for which demand exceeds the total
// theoretical capacity, if any. Such a demand can never be scheduled.
func (p ResourcePool) Exceeds(demand []int) (string, bool) {
	for i, d := range demand {
		if i < len(p.Capacity) && d > p.Capacity[i] {
			return p.Types[i], true
		}
	}
	return "", false
}

// CostTable holds the unit prices used by the cost objective.
type CostTable struct {
	// PerUnitHour is the price of one resource unit for one working hour,
	// indexed like ResourcePool.Types.
	PerUnitHour []float64
	// SetupCost is the indirect mobilisation cost charged once per cluster
	// that has at least one scheduled task.
	SetupCost float64
	// OverloadPenalty is charged per overflowed unit-hour when penalty-based
	// overflow is enabled.
	OverloadPenalty float64
	// DowntimeCost is charged per working hour an in-progress task sits
	// preempted.
	DowntimeCost float64
	// EmergencyMultiplier scales direct cost for urgency-flagged tasks.
	EmergencyMultiplier float64
}

// DefaultCostTable returns the standard MiC unit prices.
func DefaultCostTable() CostTable {
	return CostTable{
		PerUnitHour:         []float64{1200, 800, 500, 3000, 1500, 1000},
		SetupCost:           2000,
		OverloadPenalty:     2000,
		DowntimeCost:        5000,
		EmergencyMultiplier: 1.2,
	}
}
