// Package risk provides the environmental risk multipliers consumed by the
// optimizer's risk objective. The default table carries the Hong Kong
// typhoon-season profile keyed by calendar month.
package risk

import (
	"time"

	"github.com/yw35561-wq/Mic-Scheduler/core/model"
)

// Provider returns the environmental risk multiplier for a point in time and
// a building system. Implementations must be pure so schedule decoding stays
// deterministic.
type Provider interface {
	Factor(t time.Time, sys model.System) float64
}

// MonthRisk is one row of the monthly risk table.
type MonthRisk struct {
	// Probability of weather-induced disruption during the month.
	Probability float64
	// DelayDays is the expected schedule slip when disruption occurs.
	DelayDays int
}

// MonthlyTable maps calendar months to risk figures. Systems exposed to
// weather take the full probability, sheltered systems half.
type MonthlyTable struct {
	Months map[time.Month]MonthRisk
}

// DefaultTable returns the Hong Kong weather risk profile.
func DefaultTable() MonthlyTable {
	return MonthlyTable{Months: map[time.Month]MonthRisk{
		time.January:   {0.01, 0},
		time.February:  {0.01, 0},
		time.March:     {0.02, 0},
		time.April:     {0.05, 1},
		time.May:       {0.15, 2},
		time.June:      {0.30, 3},
		time.July:      {0.50, 4},
		time.August:    {0.60, 5},
		time.September: {0.40, 3},
		time.October:   {0.20, 2},
		time.November:  {0.05, 1},
		time.December:  {0.01, 0},
	}}
}

// Exposed reports whether work on the system happens outside the weather
// envelope.
func Exposed(sys model.System) bool {
	return sys == model.SystemStruct || sys == model.SystemFacade
}

// Factor implements Provider.
func (m MonthlyTable) Factor(t time.Time, sys model.System) float64 {
	r, ok := m.Months[t.Month()]
	if !ok {
		return 0
	}
	if Exposed(sys) {
		return r.Probability
	}
	return r.Probability / 2
}

// ExpectedDelayDays returns the expected slip for the month containing t.
func (m MonthlyTable) ExpectedDelayDays(t time.Time) int {
	return m.Months[t.Month()].DelayDays
}
