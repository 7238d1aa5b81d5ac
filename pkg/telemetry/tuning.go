package telemetry

import "time"

// Tuning holds the hand-tuned heuristics used by the normalizer and the
// estimator. They are not physical constants; DefaultTuning returns the
// values observed to work across vendors.
type Tuning struct {
	// MaxRealisticWattage is the charge/discharge power above which a
	// current reading is assumed to be in µA rather than mA.
	MaxRealisticWattage float64
	// FallbackCurrentThreshold is used instead of the wattage check when
	// the voltage is unknown.
	FallbackCurrentThreshold int
	// CapacityThreshold is the magnitude above which a charge counter is
	// assumed to be in µAh.
	CapacityThreshold int
	// DefaultCapacityMAh is assumed while the real capacity is unknown.
	DefaultCapacityMAh int
	// HistorySize bounds the current history used for averaging.
	HistorySize        int
	RecomputeInterval  time.Duration
	StabilizationDelay time.Duration
	// MinCurrentMA is the average current at or below which no ETA is given.
	MinCurrentMA int
}

// DefaultTuning returns the default heuristics.
func DefaultTuning() Tuning {
	return Tuning{
		MaxRealisticWattage:      100,
		FallbackCurrentThreshold: 15000,
		CapacityThreshold:        10000,
		DefaultCapacityMAh:       4000,
		HistorySize:              10,
		RecomputeInterval:        5 * time.Second,
		StabilizationDelay:       5 * time.Second,
		MinCurrentMA:             10,
	}
}

// withDefaults fills zero fields from DefaultTuning, so a partially
// specified Tuning is still usable.
func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.MaxRealisticWattage <= 0 {
		t.MaxRealisticWattage = d.MaxRealisticWattage
	}
	if t.FallbackCurrentThreshold <= 0 {
		t.FallbackCurrentThreshold = d.FallbackCurrentThreshold
	}
	if t.CapacityThreshold <= 0 {
		t.CapacityThreshold = d.CapacityThreshold
	}
	if t.DefaultCapacityMAh <= 0 {
		t.DefaultCapacityMAh = d.DefaultCapacityMAh
	}
	if t.HistorySize <= 0 {
		t.HistorySize = d.HistorySize
	}
	if t.RecomputeInterval <= 0 {
		t.RecomputeInterval = d.RecomputeInterval
	}
	if t.StabilizationDelay <= 0 {
		t.StabilizationDelay = d.StabilizationDelay
	}
	if t.MinCurrentMA <= 0 {
		t.MinCurrentMA = d.MinCurrentMA
	}
	return t
}
