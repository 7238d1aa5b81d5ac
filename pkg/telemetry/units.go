package telemetry

// Normalizer converts raw current and charge counter readings into mA and
// mAh. Android documents BATTERY_PROPERTY_CURRENT_NOW in µA, but some
// vendors report mA, and charge counters come in both µAh and mAh. Power
// plausibility is used to tell them apart: no phone charges or discharges
// above MaxRealisticWattage.
type Normalizer struct {
	tuning Tuning
}

var defaultNormalizer = NewNormalizer(DefaultTuning())

// NewNormalizer returns a Normalizer using t. Zero fields of t fall back to
// DefaultTuning.
func NewNormalizer(t Tuning) *Normalizer {
	return &Normalizer{tuning: t.withDefaults()}
}

// NormalizeCurrent returns the current in mA. raw may be in mA or µA;
// voltageMV <= 0 means the voltage is unknown.
func (n *Normalizer) NormalizeCurrent(raw, voltageMV int) int {
	if raw == 0 {
		return 0
	}

	if voltageMV > 0 {
		// Assume mA and check whether the implied power makes sense.
		testWattage := Wattage(voltageMV, raw)
		if testWattage > n.tuning.MaxRealisticWattage {
			return raw / 1000
		}
		return raw
	}

	if abs(raw) > n.tuning.FallbackCurrentThreshold {
		return raw / 1000
	}
	return raw
}

// NormalizeCapacity returns the charge counter in mAh.
func (n *Normalizer) NormalizeCapacity(raw int) int {
	if abs(raw) > n.tuning.CapacityThreshold {
		return raw / 1000
	}
	return raw
}

// NormalizeCurrent normalizes with the default tuning.
func NormalizeCurrent(raw, voltageMV int) int {
	return defaultNormalizer.NormalizeCurrent(raw, voltageMV)
}

// NormalizeCapacity normalizes with the default tuning.
func NormalizeCapacity(raw int) int {
	return defaultNormalizer.NormalizeCapacity(raw)
}

// SignedCurrent applies a single sign convention regardless of what the
// driver reported: positive when charging, negative otherwise.
func SignedCurrent(currentMA int, charging bool) int {
	if charging {
		return abs(currentMA)
	}
	return -abs(currentMA)
}

// Wattage returns the power in W for a voltage in mV and a current in mA.
func Wattage(voltageMV, currentMA int) float64 {
	return (float64(voltageMV) / 1000.0) * float64(abs(currentMA)) / 1000.0
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
