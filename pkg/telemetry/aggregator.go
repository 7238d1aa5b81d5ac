package telemetry

import "github.com/sirupsen/logrus"

const (
	minLatchLevel = 20
	maxLatchLevel = 100
)

// Aggregator turns RawSnapshots into NormalizedReadings. It owns an
// Estimator and the one-shot full capacity estimate.
//
// An Aggregator is not safe for concurrent use.
type Aggregator struct {
	normalizer *Normalizer
	estimator  *Estimator

	maxCapacityMAh int
}

// NewAggregator returns an Aggregator with a fresh estimator.
// A nil clock means time.Now.
func NewAggregator(t Tuning, clock Clock) *Aggregator {
	return &Aggregator{
		normalizer: NewNormalizer(t),
		estimator:  NewEstimator(t, clock),
	}
}

// GetReading normalizes one snapshot and advances the estimator.
func (a *Aggregator) GetReading(s RawSnapshot) NormalizedReading {
	// A full battery on power counts as charging.
	charging := s.Charging || s.Full

	currentMA := a.normalizer.NormalizeCurrent(s.CurrentRaw, s.VoltageMV)
	capacityMAh := a.normalizer.NormalizeCapacity(s.ChargeCounterRaw)

	a.latchMaxCapacity(capacityMAh, s.Level)

	result := a.estimator.Calculate(currentMA, s.Level, a.maxCapacityMAh, charging)

	health := s.Health
	if health == "" {
		health = HealthUnknown
	}
	technology := s.Technology
	if technology == "" {
		technology = "Unknown"
	}

	return NormalizedReading{
		Level:          s.Level,
		Charging:       charging,
		Status:         chargingStatus(s),
		CurrentMA:      SignedCurrent(currentMA, charging),
		VoltageMV:      s.VoltageMV,
		Voltage:        float64(s.VoltageMV) / 1000.0,
		Wattage:        Wattage(s.VoltageMV, currentMA),
		TemperatureC:   float64(s.TemperatureDeci) / 10.0,
		Health:         health,
		Technology:     technology,
		CapacityMAh:    capacityMAh,
		MaxCapacityMAh: a.maxCapacityMAh,
		TimeToFull:     result,
		Phase:          a.estimator.Phase(),
		Source:         s.Source,
		Timestamp:      s.CapturedAt,
	}
}

// latchMaxCapacity estimates the full capacity from the first usable
// reading and keeps it until Reset.
func (a *Aggregator) latchMaxCapacity(capacityMAh, level int) {
	if a.maxCapacityMAh != 0 || capacityMAh <= 0 {
		return
	}
	if level < minLatchLevel || level > maxLatchLevel {
		return
	}

	a.maxCapacityMAh = int(float64(capacityMAh) * 100.0 / float64(level))

	logrus.WithFields(logrus.Fields{
		"capacityMah":    capacityMAh,
		"level":          level,
		"maxCapacityMah": a.maxCapacityMAh,
	}).Debug("estimated full battery capacity")
}

// MaxCapacityMAh returns the latched full capacity, or 0 if not yet known.
func (a *Aggregator) MaxCapacityMAh() int {
	return a.maxCapacityMAh
}

// Phase returns the estimator state.
func (a *Aggregator) Phase() Phase {
	return a.estimator.Phase()
}

// Reset clears the estimator session and the capacity estimate.
func (a *Aggregator) Reset() {
	a.estimator.Reset()
	a.maxCapacityMAh = 0
}
