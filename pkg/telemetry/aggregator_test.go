package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() (*Aggregator, *fakeClock) {
	clock := newFakeClock()
	return NewAggregator(DefaultTuning(), clock.Now), clock
}

func chargingSnapshot(level, currentRaw, counterRaw int) RawSnapshot {
	return RawSnapshot{
		Level:            level,
		Charging:         true,
		Plug:             PlugAC,
		CurrentRaw:       currentRaw,
		ChargeCounterRaw: counterRaw,
		VoltageMV:        4000,
		TemperatureDeci:  300,
		Technology:       "Li-ion",
		Health:           HealthGood,
	}
}

func TestAggregatorFieldMapping(t *testing.T) {
	a, clock := newTestAggregator()

	s := chargingSnapshot(42, 1500000, 0)
	s.TemperatureDeci = 315
	s.Source = "sysfs"
	s.CapturedAt = clock.Now()

	r := a.GetReading(s)
	assert.Equal(t, 42, r.Level)
	assert.True(t, r.Charging)
	assert.Equal(t, StatusAC, r.Status)
	assert.Equal(t, 1500, r.CurrentMA)
	assert.Equal(t, 4000, r.VoltageMV)
	assert.InDelta(t, 4.0, r.Voltage, 1e-9)
	assert.InDelta(t, 6.0, r.Wattage, 1e-9)
	assert.InDelta(t, 31.5, r.TemperatureC, 1e-9)
	assert.Equal(t, HealthGood, r.Health)
	assert.Equal(t, "Li-ion", r.Technology)
	assert.Equal(t, Calculating{}, r.TimeToFull)
	assert.Equal(t, PhaseStabilizing, r.Phase)
	assert.Equal(t, "sysfs", r.Source)
	assert.Equal(t, clock.Now(), r.Timestamp)
}

func TestAggregatorDefaults(t *testing.T) {
	a, _ := newTestAggregator()

	r := a.GetReading(RawSnapshot{Level: 70})
	assert.Equal(t, HealthUnknown, r.Health)
	assert.Equal(t, "Unknown", r.Technology)
	assert.Equal(t, StatusNotCharging, r.Status)
}

func TestAggregatorDischarging(t *testing.T) {
	a, _ := newTestAggregator()

	s := chargingSnapshot(64, 850000, 0)
	s.Charging = false
	s.Plug = PlugNone

	r := a.GetReading(s)
	assert.False(t, r.Charging)
	assert.Equal(t, StatusNotCharging, r.Status)
	assert.Equal(t, -850, r.CurrentMA)
	assert.InDelta(t, 3.4, r.Wattage, 1e-9)
	assert.Equal(t, NotCharging{}, r.TimeToFull)
	assert.Equal(t, PhaseIdle, r.Phase)
}

func TestAggregatorFullCountsAsCharging(t *testing.T) {
	a, _ := newTestAggregator()

	s := chargingSnapshot(100, 0, 0)
	s.Charging = false
	s.Full = true

	r := a.GetReading(s)
	assert.True(t, r.Charging)
	assert.Equal(t, StatusFull, r.Status)
	assert.Equal(t, Full{}, r.TimeToFull)
	assert.Equal(t, PhaseFull, r.Phase)
}

func TestAggregatorLatchesMaxCapacity(t *testing.T) {
	a, _ := newTestAggregator()

	r := a.GetReading(chargingSnapshot(50, 1000, 2000000))
	assert.Equal(t, 2000, r.CapacityMAh)
	assert.Equal(t, 4000, r.MaxCapacityMAh)

	// Later readings do not move the latch, even while discharging.
	r = a.GetReading(chargingSnapshot(80, 1000, 3600000))
	assert.Equal(t, 3600, r.CapacityMAh)
	assert.Equal(t, 4000, r.MaxCapacityMAh)

	s := chargingSnapshot(60, 1000, 2500)
	s.Charging = false
	a.GetReading(s)
	assert.Equal(t, 4000, a.MaxCapacityMAh())

	a.Reset()
	assert.Zero(t, a.MaxCapacityMAh())
	assert.Equal(t, PhaseIdle, a.Phase())

	r = a.GetReading(chargingSnapshot(25, 1000, 1000))
	assert.Equal(t, 4000, r.MaxCapacityMAh)
}

func TestAggregatorLatchLevelRange(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		counter int
		want    int
	}{
		{name: "below the lower bound", level: 19, counter: 800, want: 0},
		{name: "lower bound", level: 20, counter: 800, want: 4000},
		{name: "upper bound", level: 100, counter: 3900, want: 3900},
		{name: "no counter", level: 50, counter: 0, want: 0},
		{name: "negative counter", level: 50, counter: -2000, want: 0},
		{name: "truncated", level: 30, counter: 1000, want: 3333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAggregator()
			a.GetReading(chargingSnapshot(tt.level, 1000, tt.counter))
			assert.Equal(t, tt.want, a.MaxCapacityMAh())
		})
	}
}

func TestAggregatorScenarios(t *testing.T) {
	t.Run("estimate after stabilization", func(t *testing.T) {
		a, clock := newTestAggregator()

		assert.Equal(t, Calculating{}, a.GetReading(chargingSnapshot(50, 1000, 0)).TimeToFull)
		clock.Advance(5 * time.Second)
		assert.Equal(t, Calculated{Hours: 2, Minutes: 0}, a.GetReading(chargingSnapshot(50, 1000, 0)).TimeToFull)
	})

	t.Run("latched capacity drives the estimate", func(t *testing.T) {
		a, clock := newTestAggregator()

		// 1500mAh at 50% latches 3000mAh, so 1500mAh remain.
		a.GetReading(chargingSnapshot(50, 1000000, 1500000))
		clock.Advance(5 * time.Second)
		r := a.GetReading(chargingSnapshot(50, 1000000, 1500000))
		assert.Equal(t, Calculated{Hours: 1, Minutes: 30}, r.TimeToFull)
	})

	t.Run("full then unplugged", func(t *testing.T) {
		a, clock := newTestAggregator()

		assert.Equal(t, Full{}, a.GetReading(chargingSnapshot(100, 1500, 0)).TimeToFull)

		clock.Advance(time.Second)
		s := chargingSnapshot(100, 0, 0)
		s.Charging = false
		r := a.GetReading(s)
		assert.Equal(t, NotCharging{}, r.TimeToFull)
		assert.Equal(t, PhaseIdle, r.Phase)
	})
}

func TestNormalizedReadingJSON(t *testing.T) {
	a, clock := newTestAggregator()

	s := chargingSnapshot(50, 1000, 2000)
	s.CapturedAt = clock.Now()
	a.GetReading(s)
	clock.Advance(5 * time.Second)
	s.CapturedAt = clock.Now()
	r := a.GetReading(s)
	require.Equal(t, Calculated{Hours: 2, Minutes: 0}, r.TimeToFull)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"timeToFull":{"kind":"calculated","hours":2}`)

	var got NormalizedReading
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, r.TimeToFull, got.TimeToFull)
	assert.Equal(t, r.Level, got.Level)
	assert.Equal(t, r.Status, got.Status)
	assert.Equal(t, r.MaxCapacityMAh, got.MaxCapacityMAh)
	assert.True(t, r.Timestamp.Equal(got.Timestamp))
}
