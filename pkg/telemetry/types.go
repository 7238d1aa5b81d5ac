package telemetry

import "time"

// PlugType is the kind of power supply the device is plugged into.
type PlugType string

const (
	PlugNone     PlugType = "none"
	PlugUSB      PlugType = "usb"
	PlugAC       PlugType = "ac"
	PlugWireless PlugType = "wireless"
	PlugUnknown  PlugType = "unknown"
)

// Health is the battery health reported by the platform.
type Health string

const (
	HealthGood        Health = "Good"
	HealthOverheat    Health = "Overheat"
	HealthDead        Health = "Dead"
	HealthOverVoltage Health = "OverVoltage"
	HealthCold        Health = "Cold"
	HealthFailure     Health = "Failure"
	HealthUnknown     Health = "Unknown"
)

// ChargingStatus is the user-facing charging state derived from a snapshot.
type ChargingStatus string

const (
	StatusNotCharging ChargingStatus = "NotCharging"
	StatusUSB         ChargingStatus = "USB"
	StatusAC          ChargingStatus = "AC"
	StatusWireless    ChargingStatus = "Wireless"
	StatusFull        ChargingStatus = "Full"
	StatusUnknown     ChargingStatus = "Unknown"
)

// RawSnapshot is one poll tick worth of sensor readings, as sourced.
// Units of CurrentRaw and ChargeCounterRaw are ambiguous on purpose:
// drivers disagree, and the Normalizer sorts it out.
type RawSnapshot struct {
	// Level is the charge percentage, 0-100.
	Level    int  `json:"level"`
	Charging bool `json:"charging"`
	// Full is set when the platform reports the battery as full. A full
	// battery on power is still considered charging.
	Full bool     `json:"full"`
	Plug PlugType `json:"plug"`
	// CurrentRaw is the instantaneous current in µA or mA.
	CurrentRaw int `json:"currentRaw"`
	// ChargeCounterRaw is the present charge in µAh or mAh.
	ChargeCounterRaw int `json:"chargeCounterRaw"`
	VoltageMV        int `json:"voltageMv"`
	// TemperatureDeci is in tenths of a degree Celsius.
	TemperatureDeci int       `json:"temperatureDeci"`
	Technology      string    `json:"technology"`
	Health          Health    `json:"health"`
	Source          string    `json:"source,omitempty"`
	CapturedAt      time.Time `json:"capturedAt"`
}

// PercentFromScale converts a level/scale pair into a percentage,
// truncated and clamped to [0, 100]. A non-positive scale yields 0.
func PercentFromScale(level, scale int) int {
	if scale <= 0 || level <= 0 {
		return 0
	}
	pct := int(float64(level) / float64(scale) * 100)
	if pct > 100 {
		return 100
	}
	return pct
}

// NormalizedReading is the derived, presentation-ready record for one tick.
type NormalizedReading struct {
	Level    int            `json:"level"`
	Charging bool           `json:"charging"`
	Status   ChargingStatus `json:"status"`
	// CurrentMA is positive while charging and negative otherwise.
	CurrentMA      int              `json:"currentMa"`
	VoltageMV      int              `json:"voltageMv"`
	Voltage        float64          `json:"voltage"`
	Wattage        float64          `json:"wattage"`
	TemperatureC   float64          `json:"temperatureC"`
	Health         Health           `json:"health"`
	Technology     string           `json:"technology"`
	CapacityMAh    int              `json:"capacityMah"`
	MaxCapacityMAh int              `json:"maxCapacityMah"`
	TimeToFull     TimeToFullResult `json:"-"`
	Phase          Phase            `json:"phase"`
	Source         string           `json:"source,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

func chargingStatus(s RawSnapshot) ChargingStatus {
	if s.Full {
		return StatusFull
	}
	if !s.Charging {
		return StatusNotCharging
	}

	switch s.Plug {
	case PlugUSB:
		return StatusUSB
	case PlugAC:
		return StatusAC
	case PlugWireless:
		return StatusWireless
	default:
		return StatusUnknown
	}
}
