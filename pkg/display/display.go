// Package display maps telemetry values to the text shown to users.
package display

import (
	"fmt"

	"github.com/hootzen/amped/pkg/telemetry"
)

const (
	textLowCurrent  = "Low current"
	textCalculating = "Calculating..."
	textNotCharging = "--"
	textFull        = "Full"
)

// TimeToFull renders a time-to-full result. A nil result renders like
// NotCharging.
func TimeToFull(r telemetry.TimeToFullResult) string {
	switch v := r.(type) {
	case telemetry.Calculated:
		if v.Hours > 0 {
			return fmt.Sprintf("%dh %dm", v.Hours, v.Minutes)
		}
		return fmt.Sprintf("%dm", v.Minutes)
	case telemetry.Full:
		return textFull
	case telemetry.LowCurrent:
		return textLowCurrent
	case telemetry.Calculating:
		return textCalculating
	default:
		return textNotCharging
	}
}

// ChargingStatus renders a charging status.
func ChargingStatus(s telemetry.ChargingStatus) string {
	switch s {
	case telemetry.StatusNotCharging:
		return "Not charging"
	case telemetry.StatusUSB:
		return "Charging (USB)"
	case telemetry.StatusAC:
		return "Charging (AC)"
	case telemetry.StatusWireless:
		return "Charging (Wireless)"
	case telemetry.StatusFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// Health renders a battery health value.
func Health(h telemetry.Health) string {
	switch h {
	case telemetry.HealthGood:
		return "Good"
	case telemetry.HealthOverheat:
		return "Overheat"
	case telemetry.HealthDead:
		return "Dead"
	case telemetry.HealthOverVoltage:
		return "Over voltage"
	case telemetry.HealthCold:
		return "Cold"
	case telemetry.HealthFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Plug renders the kind of power supply.
func Plug(p telemetry.PlugType) string {
	switch p {
	case telemetry.PlugNone:
		return "Unplugged"
	case telemetry.PlugUSB:
		return "USB"
	case telemetry.PlugAC:
		return "AC"
	case telemetry.PlugWireless:
		return "Wireless"
	default:
		return "Unknown"
	}
}

// MaxCapacity renders the latched full capacity, which is not known until a
// usable reading arrived.
func MaxCapacity(mAh int) string {
	if mAh <= 0 {
		return textCalculating
	}
	return fmt.Sprintf("%d mAh", mAh)
}

// Current renders a signed current.
func Current(mA int) string {
	return fmt.Sprintf("%d mA", mA)
}

// Power renders a wattage with two decimals.
func Power(w float64) string {
	return fmt.Sprintf("%.2f W", w)
}

// Temperature renders a temperature in degrees Celsius.
func Temperature(c float64) string {
	return fmt.Sprintf("%.1f °C", c)
}

// Voltage renders a voltage in volts.
func Voltage(v float64) string {
	return fmt.Sprintf("%.3f V", v)
}
