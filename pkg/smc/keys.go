//go:build darwin

package smc

// Battery keys on Apple Silicon. Multi-byte values are little-endian.
const (
	// ACPowerKey is 1 when an adapter is connected.
	ACPowerKey = "AC-W"
	// BatteryChargeKey is the charge percentage, one byte.
	BatteryChargeKey = "BUIC"
	// BatteryCurrentKey is the signed battery current in mA, int16.
	BatteryCurrentKey = "B0AC"
	// BatteryVoltageKey is the battery voltage in mV, uint16.
	BatteryVoltageKey = "B0AV"
	// BatteryRemainingKey is the remaining capacity in mAh, uint16.
	BatteryRemainingKey = "B0RM"
	// BatteryTemperatureKey is the battery temperature in °C, float32 or sp78.
	BatteryTemperatureKey = "TB0T"
)
