//go:build darwin

package smc

import (
	"encoding/binary"
	"math"

	pkgerrors "github.com/pkg/errors"
)

// GetBatteryCharge returns the charge percentage.
func (c *AppleSMC) GetBatteryCharge() (int, error) {
	v, err := c.Read(BatteryChargeKey)
	if err != nil {
		return 0, err
	}
	if len(v.Bytes) != 1 {
		return 0, pkgerrors.Errorf("incorrect data length %d!=1", len(v.Bytes))
	}
	return int(v.Bytes[0]), nil
}

// GetBatteryCurrent returns the battery current in mA. It is positive
// while charging.
func (c *AppleSMC) GetBatteryCurrent() (int, error) {
	v, err := c.Read(BatteryCurrentKey)
	if err != nil {
		return 0, err
	}
	if len(v.Bytes) != 2 {
		return 0, pkgerrors.Errorf("incorrect data length %d!=2", len(v.Bytes))
	}
	return int(int16(binary.LittleEndian.Uint16(v.Bytes))), nil
}

// GetBatteryVoltage returns the battery voltage in mV.
func (c *AppleSMC) GetBatteryVoltage() (int, error) {
	return c.readUint16(BatteryVoltageKey)
}

// GetRemainingCapacity returns the remaining charge in mAh.
func (c *AppleSMC) GetRemainingCapacity() (int, error) {
	return c.readUint16(BatteryRemainingKey)
}

// GetBatteryTemperature returns the temperature in tenths of a degree.
func (c *AppleSMC) GetBatteryTemperature() (int, error) {
	v, err := c.Read(BatteryTemperatureKey)
	if err != nil {
		return 0, err
	}

	switch len(v.Bytes) {
	case 4:
		celsius := math.Float32frombits(binary.LittleEndian.Uint32(v.Bytes))
		return int(math.Round(float64(celsius) * 10)), nil
	case 2:
		// sp78: signed fixed point with 8 fraction bits, big-endian.
		raw := int16(binary.BigEndian.Uint16(v.Bytes))
		return int(math.Round(float64(raw) / 256 * 10)), nil
	default:
		return 0, pkgerrors.Errorf("incorrect data length %d", len(v.Bytes))
	}
}

// IsPluggedIn returns whether an adapter is connected.
func (c *AppleSMC) IsPluggedIn() (bool, error) {
	v, err := c.Read(ACPowerKey)
	if err != nil {
		return false, err
	}
	return len(v.Bytes) == 1 && v.Bytes[0] == 0x1, nil
}

func (c *AppleSMC) readUint16(key string) (int, error) {
	v, err := c.Read(key)
	if err != nil {
		return 0, err
	}
	if len(v.Bytes) != 2 {
		return 0, pkgerrors.Errorf("incorrect data length %d!=2 for %s", len(v.Bytes), key)
	}
	return int(binary.LittleEndian.Uint16(v.Bytes)), nil
}
