package source

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hootzen/amped/pkg/telemetry"
)

func upowerProps(state uint32) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Type":        dbus.MakeVariant(uint32(2)),
		"IsPresent":   dbus.MakeVariant(true),
		"State":       dbus.MakeVariant(state),
		"Technology":  dbus.MakeVariant(uint32(1)),
		"Percentage":  dbus.MakeVariant(63.4),
		"Energy":      dbus.MakeVariant(30.0),
		"EnergyRate":  dbus.MakeVariant(15.0),
		"Voltage":     dbus.MakeVariant(12.5),
		"Temperature": dbus.MakeVariant(29.86),
	}
}

func TestSnapshotFromUPower(t *testing.T) {
	snap, err := snapshotFromUPower(upowerProps(1), false)
	require.NoError(t, err)

	assert.Equal(t, 63, snap.Level)
	assert.True(t, snap.Charging)
	assert.False(t, snap.Full)
	assert.Equal(t, telemetry.PlugAC, snap.Plug)
	// 15W at 12.5V is 1200mA, 30Wh is 2400mAh.
	assert.Equal(t, 1200, snap.CurrentRaw)
	assert.Equal(t, 2400, snap.ChargeCounterRaw)
	assert.Equal(t, 12500, snap.VoltageMV)
	assert.Equal(t, 299, snap.TemperatureDeci)
	assert.Equal(t, "Li-ion", snap.Technology)
	assert.Equal(t, telemetry.HealthUnknown, snap.Health)
}

func TestSnapshotFromUPowerStates(t *testing.T) {
	snap, err := snapshotFromUPower(upowerProps(4), false)
	require.NoError(t, err)
	assert.True(t, snap.Full)
	assert.False(t, snap.Charging)

	snap, err = snapshotFromUPower(upowerProps(2), true)
	require.NoError(t, err)
	assert.False(t, snap.Charging)
	assert.Equal(t, telemetry.PlugNone, snap.Plug)
	assert.Equal(t, 1200, snap.CurrentRaw)

	// Pending charge is plugged in but held, for example at a charge limit.
	props := upowerProps(upowerStatePending)
	props["Percentage"] = dbus.MakeVariant(80.0)
	props["EnergyRate"] = dbus.MakeVariant(0.0)
	snap, err = snapshotFromUPower(props, false)
	require.NoError(t, err)
	assert.False(t, snap.Charging)
	assert.False(t, snap.Full)
	assert.Equal(t, telemetry.PlugAC, snap.Plug)
	assert.Equal(t, 0, snap.CurrentRaw)
}

func TestSnapshotFromUPowerNoVoltage(t *testing.T) {
	props := upowerProps(1)
	delete(props, "Voltage")

	snap, err := snapshotFromUPower(props, false)
	require.NoError(t, err)
	assert.Zero(t, snap.CurrentRaw)
	assert.Zero(t, snap.ChargeCounterRaw)
}

func TestSnapshotFromUPowerNotBattery(t *testing.T) {
	props := upowerProps(1)
	props["Type"] = dbus.MakeVariant(uint32(1))

	_, err := snapshotFromUPower(props, false)
	assert.True(t, errors.Is(err, ErrNoBattery))

	props = upowerProps(1)
	props["IsPresent"] = dbus.MakeVariant(false)
	_, err = snapshotFromUPower(props, false)
	assert.True(t, errors.Is(err, ErrNoBattery))
}
