package source

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/telemetry"
)

// Distatus reads the first battery through github.com/distatus/battery,
// which works on Linux, macOS, Windows and the BSDs.
type Distatus struct {
	index int
	get   func(idx int) (*battery.Battery, error)
	now   telemetry.Clock
}

// NewDistatus returns a Distatus source for the battery at index.
func NewDistatus(index int) *Distatus {
	return &Distatus{
		index: index,
		get:   battery.Get,
		now:   time.Now,
	}
}

// Name implements Source.
func (d *Distatus) Name() string {
	return "distatus"
}

// Snapshot implements Source. Partial reads are accepted.
func (d *Distatus) Snapshot(_ context.Context) (telemetry.RawSnapshot, error) {
	bat, err := d.get(d.index)
	if bat == nil {
		if err == nil || errors.Is(err, battery.ErrNotFound) {
			return telemetry.RawSnapshot{}, pkgerrors.Wrapf(ErrNoBattery, "battery %d", d.index)
		}
		return telemetry.RawSnapshot{}, pkgerrors.Wrapf(err, "failed to get battery %d", d.index)
	}
	if err != nil {
		logrus.WithError(err).Trace("partial battery read")
	}

	snap := snapshotFromDistatus(bat)
	snap.Source = d.Name()
	snap.CapturedAt = d.now()
	return snap, nil
}

// snapshotFromDistatus converts a battery. Energies are in mWh, the charge
// rate in mW and voltages in V.
func snapshotFromDistatus(bat *battery.Battery) telemetry.RawSnapshot {
	snap := telemetry.RawSnapshot{
		Charging:  bat.State.Raw == battery.Charging,
		Full:      bat.State.Raw == battery.Full,
		Plug:      telemetry.PlugUnknown,
		VoltageMV: int(math.Round(bat.Voltage * 1000)),
		Health:    telemetry.HealthUnknown,
	}
	if bat.Full > 0 {
		snap.Level = telemetry.PercentFromScale(int(bat.Current), int(bat.Full))
	}
	if bat.State.Raw == battery.Discharging || bat.State.Raw == battery.Empty {
		snap.Plug = telemetry.PlugNone
	}
	if bat.Voltage > 0 {
		snap.CurrentRaw = int(math.Abs(bat.ChargeRate) / bat.Voltage)
		snap.ChargeCounterRaw = int(bat.Current / bat.Voltage)
	}
	return snap
}
