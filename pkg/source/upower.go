package source

import (
	"context"
	"math"
	"time"

	"github.com/godbus/dbus/v5"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/telemetry"
)

const (
	upowerService        = "org.freedesktop.UPower"
	upowerPath           = "/org/freedesktop/UPower"
	upowerDeviceIface    = "org.freedesktop.UPower.Device"
	upowerDisplayDevice  = "/org/freedesktop/UPower/devices/DisplayDevice"
	propertiesIface      = "org.freedesktop.DBus.Properties"
	propertiesChanged    = propertiesIface + ".PropertiesChanged"
	upowerTypeBattery    = 2
	upowerStateCharging  = 1
	upowerStateFull      = 4
	upowerStatePending   = 5
	upowerChangesBufSize = 10
)

// UPower technology codes.
var upowerTechnology = map[uint32]string{
	1: "Li-ion",
	2: "Li-poly",
	3: "LiFePO4",
	4: "Lead acid",
	5: "NiCd",
	6: "NiMH",
}

// UPower reads a battery through the UPower daemon on the system bus.
type UPower struct {
	conn   *dbus.Conn
	device dbus.ObjectPath
	now    telemetry.Clock
}

// NewUPower connects to the system bus. An empty device means the UPower
// display device, which aggregates all batteries.
func NewUPower(device string) (*UPower, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to connect to system bus")
	}
	if device == "" {
		device = upowerDisplayDevice
	}
	return &UPower{
		conn:   conn,
		device: dbus.ObjectPath(device),
		now:    time.Now,
	}, nil
}

// Name implements Source.
func (u *UPower) Name() string {
	return "upower"
}

// Snapshot implements Source.
func (u *UPower) Snapshot(ctx context.Context) (telemetry.RawSnapshot, error) {
	var props map[string]dbus.Variant
	err := u.conn.Object(upowerService, u.device).
		CallWithContext(ctx, propertiesIface+".GetAll", 0, upowerDeviceIface).
		Store(&props)
	if err != nil {
		return telemetry.RawSnapshot{}, pkgerrors.Wrapf(err, "failed to get properties of %s", u.device)
	}

	// A failed OnBattery read only costs the plug type.
	onBattery := true
	v, err := u.conn.Object(upowerService, upowerPath).GetProperty(upowerService + ".OnBattery")
	if err == nil {
		_ = v.Store(&onBattery)
	} else {
		logrus.WithError(err).Debug("failed to read UPower OnBattery")
	}

	snap, err := snapshotFromUPower(props, onBattery)
	if err != nil {
		return snap, err
	}
	snap.Source = u.Name()
	snap.CapturedAt = u.now()
	return snap, nil
}

// Changes implements Notifier. Every PropertiesChanged signal of the device
// produces one notification; notifications are dropped while the receiver
// is busy.
func (u *UPower) Changes(ctx context.Context) (<-chan struct{}, error) {
	rule := "type='signal',interface='" + propertiesIface + "',member='PropertiesChanged',path='" + string(u.device) + "'"
	call := u.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.AddMatch", 0, rule)
	if call.Err != nil {
		return nil, pkgerrors.Wrap(call.Err, "failed to add match rule")
	}

	signals := make(chan *dbus.Signal, upowerChangesBufSize)
	u.conn.Signal(signals)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer u.conn.RemoveSignal(signals)
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				if sig.Name != propertiesChanged || sig.Path != u.device {
					continue
				}
				logrus.WithField("path", sig.Path).Trace("UPower properties changed")
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}

// Close closes the bus connection.
func (u *UPower) Close() error {
	return u.conn.Close()
}

// snapshotFromUPower converts UPower device properties. Energy is in Wh,
// rates in W and voltage in V; they are turned into mA and mAh through
// the voltage.
func snapshotFromUPower(props map[string]dbus.Variant, onBattery bool) (telemetry.RawSnapshot, error) {
	var typ uint32
	storeProp(props, "Type", &typ)
	present := true
	storeProp(props, "IsPresent", &present)
	if typ != upowerTypeBattery || !present {
		return telemetry.RawSnapshot{}, pkgerrors.Wrapf(ErrNoBattery, "UPower device type %d, present %t", typ, present)
	}

	var state, technology uint32
	var percentage, energy, rate, voltage, temperature float64
	storeProp(props, "State", &state)
	storeProp(props, "Technology", &technology)
	storeProp(props, "Percentage", &percentage)
	storeProp(props, "Energy", &energy)
	storeProp(props, "EnergyRate", &rate)
	storeProp(props, "Voltage", &voltage)
	storeProp(props, "Temperature", &temperature)

	snap := telemetry.RawSnapshot{
		Level:           clampPercent(int(percentage)),
		Charging:        state == upowerStateCharging,
		Full:            state == upowerStateFull,
		Plug:            telemetry.PlugNone,
		VoltageMV:       int(math.Round(voltage * 1000)),
		TemperatureDeci: int(math.Round(temperature * 10)),
		Technology:      upowerTechnology[technology],
		Health:          telemetry.HealthUnknown,
	}
	if !onBattery {
		snap.Plug = telemetry.PlugAC
	}
	if voltage > 0 {
		snap.CurrentRaw = int(math.Abs(rate) * 1000 / voltage)
		snap.ChargeCounterRaw = int(energy * 1000 / voltage)
	}
	return snap, nil
}

// storeProp stores a property into dst when present and of the right type.
func storeProp(props map[string]dbus.Variant, name string, dst interface{}) {
	v, ok := props[name]
	if !ok {
		return
	}
	if err := v.Store(dst); err != nil {
		logrus.WithError(err).WithField("property", name).Trace("unexpected UPower property type")
	}
}
