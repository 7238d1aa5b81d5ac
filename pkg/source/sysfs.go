package source

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/telemetry"
)

const (
	// DefaultSysfsRoot is where Linux and Android expose power supplies.
	DefaultSysfsRoot = "/sys/class/power_supply"
	// DefaultSysfsBattery is the battery supply name used by Android kernels.
	DefaultSysfsBattery = "battery"
)

// Supplies whose "online" flag tells how the device is powered.
var plugSupplies = []struct {
	names []string
	plug  telemetry.PlugType
}{
	{names: []string{"usb"}, plug: telemetry.PlugUSB},
	{names: []string{"ac", "mains"}, plug: telemetry.PlugAC},
	{names: []string{"wireless"}, plug: telemetry.PlugWireless},
}

// Sysfs reads a battery from the kernel power_supply class.
type Sysfs struct {
	root    string
	battery string
	now     telemetry.Clock
}

// NewSysfs returns a Sysfs source. An empty root means DefaultSysfsRoot.
// An empty battery name selects the first supply of type Battery, or
// DefaultSysfsBattery if none is found.
func NewSysfs(root, battery string) *Sysfs {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &Sysfs{
		root:    root,
		battery: battery,
		now:     time.Now,
	}
}

// Name implements Source.
func (s *Sysfs) Name() string {
	return "sysfs"
}

// Snapshot implements Source. Missing or malformed attributes read as zero.
func (s *Sysfs) Snapshot(_ context.Context) (telemetry.RawSnapshot, error) {
	dir := filepath.Join(s.root, s.batteryName())

	level, err := readInt(filepath.Join(dir, "capacity"))
	if err != nil {
		if os.IsNotExist(err) {
			return telemetry.RawSnapshot{}, pkgerrors.Wrapf(ErrNoBattery, "no capacity in %s", dir)
		}
		return telemetry.RawSnapshot{}, pkgerrors.Wrapf(err, "failed to read capacity in %s", dir)
	}

	status, _ := readTrimmed(filepath.Join(dir, "status"))
	snap := telemetry.RawSnapshot{
		Level:            clampPercent(level),
		Charging:         status == "Charging",
		Full:             status == "Full",
		Plug:             s.plug(),
		CurrentRaw:       s.current(dir),
		ChargeCounterRaw: readIntOrZero(filepath.Join(dir, "charge_counter")),
		VoltageMV:        readIntOrZero(filepath.Join(dir, "voltage_now")) / 1000,
		TemperatureDeci:  readIntOrZero(filepath.Join(dir, "temp")),
		Health:           sysfsHealth(readStringOrEmpty(filepath.Join(dir, "health"))),
		Source:           s.Name(),
		CapturedAt:       s.now(),
	}
	snap.Technology, _ = readTrimmed(filepath.Join(dir, "technology"))

	logrus.WithFields(logrus.Fields{
		"dir":     dir,
		"status":  status,
		"level":   snap.Level,
		"current": snap.CurrentRaw,
		"counter": snap.ChargeCounterRaw,
		"voltage": snap.VoltageMV,
	}).Trace("read sysfs battery")

	return snap, nil
}

func (s *Sysfs) current(dir string) int {
	if v := readIntOrZero(filepath.Join(dir, "current_now")); v != 0 {
		return v
	}
	return readIntOrZero(filepath.Join(dir, "batt_current_ua_avg"))
}

func (s *Sysfs) plug() telemetry.PlugType {
	for _, p := range plugSupplies {
		for _, name := range p.names {
			if readIntOrZero(filepath.Join(s.root, name, "online")) == 1 {
				return p.plug
			}
		}
	}
	return telemetry.PlugNone
}

func (s *Sysfs) batteryName() string {
	if s.battery != "" {
		return s.battery
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return DefaultSysfsBattery
	}
	for _, e := range entries {
		typ, err := readTrimmed(filepath.Join(s.root, e.Name(), "type"))
		if err != nil {
			continue
		}
		if strings.EqualFold(typ, "Battery") {
			s.battery = e.Name()
			logrus.WithField("battery", s.battery).Debug("detected sysfs battery")
			return s.battery
		}
	}
	return DefaultSysfsBattery
}

func sysfsHealth(v string) telemetry.Health {
	switch v {
	case "Good":
		return telemetry.HealthGood
	case "Overheat", "Hot":
		return telemetry.HealthOverheat
	case "Dead":
		return telemetry.HealthDead
	case "Over voltage":
		return telemetry.HealthOverVoltage
	case "Cold":
		return telemetry.HealthCold
	case "Unspecified failure":
		return telemetry.HealthFailure
	default:
		return telemetry.HealthUnknown
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readStringOrEmpty(path string) string {
	v, _ := readTrimmed(path)
	return v
}

func readInt(path string) (int, error) {
	v, err := readTrimmed(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(v)
}

func readIntOrZero(path string) int {
	v, err := readInt(path)
	if err != nil {
		return 0
	}
	return v
}
