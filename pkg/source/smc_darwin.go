//go:build darwin

package source

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/smc"
	"github.com/hootzen/amped/pkg/telemetry"
)

// SMC reads the internal battery of an Apple Silicon Mac.
type SMC struct {
	mu   sync.Mutex
	conn *smc.AppleSMC
	now  telemetry.Clock
}

func openSMC() (Source, error) {
	conn := smc.New()
	if err := conn.Open(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to open SMC connection")
	}
	return NewSMC(conn), nil
}

// NewSMC returns an SMC source reading from an opened connection.
func NewSMC(conn *smc.AppleSMC) *SMC {
	return &SMC{
		conn: conn,
		now:  time.Now,
	}
}

// Name implements Source.
func (s *SMC) Name() string {
	return "smc"
}

// Snapshot implements Source. Only the charge percentage is mandatory.
func (s *SMC) Snapshot(_ context.Context) (telemetry.RawSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	level, err := s.conn.GetBatteryCharge()
	if err != nil {
		return telemetry.RawSnapshot{}, pkgerrors.Wrap(err, "failed to read battery charge")
	}

	current := s.readOrZero("current", s.conn.GetBatteryCurrent)
	pluggedIn, err := s.conn.IsPluggedIn()
	if err != nil {
		logrus.WithError(err).Debug("failed to read adapter state")
	}

	snap := telemetry.RawSnapshot{
		Level:            clampPercent(level),
		Charging:         pluggedIn && current > 0,
		Full:             pluggedIn && level >= 100,
		Plug:             telemetry.PlugNone,
		CurrentRaw:       current,
		ChargeCounterRaw: s.readOrZero("remaining capacity", s.conn.GetRemainingCapacity),
		VoltageMV:        s.readOrZero("voltage", s.conn.GetBatteryVoltage),
		TemperatureDeci:  s.readOrZero("temperature", s.conn.GetBatteryTemperature),
		Technology:       "Li-ion",
		Health:           telemetry.HealthUnknown,
		Source:           s.Name(),
		CapturedAt:       s.now(),
	}
	if pluggedIn {
		snap.Plug = telemetry.PlugAC
	}
	return snap, nil
}

// Close closes the SMC connection.
func (s *SMC) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SMC) readOrZero(what string, read func() (int, error)) int {
	v, err := read()
	if err != nil {
		logrus.WithError(err).WithField("value", what).Debug("failed to read from SMC")
		return 0
	}
	return v
}
