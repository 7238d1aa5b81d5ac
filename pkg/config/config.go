package config

import (
	"time"

	"github.com/hootzen/amped/pkg/telemetry"
)

type Config interface {
	PollInterval() time.Duration
	Source() string
	FallbackSource() string
	SysfsRoot() string
	SysfsBattery() string
	UPowerDevice() string
	// RelearnSchedule is a cron expression. Empty means never.
	RelearnSchedule() string
	AllowNonRootAccess() bool
	Tuning() telemetry.Tuning

	SetPollInterval(time.Duration) error
	SetRelearnSchedule(string) error
	SetAllowNonRootAccess(bool)

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
