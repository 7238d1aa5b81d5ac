package config

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	pkgerrors "github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/telemetry"
	"github.com/hootzen/amped/pkg/utils/ptr"
)

const (
	MinPollInterval = 100 * time.Millisecond
	MaxPollInterval = time.Hour
)

var (
	defaultFileConfig = &RawFileConfig{
		PollInterval:       ptr.To(Duration(time.Second)),
		Source:             ptr.To("auto"),
		FallbackSource:     ptr.To(""),
		SysfsRoot:          ptr.To("/sys/class/power_supply"),
		SysfsBattery:       ptr.To(""),
		UPowerDevice:       ptr.To(""),
		RelearnSchedule:    ptr.To(""),
		AllowNonRootAccess: ptr.To(false),
	}
)

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawFileConfig is the on-disk form. Nil fields take their defaults.
type RawFileConfig struct {
	PollInterval       *Duration  `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	Source             *string    `json:"source,omitempty" yaml:"source,omitempty"`
	FallbackSource     *string    `json:"fallbackSource,omitempty" yaml:"fallbackSource,omitempty"`
	SysfsRoot          *string    `json:"sysfsRoot,omitempty" yaml:"sysfsRoot,omitempty"`
	SysfsBattery       *string    `json:"sysfsBattery,omitempty" yaml:"sysfsBattery,omitempty"`
	UPowerDevice       *string    `json:"upowerDevice,omitempty" yaml:"upowerDevice,omitempty"`
	RelearnSchedule    *string    `json:"relearnSchedule,omitempty" yaml:"relearnSchedule,omitempty"`
	AllowNonRootAccess *bool      `json:"allowNonRootAccess,omitempty" yaml:"allowNonRootAccess,omitempty"`
	Tuning             *RawTuning `json:"tuning,omitempty" yaml:"tuning,omitempty"`
}

// RawTuning overrides estimator and normalizer constants. Nil fields keep
// the built-in values.
type RawTuning struct {
	MaxRealisticWattage      *float64  `json:"maxRealisticWattage,omitempty" yaml:"maxRealisticWattage,omitempty"`
	FallbackCurrentThreshold *int      `json:"fallbackCurrentThreshold,omitempty" yaml:"fallbackCurrentThreshold,omitempty"`
	CapacityThreshold        *int      `json:"capacityThreshold,omitempty" yaml:"capacityThreshold,omitempty"`
	DefaultCapacityMAh       *int      `json:"defaultCapacityMah,omitempty" yaml:"defaultCapacityMah,omitempty"`
	HistorySize              *int      `json:"historySize,omitempty" yaml:"historySize,omitempty"`
	RecomputeInterval        *Duration `json:"recomputeInterval,omitempty" yaml:"recomputeInterval,omitempty"`
	StabilizationDelay       *Duration `json:"stabilizationDelay,omitempty" yaml:"stabilizationDelay,omitempty"`
	MinCurrentMA             *int      `json:"minCurrentMa,omitempty" yaml:"minCurrentMa,omitempty"`
}

// NewRawFileConfigFromConfig returns the effective values of c, defaults
// included.
func NewRawFileConfigFromConfig(c Config) (*RawFileConfig, error) {
	if c == nil {
		return nil, pkgerrors.New("config is nil")
	}

	t := c.Tuning()
	rawConfig := &RawFileConfig{
		PollInterval:       ptr.To(Duration(c.PollInterval())),
		Source:             ptr.To(c.Source()),
		FallbackSource:     ptr.To(c.FallbackSource()),
		SysfsRoot:          ptr.To(c.SysfsRoot()),
		SysfsBattery:       ptr.To(c.SysfsBattery()),
		UPowerDevice:       ptr.To(c.UPowerDevice()),
		RelearnSchedule:    ptr.To(c.RelearnSchedule()),
		AllowNonRootAccess: ptr.To(c.AllowNonRootAccess()),
		Tuning: &RawTuning{
			MaxRealisticWattage:      ptr.To(t.MaxRealisticWattage),
			FallbackCurrentThreshold: ptr.To(t.FallbackCurrentThreshold),
			CapacityThreshold:        ptr.To(t.CapacityThreshold),
			DefaultCapacityMAh:       ptr.To(t.DefaultCapacityMAh),
			HistorySize:              ptr.To(t.HistorySize),
			RecomputeInterval:        ptr.To(Duration(t.RecomputeInterval)),
			StabilizationDelay:       ptr.To(Duration(t.StabilizationDelay)),
			MinCurrentMA:             ptr.To(t.MinCurrentMA),
		},
	}

	return rawConfig, nil
}

func (f *File) PollInterval() time.Duration {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return time.Duration(ptr.Deref(f.c.PollInterval, *defaultFileConfig.PollInterval))
}

func (f *File) Source() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.Source })
}

func (f *File) FallbackSource() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.FallbackSource })
}

func (f *File) SysfsRoot() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.SysfsRoot })
}

func (f *File) SysfsBattery() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.SysfsBattery })
}

func (f *File) UPowerDevice() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.UPowerDevice })
}

func (f *File) RelearnSchedule() string {
	return f.stringField(func(c *RawFileConfig) *string { return c.RelearnSchedule })
}

// stringField reads a string setting, falling back to its default.
func (f *File) stringField(field func(*RawFileConfig) *string) string {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if v := field(f.c); v != nil {
		return *v
	}
	return *field(defaultFileConfig)
}

func (f *File) AllowNonRootAccess() bool {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.c.AllowNonRootAccess, *defaultFileConfig.AllowNonRootAccess)
}

// Tuning returns the built-in tuning with the configured overrides applied.
func (f *File) Tuning() telemetry.Tuning {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	t := telemetry.DefaultTuning()
	raw := f.c.Tuning
	if raw == nil {
		return t
	}

	t.MaxRealisticWattage = ptr.Deref(raw.MaxRealisticWattage, t.MaxRealisticWattage)
	t.FallbackCurrentThreshold = ptr.Deref(raw.FallbackCurrentThreshold, t.FallbackCurrentThreshold)
	t.CapacityThreshold = ptr.Deref(raw.CapacityThreshold, t.CapacityThreshold)
	t.DefaultCapacityMAh = ptr.Deref(raw.DefaultCapacityMAh, t.DefaultCapacityMAh)
	t.HistorySize = ptr.Deref(raw.HistorySize, t.HistorySize)
	t.RecomputeInterval = time.Duration(ptr.Deref(raw.RecomputeInterval, Duration(t.RecomputeInterval)))
	t.StabilizationDelay = time.Duration(ptr.Deref(raw.StabilizationDelay, Duration(t.StabilizationDelay)))
	t.MinCurrentMA = ptr.Deref(raw.MinCurrentMA, t.MinCurrentMA)

	return t
}

func (f *File) SetPollInterval(d time.Duration) error {
	if f.c == nil {
		panic("config is nil")
	}

	if d < MinPollInterval || d > MaxPollInterval {
		return pkgerrors.Errorf("poll interval must be between %s and %s, got %s", MinPollInterval, MaxPollInterval, d)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.PollInterval = ptr.To(Duration(d))

	return nil
}

func (f *File) SetRelearnSchedule(expr string) error {
	if f.c == nil {
		panic("config is nil")
	}

	if err := ValidateSchedule(expr); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.c.RelearnSchedule = &expr

	return nil
}

func (f *File) SetAllowNonRootAccess(b bool) {
	if f.c == nil {
		panic("config is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.c.AllowNonRootAccess = &b
}

// ValidateSchedule checks a standard 5-field cron expression. Empty is valid
// and means never.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return pkgerrors.Wrapf(err, "invalid cron expression %q", expr)
	}
	return nil
}

// isYAML tells whether the file is YAML by its extension. Anything else is
// JSON.
func (f *File) isYAML() bool {
	switch strings.ToLower(filepath.Ext(f.filepath)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	// Since we want to tell if the file is empty, using a decoder will
	// not work.
	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		// If the file is empty, return the empty config.
		// Do not make f.c a nil.
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	if f.isYAML() {
		err = yaml.Unmarshal(b, &conf)
	} else {
		err = json.Unmarshal(b, &conf)
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}

	if conf.PollInterval != nil {
		d := time.Duration(*conf.PollInterval)
		if d < MinPollInterval || d > MaxPollInterval {
			return pkgerrors.Errorf("poll interval in %s must be between %s and %s", f.filepath, MinPollInterval, MaxPollInterval)
		}
	}
	if conf.RelearnSchedule != nil {
		if err := ValidateSchedule(*conf.RelearnSchedule); err != nil {
			return pkgerrors.Wrapf(err, "bad relearn schedule in %s", f.filepath)
		}
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	var (
		b   []byte
		err error
	)
	if f.isYAML() {
		b, err = yaml.Marshal(f.c)
	} else {
		b, err = json.MarshalIndent(f.c, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config for file %s", f.filepath)
	}

	err = os.WriteFile(f.filepath, b, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to write file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	if f.c == nil {
		panic("config is nil")
	}

	return logrus.Fields{
		"pollInterval":       f.PollInterval(),
		"source":             f.Source(),
		"fallbackSource":     f.FallbackSource(),
		"sysfsRoot":          f.SysfsRoot(),
		"sysfsBattery":       f.SysfsBattery(),
		"upowerDevice":       f.UPowerDevice(),
		"relearnSchedule":    f.RelearnSchedule(),
		"allowNonRootAccess": f.AllowNonRootAccess(),
	}
}
