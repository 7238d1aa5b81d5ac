package source

import (
	"io"
	"runtime"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Source names accepted by Open.
const (
	NameAuto     = "auto"
	NameSysfs    = "sysfs"
	NameUPower   = "upower"
	NameDistatus = "distatus"
	NameSMC      = "smc"
)

// Options selects and configures a source.
type Options struct {
	// Source is one of the Name constants. Empty means NameAuto.
	Source string
	// Fallback optionally names a source that substitutes missing current
	// and charge counter readings. It is ignored by NameAuto, which picks
	// its own.
	Fallback     string
	SysfsRoot    string
	SysfsBattery string
	UPowerDevice string
}

// Open builds the source described by opts.
func Open(opts Options) (Source, error) {
	name := opts.Source
	if name == "" {
		name = NameAuto
	}
	if name == NameAuto {
		return openAuto(opts)
	}

	primary, err := open(name, opts)
	if err != nil {
		return nil, err
	}
	if opts.Fallback == "" {
		return primary, nil
	}

	secondary, err := open(opts.Fallback, opts)
	if err != nil {
		_ = Close(primary)
		return nil, pkgerrors.Wrapf(err, "failed to open fallback source %s", opts.Fallback)
	}
	return NewFallback(primary, secondary), nil
}

func open(name string, opts Options) (Source, error) {
	switch name {
	case NameSysfs:
		return NewSysfs(opts.SysfsRoot, opts.SysfsBattery), nil
	case NameUPower:
		return NewUPower(opts.UPowerDevice)
	case NameDistatus:
		return NewDistatus(0), nil
	case NameSMC:
		return openSMC()
	default:
		return nil, pkgerrors.Wrapf(ErrUnknownSource, "%q", name)
	}
}

// openAuto picks the platform's most detailed source: the SMC on macOS,
// sysfs on Linux and Android with UPower filling in missing values, and
// distatus/battery everywhere else.
func openAuto(opts Options) (Source, error) {
	switch runtime.GOOS {
	case "darwin":
		s, err := openSMC()
		if err == nil {
			return s, nil
		}
		logrus.WithError(err).Warn("SMC unavailable, using distatus")
		return NewDistatus(0), nil
	case "linux", "android":
		sysfs := NewSysfs(opts.SysfsRoot, opts.SysfsBattery)
		up, err := NewUPower(opts.UPowerDevice)
		if err != nil {
			logrus.WithError(err).Debug("UPower unavailable, using sysfs alone")
			return sysfs, nil
		}
		return NewFallback(sysfs, up), nil
	default:
		return NewDistatus(0), nil
	}
}

// Close closes s if it holds resources.
func Close(s Source) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
