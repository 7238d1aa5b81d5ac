package config

import (
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Duration is a time.Duration written as a string like "1s" in config
// files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return pkgerrors.Wrapf(err, "invalid duration %q", string(b))
	}
	*d = Duration(v)
	return nil
}
