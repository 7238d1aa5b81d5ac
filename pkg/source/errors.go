package source

import "errors"

var (
	// ErrNoBattery is returned when the platform reports no battery.
	ErrNoBattery = errors.New("no battery found")
	// ErrUnknownSource is returned by Open for an unrecognized source name.
	ErrUnknownSource = errors.New("unknown source")
)
