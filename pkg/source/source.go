// Package source reads platform battery sensors into telemetry.RawSnapshots.
//
// A Source is polled once per tick. Sources that can learn about changes
// from the platform also implement Notifier, so the poller can refresh
// between ticks.
package source

import (
	"context"

	"github.com/hootzen/amped/pkg/telemetry"
)

// Source produces one RawSnapshot per call.
type Source interface {
	// Name identifies the source in logs and readings.
	Name() string
	// Snapshot reads all sensors once.
	Snapshot(ctx context.Context) (telemetry.RawSnapshot, error)
}

// Notifier is implemented by sources that receive change notifications.
// The returned channel is closed when ctx is done.
type Notifier interface {
	Changes(ctx context.Context) (<-chan struct{}, error)
}
