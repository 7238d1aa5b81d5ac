package source

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/telemetry"
)

// invalidSentinel is what some platform APIs return for an unsupported
// property.
const invalidSentinel = math.MinInt32

// Fallback reads from a primary source and substitutes the raw current and
// charge counter from a secondary source when the primary reports 0 or the
// unsupported-property sentinel for them.
type Fallback struct {
	primary   Source
	secondary Source
}

// NewFallback chains primary and secondary.
func NewFallback(primary, secondary Source) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
	}
}

// Name implements Source.
func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

// Snapshot implements Source. A failing secondary leaves the invalid values
// at zero and is not an error.
func (f *Fallback) Snapshot(ctx context.Context) (telemetry.RawSnapshot, error) {
	snap, err := f.primary.Snapshot(ctx)
	if err != nil {
		return snap, err
	}

	needCurrent := invalid(snap.CurrentRaw)
	needCounter := invalid(snap.ChargeCounterRaw)
	if !needCurrent && !needCounter {
		return snap, nil
	}

	fb, err := f.secondary.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).WithField("source", f.secondary.Name()).Debug("fallback source unavailable")
		fb = telemetry.RawSnapshot{}
	}

	if needCurrent {
		snap.CurrentRaw = validOrZero(fb.CurrentRaw)
	}
	if needCounter {
		snap.ChargeCounterRaw = validOrZero(fb.ChargeCounterRaw)
	}

	logrus.WithFields(logrus.Fields{
		"primary":   f.primary.Name(),
		"secondary": f.secondary.Name(),
		"current":   needCurrent,
		"counter":   needCounter,
	}).Trace("substituted readings from fallback source")

	return snap, nil
}

// Changes implements Notifier by forwarding to the first source that is a
// Notifier. It returns a nil channel if neither is.
func (f *Fallback) Changes(ctx context.Context) (<-chan struct{}, error) {
	for _, s := range []Source{f.primary, f.secondary} {
		if n, ok := s.(Notifier); ok {
			return n.Changes(ctx)
		}
	}
	return nil, nil
}

// Close closes both sources if they need closing.
func (f *Fallback) Close() error {
	err1 := Close(f.primary)
	err2 := Close(f.secondary)
	if err1 != nil {
		return err1
	}
	return err2
}

func invalid(v int) bool {
	return v == 0 || v == invalidSentinel
}

func validOrZero(v int) int {
	if v == invalidSentinel {
		return 0
	}
	return v
}
