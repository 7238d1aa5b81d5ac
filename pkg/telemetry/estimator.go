package telemetry

import (
	"math"
	"time"
)

// Phase is the state of the time-to-full estimator.
type Phase string

const (
	// PhaseIdle means not charging. No session exists.
	PhaseIdle Phase = "Idle"
	// PhaseStabilizing means charging began less than StabilizationDelay ago.
	PhaseStabilizing Phase = "Stabilizing"
	// PhaseEstimating means a cached estimate is reported and periodically
	// recomputed.
	PhaseEstimating Phase = "Estimating"
	// PhaseFull means charging with the level at 100%.
	PhaseFull Phase = "Full"
)

// Clock returns the current time.
type Clock func() time.Time

// Estimator estimates the time until the battery is full from a short
// history of charge currents.
//
// Recomputation is debounced to once per RecomputeInterval, and nothing but
// Calculating is reported during the first StabilizationDelay of a charging
// session, because instantaneous current is noisy right after plug-in.
type Estimator struct {
	tuning Tuning
	now    Clock

	history       *CurrentHistory
	inSession     bool
	sessionStart  time.Time
	computed      bool
	lastRecompute time.Time
	cached        TimeToFullResult
	phase         Phase
}

// NewEstimator returns an idle Estimator. A nil clock means time.Now.
func NewEstimator(t Tuning, clock Clock) *Estimator {
	t = t.withDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Estimator{
		tuning:  t,
		now:     clock,
		history: NewCurrentHistory(t.HistorySize),
		phase:   PhaseIdle,
	}
}

// Calculate feeds one reading into the estimator and returns the result to
// report for this tick. currentMA may carry either sign; maxCapacityMAh <= 0
// means unknown.
func (e *Estimator) Calculate(currentMA, level, maxCapacityMAh int, charging bool) TimeToFullResult {
	if !charging {
		e.Reset()
		return NotCharging{}
	}

	now := e.now()
	if !e.inSession {
		e.inSession = true
		e.sessionStart = now
	}

	if level >= 100 {
		e.cached = nil
		e.phase = PhaseFull
		return Full{}
	}

	e.history.Add(currentMA)

	if !e.computed || now.Sub(e.lastRecompute) >= e.tuning.RecomputeInterval {
		e.cached = e.estimate(level, maxCapacityMAh, currentMA)
		e.computed = true
		e.lastRecompute = now
	}

	if now.Sub(e.sessionStart) < e.tuning.StabilizationDelay {
		e.phase = PhaseStabilizing
		return Calculating{}
	}

	e.phase = PhaseEstimating
	if e.cached == nil {
		return Calculating{}
	}
	return e.cached
}

func (e *Estimator) estimate(level, maxCapacityMAh, currentMA int) TimeToFullResult {
	remainingPercent := 100 - level
	capacity := maxCapacityMAh
	if capacity <= 0 {
		capacity = e.tuning.DefaultCapacityMAh
	}
	remainingCapacity := float64(remainingPercent) * float64(capacity) / 100.0

	avgCurrent, ok := e.history.Average()
	if !ok {
		avgCurrent = abs(currentMA)
	}

	if avgCurrent <= e.tuning.MinCurrentMA {
		return LowCurrent{}
	}

	timeToFullHours := remainingCapacity / float64(avgCurrent)
	hours := int(math.Floor(timeToFullHours))
	minutes := int(math.Round((timeToFullHours - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return Calculated{Hours: hours, Minutes: minutes}
}

// Reset discards the charging session, the history and any cached result.
// It is idempotent.
func (e *Estimator) Reset() {
	e.history.Clear()
	e.inSession = false
	e.sessionStart = time.Time{}
	e.computed = false
	e.lastRecompute = time.Time{}
	e.cached = nil
	e.phase = PhaseIdle
}

// Phase returns the state the last call left the estimator in.
func (e *Estimator) Phase() Phase {
	return e.phase
}

// SessionStart returns when the current charging session began, and false
// if there is none.
func (e *Estimator) SessionStart() (time.Time, bool) {
	return e.sessionStart, e.inSession
}

// History returns a copy of the current samples, oldest first.
func (e *Estimator) History() []int {
	return e.history.Samples()
}
