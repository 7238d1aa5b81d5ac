package daemon

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/display"
	"github.com/hootzen/amped/pkg/events"
	"github.com/hootzen/amped/pkg/telemetry"
)

const (
	// readTimeout bounds a single sensor read.
	readTimeout = 5 * time.Second
	// continuousTicks is how many recent ticks are checked for gaps.
	continuousTicks = 10
)

// TimeSeriesRecorder records the last N tick times.
type TimeSeriesRecorder struct {
	MaxRecordCount int
	LastTickTimes  []time.Time
	// Interval is the expected time between two ticks.
	Interval time.Duration
	mu       *sync.Mutex
}

// NewTimeSeriesRecorder returns a new TimeSeriesRecorder.
func NewTimeSeriesRecorder(maxRecordCount int, interval time.Duration) *TimeSeriesRecorder {
	return &TimeSeriesRecorder{
		MaxRecordCount: maxRecordCount,
		LastTickTimes:  make([]time.Time, 0),
		Interval:       interval,
		mu:             &sync.Mutex{},
	}
}

// SetInterval changes the expected time between two ticks.
func (r *TimeSeriesRecorder) SetInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Interval = d
}

// AddRecord adds a new record.
func (r *TimeSeriesRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading, so that time.Since stays accurate
	// across system sleep.
	t = t.Round(0)

	if len(r.LastTickTimes) >= r.MaxRecordCount {
		r.LastTickTimes = r.LastTickTimes[1:]
	}
	r.LastTickTimes = append(r.LastTickTimes, t)
}

// ClearRecords clears all records.
func (r *TimeSeriesRecorder) ClearRecords() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.LastTickTimes = make([]time.Time, 0)
}

// GetRecords returns a copy of the records.
func (r *TimeSeriesRecorder) GetRecords() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]time.Time, len(r.LastTickTimes))
	copy(out, r.LastTickTimes)
	return out
}

// GetRecordsString returns the records in RFC3339 format.
func (r *TimeSeriesRecorder) GetRecordsString() []string {
	records := r.GetRecords()
	recordsString := make([]string, 0, len(records))
	for _, record := range records {
		recordsString = append(recordsString, record.Format(time.RFC3339))
	}
	return recordsString
}

// GetRecordsIn returns the number of continuous records in the last duration.
// Two adjacent records are continuous when they are less than Interval+1s
// apart.
func (r *TimeSeriesRecorder) GetRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxGap := r.Interval + time.Second

	// The last record must be within the last duration.
	if len(r.LastTickTimes) > 0 && time.Since(r.LastTickTimes[len(r.LastTickTimes)-1]) >= maxGap {
		return 0
	}

	count := 0
	for i := len(r.LastTickTimes) - 1; i >= 0; i-- {
		record := r.LastTickTimes[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.LastTickTimes) {
			theRecordAfter = r.LastTickTimes[i+1]
		}

		if theRecordAfter.Sub(record) >= maxGap {
			break
		}
		count++
	}

	return count
}

// GetLastRecords returns the records in the last duration, newest first.
func (r *TimeSeriesRecorder) GetLastRecords(last time.Duration) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	var records []time.Time
	for i := len(r.LastTickTimes) - 1; i >= 0; i-- {
		record := r.LastTickTimes[i]
		if time.Since(record) > last {
			break
		}
		records = append(records, record)
	}

	return records
}

func formatRelativeTimes(times []time.Time) []string {
	var timesString []string
	for _, t := range times {
		timesString = append(timesString, time.Since(t).String())
	}
	return timesString
}

// RunLoop polls the source once per poll interval, or earlier when Refresh
// is called, until ctx is done. A failed read skips the tick.
func (d *Daemon) RunLoop(ctx context.Context) {
	logrus.Debug("poll loop starts")
	defer logrus.Debug("poll loop stopped")

	for {
		interval := d.conf.PollInterval()
		d.recorder.SetInterval(interval)
		d.checkMissedTicks(interval)
		d.recorder.AddRecord(d.now())

		if _, err := d.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).WithField("source", d.src.Name()).Error("failed to read battery, skipping tick")
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-d.refreshCh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Refresh makes the loop tick now. It never blocks.
func (d *Daemon) Refresh() {
	select {
	case d.refreshCh <- struct{}{}:
	default:
	}
}

// Tick reads the source once and feeds the snapshot to the aggregator.
func (d *Daemon) Tick(ctx context.Context) (telemetry.NormalizedReading, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	snap, err := d.src.Snapshot(ctx)
	if err != nil {
		return telemetry.NormalizedReading{}, err
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = d.now()
	}

	// Publishing under tickMu keeps readings and resets in the order
	// they were applied.
	d.tickMu.Lock()
	reading := d.aggregator.GetReading(snap)
	d.latest.Store(reading)
	d.hub.Publish(events.ReadingUpdated, reading)
	d.tickMu.Unlock()

	d.printStatus(reading)

	return reading, nil
}

// checkMissedTicks logs when recent ticks are not continuous, which
// happens after system sleep or when reads hang.
func (d *Daemon) checkMissedTicks(interval time.Duration) bool {
	threshold := continuousTicks * interval
	count := d.recorder.GetRecordsIn(threshold)
	expected := continuousTicks
	if len(d.recorder.GetRecords()) < expected {
		return false
	}

	if count < expected-1 {
		logrus.WithFields(logrus.Fields{
			"tickCount":     count,
			"expectedCount": expected,
			"recentRecords": formatRelativeTimes(d.recorder.GetLastRecords(threshold)),
		}).Info("possibly missed ticks")
		return true
	}
	return false
}

type tickStatus struct {
	level      int
	status     telemetry.ChargingStatus
	phase      telemetry.Phase
	timeToFull string
}

// printStatus logs the reading at debug level when something visible
// changed, and at trace level otherwise.
func (d *Daemon) printStatus(r telemetry.NormalizedReading) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()

	current := tickStatus{
		level:      r.Level,
		status:     r.Status,
		phase:      r.Phase,
		timeToFull: display.TimeToFull(r.TimeToFull),
	}

	fields := logrus.Fields{
		"level":          r.Level,
		"status":         r.Status,
		"currentMa":      r.CurrentMA,
		"wattage":        r.Wattage,
		"maxCapacityMah": r.MaxCapacityMAh,
		"phase":          r.Phase,
		"timeToFull":     current.timeToFull,
	}

	if reflect.DeepEqual(d.lastStatus, current) {
		logrus.WithFields(fields).Trace("tick")
		return
	}

	logrus.WithFields(fields).Debug("tick")
	d.lastStatus = current
}
