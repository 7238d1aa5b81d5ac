package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/events"
	"github.com/hootzen/amped/pkg/telemetry"
)

type fakeSource struct {
	mu    sync.Mutex
	snap  telemetry.RawSnapshot
	err   error
	reads int
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Snapshot(context.Context) (telemetry.RawSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return telemetry.RawSnapshot{}, f.err
	}
	return f.snap, nil
}

func (f *fakeSource) set(s telemetry.RawSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
	f.err = nil
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSource) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// chargingSnapshot draws 1000mA from a battery holding 20mAh per percent,
// so the latched full capacity is 4000mAh.
func chargingSnapshot(level int) telemetry.RawSnapshot {
	return telemetry.RawSnapshot{
		Level:            level,
		Charging:         true,
		Plug:             telemetry.PlugAC,
		CurrentRaw:       1000,
		ChargeCounterRaw: level * 40,
		VoltageMV:        4000,
		TemperatureDeci:  300,
		Technology:       "Li-ion",
		Health:           telemetry.HealthGood,
		Source:           "fake",
	}
}

func newTestDaemon(t *testing.T) (*Daemon, *fakeSource, *fakeClock) {
	t.Helper()

	conf := config.NewFileFromConfig(nil, filepath.Join(t.TempDir(), "config.json"))
	src := &fakeSource{}
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	d := New(conf, src)
	d.now = clock.Now
	t.Cleanup(d.Close)
	return d, src, clock
}

func TestResetClearsEstimate(t *testing.T) {
	d, src, clock := newTestDaemon(t)

	src.set(chargingSnapshot(50))
	_, err := d.Tick(context.Background())
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	r, err := d.Tick(context.Background())
	require.NoError(t, err)
	require.Equal(t, telemetry.Calculated{Hours: 2, Minutes: 0}, r.TimeToFull)
	require.Equal(t, telemetry.PhaseEstimating, r.Phase)

	ch := d.Hub().Subscribe()
	defer d.Hub().Unsubscribe(ch)

	d.Reset(ResetReasonManual)

	latest, ok := d.Latest()
	require.True(t, ok)
	assert.Equal(t, telemetry.NotCharging{}, latest.TimeToFull)
	assert.Equal(t, telemetry.PhaseIdle, latest.Phase)
	assert.Equal(t, 0, latest.MaxCapacityMAh)
	assert.Equal(t, 50, latest.Level)

	ev := <-ch
	assert.Equal(t, events.EstimatorReset, ev.Name)
	payload, err := events.DecodeAs[events.EstimatorResetEvent](ev)
	require.NoError(t, err)
	assert.Equal(t, ResetReasonManual, payload.Reason)
	assert.Equal(t, clock.Now().Unix(), payload.Ts)

	// The next tick starts a new session and re-latches the capacity.
	r, err = d.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, telemetry.Calculating{}, r.TimeToFull)
	assert.Equal(t, telemetry.PhaseStabilizing, r.Phase)
	assert.Equal(t, 4000, r.MaxCapacityMAh)
}

func TestResetBeforeFirstTick(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	d.Reset(ResetReasonManual)
	_, ok := d.Latest()
	assert.False(t, ok)
}

func TestRelearnPreCheck(t *testing.T) {
	d, src, _ := newTestDaemon(t)

	assert.NoError(t, d.relearnPreCheck())

	src.set(chargingSnapshot(50))
	_, err := d.Tick(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, d.relearnPreCheck(), ErrChargingInProgress)

	snap := chargingSnapshot(50)
	snap.Charging = false
	snap.Plug = telemetry.PlugNone
	src.set(snap)
	_, err = d.Tick(context.Background())
	require.NoError(t, err)
	assert.NoError(t, d.relearnPreCheck())

	require.NoError(t, d.relearn())
	latest, _ := d.Latest()
	assert.Equal(t, 0, latest.MaxCapacityMAh)
}

func TestApplyConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	conf, err := config.NewFile(path)
	require.NoError(t, err)

	d := New(conf, &fakeSource{})
	t.Cleanup(d.Close)
	before := d.aggregator

	// Nothing changed.
	require.NoError(t, d.ApplyConfig())
	assert.Same(t, before, d.aggregator)

	require.NoError(t, os.WriteFile(path, []byte(`{
  "relearnSchedule": "0 3 * * 0",
  "tuning": {"historySize": 5}
}`), 0644))
	require.NoError(t, conf.Load())
	require.NoError(t, d.ApplyConfig())

	assert.NotSame(t, before, d.aggregator)
	assert.Equal(t, 5, d.tuning.HistorySize)
	next, _ := d.scheduler.Status()
	assert.False(t, next.IsZero())
	assert.Equal(t, time.Sunday, next.Weekday())
}

func TestRemoveStaleSocket(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, removeStaleSocket(filepath.Join(dir, "missing.sock")))

	regular := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(regular, nil, 0644))
	assert.Error(t, removeStaleSocket(regular))
	assert.FileExists(t, regular)
}
