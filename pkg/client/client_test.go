package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/daemon"
	"github.com/hootzen/amped/pkg/events"
	"github.com/hootzen/amped/pkg/telemetry"
	"github.com/hootzen/amped/pkg/version"
)

type staticSource struct {
	mu   sync.Mutex
	snap telemetry.RawSnapshot
}

func (s *staticSource) Name() string { return "static" }

func (s *staticSource) Snapshot(context.Context) (telemetry.RawSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

// startDaemon serves a daemon on a unix socket in a temp dir. The daemon
// does not poll until started.
func startDaemon(t *testing.T) (*daemon.Daemon, *Client) {
	t.Helper()

	dir := t.TempDir()
	conf := config.NewFileFromConfig(nil, filepath.Join(dir, "config.json"))
	src := &staticSource{snap: telemetry.RawSnapshot{
		Level:            80,
		Charging:         true,
		Plug:             telemetry.PlugUSB,
		CurrentRaw:       500000,
		ChargeCounterRaw: 3200000,
		VoltageMV:        4200,
		Health:           telemetry.HealthGood,
	}}
	d := daemon.New(conf, src)
	t.Cleanup(d.Close)

	socketPath := filepath.Join(dir, "amped.sock")
	l, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	srv := &http.Server{Handler: d.Router()}
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	return d, NewClient(socketPath)
}

func TestDaemonNotRunning(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))

	_, err := c.GetVersion()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)

	err = c.WatchOnce(context.Background(), func(events.Event) {})
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestDaemonNotRunningStaleSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "stale.sock")
	l, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	ul, ok := l.(*net.UnixListener)
	require.True(t, ok)
	// Leave the socket file behind like a daemon that died.
	ul.SetUnlinkOnClose(false)
	require.NoError(t, l.Close())

	_, err = dialSocket(context.Background(), socketPath)
	assert.ErrorIs(t, err, ErrDaemonNotRunning)

	_, err = NewClient(socketPath).GetVersion()
	assert.ErrorIs(t, err, ErrDaemonNotRunning)
}

func TestRoundTrip(t *testing.T) {
	d, c := startDaemon(t)

	v, err := c.GetVersion()
	require.NoError(t, err)
	assert.Equal(t, version.Version, v)

	_, err = c.GetReading()
	require.ErrorIs(t, err, ErrNotFound)

	_, err = d.Tick(context.Background())
	require.NoError(t, err)

	r, err := c.GetReading()
	require.NoError(t, err)
	assert.Equal(t, 80, r.Level)
	assert.Equal(t, telemetry.StatusUSB, r.Status)
	assert.Equal(t, 500, r.CurrentMA)
	assert.Equal(t, 4000, r.MaxCapacityMAh)
	assert.Equal(t, telemetry.Calculating{}, r.TimeToFull)

	msg, err := c.Reset()
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)

	r, err = c.GetReading()
	require.NoError(t, err)
	assert.Equal(t, telemetry.PhaseIdle, r.Phase)
	assert.Equal(t, 0, r.MaxCapacityMAh)

	ticks, err := c.GetTicks()
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestConfigRoundTrip(t *testing.T) {
	_, c := startDaemon(t)

	msg, err := c.SetPollInterval(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "set poll interval to 2s", msg)

	conf, err := c.GetConfig()
	require.NoError(t, err)
	require.NotNil(t, conf.PollInterval)
	assert.Equal(t, config.Duration(2*time.Second), *conf.PollInterval)

	_, err = c.SetPollInterval(time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 400")

	_, err = c.SetRelearnSchedule("0 3 * * 0")
	require.NoError(t, err)
	conf, err = c.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * 0", *conf.RelearnSchedule)
}

func TestWatchOnce(t *testing.T) {
	d, c := startDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan events.Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- c.WatchOnce(ctx, func(ev events.Event) { received <- ev })
	}()

	require.Eventually(t, func() bool { return d.Hub().Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	_, err := d.Tick(context.Background())
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, events.ReadingUpdated, ev.Name)
		r, err := events.DecodeAs[telemetry.NormalizedReading](ev)
		require.NoError(t, err)
		assert.Equal(t, 80, r.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchReconnects(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing.sock"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	c.Watch(ctx, func(events.Event) {})
	assert.True(t, errors.Is(ctx.Err(), context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}
