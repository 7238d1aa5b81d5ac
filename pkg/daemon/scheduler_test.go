package daemon

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)

	require.NoError(t, s.Schedule("@every 1m"))

	next, running := s.Status()
	assert.False(t, running)
	assert.False(t, next.IsZero())

	require.NoError(t, s.Schedule(""))
	next, _ = s.Status()
	assert.True(t, next.IsZero())
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)

	assert.Error(t, s.Schedule("every day"))
	// Seconds are not part of the standard format.
	assert.Error(t, s.Schedule("0 0 3 * * *"))

	next, _ := s.Status()
	assert.True(t, next.IsZero())
}

func TestSchedulerRescheduleWhileRunning(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.Schedule("@every 10m"))
	require.Eventually(t, func() bool {
		next, _ := s.Status()
		return !next.IsZero()
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Schedule(""))
	require.Eventually(t, func() bool {
		next, _ := s.Status()
		return next.IsZero()
	}, time.Second, 10*time.Millisecond)
}

func TestSchedulerRunCycle(t *testing.T) {
	taskCh := make(chan struct{}, 1)
	errCh := make(chan error, 1)
	var preChecks int32

	task := func() error {
		taskCh <- struct{}{}
		return nil
	}

	preCheck := func() error {
		atomic.AddInt32(&preChecks, 1)
		return nil
	}

	onError := func(data any) {
		if err, ok := data.(error); ok {
			errCh <- err
		}
	}

	s := NewScheduler(task, preCheck, onError)
	require.NoError(t, s.Schedule("@every 1h"))

	s.mu.Lock()
	forced := time.Now().Add(50 * time.Millisecond)
	s.nextRun = forced
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	select {
	case <-taskCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("task did not execute in time")
	}

	assert.NotZero(t, atomic.LoadInt32(&preChecks))
	require.Eventually(t, func() bool {
		next, _ := s.Status()
		return next.After(time.Now().Add(50 * time.Minute))
	}, time.Second, 10*time.Millisecond)

	select {
	case err := <-errCh:
		t.Fatalf("unexpected error callback: %v", err)
	default:
	}
}

func TestSchedulerPreCheckFailure(t *testing.T) {
	taskCh := make(chan struct{}, 1)
	errCh := make(chan error, 2)
	var preChecks int32

	task := func() error {
		taskCh <- struct{}{}
		return nil
	}

	preCheck := func() error {
		atomic.AddInt32(&preChecks, 1)
		return errors.New("boom")
	}

	onError := func(data any) {
		if err, ok := data.(error); ok {
			errCh <- err
		}
	}

	s := NewScheduler(task, preCheck, onError)
	s.PreCheckMaxTimes = 2
	s.PreCheckInterval = 10 * time.Millisecond
	require.NoError(t, s.Schedule("@every 1h"))

	s.mu.Lock()
	s.nextRun = time.Now().Add(50 * time.Millisecond)
	s.mu.Unlock()

	s.Start()
	defer s.Stop()

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "boom")
	case <-time.After(time.Second):
		t.Fatalf("expected error callback from failed precheck")
	}

	// One initial attempt plus two retries, then the run is skipped.
	require.Eventually(t, func() bool { return atomic.LoadInt32(&preChecks) == 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 3, atomic.LoadInt32(&preChecks))

	// Repeated identical failures are reported once.
	assert.Len(t, errCh, 0)

	select {
	case <-taskCh:
		t.Fatalf("task should not execute when precheck fails")
	default:
	}
}
