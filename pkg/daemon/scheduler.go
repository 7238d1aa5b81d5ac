package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	defaultPreCheckMaxTimes = 30
	defaultPreCheckInterval = time.Second * 10
	// idleWait is how long the scheduler sleeps when nothing is scheduled.
	idleWait = time.Hour * 10000
)

type NotifyFunc func(data any)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task on a cron schedule. When PreCheck fails, the run is
// retried every PreCheckInterval up to PreCheckMaxTimes, then skipped.
type Scheduler struct {
	OnError  NotifyFunc // called on precheck or task error
	Task     TaskFunc
	PreCheck TaskFunc

	PreCheckMaxTimes int
	PreCheckInterval time.Duration

	schedule cron.Schedule
	expr     string
	nextRun  time.Time

	mu      sync.Mutex
	running bool

	controlCh chan cron.Schedule
	stopCh    chan struct{}
}

func NewScheduler(task, preCheck TaskFunc, onError NotifyFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		OnError:          onError,
		Task:             task,
		PreCheck:         preCheck,
		PreCheckMaxTimes: defaultPreCheckMaxTimes,
		PreCheckInterval: defaultPreCheckInterval,
		controlCh:        make(chan cron.Schedule, 4),
		stopCh:           make(chan struct{}),
	}
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

// Schedule replaces the schedule. An empty expression disables it.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = cron.ParseStandard(cronExpr)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	if s.expr == cronExpr {
		s.mu.Unlock()
		return nil
	}
	s.expr = cronExpr
	running := s.running
	if !running {
		s.setScheduleLocked(sh)
	}
	s.mu.Unlock()

	if running {
		select {
		case s.controlCh <- sh:
		default:
			logrus.Warn("scheduler control channel full, dropping schedule change")
		}
	}
	return nil
}

func (s *Scheduler) setScheduleLocked(sh cron.Schedule) {
	s.schedule = sh
	if sh == nil {
		s.nextRun = time.Time{}
		return
	}
	s.nextRun = sh.Next(time.Now())
}

// Status returns the next run time, zero if nothing is scheduled.
func (s *Scheduler) Status() (nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.nextRun, s.running
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		attempts := 0
		var precheckErr error

		schedule, nextRun := s.snapshot()
		wait := idleWait
		if schedule != nil && !nextRun.IsZero() {
			wait = max(time.Until(nextRun), 0)
		}
		timer := time.NewTimer(wait)

	loop:
		for {
			select {
			case <-timer.C:
				if schedule == nil {
					break loop
				}

				logrus.WithField("scheduledAt", nextRun.Format(time.DateTime)).Debug("running scheduled task")

				if s.PreCheck != nil {
					if err := s.PreCheck(); err != nil {
						if precheckErr == nil || err.Error() != precheckErr.Error() {
							precheckErr = err
							s.sendError(fmt.Errorf("precheck failed: %w", err))
						}

						attempts++
						if attempts <= s.PreCheckMaxTimes {
							logrus.Debugf("precheck failed (%d/%d): %v; retrying in %s", attempts, s.PreCheckMaxTimes, err, s.PreCheckInterval)
							timer.Reset(s.PreCheckInterval)
							continue
						}

						logrus.WithError(err).Info("precheck kept failing, skipping scheduled run")
						s.advanceNextRun()
						break loop
					}
				}

				go func() {
					if err := s.Task(); err != nil {
						s.sendError(fmt.Errorf("task failed: %w", err))
					}
				}()
				s.advanceNextRun()
				break loop
			case <-s.stopCh:
				timer.Stop()
				return
			case sh := <-s.controlCh:
				timer.Stop()
				s.mu.Lock()
				s.setScheduleLocked(sh)
				s.mu.Unlock()
				break loop
			}
		}
	}
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

// advanceNextRun moves to the first run after now, so that runs missed
// while retrying or sleeping are not replayed.
func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	next := s.schedule.Next(s.nextRun)
	if now := time.Now(); next.Before(now) {
		next = s.schedule.Next(now)
	}
	s.nextRun = next
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}
