package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/events"
	"github.com/hootzen/amped/pkg/source"
	"github.com/hootzen/amped/pkg/telemetry"
)

const (
	maxTickRecords = 60

	ResetReasonManual   = "manual"
	ResetReasonSchedule = "schedule"
)

// ErrChargingInProgress is returned by the relearn precheck.
var ErrChargingInProgress = errors.New("charging in progress")

// Options configures Run.
type Options struct {
	ConfigPath   string
	SocketPath   string
	AllowNonRoot bool
}

// Daemon polls a source, keeps the latest reading and serves it.
type Daemon struct {
	conf config.Config
	src  source.Source
	hub  *events.EventHub
	now  func() time.Time

	// tickMu serializes aggregation and resets.
	tickMu     sync.Mutex
	aggregator *telemetry.Aggregator
	tuning     telemetry.Tuning
	latest     events.Latest[telemetry.NormalizedReading]

	recorder  *TimeSeriesRecorder
	scheduler *Scheduler
	refreshCh chan struct{}

	closeOnce sync.Once
	closing   chan struct{}

	statusMu   sync.Mutex
	lastStatus tickStatus
}

// New returns a Daemon reading from src. It does not start polling.
func New(conf config.Config, src source.Source) *Daemon {
	d := &Daemon{
		conf:      conf,
		src:       src,
		hub:       events.NewEventHub(),
		now:       time.Now,
		tuning:    conf.Tuning(),
		recorder:  NewTimeSeriesRecorder(maxTickRecords, conf.PollInterval()),
		refreshCh: make(chan struct{}, 1),
		closing:   make(chan struct{}),
	}
	d.aggregator = telemetry.NewAggregator(d.tuning, d.clock)
	d.scheduler = NewScheduler(d.relearn, d.relearnPreCheck, func(data any) {
		logrus.WithField("error", data).Warn("scheduled relearn failed")
	})
	return d
}

// clock is handed to the aggregator so that tests can swap d.now later.
func (d *Daemon) clock() time.Time {
	return d.now()
}

// Hub returns the event hub readings and resets are published on.
func (d *Daemon) Hub() *events.EventHub {
	return d.hub
}

// Latest returns the reading of the last successful tick.
func (d *Daemon) Latest() (telemetry.NormalizedReading, bool) {
	return d.latest.Load()
}

// Reset discards the charging session and the capacity estimate. The
// stored reading keeps its sensor values but reports no estimate.
func (d *Daemon) Reset(reason string) {
	d.tickMu.Lock()
	d.aggregator.Reset()
	d.latest.Update(func(r telemetry.NormalizedReading) telemetry.NormalizedReading {
		r.TimeToFull = telemetry.NotCharging{}
		r.Phase = telemetry.PhaseIdle
		r.MaxCapacityMAh = 0
		return r
	})
	d.hub.Publish(events.EstimatorReset, events.EstimatorResetEvent{
		Reason: reason,
		Ts:     d.now().Unix(),
	})
	d.tickMu.Unlock()

	logrus.WithField("reason", reason).Info("estimator reset")
}

func (d *Daemon) relearn() error {
	d.Reset(ResetReasonSchedule)
	return nil
}

// relearnPreCheck refuses to drop the capacity estimate mid-session.
func (d *Daemon) relearnPreCheck() error {
	r, ok := d.latest.Load()
	if ok && r.Charging {
		return ErrChargingInProgress
	}
	return nil
}

// ApplyConfig picks up tuning and schedule changes after a reload.
// Changed tuning restarts estimation from scratch.
func (d *Daemon) ApplyConfig() error {
	t := d.conf.Tuning()

	d.tickMu.Lock()
	changed := !reflect.DeepEqual(t, d.tuning)
	if changed {
		d.tuning = t
		d.aggregator = telemetry.NewAggregator(t, d.clock)
	}
	d.tickMu.Unlock()

	if changed {
		logrus.WithField("tuning", t).Info("tuning changed, estimator restarted")
	}

	if err := d.scheduler.Schedule(d.conf.RelearnSchedule()); err != nil {
		return pkgerrors.Wrapf(err, "failed to schedule relearn %q", d.conf.RelearnSchedule())
	}
	d.Refresh()
	return nil
}

// Start launches the poll loop, the change listener and the scheduler.
// They stop when ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.scheduler.Schedule(d.conf.RelearnSchedule()); err != nil {
		return pkgerrors.Wrapf(err, "failed to schedule relearn %q", d.conf.RelearnSchedule())
	}
	d.scheduler.Start()
	go func() {
		<-ctx.Done()
		d.scheduler.Stop()
	}()

	if n, ok := d.src.(source.Notifier); ok {
		changes, err := n.Changes(ctx)
		if err != nil {
			logrus.WithError(err).Warn("failed to subscribe to battery changes, polling only")
		} else if changes != nil {
			go func() {
				for range changes {
					logrus.Trace("battery changed, refreshing")
					d.Refresh()
				}
			}()
		}
	}

	go d.RunLoop(ctx)
	return nil
}

// Close disconnects streaming clients.
func (d *Daemon) Close() {
	d.closeOnce.Do(func() { close(d.closing) })
}

func sourceOptions(conf config.Config) source.Options {
	return source.Options{
		Source:       conf.Source(),
		Fallback:     conf.FallbackSource(),
		SysfsRoot:    conf.SysfsRoot(),
		SysfsBattery: conf.SysfsBattery(),
		UPowerDevice: conf.UPowerDevice(),
	}
}

func Run(opts Options) error {
	conf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	src, err := source.Open(sourceOptions(conf))
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open battery source")
	}
	defer func() {
		logrus.Info("closing battery source")
		if err := source.Close(src); err != nil {
			logrus.Errorf("failed to close battery source: %v", err)
		}
	}()
	logrus.WithField("source", src.Name()).Info("battery source opened")

	d := New(conf, src)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			if err := d.ApplyConfig(); err != nil {
				logrus.Errorf("failed to apply config: %v", err)
				continue
			}
			logrus.Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler:           d.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// A socket left over by a crashed daemon would make Listen fail.
	if err := removeStaleSocket(opts.SocketPath); err != nil {
		return err
	}
	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to listen on %s", opts.SocketPath)
	}
	defer os.Remove(opts.SocketPath)

	if conf.AllowNonRootAccess() || opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", opts.SocketPath)
		if err := os.Chmod(opts.SocketPath, 0777); err != nil {
			return pkgerrors.Wrapf(err, "failed to chmod %s", opts.SocketPath)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	if err := d.Start(ctx); err != nil {
		return err
	}

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()
	d.Close()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("exiting")
	return nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to stat %s", path)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return pkgerrors.Errorf("%s exists and is not a socket", path)
	}
	logrus.WithField("path", path).Debug("removing stale socket")
	return os.Remove(path)
}
