package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/source"
	"github.com/hootzen/amped/pkg/telemetry"
)

type probeOptions struct {
	source   string
	fallback string
	count    int
	interval time.Duration
	json     bool
}

// loadLocalConfig reads the config file if it can, and falls back to the
// defaults otherwise. probe must work without a daemon or a config.
func loadLocalConfig() config.Config {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.WithError(err).Warn("failed to load config, using defaults")
		return config.NewFileFromConfig(nil, configPath)
	}
	return conf
}

func NewProbeCommand() *cobra.Command {
	o := probeOptions{}

	cmd := &cobra.Command{
		Use:         "probe",
		Short:       "Read the battery directly, without a daemon",
		GroupID:     gAdvanced,
		Annotations: noDaemon,
		Long: `Run the normalization and estimation pipeline in this process and print
each reading. Useful to check which source works on this machine.

Sources: auto, sysfs, upower, distatus, smc.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.count < 0 {
				return fmt.Errorf("count must not be negative, got %d", o.count)
			}
			if o.interval < config.MinPollInterval {
				return fmt.Errorf("interval must be at least %s, got %s", config.MinPollInterval, o.interval)
			}
			return runProbe(cmd, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.source, "source", "", "battery source (default from config)")
	f.StringVar(&o.fallback, "fallback", "", "fallback source for missing current and charge counter")
	f.IntVarP(&o.count, "count", "n", 10, "number of readings, 0 means until interrupted")
	f.DurationVarP(&o.interval, "interval", "i", time.Second, "time between readings")
	f.BoolVar(&o.json, "json", false, "print one JSON reading per line")

	return cmd
}

func runProbe(cmd *cobra.Command, o probeOptions) error {
	conf := loadLocalConfig()

	opts := source.Options{
		Source:       conf.Source(),
		Fallback:     conf.FallbackSource(),
		SysfsRoot:    conf.SysfsRoot(),
		SysfsBattery: conf.SysfsBattery(),
		UPowerDevice: conf.UPowerDevice(),
	}
	if o.source != "" {
		opts.Source = o.source
		opts.Fallback = o.fallback
	}

	src, err := source.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open battery source: %w", err)
	}
	defer func() {
		if err := source.Close(src); err != nil {
			logrus.Errorf("failed to close battery source: %v", err)
		}
	}()
	logrus.WithField("source", src.Name()).Info("probing battery")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := telemetry.NewAggregator(conf.Tuning(), nil)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for i := 0; o.count == 0 || i < o.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}

		snapCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		snap, err := src.Snapshot(snapCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).Error("failed to read battery")
			continue
		}
		if snap.CapturedAt.IsZero() {
			snap.CapturedAt = time.Now()
		}

		logrus.WithFields(logrus.Fields{
			"currentRaw":       snap.CurrentRaw,
			"chargeCounterRaw": snap.ChargeCounterRaw,
			"voltageMv":        snap.VoltageMV,
		}).Debug("raw snapshot")

		r := aggregator.GetReading(snap)
		if o.json {
			b, err := json.Marshal(r)
			if err != nil {
				return err
			}
			cmd.Println(string(b))
			continue
		}
		cmd.Println(readingLine(r))
	}

	return nil
}
