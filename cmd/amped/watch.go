package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/events"
	"github.com/hootzen/amped/pkg/telemetry"
)

func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Follow readings as the daemon takes them",
		GroupID: gBasic,
		Long: `Print one line per reading until interrupted. The stream reconnects
if the daemon restarts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Fail fast when the daemon is not there at all.
			if _, err := apiClient.GetVersion(); err != nil {
				return err
			}

			apiClient.Watch(ctx, func(ev events.Event) {
				switch ev.Name {
				case events.ReadingUpdated:
					r, err := events.DecodeAs[telemetry.NormalizedReading](ev)
					if err != nil {
						logrus.WithError(err).Warn("failed to decode reading")
						return
					}
					cmd.Println(readingLine(r))
				case events.EstimatorReset:
					e, err := events.DecodeAs[events.EstimatorResetEvent](ev)
					if err != nil {
						logrus.WithError(err).Warn("failed to decode reset event")
						return
					}
					cmd.Println(bold("estimator reset (%s)", e.Reason))
				default:
					logrus.WithField("event", ev.Name).Debug("ignoring unknown event")
				}
			})
			return nil
		},
	}
}
