package main

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Show or change daemon configuration",
		GroupID: gAdvanced,
	}

	cmd.AddCommand(
		newConfigShowCommand(),
		newPollIntervalCommand(),
		newRelearnScheduleCommand(),
	)

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective daemon configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := apiClient.GetConfig()
			if err != nil {
				return err
			}

			b, err := yaml.Marshal(conf)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			cmd.Print(string(b))
			return nil
		},
	}
}

func newPollIntervalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "poll-interval <duration>",
		Short: "Set how often the daemon reads the battery",
		Long: `Set how often the daemon reads the battery, e.g. 1s or 500ms.

The change is saved to the daemon's config file and takes effect immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d, err := parseDurationArg(args, "poll interval")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetPollInterval(d)
			if err != nil {
				return fmt.Errorf("failed to set poll interval: %v", err)
			}

			logrus.Infof("daemon responded: %s", ret)
			return nil
		},
	}
}

func newRelearnScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "relearn-schedule <cron expression>",
		Short: "Periodically re-estimate the full capacity",
		Long: `Set a standard 5-field cron expression on which the daemon discards its
full capacity estimate, so that it is learned again from the next reading.
Runs are postponed while the battery is charging.

Pass an empty string to disable.

Examples:
  amped config relearn-schedule "0 3 * * 0"
  amped config relearn-schedule @weekly
  amped config relearn-schedule ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ret, err := apiClient.SetRelearnSchedule(args[0])
			if err != nil {
				return fmt.Errorf("failed to set relearn schedule: %v", err)
			}

			logrus.Infof("daemon responded: %s", ret)
			return nil
		},
	}
}
