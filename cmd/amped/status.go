package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/client"
	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/telemetry"
)

type statusData struct {
	reading *telemetry.NormalizedReading
	config  *config.RawFileConfig
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	reading, err := apiClient.GetReading()
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, fmt.Errorf("the daemon has not read the battery yet, try again shortly: %w", err)
		}
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		reading: reading,
		config:  conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Show the latest battery reading",
		Long:    `Show the daemon's latest battery reading, time-to-full estimate, and configuration.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				return printStatusJSON(cmd, data)
			}

			printReading(cmd, *data.reading)
			cmd.Println()

			conf := config.NewFileFromConfig(data.config, "")
			cmd.Println(bold("Configuration:"))
			cmd.Printf("  Poll interval: %s\n", bold("%s", conf.PollInterval()))
			cmd.Printf("  Source: %s\n", bold("%s", conf.Source()))
			if fb := conf.FallbackSource(); fb != "" {
				cmd.Printf("  Fallback source: %s\n", bold("%s", fb))
			}
			if s := conf.RelearnSchedule(); s != "" {
				cmd.Printf("  Relearn capacity: %s\n", bold("%s", s))
			} else {
				cmd.Printf("  Relearn capacity: %s\n", bool2Text(false))
			}
			cmd.Printf("  Allow non-root users to access the daemon: %s\n", bool2Text(conf.AllowNonRootAccess()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print machine-readable JSON")

	return cmd
}
