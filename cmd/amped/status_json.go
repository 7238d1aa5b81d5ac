package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/display"
	"github.com/hootzen/amped/pkg/telemetry"
)

type statusJSON struct {
	Reading       telemetry.NormalizedReading `json:"reading"`
	Display       statusDisplayJSON           `json:"display"`
	Configuration *config.RawFileConfig       `json:"configuration"`
}

// statusDisplayJSON carries the strings status prints, for scripts that
// want the same wording.
type statusDisplayJSON struct {
	Status      string `json:"status"`
	TimeToFull  string `json:"timeToFull"`
	MaxCapacity string `json:"maxCapacity"`
	Health      string `json:"health"`
}

func buildStatusJSON(data *statusData) statusJSON {
	r := *data.reading
	return statusJSON{
		Reading: r,
		Display: statusDisplayJSON{
			Status:      display.ChargingStatus(r.Status),
			TimeToFull:  display.TimeToFull(r.TimeToFull),
			MaxCapacity: display.MaxCapacity(r.MaxCapacityMAh),
			Health:      display.Health(r.Health),
		},
		Configuration: data.config,
	}
}

func printStatusJSON(cmd *cobra.Command, data *statusData) error {
	b, err := json.MarshalIndent(buildStatusJSON(data), "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(b))
	return nil
}
