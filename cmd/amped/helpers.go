package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/display"
	"github.com/hootzen/amped/pkg/telemetry"
)

// annotationNoDaemon marks commands that do not talk to the daemon.
const annotationNoDaemon = "amped/no-daemon"

var noDaemon = map[string]string{annotationNoDaemon: "true"}

func parseDurationArg(args []string, valueName string) (time.Duration, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := time.ParseDuration(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// statusText colors the charging status: green while charging, red when
// not.
func statusText(r telemetry.NormalizedReading) string {
	s := display.ChargingStatus(r.Status)
	switch {
	case r.Status == telemetry.StatusFull:
		return bold("%s", s)
	case r.Charging:
		return color.New(color.Bold, color.FgGreen).Sprint(s)
	case r.Status == telemetry.StatusNotCharging:
		return color.New(color.Bold, color.FgRed).Sprint(s)
	default:
		return bold("%s", s)
	}
}

// currentText shows the signed current, green while charging.
func currentText(mA int) string {
	s := fmt.Sprintf("%+d mA", mA)
	switch {
	case mA > 0:
		return color.New(color.Bold, color.FgGreen).Sprint(s)
	case mA < 0:
		return color.New(color.Bold, color.FgRed).Sprint(s)
	default:
		return bold("%s", s)
	}
}

// printReading prints a full reading, one field per line.
func printReading(cmd *cobra.Command, r telemetry.NormalizedReading) {
	cmd.Println(bold("Battery status:"))
	cmd.Printf("  Level: %s\n", bold("%d%%", r.Level))
	cmd.Printf("  Status: %s\n", statusText(r))
	cmd.Printf("  Time to full: %s\n", bold("%s", display.TimeToFull(r.TimeToFull)))
	cmd.Printf("  Current: %s\n", currentText(r.CurrentMA))
	cmd.Printf("  Power: %s\n", bold("%s", display.Power(r.Wattage)))
	cmd.Printf("  Voltage: %s\n", bold("%s", display.Voltage(r.Voltage)))
	cmd.Printf("  Temperature: %s\n", bold("%s", display.Temperature(r.TemperatureC)))
	cmd.Printf("  Health: %s\n", bold("%s", display.Health(r.Health)))
	cmd.Printf("  Technology: %s\n", bold("%s", r.Technology))
	cmd.Println()

	cmd.Println(bold("Capacity:"))
	cmd.Printf("  Charge: %s\n", bold("%d mAh", r.CapacityMAh))
	cmd.Printf("  Estimated full capacity: %s\n", bold("%s", display.MaxCapacity(r.MaxCapacityMAh)))
	cmd.Printf("  Estimator: %s\n", bold("%s", r.Phase))
	if r.Source != "" {
		cmd.Printf("  Source: %s\n", bold("%s", r.Source))
	}
}

// readingLine is the one-line form used by watch and probe.
func readingLine(r telemetry.NormalizedReading) string {
	return fmt.Sprintf("%s  %s  %s  %s  %s  ETA %s",
		r.Timestamp.Local().Format(time.TimeOnly),
		bold("%3d%%", r.Level),
		statusText(r),
		currentText(r.CurrentMA),
		display.Power(r.Wattage),
		bold("%s", display.TimeToFull(r.TimeToFull)),
	)
}
