package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hootzen/amped/pkg/client"
	"github.com/hootzen/amped/pkg/version"
)

var (
	logLevel       = "info"
	unixSocketPath = "/var/run/amped.sock"
	configPath     = "/etc/amped.yaml"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

// apiClient is set up once the global flags are parsed.
var apiClient *client.Client

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: amped daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'amped daemon', or use 'amped probe' to read the battery without a daemon.")
	} else if errors.Is(err, client.ErrPermissionDenied) {
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Try running the command again with 'sudo'")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with '--always-allow-non-root-access'")
	}
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

// checkDaemonVersion warns when client and daemon were built from
// different versions. A daemon that is not running is not an error here.
func checkDaemonVersion() {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		logrus.WithError(err).Debug("failed to get daemon version")
		return
	}
	if daemonVersion != version.Version {
		logrus.WithFields(logrus.Fields{
			"clientVersion": version.Version,
			"daemonVersion": daemonVersion,
		}).Warn("Version mismatch between client and daemon. Restart the daemon after upgrading.")
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amped",
		Short: "amped estimates how long until your battery is full",
		Long: `amped reads battery telemetry, normalizes charge current and capacity
across drivers, and estimates the time until the battery is full.

Run 'amped daemon' to keep polling in the background, then use
'amped status' or 'amped watch' to see the latest reading.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			apiClient = client.NewClient(unixSocketPath)
			if cmd.Annotations[annotationNoDaemon] == "" {
				checkDaemonVersion()
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&unixSocketPath, "daemon-socket", unixSocketPath, "amped daemon unix socket path")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewStatusCommand(),
		NewWatchCommand(),
		NewResetCommand(),
		NewVersionCommand(),
		NewDaemonCommand(),
		NewProbeCommand(),
		NewConfigCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
