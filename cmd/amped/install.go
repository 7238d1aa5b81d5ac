package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/utils/service"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false

	cmd := &cobra.Command{
		Use:         "install",
		Short:       "Install amped daemon (system-wide)",
		GroupID:     gAdvanced,
		Annotations: noDaemon,
		Long: `Install amped daemon as a system service: systemd on Linux, launchd on macOS.

This makes amped run in the background and automatically start on boot. You must run this command as root.

By default, only root user is allowed to access the amped daemon. Use --allow-non-root-access to let
other users run 'amped status' and 'amped watch' without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := service.Default()
			if err != nil {
				return err
			}

			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the amped daemon.")
			} else {
				logrus.Info("only root user is allowed to access the amped daemon.")
			}

			// Save first, so that the daemon starts with the new setting.
			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = m.Install(service.Options{
				ConfigPath:   configPath,
				SocketPath:   unixSocketPath,
				AllowNonRoot: allowNonRootAccess,
			})
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()
			cmd.Printf("%s will use the current binary (%s) at startup, so do not move it. If you do, run 'amped install' again.\n", m.Name, exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access amped daemon.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "uninstall",
		Short:       "Uninstall amped daemon (system-wide)",
		GroupID:     gAdvanced,
		Annotations: noDaemon,
		Long: `Stop amped daemon and remove its system service.

You must run this command as root. The config file is kept.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			m, err := service.Default()
			if err != nil {
				return err
			}

			if err := m.Uninstall(); err != nil {
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			logrus.Infof("successfully uninstalled amped daemon")
			return nil
		},
	}
}
