// Package service installs the amped daemon as a system service: a systemd
// unit on Linux and a launchd daemon on macOS.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/sirupsen/logrus"
)

// Options are rendered into the service definition.
type Options struct {
	ExePath    string
	ConfigPath string
	SocketPath string
	// AllowNonRoot passes --always-allow-non-root-access to the daemon.
	AllowNonRoot bool
}

// Manager writes a service definition and drives the init system.
type Manager struct {
	// Name is the init system, for messages.
	Name     string
	UnitPath string
	Template string
	// Start and Stop are run in order after writing and before removing
	// the unit.
	Start [][]string
	Stop  [][]string

	run func(name string, args ...string) error
}

// ForOS returns the Manager for the given GOOS, or an error if amped cannot
// be installed there.
func ForOS(goos string) (*Manager, error) {
	switch goos {
	case "linux":
		unit := "/etc/systemd/system/amped.service"
		return &Manager{
			Name:     "systemd",
			UnitPath: unit,
			Template: systemdUnitTemplate,
			Start: [][]string{
				{"systemctl", "daemon-reload"},
				{"systemctl", "enable", "--now", "amped.service"},
			},
			Stop: [][]string{
				{"systemctl", "disable", "--now", "amped.service"},
			},
			run: runCommand,
		}, nil
	case "darwin":
		plist := "/Library/LaunchDaemons/io.github.hootzen.amped.plist"
		return &Manager{
			Name:     "launchd",
			UnitPath: plist,
			Template: launchdPlistTemplate,
			Start:    [][]string{{"/bin/launchctl", "load", plist}},
			Stop:     [][]string{{"/bin/launchctl", "unload", plist}},
			run:      runCommand,
		}, nil
	default:
		return nil, fmt.Errorf("installing a service is not supported on %s", goos)
	}
}

// Default returns the Manager for the running OS.
func Default() (*Manager, error) {
	return ForOS(runtime.GOOS)
}

func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(out))
	}
	return nil
}

// Render returns the service definition for o.
func (m *Manager) Render(o Options) (string, error) {
	tmpl, err := template.New(filepath.Base(m.UnitPath)).Parse(m.Template)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, o); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", m.UnitPath, err)
	}
	return buf.String(), nil
}

// Install writes the service definition and starts the service.
func (m *Manager) Install(o Options) error {
	if o.ExePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get the path to the current executable: %w", err)
		}
		o.ExePath = exePath
	}
	exePath, err := filepath.Abs(o.ExePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}
	o.ExePath = exePath

	if err := os.Chmod(exePath, 0755); err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	content, err := m.Render(o)
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.UnitPath)
	logrus.Infof("writing %s service to %s", m.Name, dir)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	// warn if the file already exists
	if _, err := os.Stat(m.UnitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", m.UnitPath)
	}

	if err := os.WriteFile(m.UnitPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.UnitPath, err)
	}

	logrus.Infof("starting amped")

	for _, c := range m.Start {
		if err := m.run(c[0], c[1:]...); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
	}

	return nil
}

// Uninstall stops the service and removes its definition. A missing
// definition is not an error.
func (m *Manager) Uninstall() error {
	if _, err := os.Stat(m.UnitPath); err != nil {
		if os.IsNotExist(err) {
			logrus.Infof("%s does not exist, nothing to uninstall", m.UnitPath)
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", m.UnitPath, err)
	}

	logrus.Infof("stopping amped")

	for _, c := range m.Stop {
		if err := m.run(c[0], c[1:]...); err != nil {
			return fmt.Errorf("failed to stop service: %w. Are you root?", err)
		}
	}

	logrus.Infof("removing %s service", m.Name)

	if err := os.Remove(m.UnitPath); err != nil {
		return fmt.Errorf("failed to remove %s: %w. Are you root?", m.UnitPath, err)
	}

	return nil
}
