package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hootzen/amped/pkg/telemetry"
)

func TestDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, time.Second, f.PollInterval())
	assert.Equal(t, "auto", f.Source())
	assert.Equal(t, "", f.FallbackSource())
	assert.Equal(t, "/sys/class/power_supply", f.SysfsRoot())
	assert.Equal(t, "", f.RelearnSchedule())
	assert.False(t, f.AllowNonRootAccess())
	assert.Equal(t, telemetry.DefaultTuning(), f.Tuning())
}

func TestEmptyFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "amped.json")
	require.NoError(t, os.WriteFile(p, []byte("  \n"), 0644))

	f, err := NewFile(p)
	require.NoError(t, err)
	assert.Equal(t, time.Second, f.PollInterval())
}

func TestLoadJSON(t *testing.T) {
	p := filepath.Join(t.TempDir(), "amped.json")
	require.NoError(t, os.WriteFile(p, []byte(`{
  "pollInterval": "2s",
  "source": "sysfs",
  "fallbackSource": "upower",
  "relearnSchedule": "0 3 * * *",
  "tuning": {"historySize": 20, "stabilizationDelay": "10s"}
}`), 0644))

	f, err := NewFile(p)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, f.PollInterval())
	assert.Equal(t, "sysfs", f.Source())
	assert.Equal(t, "upower", f.FallbackSource())
	assert.Equal(t, "0 3 * * *", f.RelearnSchedule())

	tuning := f.Tuning()
	assert.Equal(t, 20, tuning.HistorySize)
	assert.Equal(t, 10*time.Second, tuning.StabilizationDelay)
	assert.Equal(t, 5*time.Second, tuning.RecomputeInterval)
	assert.Equal(t, 100.0, tuning.MaxRealisticWattage)
}

func TestLoadYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "amped.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
pollInterval: 500ms
source: distatus
allowNonRootAccess: true
tuning:
  maxRealisticWattage: 65.5
  minCurrentMa: 25
`), 0644))

	f, err := NewFile(p)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, f.PollInterval())
	assert.Equal(t, "distatus", f.Source())
	assert.True(t, f.AllowNonRootAccess())
	assert.Equal(t, 65.5, f.Tuning().MaxRealisticWattage)
	assert.Equal(t, 25, f.Tuning().MinCurrentMA)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"bad.json":      `{"pollInterval": "soon"}`,
		"short.json":    `{"pollInterval": "1ms"}`,
		"schedule.json": `{"relearnSchedule": "every day"}`,
		"broken.yaml":   "pollInterval: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(p, []byte(content), 0644))

			_, err := NewFile(p)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"amped.json", "amped.yml"} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), name)
			f, err := NewFile(p)
			require.NoError(t, err)

			require.NoError(t, f.SetPollInterval(3*time.Second))
			require.NoError(t, f.SetRelearnSchedule("*/30 * * * *"))
			f.SetAllowNonRootAccess(true)
			require.NoError(t, f.Save())

			g, err := NewFile(p)
			require.NoError(t, err)
			assert.Equal(t, 3*time.Second, g.PollInterval())
			assert.Equal(t, "*/30 * * * *", g.RelearnSchedule())
			assert.True(t, g.AllowNonRootAccess())
			// Unset values are not written out.
			assert.Nil(t, g.c.Source)
		})
	}
}

func TestSetters(t *testing.T) {
	f := NewFileFromConfig(nil, "")

	assert.Error(t, f.SetPollInterval(10*time.Millisecond))
	assert.Error(t, f.SetPollInterval(2*time.Hour))
	assert.Equal(t, time.Second, f.PollInterval())
	assert.NoError(t, f.SetPollInterval(MinPollInterval))

	assert.Error(t, f.SetRelearnSchedule("61 * * * *"))
	assert.NoError(t, f.SetRelearnSchedule(""))
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	f := NewFileFromConfig(nil, "")
	raw, err := NewRawFileConfigFromConfig(f)
	require.NoError(t, err)

	require.NotNil(t, raw.PollInterval)
	assert.Equal(t, Duration(time.Second), *raw.PollInterval)
	require.NotNil(t, raw.Tuning)
	assert.Equal(t, 10, *raw.Tuning.HistorySize)

	_, err = NewRawFileConfigFromConfig(nil)
	assert.Error(t, err)
}
