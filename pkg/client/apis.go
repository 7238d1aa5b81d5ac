package client

import (
	"encoding/json"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/hootzen/amped/pkg/config"
	"github.com/hootzen/amped/pkg/telemetry"
)

// GetReading returns the daemon's latest reading. It wraps ErrNotFound
// until the daemon has completed its first tick.
func (c *Client) GetReading() (*telemetry.NormalizedReading, error) {
	ret, err := c.Get("/reading")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get reading")
	}

	var r telemetry.NormalizedReading
	if err := json.Unmarshal([]byte(ret), &r); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal reading")
	}
	return &r, nil
}

// Reset discards the daemon's charging session and capacity estimate.
func (c *Client) Reset() (string, error) {
	ret, err := c.Post("/reset", "")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to reset estimator")
	}
	return unquote(ret)
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf config.RawFileConfig
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}

	return &conf, nil
}

func (c *Client) SetPollInterval(d time.Duration) (string, error) {
	return c.putString("/poll-interval", d.String())
}

// SetRelearnSchedule sets the cron expression for the periodic capacity
// relearn. An empty expression disables it.
func (c *Client) SetRelearnSchedule(expr string) (string, error) {
	return c.putString("/relearn-schedule", expr)
}

// GetTicks returns when the daemon last polled, oldest first.
func (c *Client) GetTicks() ([]time.Time, error) {
	ret, err := c.Get("/ticks")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get ticks")
	}

	var ticks []string
	if err := json.Unmarshal([]byte(ret), &ticks); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal ticks")
	}

	out := make([]time.Time, 0, len(ticks))
	for _, s := range ticks {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to parse tick %q", s)
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	return unquote(ret)
}

func (c *Client) putString(path, s string) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	ret, err := c.Put(path, string(payload))
	if err != nil {
		return "", err
	}
	return unquote(ret)
}

// unquote decodes a JSON string response.
func unquote(ret string) (string, error) {
	var s string
	if err := json.Unmarshal([]byte(ret), &s); err != nil {
		return "", pkgerrors.Wrapf(err, "unexpected response: %s", ret)
	}
	return s, nil
}
