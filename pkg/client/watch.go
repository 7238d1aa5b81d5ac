package client

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hootzen/amped/pkg/events"
)

const (
	// watchReadTimeout is longer than the daemon's ping period.
	watchReadTimeout = 120 * time.Second
	maxWatchBackoff  = 20 * time.Second
)

// Watch streams daemon events to onEvent until ctx is done, reconnecting
// with backoff when the connection drops.
func (c *Client) Watch(ctx context.Context, onEvent func(events.Event)) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := c.WatchOnce(ctx, onEvent)
		if err != nil && ctx.Err() == nil {
			logrus.WithError(err).WithField("retryIn", backoff).Warn("event stream disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxWatchBackoff {
			backoff *= 2
		}
	}
}

// WatchOnce streams daemon events to onEvent over a single connection. It
// returns when the connection fails or ctx is done.
func (c *Client) WatchOnce(ctx context.Context, onEvent func(events.Event)) error {
	dialer := websocket.Dialer{
		NetDialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialSocket(ctx, c.socketPath)
		},
		HandshakeTimeout: requestTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, "ws://unix/ws", nil)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to connect to event stream")
	}
	defer conn.Close()

	// Unblock ReadJSON on cancellation.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetPingHandler(func(data string) error {
		if err := conn.SetReadDeadline(time.Now().Add(watchReadTimeout)); err != nil {
			return err
		}
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		if err := conn.SetReadDeadline(time.Now().Add(watchReadTimeout)); err != nil {
			return err
		}
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		onEvent(ev)
	}
}
