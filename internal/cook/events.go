package cook

import (
	"context"
	"errors"
	"time"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// StartEvents begins consuming the server event stream for the current
// session in a background goroutine. The controller owns the reconnect
// policy: a dropped stream is retried after a fixed delay for as long as
// the session stays live. Pushed snapshots go through the same wholesale
// replacement (and stale-version guard) as patch responses.
//
// Calling StartEvents again restarts the stream; StopEvents or cancelling
// ctx ends it deterministically.
func (c *Controller) StartEvents(ctx context.Context) error {
	cur := c.Session()
	if cur == nil {
		return shared.ErrNoActiveSession
	}

	c.streamMu.Lock()
	if c.streamCancel != nil {
		c.streamCancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	c.streamCancel = cancel
	c.streamMu.Unlock()

	go c.runEvents(streamCtx, cur.ID)
	return nil
}

// StopEvents tears down the event stream if one is running.
func (c *Controller) StopEvents() {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
}

func (c *Controller) runEvents(ctx context.Context, sessionID string) {
	for {
		err := c.api.StreamEvents(ctx, sessionID, func(snap *session.CookSession) {
			c.replace(ctx, snap, "event")
			if snap.Terminal() {
				c.logger.Info("session reached terminal state, stopping stream",
					"session", snap.ID, "status", snap.Status)
			}
		})
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		if cur := c.Session(); cur == nil || cur.Terminal() {
			return
		}
		c.logger.Debug("event stream dropped, reconnecting",
			"session", sessionID, "backoff", c.backoff, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff):
		}
	}
}
