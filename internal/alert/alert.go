// package alert delivers timer completion side effects: an audible chime
// and a desktop notification. Delivery is best effort; a missing audio
// device or notifier never blocks the cook flow.
package alert

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// Alerter fans a timer completion out to sound and desktop notification.
type Alerter struct {
	player *TonePlayer
	logger *log.Logger
	mute   bool
}

// Option configures an Alerter.
type Option func(*Alerter)

// WithMute silences the chime while keeping notifications.
func WithMute(mute bool) Option {
	return func(a *Alerter) { a.mute = mute }
}

// New creates an alerter. Audio initialization failure is downgraded to a
// warning: notifications still work.
func New(logger *log.Logger, opts ...Option) *Alerter {
	a := &Alerter{logger: logger}
	if a.logger == nil {
		a.logger = shared.NewLogger(nil)
	}
	for _, opt := range opts {
		opt(a)
	}

	if !a.mute {
		player, err := NewTonePlayer(a.logger)
		if err != nil {
			a.logger.Warn("audio unavailable, timers will alert silently", "err", err)
		} else {
			a.player = player
		}
	}
	return a
}

// TimerFinished delivers the completion alert for one timer.
func (a *Alerter) TimerFinished(_ context.Context, t *session.Timer) {
	label := t.Label
	if label == "" {
		label = "Timer"
	}

	if err := notify("TasteOS Cook Mode", fmt.Sprintf("%s is done", label)); err != nil {
		a.logger.Debug("desktop notification failed", "err", err)
	}

	if a.player != nil && !a.mute {
		go func() {
			if err := a.player.Play(); err != nil {
				a.logger.Debug("chime playback failed", "err", err)
			}
		}()
	}
}

// Silence interrupts an in-flight chime.
func (a *Alerter) Silence() {
	if a.player != nil {
		a.player.Stop()
	}
}

// Noop is an Alerter stand-in that records nothing and does nothing.
type Noop struct{}

// TimerFinished implements the countdown notifier contract.
func (Noop) TimerFinished(context.Context, *session.Timer) {}
