// package countdown derives display values for running timers and fires
// completion side effects. Remaining time is always recomputed from the
// canonical snapshot and the current clock, never decremented locally, so
// a missed or delayed tick can only skip displayed values, not drift them.
package countdown

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// Notifier receives completion side effects.
type Notifier interface {
	TimerFinished(ctx context.Context, t *session.Timer)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, t *session.Timer)

func (f NotifierFunc) TimerFinished(ctx context.Context, t *session.Timer) { f(ctx, t) }

// Reading is one timer's display state at an instant.
type Reading struct {
	Timer        *session.Timer
	RemainingSec int
	Expired      bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval sets the polling cadence.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithLogger sets the watcher logger.
func WithLogger(logger *log.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithDoneAction sets the callback invoked when a locally-expired running
// timer needs its done transition confirmed with the backend.
func WithDoneAction(fn func(ctx context.Context, timerID string)) Option {
	return func(w *Watcher) { w.markDone = fn }
}

// Watcher polls the session snapshot and fires each timer's completion
// side effect exactly once. Completion is detected by the transition into
// the done state (or local expiry of a running timer), never by a
// threshold crossing, so multiple observers of the same snapshot cannot
// double-fire. Timers already done in the first snapshot the watcher sees
// finished under an earlier attachment; they seed the fired registry
// silently instead of chiming again.
type Watcher struct {
	source   func() *session.CookSession
	notifier Notifier
	markDone func(ctx context.Context, timerID string)
	logger   *log.Logger
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	primed bool
	fired  map[string]bool
}

// NewWatcher creates a watcher reading snapshots from source.
func NewWatcher(source func() *session.CookSession, notifier Notifier, opts ...Option) *Watcher {
	w := &Watcher{
		source:   source,
		notifier: notifier,
		logger:   shared.NewLogger(nil),
		interval: 500 * time.Millisecond,
		now:      time.Now,
		fired:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Readings derives the current display state for every visible timer,
// ordered by step then id. Pure with respect to the snapshot: the same
// snapshot and instant always produce the same readings.
func (w *Watcher) Readings() []Reading {
	snap := w.source()
	if snap == nil {
		return nil
	}
	now := w.now()

	timers := snap.VisibleTimers()
	readings := make([]Reading, 0, len(timers))
	for _, t := range timers {
		readings = append(readings, Reading{
			Timer:        t,
			RemainingSec: t.Remaining(now),
			Expired:      t.Expired(now),
		})
	}
	sort.SliceStable(readings, func(i, j int) bool {
		if readings[i].Timer.StepIndex != readings[j].Timer.StepIndex {
			return readings[i].Timer.StepIndex < readings[j].Timer.StepIndex
		}
		return readings[i].Timer.ID < readings[j].Timer.ID
	})
	return readings
}

// Observe performs one polling pass: it inspects every visible timer and
// fires completion side effects for any timer that is done, or running
// with zero derived remaining, and has not fired before.
func (w *Watcher) Observe(ctx context.Context) {
	snap := w.source()
	if snap == nil {
		return
	}
	now := w.now()

	w.mu.Lock()
	if !w.primed {
		w.primed = true
		for _, t := range snap.VisibleTimers() {
			if t.State == session.TimerDone {
				w.fired[t.ID] = true
			}
		}
	}
	w.mu.Unlock()

	for _, t := range snap.VisibleTimers() {
		done := t.State == session.TimerDone
		expired := t.State == session.TimerRunning && t.Remaining(now) == 0
		if !done && !expired {
			continue
		}

		w.mu.Lock()
		already := w.fired[t.ID]
		if !already {
			w.fired[t.ID] = true
		}
		w.mu.Unlock()
		if already {
			continue
		}

		w.logger.Info("timer finished", "timer", t.ID, "label", t.Label)
		if w.notifier != nil {
			w.notifier.TimerFinished(ctx, t)
		}
		// A locally-expired timer still reads running in the snapshot;
		// confirm the done transition so other clients converge.
		if expired && w.markDone != nil {
			w.markDone(ctx, t.ID)
		}
	}
}

// Fired reports whether the completion side effect for a timer id has
// already been delivered.
func (w *Watcher) Fired(timerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired[timerID]
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Observe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Observe(ctx)
		}
	}
}
