// package autoflow fetches contextual suggestions from the backend and
// dispatches the ones the cook accepts. The server decides what to
// suggest; this layer only guards against replays and translates accepted
// suggestions into session actions.
package autoflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// SuggestionAPI is the backend surface for fetching suggestions.
type SuggestionAPI interface {
	Suggestions(ctx context.Context, query api.SuggestionQuery) (*session.SuggestionSet, error)
}

// Actions is the slice of the session controller a dispatched suggestion
// can drive.
type Actions interface {
	Session() *session.CookSession
	CreateTimerWithKey(ctx context.Context, create session.TimerCreate) (*session.CookSession, error)
	Navigate(ctx context.Context, stepIndex int) (*session.CookSession, error)
	Patch(ctx context.Context, patch *session.Patch) (*session.CookSession, error)
	End(ctx context.Context, action session.EndAction) (*session.CookSession, error)
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithLogger sets the consumer logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Consumer) { c.logger = logger }
}

// WithRefreshRate caps suggestion fetches at r requests per second.
func WithRefreshRate(r float64) Option {
	return func(c *Consumer) { c.limiter = rate.NewLimiter(rate.Limit(r), 1) }
}

// Consumer holds the current suggestion set for a session and dispatches
// accepted suggestions at most once each.
type Consumer struct {
	backend SuggestionAPI
	actions Actions
	logger  *log.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	current    *session.SuggestionSet
	dispatched map[string]bool
	// timerKeys pins one idempotency key per logical timer suggestion, so
	// retrying a failed dispatch reuses the key instead of minting a new
	// one and duplicating the timer.
	timerKeys map[string]string
}

// NewConsumer creates a suggestion consumer.
func NewConsumer(backend SuggestionAPI, actions Actions, opts ...Option) *Consumer {
	c := &Consumer{
		backend:    backend,
		actions:    actions,
		logger:     shared.NewLogger(nil),
		limiter:    rate.NewLimiter(rate.Limit(0.5), 1),
		dispatched: make(map[string]bool),
		timerKeys:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the last fetched suggestion set, nil before the first
// refresh.
func (c *Consumer) Current() *session.SuggestionSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Refresh fetches suggestions for the current session state. Calls are
// rate limited; when the limiter has no token the refresh is skipped and
// the previous set kept, so navigation-driven refresh bursts cannot
// hammer the backend.
func (c *Consumer) Refresh(ctx context.Context) (*session.SuggestionSet, error) {
	snap := c.actions.Session()
	if snap == nil {
		return nil, shared.ErrNoActiveSession
	}
	if !c.limiter.Allow() {
		c.logger.Debug("suggestion refresh rate limited, keeping previous set")
		return c.Current(), nil
	}

	set, err := c.backend.Suggestions(ctx, buildQuery(snap))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.current = set
	c.mu.Unlock()
	return set, nil
}

// buildQuery summarizes the snapshot into the context the suggestion
// endpoint scores against.
func buildQuery(snap *session.CookSession) api.SuggestionQuery {
	q := api.SuggestionQuery{
		SessionID:    snap.ID,
		StepIndex:    snap.ClampedStepIndex(),
		StateVersion: snap.Version,
	}
	for stepIdx, bullets := range snap.StepChecks {
		for bulletIdx, checked := range bullets {
			if checked {
				q.CheckedKeys = append(q.CheckedKeys, fmt.Sprintf("%d:%d", stepIdx, bulletIdx))
			}
		}
	}
	for _, t := range snap.VisibleTimers() {
		if t.State == session.TimerRunning || t.State == session.TimerPaused {
			q.ActiveTimerIDs = append(q.ActiveTimerIDs, t.ID)
		}
	}
	return q
}

// Dispatch executes one accepted suggestion. A suggestion whose action has
// already been sent is refused; a failed dispatch stays eligible for retry
// and a timer suggestion retries with its original idempotency key.
func (c *Consumer) Dispatch(ctx context.Context, sug *session.Suggestion) error {
	key := sug.Key()

	c.mu.Lock()
	if c.dispatched[key] {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", shared.ErrSuggestionConsumed, sug.Label)
	}
	c.mu.Unlock()

	if err := c.execute(ctx, sug, key); err != nil {
		return err
	}

	c.mu.Lock()
	c.dispatched[key] = true
	delete(c.timerKeys, key)
	c.mu.Unlock()
	return nil
}

func (c *Consumer) execute(ctx context.Context, sug *session.Suggestion, key string) error {
	switch sug.Action.Op {
	case session.OpCreateTimer:
		payload, err := sug.Action.TimerPayload()
		if err != nil {
			return err
		}
		c.mu.Lock()
		clientKey, ok := c.timerKeys[key]
		if !ok {
			clientKey = shared.GenerateClientKey()
			c.timerKeys[key] = clientKey
		}
		c.mu.Unlock()
		_, err = c.actions.CreateTimerWithKey(ctx, session.TimerCreate{
			StepIndex:   payload.StepIndex,
			BulletIndex: payload.BulletIndex,
			Label:       payload.Label,
			DurationSec: payload.DurationSec,
			ClientKey:   clientKey,
		})
		return err

	case session.OpNavigateStep:
		payload, err := sug.Action.NavigatePayload()
		if err != nil {
			return err
		}
		_, err = c.actions.Navigate(ctx, payload.StepIndex)
		return err

	case session.OpPatchSession:
		payload, err := sug.Action.PatchPayload()
		if err != nil {
			return err
		}
		// A status change is an end-of-session action, not a patch.
		switch payload.Status {
		case session.StatusCompleted:
			_, err = c.actions.End(ctx, session.EndComplete)
		case session.StatusAbandoned:
			_, err = c.actions.End(ctx, session.EndAbandon)
		default:
			_, err = c.actions.Patch(ctx, &payload.Patch)
		}
		return err

	case session.OpOpenHelp, session.OpNone, "":
		// Display-only; nothing to send.
		c.logger.Debug("suggestion has no dispatchable action", "label", sug.Label)
		return nil

	default:
		return fmt.Errorf("%w: unknown suggestion op %q", shared.ErrInvalidInput, sug.Action.Op)
	}
}

// Dispatched reports whether a suggestion's action has already been sent.
func (c *Consumer) Dispatched(sug *session.Suggestion) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dispatched[sug.Key()]
}
