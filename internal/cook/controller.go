// package cook implements the client-side session sync layer: it owns the
// canonical snapshot of one cook session, turns user actions into patches,
// and merges authoritative server state back in.
package cook

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// API is the backend surface the controller consumes. *api.Client
// implements it; tests substitute fakes.
type API interface {
	StartSession(ctx context.Context, recipeID string) (*session.CookSession, error)
	ActiveSession(ctx context.Context, recipeID string) (*session.CookSession, error)
	PatchSession(ctx context.Context, sessionID string, patch *session.Patch) (*session.CookSession, error)
	EndSession(ctx context.Context, sessionID string, action session.EndAction) (*session.CookSession, error)
	StreamEvents(ctx context.Context, sessionID string, handle func(*session.CookSession)) error
}

// SnapshotStore persists canonical snapshots for offline display. The
// controller treats persistence as best effort: a cache write failure is
// logged, never surfaced.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *session.CookSession) error
}

// Option configures the controller.
type Option func(*Controller)

// WithStore enables local snapshot persistence.
func WithStore(store SnapshotStore) Option {
	return func(c *Controller) { c.store = store }
}

// WithLogger sets the controller logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithEventBackoff sets the fixed delay between event-stream reconnects.
func WithEventBackoff(d time.Duration) Option {
	return func(c *Controller) { c.backoff = d }
}

// Controller coordinates one session's canonical state. All mutations go
// through the backend; every authoritative response (patch result or push
// event) replaces the cached snapshot wholesale. Field-by-field merging on
// top of stale local state would resurrect undone changes, so it is never
// done.
type Controller struct {
	api     API
	store   SnapshotStore
	logger  *log.Logger
	backoff time.Duration

	mu      sync.RWMutex
	current *session.CookSession

	updates chan *session.CookSession

	streamMu     sync.Mutex
	streamCancel context.CancelFunc
}

// New creates a session controller.
func New(backend API, opts ...Option) *Controller {
	c := &Controller{
		api:     backend,
		logger:  shared.NewLogger(nil),
		backoff: 3 * time.Second,
		updates: make(chan *session.CookSession, 16),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Begin fetches the active session for a recipe, starting a fresh one when
// none exists. The returned snapshot becomes the controller's canonical
// state.
func (c *Controller) Begin(ctx context.Context, recipeID string) (*session.CookSession, error) {
	snap, err := c.api.ActiveSession(ctx, recipeID)
	if errors.Is(err, shared.ErrNoActiveSession) {
		c.logger.Debug("no active session, starting fresh", "recipe", recipeID)
		snap, err = c.api.StartSession(ctx, recipeID)
	}
	if err != nil {
		return nil, err
	}
	c.replace(ctx, snap, "begin")
	return snap, nil
}

// Resume attaches to an existing active session for a recipe without
// starting a new one. [shared.ErrNoActiveSession] if the recipe has none.
func (c *Controller) Resume(ctx context.Context, recipeID string) (*session.CookSession, error) {
	snap, err := c.api.ActiveSession(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	c.replace(ctx, snap, "resume")
	return c.Session(), nil
}

// Session returns the current canonical snapshot, nil before Begin.
func (c *Controller) Session() *session.CookSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Updates returns the channel canonical replacements are announced on.
// The channel is never closed; slow consumers miss intermediate snapshots
// but always observe a later one.
func (c *Controller) Updates() <-chan *session.CookSession {
	return c.updates
}

// replace installs a new canonical snapshot, guarding against version
// regressions: a slow response arriving after a newer update must not roll
// state back. Snapshots without a version (or for a different session id)
// are applied last-write-wins.
func (c *Controller) replace(ctx context.Context, snap *session.CookSession, origin string) bool {
	c.mu.Lock()
	if c.current != nil && c.current.ID == snap.ID &&
		snap.Version > 0 && c.current.Version > snap.Version {
		c.mu.Unlock()
		c.logger.Warn("dropping stale snapshot",
			"origin", origin, "have", c.current.Version, "got", snap.Version)
		return false
	}
	c.current = snap
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveSnapshot(ctx, snap); err != nil {
			c.logger.Warn("failed to cache snapshot", "session", snap.ID, "err", err)
		}
	}

	// Non-blocking fan-out; drop the oldest pending update when full.
	select {
	case c.updates <- snap:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- snap:
		default:
		}
	}
	return true
}

// Patch sends one sparse patch and installs the canonical result.
func (c *Controller) Patch(ctx context.Context, patch *session.Patch) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}
	if cur.Terminal() {
		return nil, shared.ErrSessionTerminal
	}

	snap, err := c.api.PatchSession(ctx, cur.ID, patch)
	if err != nil {
		return nil, err
	}
	c.replace(ctx, snap, "patch")
	return snap, nil
}

// Navigate moves the step pointer to an absolute index.
func (c *Controller) Navigate(ctx context.Context, stepIndex int) (*session.CookSession, error) {
	return c.Patch(ctx, &session.Patch{CurrentStepIndex: &stepIndex})
}

// Advance moves to the next step, clamped to the active sequence.
func (c *Controller) Advance(ctx context.Context) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}
	return c.Navigate(ctx, cur.ClampStepIndex(cur.ClampedStepIndex()+1))
}

// Back moves to the previous step, clamped at zero.
func (c *Controller) Back(ctx context.Context) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}
	return c.Navigate(ctx, cur.ClampStepIndex(cur.ClampedStepIndex()-1))
}

// ToggleBullet flips one checklist bullet based on the current snapshot.
func (c *Controller) ToggleBullet(ctx context.Context, stepIndex, bulletIndex int) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}
	return c.Patch(ctx, &session.Patch{StepChecksPatch: &session.StepCheckPatch{
		StepIndex:   stepIndex,
		BulletIndex: bulletIndex,
		Checked:     !cur.Checked(stepIndex, bulletIndex),
	}})
}

// CreateTimer creates a timer with a freshly minted idempotency key.
func (c *Controller) CreateTimer(ctx context.Context, create session.TimerCreate) (*session.CookSession, error) {
	if create.ClientKey == "" {
		create.ClientKey = shared.GenerateClientKey()
	}
	return c.CreateTimerWithKey(ctx, create)
}

// CreateTimerWithKey creates a timer reusing the caller's idempotency key,
// so a retried creation attempt cannot duplicate the timer. Creates are
// never optimistically applied: the timer appears only once the server
// confirms it.
func (c *Controller) CreateTimerWithKey(ctx context.Context, create session.TimerCreate) (*session.CookSession, error) {
	return c.Patch(ctx, &session.Patch{TimerCreate: &create})
}

// TimerAction applies start/pause/done to a timer.
func (c *Controller) TimerAction(ctx context.Context, timerID string, op session.TimerOp) (*session.CookSession, error) {
	if op == session.TimerOpDelete {
		return c.DeleteTimer(ctx, timerID)
	}
	return c.Patch(ctx, &session.Patch{TimerAction: &session.TimerAction{TimerID: timerID, Action: op}})
}

// DeleteTimer removes a timer. The local snapshot drops it immediately so
// rendering and polling stop without waiting for the acknowledgement; the
// patch is fire-and-forget from the caller's perspective and reconciled on
// the next canonical sync.
func (c *Controller) DeleteTimer(ctx context.Context, timerID string) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}
	if cur.Timer(timerID) == nil {
		return nil, shared.ErrTimerNotFound
	}

	// Copy-on-write: concurrent readers keep the snapshot pointer they
	// already hold, so the deletion marker goes on a clone of the session
	// and its timer map, installed as a new snapshot.
	local := *cur
	local.Timers = make(map[string]*session.Timer, len(cur.Timers))
	for id, t := range cur.Timers {
		local.Timers[id] = t
	}
	deleted := *cur.Timers[timerID]
	deleted.MarkDeleted(time.Now())
	local.Timers[timerID] = &deleted
	c.replace(ctx, &local, "delete")

	snap, err := c.api.PatchSession(ctx, cur.ID, &session.Patch{
		TimerAction: &session.TimerAction{TimerID: timerID, Action: session.TimerOpDelete},
	})
	if err != nil {
		// The timer stays hidden locally; the next canonical snapshot
		// settles whether the delete landed.
		c.logger.Warn("timer delete not acknowledged", "timer", timerID, "err", err)
		return &local, err
	}
	c.replace(ctx, snap, "patch")
	return snap, nil
}

// Rescale changes the serving target.
func (c *Controller) Rescale(ctx context.Context, servingsTarget int) (*session.CookSession, error) {
	return c.Patch(ctx, &session.Patch{ServingsTarget: &servingsTarget})
}

// SetAutoStep toggles server-driven step suggestions.
func (c *Controller) SetAutoStep(ctx context.Context, enabled bool, mode string) (*session.CookSession, error) {
	patch := &session.Patch{AutoStepEnabled: &enabled}
	if mode != "" {
		patch.AutoStepMode = &mode
	}
	return c.Patch(ctx, patch)
}

// RecordAdjustment appends an in-session adjustment note.
func (c *Controller) RecordAdjustment(ctx context.Context, note string) (*session.CookSession, error) {
	return c.Patch(ctx, &session.Patch{Adjustment: &session.Adjustment{Note: note, RecordedAt: time.Now().UTC()}})
}

// UndoAdjustment flags the adjustment at the given log index as undone.
func (c *Controller) UndoAdjustment(ctx context.Context, index int) (*session.CookSession, error) {
	return c.Patch(ctx, &session.Patch{UndoAdjustment: &index})
}

// End completes or abandons the session. The final snapshot is installed
// and the event stream stopped; the session is terminal afterwards.
func (c *Controller) End(ctx context.Context, action session.EndAction) (*session.CookSession, error) {
	cur := c.Session()
	if cur == nil {
		return nil, shared.ErrNoActiveSession
	}

	snap, err := c.api.EndSession(ctx, cur.ID, action)
	if err != nil {
		return nil, err
	}
	c.replace(ctx, snap, "end")
	c.StopEvents()
	return snap, nil
}
