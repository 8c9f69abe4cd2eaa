// package devserver is a self-contained reference implementation of the
// cook API: in-memory sessions, patch semantics, suggestion heuristics,
// and an event stream. It exists for local development and for exercising
// the client end to end without the hosted backend.
package devserver

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// Engine holds all session state and applies patches with the same
// semantics the hosted backend implements. Every mutation bumps the
// session version and fans the new snapshot out to event subscribers.
type Engine struct {
	logger *log.Logger
	now    func() time.Time

	mu             sync.Mutex
	recipes        map[string]*session.Recipe
	sessions       map[string]*session.CookSession
	activeByRecipe map[string]string
	subscribers    map[string][]chan *session.CookSession
}

// NewEngine creates an engine preloaded with the built-in recipes.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	e := &Engine{
		logger:         logger,
		now:            time.Now,
		recipes:        map[string]*session.Recipe{},
		sessions:       map[string]*session.CookSession{},
		activeByRecipe: map[string]string{},
		subscribers:    map[string][]chan *session.CookSession{},
	}
	for _, r := range builtinRecipes() {
		e.recipes[r.ID] = r
	}
	return e
}

// Recipes lists the built-in recipe catalog.
func (e *Engine) Recipes() []*session.Recipe {
	e.mu.Lock()
	defer e.mu.Unlock()

	recipes := make([]*session.Recipe, 0, len(e.recipes))
	for _, r := range e.recipes {
		recipes = append(recipes, r)
	}
	return recipes
}

// Start returns the active session for a recipe, creating one when none
// exists. Starting is idempotent: repeated calls converge on the same
// session.
func (e *Engine) Start(recipeID string) (*session.CookSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id, ok := e.activeByRecipe[recipeID]; ok {
		return e.snapshotLocked(id)
	}

	recipe, ok := e.recipes[recipeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrRecipeNotFound, recipeID)
	}

	now := e.now().UTC()
	s := &session.CookSession{
		ID:              "sess_" + shared.GenerateID(),
		RecipeID:        recipeID,
		Status:          session.StatusActive,
		StartedAt:       now,
		ServingsBase:    recipe.Servings,
		ServingsTarget:  recipe.Servings,
		AutoStepEnabled: true,
		AutoStepMode:    "suggest",
		Recipe:          recipe,
		Version:         1,
		UpdatedAt:       now,
	}
	e.sessions[s.ID] = s
	e.activeByRecipe[recipeID] = s.ID
	e.logger.Info("session started", "session", s.ID, "recipe", recipeID)
	return e.snapshotLocked(s.ID)
}

// Active returns the active session for a recipe.
func (e *Engine) Active(recipeID string) (*session.CookSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.activeByRecipe[recipeID]
	if !ok {
		return nil, shared.ErrNoActiveSession
	}
	return e.snapshotLocked(id)
}

// Session returns any session, active or terminal.
func (e *Engine) Session(sessionID string) (*session.CookSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(sessionID)
}

// ApplyPatch applies one sparse patch and returns the new canonical
// snapshot.
func (e *Engine) ApplyPatch(sessionID string, patch *session.Patch) (*session.CookSession, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if s.Terminal() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionTerminal, sessionID)
	}

	if err := e.applyLocked(s, patch); err != nil {
		e.mu.Unlock()
		return nil, err
	}

	s.Version++
	s.UpdatedAt = e.now().UTC()
	snap, err := e.snapshotLocked(sessionID)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.publish(snap)
	return snap, nil
}

func (e *Engine) applyLocked(s *session.CookSession, patch *session.Patch) error {
	now := e.now().UTC()

	if patch.CurrentStepIndex != nil {
		s.CurrentStepIndex = s.ClampStepIndex(*patch.CurrentStepIndex)
	}

	if cp := patch.StepChecksPatch; cp != nil {
		s.SetChecked(cp.StepIndex, cp.BulletIndex, cp.Checked)
	}

	if tc := patch.TimerCreate; tc != nil {
		if s.Timers == nil {
			s.Timers = map[string]*session.Timer{}
		}
		// Same client key means the same logical creation retried; keep
		// the first timer instead of duplicating it.
		duplicate := false
		for _, t := range s.Timers {
			if tc.ClientKey != "" && t.ClientID == tc.ClientKey {
				duplicate = true
				break
			}
		}
		if !duplicate {
			t := &session.Timer{
				ID:          "tim_" + shared.GenerateID(),
				ClientID:    tc.ClientKey,
				StepIndex:   s.ClampStepIndex(tc.StepIndex),
				BulletIndex: tc.BulletIndex,
				Label:       tc.Label,
				DurationSec: tc.DurationSec,
				State:       session.TimerCreated,
			}
			if err := t.Start(now); err != nil {
				return err
			}
			s.Timers[t.ID] = t
		}
	}

	if ta := patch.TimerAction; ta != nil {
		t := s.Timer(ta.TimerID)
		if t == nil {
			return fmt.Errorf("%w: %s", shared.ErrTimerNotFound, ta.TimerID)
		}
		switch ta.Action {
		case session.TimerOpStart:
			if err := t.Start(now); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidTransition, err)
			}
		case session.TimerOpPause:
			if err := t.Pause(now); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrInvalidTransition, err)
			}
		case session.TimerOpDone:
			t.MarkDone()
		case session.TimerOpDelete:
			t.MarkDeleted(now)
		default:
			return fmt.Errorf("%w: unknown timer action %q", shared.ErrInvalidInput, ta.Action)
		}
	}

	if patch.ServingsTarget != nil {
		s.ServingsTarget = *patch.ServingsTarget
	}
	if patch.AutoStepEnabled != nil {
		s.AutoStepEnabled = *patch.AutoStepEnabled
	}
	if patch.AutoStepMode != nil {
		s.AutoStepMode = *patch.AutoStepMode
	}

	if patch.Adjustment != nil {
		adj := *patch.Adjustment
		if adj.RecordedAt.IsZero() {
			adj.RecordedAt = now
		}
		s.AdjustmentsLog = append(s.AdjustmentsLog, adj)
	}
	if patch.UndoAdjustment != nil {
		idx := *patch.UndoAdjustment
		if idx < 0 || idx >= len(s.AdjustmentsLog) {
			return fmt.Errorf("%w: adjustment index %d out of range", shared.ErrInvalidInput, idx)
		}
		s.AdjustmentsLog[idx].Undone = true
	}

	return nil
}

// End completes or abandons a session.
func (e *Engine) End(sessionID string, action session.EndAction) (*session.CookSession, error) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if !s.Terminal() {
		switch action {
		case session.EndComplete:
			s.Status = session.StatusCompleted
		case session.EndAbandon:
			s.Status = session.StatusAbandoned
		default:
			e.mu.Unlock()
			return nil, fmt.Errorf("%w: unknown end action %q", shared.ErrInvalidInput, action)
		}
		s.Version++
		s.UpdatedAt = e.now().UTC()
		delete(e.activeByRecipe, s.RecipeID)
	}
	snap, err := e.snapshotLocked(sessionID)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.publish(snap)
	return snap, nil
}

// Subscribe registers an event listener for a session. The returned cancel
// must be called to release the subscription.
func (e *Engine) Subscribe(sessionID string) (<-chan *session.CookSession, func()) {
	ch := make(chan *session.CookSession, 8)

	e.mu.Lock()
	e.subscribers[sessionID] = append(e.subscribers[sessionID], ch)
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		subs := e.subscribers[sessionID]
		for i, sub := range subs {
			if sub == ch {
				e.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(snap *session.CookSession) {
	e.mu.Lock()
	subs := append([]chan *session.CookSession(nil), e.subscribers[snap.ID]...)
	e.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
			// Slow subscriber; it will catch up on the next publish.
		}
	}
}

// snapshotLocked deep-copies a session through its JSON form so handler
// responses cannot alias engine state.
func (e *Engine) snapshotLocked(sessionID string) (*session.CookSession, error) {
	s, ok := e.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return cloneSession(s)
}
