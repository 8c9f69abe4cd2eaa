package cook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
	tu "github.com/tasteos/cookmode/internal/testing"
)

type fakeBackend struct {
	mu       sync.Mutex
	active   *session.CookSession
	started  int
	patches  []*session.Patch
	patchErr error
	ended    []session.EndAction

	streamSnaps []*session.CookSession
	streamErr   error
	streamRuns  int

	respond func(patch *session.Patch) *session.CookSession
}

func (f *fakeBackend) StartSession(_ context.Context, recipeID string) (*session.CookSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	f.active = &session.CookSession{
		ID:       "sess_1",
		RecipeID: recipeID,
		Status:   session.StatusActive,
		Version:  1,
	}
	return f.active, nil
}

func (f *fakeBackend) ActiveSession(_ context.Context, _ string) (*session.CookSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil, shared.ErrNoActiveSession
	}
	return f.active, nil
}

func (f *fakeBackend) PatchSession(_ context.Context, _ string, patch *session.Patch) (*session.CookSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	if f.respond != nil {
		return f.respond(patch), nil
	}
	next := *f.active
	next.Version++
	f.active = &next
	return f.active, nil
}

func (f *fakeBackend) EndSession(_ context.Context, _ string, action session.EndAction) (*session.CookSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, action)
	next := *f.active
	next.Version++
	if action == session.EndAbandon {
		next.Status = session.StatusAbandoned
	} else {
		next.Status = session.StatusCompleted
	}
	f.active = &next
	return f.active, nil
}

func (f *fakeBackend) StreamEvents(ctx context.Context, _ string, handle func(*session.CookSession)) error {
	f.mu.Lock()
	f.streamRuns++
	snaps := f.streamSnaps
	f.streamSnaps = nil
	err := f.streamErr
	f.mu.Unlock()

	for _, s := range snaps {
		handle(s)
	}
	if err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

func activeSnapshot(version int64) *session.CookSession {
	return &session.CookSession{
		ID:           "sess_1",
		RecipeID:     "rec_risotto",
		Status:       session.StatusActive,
		Version:      version,
		ServingsBase: 2,
		Recipe: &session.Recipe{
			ID:       "rec_risotto",
			Servings: 2,
			Steps: []session.Step{
				{Title: "Toast rice", Bullets: []string{"heat pan", "add rice"}},
				{Title: "Add stock", Bullets: []string{"one ladle at a time"}},
				{Title: "Rest", Bullets: []string{"off heat"}},
			},
		},
	}
}

func TestControllerBegin(t *testing.T) {
	ctx := context.Background()

	t.Run("starts fresh session when none active", func(t *testing.T) {
		backend := &fakeBackend{}
		c := New(backend)

		snap, err := c.Begin(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if backend.started != 1 {
			t.Errorf("expected one start call, got %d", backend.started)
		}
		if c.Session() != snap {
			t.Error("expected snapshot to become canonical state")
		}
	})

	t.Run("resumes existing active session", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(7)}
		c := New(backend)

		snap, err := c.Begin(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if backend.started != 0 {
			t.Error("expected resume, not a fresh start")
		}
		if snap.Version != 7 {
			t.Errorf("expected version 7, got %d", snap.Version)
		}
	})
}

func TestControllerReplace(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects version regression", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(5)}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		stale := activeSnapshot(3)
		stale.CurrentStepIndex = 2
		if c.replace(ctx, stale, "test") {
			t.Error("expected stale snapshot to be dropped")
		}
		if c.Session().Version != 5 {
			t.Errorf("expected canonical version 5, got %d", c.Session().Version)
		}
	})

	t.Run("applies newer snapshot wholesale", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(5)}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		newer := activeSnapshot(6)
		newer.CurrentStepIndex = 1
		if !c.replace(ctx, newer, "test") {
			t.Fatal("expected newer snapshot to be applied")
		}
		if got := c.Session().CurrentStepIndex; got != 1 {
			t.Errorf("expected step index 1, got %d", got)
		}
	})

	t.Run("unversioned snapshots are last write wins", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(5)}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		unversioned := activeSnapshot(0)
		unversioned.CurrentStepIndex = 2
		if !c.replace(ctx, unversioned, "test") {
			t.Error("expected unversioned snapshot to be applied")
		}
		if got := c.Session().CurrentStepIndex; got != 2 {
			t.Errorf("expected step index 2, got %d", got)
		}
	})
}

func TestControllerPatchHelpers(t *testing.T) {
	ctx := context.Background()

	newController := func(t *testing.T) (*Controller, *fakeBackend) {
		t.Helper()
		backend := &fakeBackend{active: activeSnapshot(1)}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		return c, backend
	}

	t.Run("toggle flips current checked state", func(t *testing.T) {
		c, backend := newController(t)

		if _, err := c.ToggleBullet(ctx, 0, 1); err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		patch := backend.patches[0]
		if patch.StepChecksPatch == nil || !patch.StepChecksPatch.Checked {
			t.Error("expected patch checking an unchecked bullet")
		}
	})

	t.Run("advance clamps at last step", func(t *testing.T) {
		c, backend := newController(t)
		c.Session().CurrentStepIndex = 2

		if _, err := c.Advance(ctx); err != nil {
			t.Fatalf("advance failed: %v", err)
		}
		if got := *backend.patches[0].CurrentStepIndex; got != 2 {
			t.Errorf("expected navigation clamped to 2, got %d", got)
		}
	})

	t.Run("create timer mints a client key once", func(t *testing.T) {
		c, backend := newController(t)

		if _, err := c.CreateTimer(ctx, session.TimerCreate{
			StepIndex: 0, Label: "Toast rice", DurationSec: 120,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		key := backend.patches[0].TimerCreate.ClientKey
		if len(key) < 5 || key[:4] != "tmr_" {
			t.Errorf("expected minted tmr_ key, got %q", key)
		}
	})

	t.Run("create timer preserves caller key", func(t *testing.T) {
		c, backend := newController(t)

		if _, err := c.CreateTimerWithKey(ctx, session.TimerCreate{
			StepIndex: 0, Label: "Toast rice", DurationSec: 120, ClientKey: "tmr_fixed",
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if got := backend.patches[0].TimerCreate.ClientKey; got != "tmr_fixed" {
			t.Errorf("expected caller key reused, got %q", got)
		}
	})

	t.Run("rejects patches on terminal session", func(t *testing.T) {
		c, _ := newController(t)
		if _, err := c.End(ctx, session.EndComplete); err != nil {
			t.Fatalf("end failed: %v", err)
		}
		if _, err := c.Advance(ctx); !errors.Is(err, shared.ErrSessionTerminal) {
			t.Errorf("expected ErrSessionTerminal, got %v", err)
		}
	})
}

func TestControllerDeleteTimer(t *testing.T) {
	ctx := context.Background()

	withTimer := func() *session.CookSession {
		snap := activeSnapshot(1)
		snap.Timers = map[string]*session.Timer{
			"tim_1": {ID: "tim_1", StepIndex: 0, Label: "Toast rice", DurationSec: 120, State: session.TimerRunning},
		}
		return snap
	}

	t.Run("hides timer locally before acknowledgement", func(t *testing.T) {
		backend := &fakeBackend{active: withTimer(), patchErr: errors.New("network down")}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		if _, err := c.DeleteTimer(ctx, "tim_1"); err == nil {
			t.Fatal("expected delete error to surface")
		}
		if visible := c.Session().VisibleTimers(); len(visible) != 0 {
			t.Errorf("expected deleted timer hidden locally, got %d visible", len(visible))
		}
	})

	t.Run("does not mutate snapshots held by readers", func(t *testing.T) {
		backend := &fakeBackend{active: tu.NewSessionFixture(), patchErr: errors.New("network down")}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		// A reader holding the pre-delete snapshot keeps iterating it
		// while the delete lands, the way the watch loop and the TUI do.
		held := c.Session()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 500; i++ {
				held.VisibleTimers()
			}
		}()

		if _, err := c.DeleteTimer(ctx, "tim_fixture"); err == nil {
			t.Fatal("expected delete error to surface")
		}
		<-done

		if tm := held.Timer("tim_fixture"); tm == nil || tm.Deleted() {
			t.Error("expected held snapshot's timer left untouched")
		}
		if len(held.VisibleTimers()) != 1 {
			t.Error("expected held snapshot to keep its timer visible")
		}
		if len(c.Session().VisibleTimers()) != 0 {
			t.Error("expected replacement snapshot to hide the timer")
		}
	})

	t.Run("unknown timer id", func(t *testing.T) {
		backend := &fakeBackend{active: withTimer()}
		c := New(backend)
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		if _, err := c.DeleteTimer(ctx, "tim_missing"); !errors.Is(err, shared.ErrTimerNotFound) {
			t.Errorf("expected ErrTimerNotFound, got %v", err)
		}
	})
}

func TestControllerEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pushed snapshots", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(1)}
		pushed := activeSnapshot(4)
		pushed.CurrentStepIndex = 1
		backend.streamSnaps = []*session.CookSession{pushed}

		c := New(backend, WithEventBackoff(time.Millisecond))
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		if err := c.StartEvents(ctx); err != nil {
			t.Fatalf("start events failed: %v", err)
		}
		defer c.StopEvents()

		deadline := time.After(2 * time.Second)
		for c.Session().Version != 4 {
			select {
			case <-deadline:
				t.Fatal("timed out waiting for pushed snapshot")
			case <-time.After(5 * time.Millisecond):
			}
		}
		if got := c.Session().CurrentStepIndex; got != 1 {
			t.Errorf("expected pushed step index 1, got %d", got)
		}
	})

	t.Run("reconnects after stream drop", func(t *testing.T) {
		backend := &fakeBackend{active: activeSnapshot(1), streamErr: errors.New("stream closed")}

		c := New(backend, WithEventBackoff(time.Millisecond))
		if _, err := c.Begin(ctx, "rec_risotto"); err != nil {
			t.Fatalf("begin failed: %v", err)
		}
		if err := c.StartEvents(ctx); err != nil {
			t.Fatalf("start events failed: %v", err)
		}
		defer c.StopEvents()

		deadline := time.After(2 * time.Second)
		for {
			backend.mu.Lock()
			runs := backend.streamRuns
			backend.mu.Unlock()
			if runs >= 2 {
				break
			}
			select {
			case <-deadline:
				t.Fatal("timed out waiting for reconnect")
			case <-time.After(5 * time.Millisecond):
			}
		}
	})

	t.Run("requires an active session", func(t *testing.T) {
		c := New(&fakeBackend{})
		if err := c.StartEvents(ctx); !errors.Is(err, shared.ErrNoActiveSession) {
			t.Errorf("expected ErrNoActiveSession, got %v", err)
		}
	})
}
