package devserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/cook"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

func newTestServer(t *testing.T) (*api.Client, *Engine) {
	t.Helper()

	engine := NewEngine(nil)
	srv := httptest.NewServer(NewServer(engine, nil).Handler())
	t.Cleanup(srv.Close)

	client := api.NewClient(shared.APIConfig{BaseURL: srv.URL + "/api/v1"}, nil)
	return client, engine
}

func TestServerRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("start patch end through the real client", func(t *testing.T) {
		client, _ := newTestServer(t)

		snap, err := client.StartSession(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		idx := 1
		snap, err = client.PatchSession(ctx, snap.ID, &session.Patch{CurrentStepIndex: &idx})
		if err != nil {
			t.Fatalf("patch failed: %v", err)
		}
		if snap.CurrentStepIndex != 1 || snap.Version != 2 {
			t.Errorf("unexpected state after patch: step %d version %d", snap.CurrentStepIndex, snap.Version)
		}

		snap, err = client.EndSession(ctx, snap.ID, session.EndComplete)
		if err != nil {
			t.Fatalf("end failed: %v", err)
		}
		if snap.Status != session.StatusCompleted {
			t.Errorf("expected completed, got %s", snap.Status)
		}
	})

	t.Run("active 404 maps to no active session", func(t *testing.T) {
		client, _ := newTestServer(t)

		if _, err := client.ActiveSession(ctx, "rec_risotto"); !errors.Is(err, shared.ErrNoActiveSession) {
			t.Errorf("expected ErrNoActiveSession, got %v", err)
		}
	})

	t.Run("suggestions decode through the real client", func(t *testing.T) {
		client, _ := newTestServer(t)

		snap, err := client.StartSession(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		idx := 1
		if _, err := client.PatchSession(ctx, snap.ID, &session.Patch{CurrentStepIndex: &idx}); err != nil {
			t.Fatalf("patch failed: %v", err)
		}

		set, err := client.Suggestions(ctx, api.SuggestionQuery{SessionID: snap.ID, StepIndex: 1})
		if err != nil {
			t.Fatalf("suggestions failed: %v", err)
		}
		if len(set.Suggestions) == 0 {
			t.Fatal("expected at least one suggestion")
		}
		if set.Suggestions[0].Action.Op != session.OpCreateTimer {
			t.Errorf("expected timer suggestion first, got %s", set.Suggestions[0].Action.Op)
		}
	})

	t.Run("assist answers substitution intent", func(t *testing.T) {
		client, _ := newTestServer(t)

		resp, err := client.Assist(ctx, api.AssistRequest{RecipeID: "rec_risotto", Intent: "substitute"})
		if err != nil {
			t.Fatalf("assist failed: %v", err)
		}
		if resp.Title == "" || len(resp.Bullets) == 0 {
			t.Errorf("expected populated assist answer, got %+v", resp)
		}
	})
}

func TestServerEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("controller converges on server-side mutations", func(t *testing.T) {
		client, engine := newTestServer(t)

		ctrl := cook.New(client, cook.WithEventBackoff(10*time.Millisecond))
		snap, err := ctrl.Begin(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := ctrl.StartEvents(streamCtx); err != nil {
			t.Fatalf("start events failed: %v", err)
		}

		// Mutate server-side, as another device would.
		idx := 2
		if _, err := engine.ApplyPatch(snap.ID, &session.Patch{CurrentStepIndex: &idx}); err != nil {
			t.Fatalf("server-side patch failed: %v", err)
		}

		deadline := time.After(3 * time.Second)
		for ctrl.Session().CurrentStepIndex != 2 {
			select {
			case <-deadline:
				t.Fatalf("controller never observed the push, at step %d", ctrl.Session().CurrentStepIndex)
			case <-time.After(10 * time.Millisecond):
			}
		}
	})

	t.Run("stream replays current snapshot on connect", func(t *testing.T) {
		client, engine := newTestServer(t)

		snap, err := client.StartSession(ctx, "rec_risotto")
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}
		idx := 1
		if _, err := engine.ApplyPatch(snap.ID, &session.Patch{CurrentStepIndex: &idx}); err != nil {
			t.Fatalf("patch failed: %v", err)
		}

		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		received := make(chan *session.CookSession, 1)
		go func() {
			_ = client.StreamEvents(streamCtx, snap.ID, func(s *session.CookSession) {
				select {
				case received <- s:
				default:
				}
			})
		}()

		select {
		case s := <-received:
			if s.CurrentStepIndex != 1 {
				t.Errorf("expected current snapshot replayed, got step %d", s.CurrentStepIndex)
			}
		case <-time.After(3 * time.Second):
			t.Fatal("no snapshot received on connect")
		}
	})
}
