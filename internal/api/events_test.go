package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tasteos/cookmode/internal/session"
)

func TestStreamEvents(t *testing.T) {
	t.Run("Delivers Session Events In Order", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/cook/session/sess_1/events" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Accept"); got != "text/event-stream" {
				t.Errorf("expected event-stream accept header, got %q", got)
			}

			flusher, ok := w.(http.Flusher)
			if !ok {
				t.Fatal("response writer must support flushing")
			}
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)

			for v := int64(1); v <= 3; v++ {
				payload, _ := json.Marshal(session.CookSession{ID: "sess_1", Version: v})
				fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
				flusher.Flush()
			}
			// Keepalive comments are ignored.
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)

		var versions []int64
		err := client.StreamEvents(context.Background(), "sess_1", func(s *session.CookSession) {
			versions = append(versions, s.Version)
		})
		// The server closing the stream reads as a retryable error.
		if err == nil {
			t.Fatal("expected an error when the stream closes")
		}

		if len(versions) != 3 {
			t.Fatalf("expected 3 events, got %d", len(versions))
		}
		for i, v := range versions {
			if v != int64(i)+1 {
				t.Errorf("event %d out of order: version %d", i, v)
			}
		}
	})

	t.Run("Ignores Other Event Names", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "event: heartbeat\ndata: {}\n\n")
			payload, _ := json.Marshal(session.CookSession{ID: "sess_1", Version: 1})
			fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)

		count := 0
		client.StreamEvents(context.Background(), "sess_1", func(s *session.CookSession) {
			count++
		})
		if count != 1 {
			t.Errorf("expected 1 session event, got %d", count)
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			w.WriteHeader(http.StatusOK)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			<-release
		}))
		defer server.Close()
		defer close(release)

		client := NewClient(testConfig(server.URL), nil)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan error, 1)
		go func() {
			done <- client.StreamEvents(ctx, "sess_1", func(*session.CookSession) {})
		}()

		cancel()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("stream did not terminate on cancellation")
		}
	})

	t.Run("Non-200 Response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(testConfig(server.URL), nil)
		if err := client.StreamEvents(context.Background(), "sess_1", nil); err == nil {
			t.Error("expected error for non-200 stream response")
		}
	})
}
