// package testing contains shared testing utilities
package testing

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tasteos/cookmode/internal/session"
)

// NewSessionFixture builds a realistic active session for tests that need
// a populated snapshot without spinning up an engine.
func NewSessionFixture() *session.CookSession {
	started := time.Date(2026, 8, 1, 18, 0, 0, 0, time.UTC)
	due := started.Add(6 * time.Minute)
	return &session.CookSession{
		ID:               "sess_fixture",
		RecipeID:         "rec_risotto",
		Status:           session.StatusActive,
		StartedAt:        started,
		ServingsBase:     2,
		ServingsTarget:   2,
		CurrentStepIndex: 1,
		Timers: map[string]*session.Timer{
			"tim_fixture": {
				ID: "tim_fixture", StepIndex: 1, Label: "Brown the mushrooms",
				DurationSec: 360, State: session.TimerRunning,
				StartedAt: &started, DueAt: &due,
			},
		},
		Recipe: &session.Recipe{
			ID:       "rec_risotto",
			Name:     "Mushroom Risotto",
			Servings: 2,
			Ingredients: []session.Ingredient{
				{Name: "arborio rice", Quantity: 150, Unit: "g"},
			},
			Steps: []session.Step{
				{Title: "Prep", Bullets: []string{"dice the onion"}},
				{Title: "Brown the mushrooms", Bullets: []string{"high heat", "set aside"}, DurationSec: 360},
			},
		},
		Version:   1,
		UpdatedAt: started,
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}
