package devserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/session"
)

// Suggestions computes the autoflow suggestion set for a session. The
// heuristics are deliberately simple; they exist to exercise every
// suggestion op the client dispatches.
func (e *Engine) Suggestions(sessionID string, _ api.SuggestionQuery) (*session.SuggestionSet, error) {
	snap, err := e.Session(sessionID)
	if err != nil {
		return nil, err
	}

	set := &session.SuggestionSet{Source: "devserver"}
	if snap.Terminal() {
		return set, nil
	}

	steps := snap.ActiveSteps()
	current := snap.ClampedStepIndex()

	// A timed step with no timer yet gets a timer suggestion.
	if current < len(steps) && steps[current].DurationSec > 0 && !hasTimerForStep(snap, current) {
		payload, _ := json.Marshal(session.TimerPayload{
			StepIndex:   current,
			Label:       steps[current].Title,
			DurationSec: steps[current].DurationSec,
		})
		set.Suggestions = append(set.Suggestions, session.Suggestion{
			Type:  "timer",
			Label: fmt.Sprintf("Start a %s timer", formatMinutes(steps[current].DurationSec)),
			Why:   "this step is timed",
			Action: session.SuggestionAction{
				Op:      session.OpCreateTimer,
				Payload: payload,
			},
		})
	}

	// Every bullet checked on a non-final step suggests moving on.
	if current < len(steps)-1 && allChecked(snap, current) {
		payload, _ := json.Marshal(session.NavigatePayload{StepIndex: current + 1})
		set.Suggestions = append(set.Suggestions, session.Suggestion{
			Type:  "step",
			Label: fmt.Sprintf("Move on to %q", steps[current+1].Title),
			Why:   "everything on this step is checked off",
			Action: session.SuggestionAction{
				Op:      session.OpNavigateStep,
				Payload: payload,
			},
		})
	}

	// Final step fully checked suggests wrapping up.
	if current == len(steps)-1 && allChecked(snap, current) {
		payload, _ := json.Marshal(map[string]string{"status": string(session.StatusCompleted)})
		set.Suggestions = append(set.Suggestions, session.Suggestion{
			Type:  "wrap_up",
			Label: "Mark the cook complete",
			Why:   "the last step is done",
			Action: session.SuggestionAction{
				Op:      session.OpPatchSession,
				Payload: payload,
			},
		})
	}

	if len(set.Suggestions) == 0 {
		set.Suggestions = append(set.Suggestions, session.Suggestion{
			Type:   "tip",
			Label:  "Taste as you go",
			Action: session.SuggestionAction{Op: session.OpNone},
		})
	}
	return set, nil
}

// Assist answers stateless help requests with canned guidance.
func (e *Engine) Assist(req api.AssistRequest) (*api.AssistResponse, error) {
	switch strings.ToLower(req.Intent) {
	case "substitute":
		return &api.AssistResponse{
			Title: "Common substitutions",
			Bullets: []string{
				"white wine: stock plus a squeeze of lemon",
				"parmesan: pecorino or grana padano",
				"butter: olive oil in equal volume",
			},
			Source: "devserver",
		}, nil
	case "nutrition":
		return &api.AssistResponse{
			Title: "Rough nutrition",
			Bullets: []string{
				"estimates only; the dev server has no nutrition database",
			},
			Source: "devserver",
		}, nil
	default:
		return &api.AssistResponse{
			Title: "Quick fix",
			Bullets: []string{
				"too salty: dilute with unsalted stock or water",
				"too thick: loosen with hot liquid a spoon at a time",
				"burnt base: change pans without scraping the bottom",
			},
			Source: "devserver",
		}, nil
	}
}

func hasTimerForStep(snap *session.CookSession, stepIndex int) bool {
	for _, t := range snap.VisibleTimers() {
		if t.StepIndex == stepIndex {
			return true
		}
	}
	return false
}

func allChecked(snap *session.CookSession, stepIndex int) bool {
	steps := snap.ActiveSteps()
	if stepIndex >= len(steps) || len(steps[stepIndex].Bullets) == 0 {
		return false
	}
	for i := range steps[stepIndex].Bullets {
		if !snap.Checked(stepIndex, i) {
			return false
		}
	}
	return true
}

func formatMinutes(sec int) string {
	if sec < 60 {
		return fmt.Sprintf("%d second", sec)
	}
	if sec%60 == 0 {
		return fmt.Sprintf("%d minute", sec/60)
	}
	return fmt.Sprintf("%.1f minute", float64(sec)/60)
}
