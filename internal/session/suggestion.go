package session

import (
	"encoding/json"
	"fmt"
)

// SuggestionOp enumerates what dispatching a suggestion does.
type SuggestionOp string

const (
	OpCreateTimer  SuggestionOp = "create_timer"
	OpNavigateStep SuggestionOp = "navigate_step"
	OpPatchSession SuggestionOp = "patch_session"
	OpOpenHelp     SuggestionOp = "open_help"
	OpNone         SuggestionOp = "none"
)

// Suggestion is a server-computed "what to do next" hint. Suggestions are
// advisory: the client re-fetches after acting on one rather than assuming
// the rest of the list remains valid.
type Suggestion struct {
	Type   string           `json:"type"`
	Label  string           `json:"label"`
	Why    string           `json:"why,omitempty"`
	Action SuggestionAction `json:"action"`
}

// SuggestionAction carries the operation and its op-specific payload.
type SuggestionAction struct {
	Op      SuggestionOp    `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SuggestionSet is the suggestion retrieval response. Suggestions are
// ordered by priority; the first is the primary.
type SuggestionSet struct {
	Suggestions []Suggestion `json:"suggestions"`
	Source      string       `json:"source,omitempty"`
}

// TimerPayload is the payload of a create_timer suggestion. It carries no
// idempotency key; the dispatcher mints a fresh one per dispatch.
type TimerPayload struct {
	StepIndex   int    `json:"step_index"`
	BulletIndex *int   `json:"bullet_index,omitempty"`
	Label       string `json:"label"`
	DurationSec int    `json:"duration_sec"`
}

// NavigatePayload is the payload of a navigate_step suggestion.
type NavigatePayload struct {
	StepIndex int `json:"step_index"`
}

// SessionPatchPayload is the payload of a patch_session suggestion: an
// arbitrary sparse patch, optionally ending the session via status.
type SessionPatchPayload struct {
	Patch
	Status Status `json:"status,omitempty"`
}

// TimerPayload decodes the action payload for create_timer suggestions.
func (a SuggestionAction) TimerPayload() (*TimerPayload, error) {
	if a.Op != OpCreateTimer {
		return nil, fmt.Errorf("action op is %s, not %s", a.Op, OpCreateTimer)
	}
	var p TimerPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode timer payload: %w", err)
	}
	return &p, nil
}

// NavigatePayload decodes the action payload for navigate_step suggestions.
func (a SuggestionAction) NavigatePayload() (*NavigatePayload, error) {
	if a.Op != OpNavigateStep {
		return nil, fmt.Errorf("action op is %s, not %s", a.Op, OpNavigateStep)
	}
	var p NavigatePayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode navigate payload: %w", err)
	}
	return &p, nil
}

// PatchPayload decodes the action payload for patch_session suggestions.
func (a SuggestionAction) PatchPayload() (*SessionPatchPayload, error) {
	if a.Op != OpPatchSession {
		return nil, fmt.Errorf("action op is %s, not %s", a.Op, OpPatchSession)
	}
	var p SessionPatchPayload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode patch payload: %w", err)
	}
	return &p, nil
}

// Key identifies a suggestion for duplicate-dispatch tracking. Suggestions
// carry no server id, so the identity is the full action content.
func (s Suggestion) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", s.Type, s.Label, s.Action.Op, string(s.Action.Payload))
}
