package session

import "fmt"

// TimerOp is an action applied to an existing timer via patch.
type TimerOp string

const (
	TimerOpStart  TimerOp = "start"
	TimerOpPause  TimerOp = "pause"
	TimerOpDone   TimerOp = "done"
	TimerOpDelete TimerOp = "delete"
)

// Patch is the single mutation request for a session. Every field is
// independently optional; the server applies the present ones atomically
// and returns the full canonical session. Clients never combine unrelated
// mutations in one patch unless they are semantically simultaneous.
type Patch struct {
	CurrentStepIndex *int            `json:"current_step_index,omitempty"`
	StepChecksPatch  *StepCheckPatch `json:"step_checks_patch,omitempty"`
	TimerCreate      *TimerCreate    `json:"timer_create,omitempty"`
	TimerAction      *TimerAction    `json:"timer_action,omitempty"`
	ServingsTarget   *int            `json:"servings_target,omitempty"`
	AutoStepEnabled  *bool           `json:"auto_step_enabled,omitempty"`
	AutoStepMode     *string         `json:"auto_step_mode,omitempty"`
	Adjustment       *Adjustment     `json:"adjustment,omitempty"`
	UndoAdjustment   *int            `json:"undo_adjustment,omitempty"`
}

// StepCheckPatch toggles exactly one checklist bullet.
type StepCheckPatch struct {
	StepIndex   int  `json:"step_index"`
	BulletIndex int  `json:"bullet_index"`
	Checked     bool `json:"checked"`
}

// TimerCreate creates one timer. ClientKey is the idempotency key minted
// once per logical creation attempt (not per HTTP call).
type TimerCreate struct {
	StepIndex   int    `json:"step_index"`
	BulletIndex *int   `json:"bullet_index,omitempty"`
	Label       string `json:"label"`
	DurationSec int    `json:"duration_sec"`
	ClientKey   string `json:"client_key"`
}

// TimerAction acts on one existing timer.
type TimerAction struct {
	TimerID string  `json:"timer_id"`
	Action  TimerOp `json:"action"`
}

// Empty reports whether the patch carries no fields at all.
func (p *Patch) Empty() bool {
	return p.CurrentStepIndex == nil &&
		p.StepChecksPatch == nil &&
		p.TimerCreate == nil &&
		p.TimerAction == nil &&
		p.ServingsTarget == nil &&
		p.AutoStepEnabled == nil &&
		p.AutoStepMode == nil &&
		p.Adjustment == nil &&
		p.UndoAdjustment == nil
}

// Validate checks field ranges before a patch is sent.
func (p *Patch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("patch has no fields")
	}
	if p.CurrentStepIndex != nil && *p.CurrentStepIndex < 0 {
		return fmt.Errorf("current_step_index must be >= 0")
	}
	if p.ServingsTarget != nil && *p.ServingsTarget < 1 {
		return fmt.Errorf("servings_target must be >= 1")
	}
	if tc := p.TimerCreate; tc != nil {
		if tc.DurationSec <= 0 {
			return fmt.Errorf("timer duration_sec must be > 0")
		}
		if tc.ClientKey == "" {
			return fmt.Errorf("timer create requires a client key")
		}
		if tc.StepIndex < 0 {
			return fmt.Errorf("timer step_index must be >= 0")
		}
	}
	if ta := p.TimerAction; ta != nil {
		if ta.TimerID == "" {
			return fmt.Errorf("timer action requires a timer id")
		}
		switch ta.Action {
		case TimerOpStart, TimerOpPause, TimerOpDone, TimerOpDelete:
		default:
			return fmt.Errorf("unknown timer action %q", ta.Action)
		}
	}
	if p.AutoStepMode != nil {
		switch *p.AutoStepMode {
		case "suggest", "auto_jump":
		default:
			return fmt.Errorf("auto_step_mode must be suggest or auto_jump")
		}
	}
	return nil
}
