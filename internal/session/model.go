// package session defines the cook-session data model shared by the API
// client, the sync layer, the countdown loop, and the reference server.
//
// A CookSession is the aggregate root for one cooking attempt. The server
// owns the canonical state; clients mutate it exclusively through sparse
// patches and replace their cached copy wholesale with whatever the server
// returns.
package session

import (
	"sort"
	"time"
)

// Status tracks the lifecycle of a cook session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// EndAction names the two ways an active session terminates.
type EndAction string

const (
	EndComplete EndAction = "complete"
	EndAbandon  EndAction = "abandon"
)

// CookSession is the aggregate root for one cooking attempt.
//
// The embedded Recipe is denormalized into the payload by the server so a
// client can render steps and ingredients without a second fetch. When
// StepsOverride is present it replaces the recipe's native step list for
// rendering, navigation, and timer grouping.
type CookSession struct {
	ID               string    `json:"id"`
	RecipeID         string    `json:"recipe_id"`
	Status           Status    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	ServingsBase     int       `json:"servings_base"`
	ServingsTarget   int       `json:"servings_target"`
	CurrentStepIndex int       `json:"current_step_index"`

	// StepChecks maps step index -> bullet index -> checked. Entries are
	// created lazily on first toggle; absence means unchecked.
	StepChecks map[int]map[int]bool `json:"step_checks,omitempty"`

	// Timers maps timer id -> timer. Deletion may be observed either as a
	// deleted_at marker or as removal from the map; consumers must
	// tolerate both.
	Timers map[string]*Timer `json:"timers,omitempty"`

	MethodKey       string   `json:"method_key,omitempty"`
	StepsOverride   []Step   `json:"steps_override,omitempty"`
	MethodTradeoffs []string `json:"method_tradeoffs,omitempty"`

	AdjustmentsLog []Adjustment `json:"adjustments_log,omitempty"`

	AutoStepEnabled bool   `json:"auto_step_enabled"`
	AutoStepMode    string `json:"auto_step_mode,omitempty"`

	Recipe *Recipe `json:"recipe,omitempty"`

	// Version increases monotonically with every server-side mutation.
	// The sync layer refuses to replace a cached snapshot with a lower
	// version, which closes the slow-patch-stomps-newer-push race.
	Version   int64     `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recipe is the slice of recipe data a cook session needs.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Servings    int          `json:"servings"`
	Ingredients []Ingredient `json:"ingredients,omitempty"`
	Steps       []Step       `json:"steps,omitempty"`
}

// Ingredient is a single recipe ingredient with a scalable quantity.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// Step is one step of the active preparation method.
type Step struct {
	Title string `json:"title"`
	// Bullets are the step's checklist items.
	Bullets []string `json:"bullets,omitempty"`
	// DurationSec is the step's expected duration, 0 if untimed. Used to
	// prefill timer creation, never for timing logic.
	DurationSec int `json:"duration_sec,omitempty"`
}

// Adjustment is one recorded in-session adjustment ("too salty, added sugar").
type Adjustment struct {
	Note       string    `json:"note"`
	Undone     bool      `json:"undone,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Terminal reports whether the session reached a final status. No further
// patches are meaningful on a terminal session.
func (s *CookSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}

// ScaleFactor returns servings_target / servings_base. Ingredient quantity
// display scales linearly by this factor.
func (s *CookSession) ScaleFactor() float64 {
	if s.ServingsBase <= 0 {
		return 1
	}
	return float64(s.ServingsTarget) / float64(s.ServingsBase)
}

// ScaledIngredients returns the recipe ingredients with quantities
// multiplied by the current scale factor.
func (s *CookSession) ScaledIngredients() []Ingredient {
	if s.Recipe == nil {
		return nil
	}
	factor := s.ScaleFactor()
	out := make([]Ingredient, len(s.Recipe.Ingredients))
	for i, ing := range s.Recipe.Ingredients {
		ing.Quantity *= factor
		out[i] = ing
	}
	return out
}

// ActiveSteps returns the step sequence currently in effect: the method
// override when present, otherwise the recipe's native steps.
func (s *CookSession) ActiveSteps() []Step {
	if len(s.StepsOverride) > 0 {
		return s.StepsOverride
	}
	if s.Recipe != nil {
		return s.Recipe.Steps
	}
	return nil
}

// ClampedStepIndex returns current_step_index revalidated against the
// active step sequence. Server numbers are never trusted blindly in render
// paths: a method override can shrink the step count under a stale index.
func (s *CookSession) ClampedStepIndex() int {
	return s.ClampStepIndex(s.CurrentStepIndex)
}

// ClampStepIndex bounds an arbitrary index into the active step sequence.
func (s *CookSession) ClampStepIndex(idx int) int {
	n := len(s.ActiveSteps())
	if n == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// CurrentStep returns the step at the clamped current index.
func (s *CookSession) CurrentStep() (Step, bool) {
	steps := s.ActiveSteps()
	if len(steps) == 0 {
		return Step{}, false
	}
	return steps[s.ClampedStepIndex()], true
}

// Checked reports whether the given bullet has been marked done.
func (s *CookSession) Checked(stepIndex, bulletIndex int) bool {
	return s.StepChecks[stepIndex][bulletIndex]
}

// SetChecked records a bullet toggle, creating map entries lazily.
func (s *CookSession) SetChecked(stepIndex, bulletIndex int, checked bool) {
	if s.StepChecks == nil {
		s.StepChecks = make(map[int]map[int]bool)
	}
	if s.StepChecks[stepIndex] == nil {
		s.StepChecks[stepIndex] = make(map[int]bool)
	}
	s.StepChecks[stepIndex][bulletIndex] = checked
}

// VisibleTimers returns the session's non-deleted timers ordered by step
// index, then creation order (id as tiebreaker for stability).
func (s *CookSession) VisibleTimers() []*Timer {
	out := make([]*Timer, 0, len(s.Timers))
	for _, t := range s.Timers {
		if t.Deleted() {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StepIndex != out[j].StepIndex {
			return out[i].StepIndex < out[j].StepIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Timer returns the timer with the given id, nil when absent or deleted.
func (s *CookSession) Timer(id string) *Timer {
	t, ok := s.Timers[id]
	if !ok || t.Deleted() {
		return nil
	}
	return t
}
