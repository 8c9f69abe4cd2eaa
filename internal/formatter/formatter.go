// package formatter renders cook sessions, timers, and ingredient lists
// for terminal output in plain text, Markdown, or JSON.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tasteos/cookmode/internal/session"
)

// FormatClock renders whole seconds as m:ss, or h:mm:ss past an hour.
func FormatClock(totalSec int) string {
	if totalSec < 0 {
		totalSec = 0
	}
	h := totalSec / 3600
	m := (totalSec % 3600) / 60
	s := totalSec % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatQuantity renders a scaled quantity without trailing zero noise.
func FormatQuantity(q float64) string {
	s := fmt.Sprintf("%.2f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// SessionToJSON renders the full session document as indented JSON.
func SessionToJSON(s *session.CookSession) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return data, nil
}

// SessionToText renders a session status summary for the terminal.
func SessionToText(s *session.CookSession, now time.Time) []byte {
	var buf bytes.Buffer

	name := s.RecipeID
	if s.Recipe != nil && s.Recipe.Name != "" {
		name = s.Recipe.Name
	}
	buf.WriteString(fmt.Sprintf("Recipe: %s\n", name))
	buf.WriteString(fmt.Sprintf("Session: %s (%s)\n", s.ID, s.Status))
	if s.MethodKey != "" {
		buf.WriteString(fmt.Sprintf("Method: %s\n", s.MethodKey))
		for _, tradeoff := range s.MethodTradeoffs {
			buf.WriteString(fmt.Sprintf("  - %s\n", tradeoff))
		}
	}
	if s.ServingsBase > 0 {
		buf.WriteString(fmt.Sprintf("Servings: %d (base %d)\n", s.ServingsTarget, s.ServingsBase))
	}

	steps := s.ActiveSteps()
	current := s.ClampedStepIndex()
	buf.WriteString(fmt.Sprintf("\nStep %d of %d\n", current+1, len(steps)))
	if step, ok := s.CurrentStep(); ok {
		buf.WriteString(fmt.Sprintf("  %s\n", step.Title))
		for i, bullet := range step.Bullets {
			mark := " "
			if s.Checked(current, i) {
				mark = "x"
			}
			buf.WriteString(fmt.Sprintf("  [%s] %s\n", mark, bullet))
		}
	}

	if timers := s.VisibleTimers(); len(timers) > 0 {
		buf.WriteString("\nTimers:\n")
		buf.Write(TimersToText(timers, now))
	}

	if logged := activeAdjustments(s.AdjustmentsLog); len(logged) > 0 {
		buf.WriteString("\nAdjustments:\n")
		for _, adj := range logged {
			buf.WriteString(fmt.Sprintf("  - %s\n", adj.Note))
		}
	}

	return buf.Bytes()
}

// TimersToText renders one line per timer with live remaining time.
func TimersToText(timers []*session.Timer, now time.Time) []byte {
	var buf bytes.Buffer
	for _, t := range timers {
		label := t.Label
		if label == "" {
			label = "Timer"
		}
		switch t.State {
		case session.TimerDone:
			buf.WriteString(fmt.Sprintf("  %s  %s  done\n", t.ID, label))
		case session.TimerPaused:
			buf.WriteString(fmt.Sprintf("  %s  %s  %s  paused\n", t.ID, label, FormatClock(t.Remaining(now))))
		case session.TimerCreated:
			buf.WriteString(fmt.Sprintf("  %s  %s  %s  not started\n", t.ID, label, FormatClock(t.Remaining(now))))
		default:
			buf.WriteString(fmt.Sprintf("  %s  %s  %s\n", t.ID, label, FormatClock(t.Remaining(now))))
		}
	}
	return buf.Bytes()
}

// IngredientsToText renders the scaled ingredient list.
func IngredientsToText(s *session.CookSession) []byte {
	var buf bytes.Buffer

	factor := s.ScaleFactor()
	if factor != 1 {
		buf.WriteString(fmt.Sprintf("Scaled %sx for %d servings\n\n",
			FormatQuantity(factor), s.ServingsTarget))
	}
	for _, ing := range s.ScaledIngredients() {
		if ing.Unit != "" {
			buf.WriteString(fmt.Sprintf("  %s %s %s\n", FormatQuantity(ing.Quantity), ing.Unit, ing.Name))
		} else {
			buf.WriteString(fmt.Sprintf("  %s %s\n", FormatQuantity(ing.Quantity), ing.Name))
		}
	}
	return buf.Bytes()
}

// SessionToMarkdown renders a session as a Markdown document, suitable for
// pasting into notes after the cook.
func SessionToMarkdown(s *session.CookSession, now time.Time) []byte {
	var buf bytes.Buffer

	name := s.RecipeID
	if s.Recipe != nil && s.Recipe.Name != "" {
		name = s.Recipe.Name
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", name))
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", s.Status))
	if s.ServingsBase > 0 {
		buf.WriteString(fmt.Sprintf("**Servings**: %d\n", s.ServingsTarget))
	}
	if s.MethodKey != "" {
		buf.WriteString(fmt.Sprintf("**Method**: %s\n", s.MethodKey))
	}
	buf.WriteString("\n## Steps\n\n")

	for i, step := range s.ActiveSteps() {
		marker := " "
		if i == s.ClampedStepIndex() {
			marker = ">"
		}
		buf.WriteString(fmt.Sprintf("%s %d. %s\n", marker, i+1, step.Title))
		for j, bullet := range step.Bullets {
			mark := " "
			if s.Checked(i, j) {
				mark = "x"
			}
			buf.WriteString(fmt.Sprintf("    - [%s] %s\n", mark, bullet))
		}
	}

	if ingredients := s.ScaledIngredients(); len(ingredients) > 0 {
		buf.WriteString("\n## Ingredients\n\n")
		for _, ing := range ingredients {
			if ing.Unit != "" {
				buf.WriteString(fmt.Sprintf("- %s %s %s\n", FormatQuantity(ing.Quantity), ing.Unit, ing.Name))
			} else {
				buf.WriteString(fmt.Sprintf("- %s %s\n", FormatQuantity(ing.Quantity), ing.Name))
			}
		}
	}

	if logged := activeAdjustments(s.AdjustmentsLog); len(logged) > 0 {
		buf.WriteString("\n## Adjustments\n\n")
		for _, adj := range logged {
			buf.WriteString(fmt.Sprintf("- %s (%s)\n", adj.Note, adj.RecordedAt.Format(time.Kitchen)))
		}
	}

	return buf.Bytes()
}

// SuggestionsToText renders the current suggestion set.
func SuggestionsToText(set *session.SuggestionSet) []byte {
	var buf bytes.Buffer
	if set == nil || len(set.Suggestions) == 0 {
		buf.WriteString("No suggestions right now.\n")
		return buf.Bytes()
	}
	for i, sug := range set.Suggestions {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, sug.Type, sug.Label))
		if sug.Why != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", sug.Why))
		}
	}
	return buf.Bytes()
}

func activeAdjustments(log []session.Adjustment) []session.Adjustment {
	var active []session.Adjustment
	for _, adj := range log {
		if !adj.Undone {
			active = append(active, adj)
		}
	}
	return active
}
