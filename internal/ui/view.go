package ui

import (
	"fmt"
	"strings"

	"github.com/tasteos/cookmode/internal/formatter"
	"github.com/tasteos/cookmode/internal/session"
)

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.snapshot == nil {
		return styles.help.Render("Waiting for session...")
	}

	switch m.view {
	case CookView:
		return m.renderCook()
	case IngredientsView:
		return m.renderIngredients()
	case ConfirmEndView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) renderCook() string {
	var b strings.Builder
	s := m.snapshot

	name := s.RecipeID
	if s.Recipe != nil && s.Recipe.Name != "" {
		name = s.Recipe.Name
	}
	steps := s.ActiveSteps()
	current := s.ClampedStepIndex()

	b.WriteString(styles.title.Render(fmt.Sprintf("%s — step %d of %d", name, current+1, len(steps))))
	b.WriteString("\n")
	if s.MethodKey != "" {
		b.WriteString(styles.help.Render("method: " + s.MethodKey))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if step, ok := s.CurrentStep(); ok {
		b.WriteString(styles.ok.Render(step.Title))
		b.WriteString("\n")
		for i, bullet := range step.Bullets {
			cursor := "  "
			if i == m.cursor {
				cursor = styles.cursor.Render("> ")
			}
			line := fmt.Sprintf("[ ] %s", bullet)
			if s.Checked(current, i) {
				line = styles.checked.Render(fmt.Sprintf("[x] %s", bullet))
			}
			b.WriteString(cursor + line + "\n")
		}
	}

	if dock := m.renderTimerDock(); dock != "" {
		b.WriteString("\n")
		b.WriteString(dock)
	}

	if bar := m.renderSuggestionBar(); bar != "" {
		b.WriteString("\n")
		b.WriteString(bar)
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderTimerDock shows every visible timer with its live countdown across
// all steps, not just the current one.
func (m *Model) renderTimerDock() string {
	if len(m.readings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.warn.Render("Timers"))
	b.WriteString("\n")
	for _, r := range m.readings {
		label := r.Timer.Label
		if label == "" {
			label = "Timer"
		}
		switch {
		case r.Timer.State == session.TimerDone || r.Expired:
			b.WriteString(styles.err.Render(fmt.Sprintf("  %s  done!", label)))
		case r.Timer.State == session.TimerPaused:
			b.WriteString(fmt.Sprintf("  %s  %s %s", label,
				formatter.FormatClock(r.RemainingSec), styles.help.Render("(paused)")))
		default:
			b.WriteString(fmt.Sprintf("  %s  %s", label, formatter.FormatClock(r.RemainingSec)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderSuggestionBar() string {
	sug := m.nextSuggestion()
	if sug == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("Suggestion: "))
	b.WriteString(sug.Label)
	if sug.Why != "" {
		b.WriteString(" ")
		b.WriteString(styles.help.Render("(" + sug.Why + ")"))
	}
	b.WriteString(styles.help.Render("  — enter to accept"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderIngredients() string {
	var b strings.Builder
	s := m.snapshot

	b.WriteString(styles.title.Render("Ingredients"))
	b.WriteString("\n")
	if s.ScaleFactor() != 1 {
		b.WriteString(styles.warn.Render(fmt.Sprintf("scaled %sx for %d servings",
			formatter.FormatQuantity(s.ScaleFactor()), s.ServingsTarget)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, ing := range s.ScaledIngredients() {
		if ing.Unit != "" {
			b.WriteString(fmt.Sprintf("  %s %s %s\n", formatter.FormatQuantity(ing.Quantity), ing.Unit, ing.Name))
		} else {
			b.WriteString(fmt.Sprintf("  %s %s\n", formatter.FormatQuantity(ing.Quantity), ing.Name))
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render("any key to go back"))
	return b.String()
}

func (m *Model) renderConfirm() string {
	verb := "complete"
	if m.endAction == session.EndAbandon {
		verb = "abandon"
	}
	return fmt.Sprintf("%s\n\n%s\n",
		styles.title.Render(fmt.Sprintf("Really %s this cook?", verb)),
		styles.help.Render("y to confirm, any other key to go back"))
}
