package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up          key.Binding
	down        key.Binding
	toggle      key.Binding
	nextStep    key.Binding
	prevStep    key.Binding
	timer       key.Binding
	pauseTimer  key.Binding
	deleteTimer key.Binding
	accept      key.Binding
	ingredients key.Binding
	complete    key.Binding
	abandon     key.Binding
	yes         key.Binding
	no          key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check off")),
		nextStep:    key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next step")),
		prevStep:    key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev step")),
		timer:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "step timer")),
		pauseTimer:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "pause/resume timer")),
		deleteTimer: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss timer")),
		accept:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept suggestion")),
		ingredients: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "ingredients")),
		complete:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		abandon:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "abandon")),
		yes:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:          key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.nextStep, k.timer, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.nextStep, k.prevStep, k.ingredients},
		{k.timer, k.pauseTimer, k.deleteTimer},
		{k.accept, k.complete, k.abandon},
		{k.quit},
	}
}
