package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasteos/cookmode/internal/countdown"
	"github.com/tasteos/cookmode/internal/session"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CookView ViewState = iota
	IngredientsView
	ConfirmEndView
)

// Controller is the slice of the sync layer the TUI drives.
type Controller interface {
	Session() *session.CookSession
	Updates() <-chan *session.CookSession
	ToggleBullet(ctx context.Context, stepIndex, bulletIndex int) (*session.CookSession, error)
	Advance(ctx context.Context) (*session.CookSession, error)
	Back(ctx context.Context) (*session.CookSession, error)
	CreateTimer(ctx context.Context, create session.TimerCreate) (*session.CookSession, error)
	TimerAction(ctx context.Context, timerID string, op session.TimerOp) (*session.CookSession, error)
	DeleteTimer(ctx context.Context, timerID string) (*session.CookSession, error)
	End(ctx context.Context, action session.EndAction) (*session.CookSession, error)
}

// Suggester is the slice of the autoflow consumer the TUI drives.
type Suggester interface {
	Refresh(ctx context.Context) (*session.SuggestionSet, error)
	Dispatch(ctx context.Context, sug *session.Suggestion) error
	Dispatched(sug *session.Suggestion) bool
}

// Model represents the Cook Mode TUI state.
type Model struct {
	ctx       context.Context
	ctrl      Controller
	suggester Suggester
	watcher   *countdown.Watcher
	interval  time.Duration

	view        ViewState
	snapshot    *session.CookSession
	readings    []countdown.Reading
	suggestions *session.SuggestionSet
	cursor      int
	endAction   session.EndAction
	width       int
	height      int
	err         error
	help        help.Model
	keys        keyMap
}

type tickMsg time.Time

type snapshotMsg *session.CookSession

type suggestionsMsg struct {
	set *session.SuggestionSet
	err error
}

type actionDoneMsg struct {
	snap *session.CookSession
	err  error
}

type endedMsg struct {
	snap *session.CookSession
	err  error
}

// NewModel creates a Cook Mode TUI model with the provided dependencies.
func NewModel(ctx context.Context, ctrl Controller, suggester Suggester, watcher *countdown.Watcher, tickInterval time.Duration) *Model {
	if tickInterval <= 0 {
		tickInterval = 500 * time.Millisecond
	}
	return &Model{
		ctx:       ctx,
		ctrl:      ctrl,
		suggester: suggester,
		watcher:   watcher,
		interval:  tickInterval,
		view:      CookView,
		snapshot:  ctrl.Session(),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init starts the countdown ticker, the snapshot listener, and the first
// suggestion fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitForUpdate(), m.refreshSuggestions())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CookView:
			return m.handleCookKeys(msg)
		case IngredientsView:
			return m.handleIngredientsKeys(msg)
		case ConfirmEndView:
			return m.handleConfirmKeys(msg)
		}

	case tickMsg:
		if m.watcher != nil {
			m.readings = m.watcher.Readings()
			m.watcher.Observe(m.ctx)
		}
		return m, m.tick()

	case snapshotMsg:
		prev := m.snapshot
		m.snapshot = (*session.CookSession)(msg)
		m.clampCursor()
		// Step changes shift the suggestion context.
		if prev == nil || prev.ClampedStepIndex() != m.snapshot.ClampedStepIndex() {
			return m, tea.Batch(m.waitForUpdate(), m.refreshSuggestions())
		}
		return m, m.waitForUpdate()

	case suggestionsMsg:
		if msg.err == nil {
			m.suggestions = msg.set
		}
		return m, nil

	case actionDoneMsg:
		m.err = msg.err
		if msg.snap != nil {
			m.snapshot = msg.snap
			m.clampCursor()
		}
		return m, nil

	case endedMsg:
		m.err = msg.err
		if msg.snap != nil {
			m.snapshot = msg.snap
		}
		if msg.err == nil {
			return m, tea.Quit
		}
		m.view = CookView
		return m, nil
	}

	return m, nil
}

func (m *Model) handleCookKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.currentBullets())-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.toggle):
		if m.snapshot == nil || len(m.currentBullets()) == 0 {
			return m, nil
		}
		step, bullet := m.snapshot.ClampedStepIndex(), m.cursor
		return m, m.action(func() (*session.CookSession, error) {
			return m.ctrl.ToggleBullet(m.ctx, step, bullet)
		})

	case key.Matches(msg, m.keys.nextStep):
		return m, m.action(func() (*session.CookSession, error) {
			return m.ctrl.Advance(m.ctx)
		})

	case key.Matches(msg, m.keys.prevStep):
		return m, m.action(func() (*session.CookSession, error) {
			return m.ctrl.Back(m.ctx)
		})

	case key.Matches(msg, m.keys.timer):
		return m, m.createStepTimer()

	case key.Matches(msg, m.keys.pauseTimer):
		return m, m.toggleStepTimer()

	case key.Matches(msg, m.keys.deleteTimer):
		return m, m.dismissTimer()

	case key.Matches(msg, m.keys.accept):
		return m, m.acceptSuggestion()

	case key.Matches(msg, m.keys.ingredients):
		m.view = IngredientsView
		return m, nil

	case key.Matches(msg, m.keys.complete):
		m.view = ConfirmEndView
		m.endAction = session.EndComplete
		return m, nil

	case key.Matches(msg, m.keys.abandon):
		m.view = ConfirmEndView
		m.endAction = session.EndAbandon
		return m, nil
	}

	return m, nil
}

func (m *Model) handleIngredientsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	default:
		m.view = CookView
		return m, nil
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		action := m.endAction
		return m, func() tea.Msg {
			snap, err := m.ctrl.End(m.ctx, action)
			return endedMsg{snap: snap, err: err}
		}
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	default:
		m.view = CookView
		return m, nil
	}
}

// action runs one controller call off the update loop.
func (m *Model) action(fn func() (*session.CookSession, error)) tea.Cmd {
	return func() tea.Msg {
		snap, err := fn()
		return actionDoneMsg{snap: snap, err: err}
	}
}

// createStepTimer starts a timer for the current step, prefilled from the
// step's expected duration.
func (m *Model) createStepTimer() tea.Cmd {
	if m.snapshot == nil {
		return nil
	}
	step, ok := m.snapshot.CurrentStep()
	if !ok || step.DurationSec <= 0 {
		return nil
	}
	idx := m.snapshot.ClampedStepIndex()
	return m.action(func() (*session.CookSession, error) {
		return m.ctrl.CreateTimer(m.ctx, session.TimerCreate{
			StepIndex:   idx,
			Label:       step.Title,
			DurationSec: step.DurationSec,
		})
	})
}

// toggleStepTimer pauses or resumes the current step's timer.
func (m *Model) toggleStepTimer() tea.Cmd {
	t := m.stepTimer()
	if t == nil {
		return nil
	}
	op := session.TimerOpPause
	if t.State == session.TimerPaused || t.State == session.TimerCreated {
		op = session.TimerOpStart
	}
	id := t.ID
	return m.action(func() (*session.CookSession, error) {
		return m.ctrl.TimerAction(m.ctx, id, op)
	})
}

// dismissTimer deletes the first finished timer, or the current step's
// timer when none has finished.
func (m *Model) dismissTimer() tea.Cmd {
	var target *session.Timer
	for _, r := range m.readings {
		if r.Timer.State == session.TimerDone {
			target = r.Timer
			break
		}
	}
	if target == nil {
		target = m.stepTimer()
	}
	if target == nil {
		return nil
	}
	id := target.ID
	return m.action(func() (*session.CookSession, error) {
		return m.ctrl.DeleteTimer(m.ctx, id)
	})
}

// acceptSuggestion dispatches the first suggestion not yet sent.
func (m *Model) acceptSuggestion() tea.Cmd {
	sug := m.nextSuggestion()
	if sug == nil {
		return nil
	}
	return func() tea.Msg {
		if err := m.suggester.Dispatch(m.ctx, sug); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{snap: m.ctrl.Session()}
	}
}

func (m *Model) nextSuggestion() *session.Suggestion {
	if m.suggester == nil || m.suggestions == nil {
		return nil
	}
	for i := range m.suggestions.Suggestions {
		sug := &m.suggestions.Suggestions[i]
		if sug.Action.Op == session.OpNone || sug.Action.Op == session.OpOpenHelp {
			continue
		}
		if !m.suggester.Dispatched(sug) {
			return sug
		}
	}
	return nil
}

func (m *Model) stepTimer() *session.Timer {
	if m.snapshot == nil {
		return nil
	}
	idx := m.snapshot.ClampedStepIndex()
	for _, t := range m.snapshot.VisibleTimers() {
		if t.StepIndex == idx && t.State != session.TimerDone {
			return t
		}
	}
	return nil
}

func (m *Model) currentBullets() []string {
	if m.snapshot == nil {
		return nil
	}
	step, ok := m.snapshot.CurrentStep()
	if !ok {
		return nil
	}
	return step.Bullets
}

func (m *Model) clampCursor() {
	if n := len(m.currentBullets()); m.cursor >= n {
		m.cursor = 0
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-m.ctrl.Updates():
			return snapshotMsg(snap)
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m *Model) refreshSuggestions() tea.Cmd {
	if m.suggester == nil {
		return nil
	}
	return func() tea.Msg {
		set, err := m.suggester.Refresh(m.ctx)
		return suggestionsMsg{set: set, err: err}
	}
}
