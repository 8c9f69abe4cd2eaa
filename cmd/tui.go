package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tasteos/cookmode/internal/alert"
	"github.com/tasteos/cookmode/internal/autoflow"
	"github.com/tasteos/cookmode/internal/cook"
	"github.com/tasteos/cookmode/internal/countdown"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/tasteos/cookmode/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive cook-mode terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	recipeID := cmd.String("recipe")
	if recipeID == "" {
		return fmt.Errorf("%w: --recipe is required", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cookmode-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctrlOpts := []cook.Option{cook.WithLogger(fileLogger)}
	if r.config.Cook.SSEBackoffSec > 0 {
		ctrlOpts = append(ctrlOpts, cook.WithEventBackoff(time.Duration(r.config.Cook.SSEBackoffSec)*time.Second))
	}
	if r.store != nil {
		ctrlOpts = append(ctrlOpts, cook.WithStore(r.store))
	}
	ctrl := cook.New(r.client, ctrlOpts...)

	if _, err := ctrl.Begin(ctx, recipeID); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if err := ctrl.StartEvents(ctx); err != nil {
		return fmt.Errorf("failed to start event stream: %w", err)
	}
	defer ctrl.StopEvents()

	mute := cmd.Bool("mute") || r.config.Cook.Mute
	alerter := alert.New(fileLogger, alert.WithMute(mute))

	tick := time.Duration(r.config.Cook.TickMS) * time.Millisecond
	watcher := countdown.NewWatcher(ctrl.Session, alerter,
		countdown.WithInterval(tick),
		countdown.WithLogger(fileLogger),
		countdown.WithDoneAction(func(ctx context.Context, timerID string) {
			if _, err := ctrl.TimerAction(ctx, timerID, session.TimerOpDone); err != nil {
				fileLogger.Warn("failed to confirm finished timer", "timer", timerID, "error", err)
			}
		}),
	)

	consumerOpts := []autoflow.Option{autoflow.WithLogger(fileLogger)}
	if r.config.Cook.SuggestRate > 0 {
		consumerOpts = append(consumerOpts, autoflow.WithRefreshRate(r.config.Cook.SuggestRate))
	}
	consumer := autoflow.NewConsumer(r.client, ctrl, consumerOpts...)

	model := ui.NewModel(ctx, ctrl, consumer, watcher, tick)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
