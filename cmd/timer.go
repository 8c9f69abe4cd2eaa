package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/tasteos/cookmode/internal/alert"
	"github.com/tasteos/cookmode/internal/countdown"
	"github.com/tasteos/cookmode/internal/formatter"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

// TimerList lists timers with live remaining time.
func (r *Runner) TimerList(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.TimersToText(snap.VisibleTimers(), time.Now()))
}

// TimerCreate creates a timer, defaulting the step and duration from the
// current step when not given.
func (r *Runner) TimerCreate(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}

	stepIndex := cmd.Int("step")
	if stepIndex < 0 {
		stepIndex = snap.ClampedStepIndex()
	}

	seconds := cmd.Int("seconds")
	label := cmd.String("label")
	steps := snap.ActiveSteps()
	if stepIndex < len(steps) {
		if seconds <= 0 {
			seconds = steps[stepIndex].DurationSec
		}
		if label == "" {
			label = steps[stepIndex].Title
		}
	}
	if seconds <= 0 {
		return fmt.Errorf("%w: pass --seconds or pick a timed step", shared.ErrInvalidArgument)
	}

	snap, err = r.ctrl.CreateTimer(ctx, session.TimerCreate{
		StepIndex:   stepIndex,
		Label:       label,
		DurationSec: seconds,
	})
	if err != nil {
		return fmt.Errorf("failed to create timer: %w", err)
	}

	r.logger.Info("timer created", "step", stepIndex, "seconds", seconds)
	return r.writePlain("%s", formatter.TimersToText(snap.VisibleTimers(), time.Now()))
}

// TimerStart starts a paused timer.
func (r *Runner) TimerStart(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(ctx, cmd, session.TimerOpStart)
}

// TimerPause pauses a running timer.
func (r *Runner) TimerPause(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(ctx, cmd, session.TimerOpPause)
}

// TimerDone marks a timer done.
func (r *Runner) TimerDone(ctx context.Context, cmd *cli.Command) error {
	return r.timerAction(ctx, cmd, session.TimerOpDone)
}

// TimerDelete deletes a timer. The timer disappears locally right away;
// the backend catches up on the next sync.
func (r *Runner) TimerDelete(ctx context.Context, cmd *cli.Command) error {
	timerID := cmd.StringArg("id")
	if timerID == "" {
		return fmt.Errorf("%w: timer id is required", shared.ErrMissingArgument)
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.DeleteTimer(ctx, timerID)
	if err != nil && snap == nil {
		return fmt.Errorf("failed to delete timer: %w", err)
	}

	r.writePlain("✓ Timer %s deleted\n", timerID)
	return nil
}

func (r *Runner) timerAction(ctx context.Context, cmd *cli.Command, op session.TimerOp) error {
	timerID := cmd.StringArg("id")
	if timerID == "" {
		return fmt.Errorf("%w: timer id is required", shared.ErrMissingArgument)
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.TimerAction(ctx, timerID, op)
	if err != nil {
		return fmt.Errorf("timer %s failed: %w", op, err)
	}
	return r.writePlain("%s", formatter.TimersToText(snap.VisibleTimers(), time.Now()))
}

// TimerWatch follows timers until interrupted, sounding an alert when one
// finishes. Runs the event stream so server-side changes are reflected.
func (r *Runner) TimerWatch(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := r.ctrl.StartEvents(ctx); err != nil {
		return fmt.Errorf("failed to start event stream: %w", err)
	}
	defer r.ctrl.StopEvents()

	mute := cmd.Bool("mute") || r.config.Cook.Mute
	alerter := alert.New(r.logger, alert.WithMute(mute))

	tick := time.Duration(r.config.Cook.TickMS) * time.Millisecond
	watcher := countdown.NewWatcher(r.ctrl.Session, alerter,
		countdown.WithInterval(tick),
		countdown.WithLogger(r.logger),
		countdown.WithDoneAction(func(ctx context.Context, timerID string) {
			if _, err := r.ctrl.TimerAction(ctx, timerID, session.TimerOpDone); err != nil {
				r.logger.Warn("failed to confirm finished timer", "timer", timerID, "error", err)
			}
		}),
	)

	r.writePlain("Watching timers (ctrl+c to stop)\n")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			alerter.Silence()
			r.writePlain("\n")
			return nil
		case <-ticker.C:
			watcher.Observe(ctx)
			line := ""
			for _, reading := range watcher.Readings() {
				label := reading.Timer.Label
				if label == "" {
					label = reading.Timer.ID
				}
				if reading.Expired {
					line += fmt.Sprintf("  %s done!", label)
				} else {
					line += fmt.Sprintf("  %s %s", label, formatter.FormatClock(reading.RemainingSec))
				}
			}
			if line == "" {
				line = "  no timers"
			}
			r.writePlain("\r\033[K%s", line)
		}
	}
}
