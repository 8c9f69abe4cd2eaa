package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tasteos/cookmode/internal/formatter"
	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

// Recipes lists the recipes available to the workspace.
func (r *Runner) Recipes(ctx context.Context, cmd *cli.Command) error {
	recipes, err := r.client.Recipes(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch recipes: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(recipes, true)
	}

	r.writePlainHeader("Recipes")
	for _, recipe := range recipes {
		r.writePlain("%-20s %s (%d servings, %d steps)\n", recipe.ID, recipe.Name, recipe.Servings, len(recipe.Steps))
	}
	return nil
}

// SessionStart starts or resumes the cook session for a recipe.
func (r *Runner) SessionStart(ctx context.Context, cmd *cli.Command) error {
	recipeID := cmd.String("recipe")

	snap, err := r.ctrl.Begin(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	r.logger.Info("session started", "session", snap.ID, "recipe", recipeID)

	if cmd.Bool("json") {
		return r.writeJSON(snap, true)
	}
	return r.writePlain("%s", formatter.SessionToText(snap, time.Now()))
}

// SessionStatus shows the active session.
func (r *Runner) SessionStatus(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(snap, true)
	case cmd.Bool("md"):
		return r.writePlain("%s", formatter.SessionToMarkdown(snap, time.Now()))
	default:
		return r.writePlain("%s", formatter.SessionToText(snap, time.Now()))
	}
}

// StepNext advances the session to the next step.
func (r *Runner) StepNext(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.Advance(ctx)
	if err != nil {
		return fmt.Errorf("failed to advance step: %w", err)
	}
	return r.writeStep(snap)
}

// StepPrev moves the session back one step.
func (r *Runner) StepPrev(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.Back(ctx)
	if err != nil {
		return fmt.Errorf("failed to go back a step: %w", err)
	}
	return r.writeStep(snap)
}

// StepGoto jumps the session to a specific step.
func (r *Runner) StepGoto(ctx context.Context, cmd *cli.Command) error {
	stepArg := cmd.StringArg("step")
	stepNum, err := strconv.Atoi(stepArg)
	if err != nil || stepNum < 1 {
		return fmt.Errorf("%w: step must be a positive number, got %q", shared.ErrInvalidArgument, stepArg)
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.Navigate(ctx, stepNum-1)
	if err != nil {
		return fmt.Errorf("failed to jump to step: %w", err)
	}
	return r.writeStep(snap)
}

func (r *Runner) writeStep(snap *session.CookSession) error {
	step, ok := snap.CurrentStep()
	if !ok {
		return r.writePlain("No steps in this recipe\n")
	}

	r.writePlain("Step %d of %d: %s\n", snap.ClampedStepIndex()+1, len(snap.ActiveSteps()), step.Title)
	for i, bullet := range step.Bullets {
		mark := " "
		if snap.Checked(snap.ClampedStepIndex(), i) {
			mark = "x"
		}
		r.writePlain("  [%s] %d. %s\n", mark, i+1, bullet)
	}
	return nil
}

// SessionCheck toggles a checklist bullet.
func (r *Runner) SessionCheck(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}

	stepIndex := cmd.Int("step")
	if stepIndex < 0 {
		stepIndex = snap.ClampedStepIndex()
	}
	bulletIndex := cmd.Int("bullet") - 1
	if bulletIndex < 0 {
		return fmt.Errorf("%w: bullet must be >= 1", shared.ErrInvalidArgument)
	}

	snap, err = r.ctrl.ToggleBullet(ctx, stepIndex, bulletIndex)
	if err != nil {
		return fmt.Errorf("failed to toggle bullet: %w", err)
	}
	return r.writeStep(snap)
}

// SessionIngredients shows ingredients scaled to the target servings.
func (r *Runner) SessionIngredients(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.IngredientsToText(snap))
}

// SessionRescale changes the target serving count.
func (r *Runner) SessionRescale(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	servings := cmd.Int("servings")
	snap, err := r.ctrl.Rescale(ctx, servings)
	if err != nil {
		return fmt.Errorf("failed to rescale: %w", err)
	}

	r.logger.Info("rescaled session", "servings", servings)
	return r.writePlain("%s", formatter.IngredientsToText(snap))
}

// SessionAdjust records a free-form adjustment note.
func (r *Runner) SessionAdjust(ctx context.Context, cmd *cli.Command) error {
	note := strings.TrimSpace(cmd.StringArg("note"))
	if note == "" {
		return fmt.Errorf("%w: adjustment note is required", shared.ErrMissingArgument)
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	snap, err := r.ctrl.RecordAdjustment(ctx, note)
	if err != nil {
		return fmt.Errorf("failed to record adjustment: %w", err)
	}

	r.writePlain("✓ Adjustment recorded: %s\n", note)
	r.writePlain("  %d adjustment(s) on this session\n", len(snap.AdjustmentsLog))
	return nil
}

// SessionAdjustments lists recorded adjustments with the numbers undo takes.
func (r *Runner) SessionAdjustments(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}

	if len(snap.AdjustmentsLog) == 0 {
		return r.writePlain("No adjustments recorded\n")
	}
	for i, adj := range snap.AdjustmentsLog {
		mark := ""
		if adj.Undone {
			mark = " (undone)"
		}
		r.writePlain("%d. [%s] %s%s\n", i+1, adj.RecordedAt.Local().Format(time.Kitchen), adj.Note, mark)
	}
	return nil
}

// SessionUndo undoes a recorded adjustment.
func (r *Runner) SessionUndo(ctx context.Context, cmd *cli.Command) error {
	indexArg := cmd.StringArg("index")
	index, err := strconv.Atoi(indexArg)
	if err != nil || index < 1 {
		return fmt.Errorf("%w: index must be a positive number, got %q", shared.ErrInvalidArgument, indexArg)
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	if _, err := r.ctrl.UndoAdjustment(ctx, index-1); err != nil {
		return fmt.Errorf("failed to undo adjustment: %w", err)
	}
	return r.writePlain("✓ Adjustment %d undone\n", index)
}

// SessionEnd completes or abandons the active session.
func (r *Runner) SessionEnd(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	action := session.EndComplete
	if cmd.Bool("abandon") {
		action = session.EndAbandon
	}

	snap, err := r.ctrl.End(ctx, action)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	r.logger.Info("session ended", "session", snap.ID, "status", snap.Status)
	return r.writePlain("✓ Session %s %s\n", snap.ID, snap.Status)
}

// SessionOpen opens the session in the web app.
func (r *Runner) SessionOpen(ctx context.Context, cmd *cli.Command) error {
	snap, err := r.attach(ctx, cmd)
	if err != nil {
		return err
	}

	if r.config.API.WebBaseURL == "" {
		return fmt.Errorf("%w: api.web_base_url is not configured", shared.ErrInvalidConfig)
	}

	url := strings.TrimRight(r.config.API.WebBaseURL, "/") + "/cook/" + snap.ID
	r.writePlain("Opening %s\n", url)
	return shared.OpenBrowser(url)
}
