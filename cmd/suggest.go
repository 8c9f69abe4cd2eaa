package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tasteos/cookmode/internal/api"
	"github.com/tasteos/cookmode/internal/autoflow"
	"github.com/tasteos/cookmode/internal/formatter"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

func (r *Runner) newConsumer() *autoflow.Consumer {
	opts := []autoflow.Option{autoflow.WithLogger(r.logger)}
	if r.config.Cook.SuggestRate > 0 {
		opts = append(opts, autoflow.WithRefreshRate(r.config.Cook.SuggestRate))
	}
	return autoflow.NewConsumer(r.client, r.ctrl, opts...)
}

// SuggestList shows the current autoflow suggestions.
func (r *Runner) SuggestList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	set, err := r.newConsumer().Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch suggestions: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(set, true)
	}
	return r.writePlain("%s", formatter.SuggestionsToText(set))
}

// SuggestAccept accepts one suggestion by its listed number.
func (r *Runner) SuggestAccept(ctx context.Context, cmd *cli.Command) error {
	indexArg := cmd.StringArg("index")
	index := 1
	if indexArg != "" {
		var err error
		if index, err = strconv.Atoi(indexArg); err != nil || index < 1 {
			return fmt.Errorf("%w: index must be a positive number, got %q", shared.ErrInvalidArgument, indexArg)
		}
	}

	if _, err := r.attach(ctx, cmd); err != nil {
		return err
	}

	consumer := r.newConsumer()
	set, err := consumer.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch suggestions: %w", err)
	}
	if set == nil || index > len(set.Suggestions) {
		return fmt.Errorf("%w: no suggestion %d", shared.ErrInvalidArgument, index)
	}

	sug := &set.Suggestions[index-1]
	if err := consumer.Dispatch(ctx, sug); err != nil {
		return fmt.Errorf("failed to dispatch suggestion: %w", err)
	}

	r.logger.Info("suggestion accepted", "type", sug.Type, "label", sug.Label)
	return r.writePlain("✓ %s\n", sug.Label)
}

// Assist asks the stateless assist endpoint for help with the current step.
func (r *Runner) Assist(ctx context.Context, cmd *cli.Command) error {
	intent := cmd.String("intent")
	switch intent {
	case "substitute", "nutrition", "fix":
	default:
		return fmt.Errorf("%w: intent must be substitute, nutrition, or fix", shared.ErrInvalidFlag)
	}

	recipeID := cmd.String("recipe")
	stepIndex := cmd.Int("step")
	if snap, err := r.attach(ctx, cmd); err == nil {
		recipeID = snap.RecipeID
		if stepIndex < 0 {
			stepIndex = snap.ClampedStepIndex()
		}
	} else if recipeID == "" {
		return err
	}
	if stepIndex < 0 {
		stepIndex = 0
	}

	resp, err := r.client.Assist(ctx, api.AssistRequest{
		RecipeID:  recipeID,
		StepIndex: stepIndex,
		Intent:    intent,
	})
	if err != nil {
		return fmt.Errorf("assist request failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, true)
	}

	r.writePlainHeader(resp.Title)
	for _, bullet := range resp.Bullets {
		r.writePlain("- %s\n", bullet)
	}
	return nil
}
