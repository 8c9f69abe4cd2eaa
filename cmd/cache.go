package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tasteos/cookmode/internal/formatter"
	"github.com/tasteos/cookmode/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheList lists locally cached session snapshots.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	entries, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cached sessions: %w", err)
	}

	if len(entries) == 0 {
		r.writePlain("No cached sessions\n")
		return nil
	}

	r.writePlainHeader("Cached sessions")
	for _, entry := range entries {
		r.writePlain("%-40s %-20s %-10s %s\n",
			entry.SessionID, entry.RecipeID, entry.Status, entry.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// CacheShow prints a cached session snapshot.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("id")
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrMissingArgument)
	}

	if err := r.requireStore(); err != nil {
		return err
	}

	snap, err := r.store.Snapshot(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load cached session: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(snap, true)
	}
	return r.writePlain("%s", formatter.SessionToText(snap, time.Now()))
}

// CacheDelete removes one cached session snapshot.
func (r *Runner) CacheDelete(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("id")
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrMissingArgument)
	}

	if err := r.requireStore(); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete cached session: %w", err)
	}
	return r.writePlain("✓ Cached session %s deleted\n", sessionID)
}

// CacheClear removes all cached snapshots.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	if err := r.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return r.writePlain("✓ Snapshot cache cleared\n")
}
