// package cache persists session snapshots and adjustment logs to the
// local sqlite database, so a finished or interrupted cook can still be
// inspected offline.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

// Entry is one cached snapshot's listing row.
type Entry struct {
	SessionID string
	RecipeID  string
	Status    session.Status
	UpdatedAt time.Time
	CachedAt  time.Time
}

// Store reads and writes cached snapshots.
//
// The full session document is stored as a JSON payload; the indexed
// columns exist only for listing and lookup. Writes are wholesale upserts
// mirroring how snapshots replace each other in memory.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore creates a snapshot store over an open database.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{db: db, logger: logger}
}

// SaveSnapshot upserts a session snapshot and mirrors its adjustment log.
func (s *Store) SaveSnapshot(ctx context.Context, snap *session.CookSession) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO session_snapshots (session_id, recipe_id, status, payload, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			recipe_id = excluded.recipe_id,
			status = excluded.status,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			cached_at = excluded.cached_at
	`

	_, err = s.db.ExecContext(ctx, query,
		snap.ID,
		snap.RecipeID,
		string(snap.Status),
		string(payload),
		snap.UpdatedAt.UTC(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}

	return s.replaceAdjustments(ctx, snap.ID, snap.AdjustmentsLog)
}

// Snapshot retrieves one cached session document.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (*session.CookSession, error) {
	query := `SELECT payload FROM session_snapshots WHERE session_id = ?`

	var payload string
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap session.CookSession
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// LatestForRecipe retrieves the most recently updated cached session for a
// recipe, active or not.
func (s *Store) LatestForRecipe(ctx context.Context, recipeID string) (*session.CookSession, error) {
	query := `
		SELECT payload FROM session_snapshots
		WHERE recipe_id = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var payload string
	err := s.db.QueryRowContext(ctx, query, recipeID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no cached session for recipe %s", shared.ErrSessionNotFound, recipeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap session.CookSession
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns all cached snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT session_id, recipe_id, status, updated_at, cached_at
		FROM session_snapshots
		ORDER BY updated_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var status string
		if err := rows.Scan(&e.SessionID, &e.RecipeID, &status, &e.UpdatedAt, &e.CachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		e.Status = session.Status(status)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes one cached snapshot and its adjustments.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM adjustments WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete adjustments: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return nil
}

// Clear removes every cached snapshot.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM adjustments`); err != nil {
		return fmt.Errorf("failed to clear adjustments: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_snapshots`); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

// replaceAdjustments rewrites a session's adjustment rows from the
// snapshot's log. The log is authoritative, so rows are replaced rather
// than merged.
func (s *Store) replaceAdjustments(ctx context.Context, sessionID string, adjustments []session.Adjustment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM adjustments WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear adjustments: %w", err)
	}

	query := `
		INSERT INTO adjustments (session_id, note, undone, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	for _, adj := range adjustments {
		if _, err := tx.ExecContext(ctx, query,
			sessionID, adj.Note, adj.Undone, adj.RecordedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert adjustment: %w", err)
		}
	}

	return tx.Commit()
}

// Adjustments returns a session's cached adjustment log in recorded order.
func (s *Store) Adjustments(ctx context.Context, sessionID string) ([]session.Adjustment, error) {
	query := `
		SELECT note, undone, recorded_at
		FROM adjustments
		WHERE session_id = ?
		ORDER BY recorded_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []session.Adjustment
	for rows.Next() {
		var adj session.Adjustment
		if err := rows.Scan(&adj.Note, &adj.Undone, &adj.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment row: %w", err)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, rows.Err()
}
