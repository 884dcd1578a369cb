package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NoteActivityRepository tracks per-note edit activity so the reindex worker
// only rewrites notes that have gone quiet. Rapid successive edits keep
// pushing last_edited forward; the note becomes eligible once it has been
// idle for the debounce interval.
type NoteActivityRepository struct {
	db *DB
}

// NewNoteActivityRepository creates a new note activity repository.
func NewNoteActivityRepository(db *DB) *NoteActivityRepository {
	return &NoteActivityRepository{db: db}
}

// TouchNote records an edit and marks the note pending reindex.
func (r *NoteActivityRepository) TouchNote(ctx context.Context, noteID uuid.UUID) error {
	query := `
		INSERT INTO note_activity (note_id, last_edited, reindex_pending, updated_at)
		VALUES ($1, $2, true, $2)
		ON CONFLICT (note_id) DO UPDATE
		SET last_edited = EXCLUDED.last_edited,
		    reindex_pending = true,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, noteID, time.Now()); err != nil {
		return fmt.Errorf("failed to touch note activity: %w", err)
	}
	return nil
}

// GetNotesNeedingReindex returns notes marked pending whose last edit is older
// than idleFor.
func (r *NoteActivityRepository) GetNotesNeedingReindex(ctx context.Context, idleFor time.Duration) ([]uuid.UUID, error) {
	query := `
		SELECT note_id
		FROM note_activity
		WHERE reindex_pending = true
		  AND last_edited < $1
	`

	rows, err := r.db.QueryContext(ctx, query, time.Now().Add(-idleFor))
	if err != nil {
		return nil, fmt.Errorf("failed to query notes needing reindex: %w", err)
	}
	defer rows.Close()

	var noteIDs []uuid.UUID
	for rows.Next() {
		var noteID uuid.UUID
		if err := rows.Scan(&noteID); err != nil {
			return nil, fmt.Errorf("failed to scan note ID: %w", err)
		}
		noteIDs = append(noteIDs, noteID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating note activity: %w", err)
	}

	return noteIDs, nil
}

// ClearPending marks a note's reindex as done. A later edit re-marks it.
func (r *NoteActivityRepository) ClearPending(ctx context.Context, noteID uuid.UUID) error {
	query := `
		UPDATE note_activity
		SET reindex_pending = false, updated_at = $2
		WHERE note_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, noteID, time.Now()); err != nil {
		return fmt.Errorf("failed to clear reindex pending: %w", err)
	}
	return nil
}

// DeleteByNote removes the activity row when its note is deleted.
func (r *NoteActivityRepository) DeleteByNote(ctx context.Context, noteID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM note_activity WHERE note_id = $1`, noteID); err != nil {
		return fmt.Errorf("failed to delete note activity: %w", err)
	}
	return nil
}
