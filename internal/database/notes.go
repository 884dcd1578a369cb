package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// NoteRepository handles note database operations. Content is stored as
// opaque text; the highlight sidecar is a JSONB column.
type NoteRepository struct {
	db *DB
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create creates a new note.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, highlights, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	highlightsJSON, err := json.Marshal(note.Highlights)
	if err != nil {
		return fmt.Errorf("failed to marshal highlights: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		note.ID,
		note.UserID,
		note.Title,
		note.Content,
		highlightsJSON,
		now,
		now,
	).Scan(&note.CreatedAt, &note.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID.
func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Note, error) {
	query := `
		SELECT id, user_id, title, content, highlights, created_at, updated_at
		FROM notes
		WHERE id = $1
	`

	note, err := scanNote(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// GetByUserID retrieves all notes for a user, most recently updated first.
func (r *NoteRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	query := `
		SELECT id, user_id, title, content, highlights, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// Update updates a note's title, content and sidecar.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET title = $2, content = $3, highlights = $4, updated_at = $5
		WHERE id = $1
		RETURNING updated_at
	`

	highlightsJSON, err := json.Marshal(note.Highlights)
	if err != nil {
		return fmt.Errorf("failed to marshal highlights: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query,
		note.ID,
		note.Title,
		note.Content,
		highlightsJSON,
		time.Now(),
	).Scan(&note.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("note not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	return nil
}

// UpdateContent rewrites only the serialized content, leaving the sidecar and
// updated_at ordering intact for the reindex worker.
func (r *NoteRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notes SET content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return fmt.Errorf("failed to update note content: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("note not found")
	}

	return nil
}

// Delete deletes a note by ID.
func (r *NoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("note not found")
	}

	return nil
}

func scanNote(row rowScanner) (*models.Note, error) {
	note := &models.Note{}
	var highlightsJSON []byte

	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&highlightsJSON,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(highlightsJSON) > 0 {
		if err := json.Unmarshal(highlightsJSON, &note.Highlights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal highlights: %w", err)
		}
	}

	return note, nil
}
