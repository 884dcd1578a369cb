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

// EventRepository handles schedule event (anchor) database operations.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new schedule event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create creates a new schedule event.
func (r *EventRepository) Create(ctx context.Context, event *models.ScheduleEvent) error {
	query := `
		INSERT INTO schedule_events (id, user_id, title, description, location, start_time, end_time, timezone, all_day, recurrence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	recurrenceJSON, err := marshalRecurrence(event.Recurrence)
	if err != nil {
		return err
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		event.ID,
		event.UserID,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.Timezone,
		event.AllDay,
		recurrenceJSON,
		now,
		now,
	).Scan(&event.CreatedAt, &event.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

// GetByID retrieves a schedule event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ScheduleEvent, error) {
	query := `
		SELECT id, user_id, title, description, location, start_time, end_time, timezone, all_day, recurrence, created_at, updated_at
		FROM schedule_events
		WHERE id = $1
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// GetByUserID retrieves all schedule events for a user, newest first.
func (r *EventRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ScheduleEvent, error) {
	query := `
		SELECT id, user_id, title, description, location, start_time, end_time, timezone, all_day, recurrence, created_at, updated_at
		FROM schedule_events
		WHERE user_id = $1
		ORDER BY start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.ScheduleEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// Update updates an existing schedule event.
func (r *EventRepository) Update(ctx context.Context, event *models.ScheduleEvent) error {
	query := `
		UPDATE schedule_events
		SET title = $2, description = $3, location = $4, start_time = $5, end_time = $6, timezone = $7, all_day = $8, recurrence = $9, updated_at = $10
		WHERE id = $1
		RETURNING updated_at
	`

	recurrenceJSON, err := marshalRecurrence(event.Recurrence)
	if err != nil {
		return err
	}

	err = r.db.QueryRowContext(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.Timezone,
		event.AllDay,
		recurrenceJSON,
		time.Now(),
	).Scan(&event.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("event not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	return nil
}

// Delete deletes a schedule event by ID. Instances cascade at the schema
// level.
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schedule_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.ScheduleEvent, error) {
	event := &models.ScheduleEvent{}
	var recurrenceJSON []byte

	err := row.Scan(
		&event.ID,
		&event.UserID,
		&event.Title,
		&event.Description,
		&event.Location,
		&event.StartTime,
		&event.EndTime,
		&event.Timezone,
		&event.AllDay,
		&recurrenceJSON,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(recurrenceJSON) > 0 {
		rule := &models.RecurrenceRule{}
		if err := json.Unmarshal(recurrenceJSON, rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recurrence: %w", err)
		}
		if !rule.IsZero() {
			event.Recurrence = rule
		}
	}

	return event, nil
}

func marshalRecurrence(rule *models.RecurrenceRule) (any, error) {
	if rule == nil {
		return nil, nil
	}
	out, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recurrence: %w", err)
	}
	return out, nil
}
