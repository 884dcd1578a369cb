package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// InstanceRepository handles expanded event instance database operations.
// Instances are derived rows: the expansion engine regenerates them from the
// anchor, so every write path replaces an anchor's instances wholesale.
type InstanceRepository struct {
	db *DB
}

// NewInstanceRepository creates a new event instance repository.
func NewInstanceRepository(db *DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// ReplaceForAnchor atomically swaps an anchor's instances for a freshly
// expanded set. Deterministic instance ids make the swap idempotent.
func (r *InstanceRepository) ReplaceForAnchor(ctx context.Context, anchorID uuid.UUID, instances []models.EventInstance) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_instances WHERE anchor_id = $1`, anchorID); err != nil {
			return fmt.Errorf("failed to clear instances: %w", err)
		}

		if len(instances) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO event_instances (id, anchor_id, user_id, occurrence_index, title, description, location, start_time, end_time, timezone, all_day, is_primary, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare instance insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, inst := range instances {
			if _, err := stmt.ExecContext(ctx,
				inst.ID,
				inst.AnchorID,
				inst.UserID,
				inst.OccurrenceIndex,
				inst.Title,
				inst.Description,
				inst.Location,
				inst.StartTime,
				inst.EndTime,
				inst.Timezone,
				inst.AllDay,
				inst.Primary,
				now,
			); err != nil {
				return fmt.Errorf("failed to insert instance: %w", err)
			}
		}
		return nil
	})
}

// DeleteByAnchor removes all instances derived from an anchor.
func (r *InstanceRepository) DeleteByAnchor(ctx context.Context, anchorID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM event_instances WHERE anchor_id = $1`, anchorID); err != nil {
		return fmt.Errorf("failed to delete instances: %w", err)
	}
	return nil
}

// ListByUserWindow returns a user's instances whose start time falls inside
// [windowStart, windowEnd], ordered chronologically.
func (r *InstanceRepository) ListByUserWindow(ctx context.Context, userID uuid.UUID, windowStart, windowEnd time.Time) ([]models.EventInstance, error) {
	query := `
		SELECT id, anchor_id, user_id, occurrence_index, title, description, location, start_time, end_time, timezone, all_day, is_primary, created_at
		FROM event_instances
		WHERE user_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC, occurrence_index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var instances []models.EventInstance
	for rows.Next() {
		var inst models.EventInstance
		err := rows.Scan(
			&inst.ID,
			&inst.AnchorID,
			&inst.UserID,
			&inst.OccurrenceIndex,
			&inst.Title,
			&inst.Description,
			&inst.Location,
			&inst.StartTime,
			&inst.EndTime,
			&inst.Timezone,
			&inst.AllDay,
			&inst.Primary,
			&inst.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}
