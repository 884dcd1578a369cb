package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studydesk/api/internal/models"
)

// AssignmentRepository handles assignment database operations.
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create creates a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	query := `
		INSERT INTO assignments (id, user_id, title, course_name, notes, due_date, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.UserID,
		a.Title,
		a.CourseName,
		a.Notes,
		nullTime(a.DueDate),
		a.Status,
		a.Priority,
		now,
		now,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return nil
}

// GetByID retrieves an assignment by ID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	query := `
		SELECT id, user_id, title, course_name, notes, due_date, status, priority, created_at, updated_at
		FROM assignments
		WHERE id = $1
	`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetByUserIDPaginated retrieves a page of a user's assignments, optionally
// filtered by status, soonest due date first (undated last). Returns the page
// and the total row count for the filter.
func (r *AssignmentRepository) GetByUserIDPaginated(ctx context.Context, userID uuid.UUID, status *models.AssignmentStatus, page, pageSize int) ([]*models.Assignment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	where := " WHERE user_id = $1"
	args := []any{userID}
	if status != nil {
		where += " AND status = $2"
		args = append(args, string(*status))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM assignments" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
	}

	query := `
		SELECT id, user_id, title, course_name, notes, due_date, status, priority, created_at, updated_at
		FROM assignments` + where + fmt.Sprintf(`
		ORDER BY due_date ASC NULLS LAST, created_at DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, total, nil
}

// Update updates an existing assignment.
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	query := `
		UPDATE assignments
		SET title = $2, course_name = $3, notes = $4, due_date = $5, status = $6, priority = $7, updated_at = $8
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		a.ID,
		a.Title,
		a.CourseName,
		a.Notes,
		nullTime(a.DueDate),
		a.Status,
		a.Priority,
		time.Now(),
	).Scan(&a.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("assignment not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	return nil
}

// Delete deletes an assignment by ID.
func (r *AssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("assignment not found")
	}

	return nil
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	a := &models.Assignment{}
	var dueDate sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Title,
		&a.CourseName,
		&a.Notes,
		&dueDate,
		&a.Status,
		&a.Priority,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid {
		a.DueDate = &dueDate.Time
	}
	return a, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
