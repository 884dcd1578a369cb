package models

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus represents the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentStatusPending   AssignmentStatus = "pending"
	AssignmentStatusSubmitted AssignmentStatus = "submitted"
	AssignmentStatusGraded    AssignmentStatus = "graded"
)

// AssignmentPriority represents the urgency of an assignment
type AssignmentPriority string

const (
	AssignmentPriorityLow    AssignmentPriority = "low"
	AssignmentPriorityMedium AssignmentPriority = "medium"
	AssignmentPriorityHigh   AssignmentPriority = "high"
)

// Assignment represents a graded piece of coursework with a due date
type Assignment struct {
	ID         uuid.UUID          `json:"id"`
	UserID     uuid.UUID          `json:"user_id"`
	Title      string             `json:"title"`
	CourseName string             `json:"course_name,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	DueDate    *time.Time         `json:"due_date,omitempty"`
	Status     AssignmentStatus   `json:"status"`
	Priority   AssignmentPriority `json:"priority"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}
