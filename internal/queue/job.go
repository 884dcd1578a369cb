package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeRecurrenceExpansion re-expands one anchor's instance rows
	JobTypeRecurrenceExpansion JobType = "recurrence_expansion"
	// JobTypeNoteReindex restores a note's highlights and rewrites its
	// display numbering
	JobTypeNoteReindex JobType = "note_reindex"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Type       JobType        `json:"type"`
	UserID     uuid.UUID      `json:"user_id"`
	AnchorID   *uuid.UUID     `json:"anchor_id,omitempty"` // Optional, for recurrence expansion jobs
	NoteID     *uuid.UUID     `json:"note_id,omitempty"`   // Optional, for note reindex jobs
	NotBefore  *time.Time     `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time     `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any `json:"metadata,omitempty"`   // Job-specific data
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewExpansionJob creates a recurrence expansion job for an anchor.
func NewExpansionJob(userID, anchorID uuid.UUID) *Job {
	job := newJob(JobTypeRecurrenceExpansion, userID)
	job.AnchorID = &anchorID
	return job
}

// NewReindexJob creates a note reindex job. notBefore debounces bursts of
// edits to the same note; nil means immediate.
func NewReindexJob(userID, noteID uuid.UUID, notBefore *time.Time) *Job {
	job := newJob(JobTypeNoteReindex, userID)
	job.NoteID = &noteID
	job.NotBefore = notBefore
	return job
}

func newJob(jobType JobType, userID uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	// Check NotBefore
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	// Check NotAfter
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
