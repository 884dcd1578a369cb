package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
	"github.com/studydesk/api/internal/recurrence"
)

// Expander processes recurrence expansion jobs: it rebuilds an anchor's
// materialized instance rows from its current rule. Deterministic instance
// ids make a re-run of the same job a no-op at the data level, so the job is
// safe to retry and safe to deliver more than once.
type Expander struct {
	eventRepo    database.EventRepositoryInterface
	instanceRepo database.InstanceRepositoryInterface
	horizon      time.Duration
	logger       *zap.Logger
}

// NewExpander creates a new expansion worker. horizon bounds how far past now
// instances are materialized.
func NewExpander(
	eventRepo database.EventRepositoryInterface,
	instanceRepo database.InstanceRepositoryInterface,
	horizon time.Duration,
	logger *zap.Logger,
) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		eventRepo:    eventRepo,
		instanceRepo: instanceRepo,
		horizon:      horizon,
		logger:       logger,
	}
}

// ProcessExpansionJob rebuilds the instance rows for one anchor.
func (e *Expander) ProcessExpansionJob(ctx context.Context, job *queue.Job) error {
	if job.AnchorID == nil {
		return fmt.Errorf("anchor_id is required for expansion job")
	}

	anchor, err := e.eventRepo.GetByID(ctx, *job.AnchorID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			// Anchor deleted between enqueue and processing: clear any rows
			// it left behind and finish.
			if delErr := e.instanceRepo.DeleteByAnchor(ctx, *job.AnchorID); delErr != nil {
				return fmt.Errorf("failed to clear orphaned instances: %w", delErr)
			}
			e.logger.Info("expansion_anchor_gone",
				zap.String("anchor_id", job.AnchorID.String()),
			)
			return nil
		}
		return fmt.Errorf("failed to get anchor: %w", err)
	}

	if anchor.UserID != job.UserID {
		return fmt.Errorf("anchor does not belong to user")
	}

	instances := e.expand(anchor)
	if err := e.instanceRepo.ReplaceForAnchor(ctx, anchor.ID, instances); err != nil {
		return fmt.Errorf("failed to replace instances: %w", err)
	}

	e.logger.Info("expansion_completed",
		zap.String("anchor_id", anchor.ID.String()),
		zap.Int("instance_count", len(instances)),
	)
	return nil
}

func (e *Expander) expand(anchor *models.ScheduleEvent) []models.EventInstance {
	if anchor.Recurrence == nil || anchor.Recurrence.IsZero() {
		return []models.EventInstance{recurrence.PrimaryInstance(anchor)}
	}

	window := recurrence.Window{
		Start: anchor.StartTime,
		End:   time.Now().Add(e.horizon),
	}
	res := recurrence.Expand(anchor, *anchor.Recurrence, window)
	if res.Truncated {
		e.logger.Warn("expansion_truncated",
			zap.String("anchor_id", anchor.ID.String()),
			zap.Int("cap", recurrence.MaxOccurrences),
		)
	}

	// The primary row carries the rule in the embedded-marker form so legacy
	// consumers reading instance rows alone can still recover the pattern.
	for i := range res.Instances {
		if !res.Instances[i].Primary {
			continue
		}
		if marked, err := recurrence.EncodeMarker(anchor.Description, *anchor.Recurrence); err == nil {
			res.Instances[i].Description = marked
		}
	}
	return res.Instances
}

// ProcessJob dispatches a queue message to the matching processor.
func (e *Expander) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if !job.ShouldProcess() {
		// Not ready yet; put it back.
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("failed_to_requeue_early_job", zap.Error(nackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeRecurrenceExpansion:
		if err := e.ProcessExpansionJob(ctx, job); err != nil {
			return e.handleJobError(msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			e.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries transient failures and dead-letters the rest.
func (e *Expander) handleJobError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		e.logger.Warn("expansion_job_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			e.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	e.logger.Error("expansion_job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Int("retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		e.logger.Warn("failed_to_nack_job_to_dlq", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
