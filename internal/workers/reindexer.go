package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studydesk/api/internal/database"
	"github.com/studydesk/api/internal/highlight"
	"github.com/studydesk/api/internal/models"
	"github.com/studydesk/api/internal/queue"
)

// Reindexer restores a note's highlights from its serialized content and
// pushes the compacted display numbering back into the markup. It runs after
// a note has been idle for the debounce interval, so a burst of edits costs
// one rewrite instead of one per keystroke.
type Reindexer struct {
	noteRepo     database.NoteRepositoryInterface
	activityRepo database.NoteActivityRepositoryInterface
	jobQueue     queue.JobQueue
	engine       *highlight.Engine
	retry        highlight.RetrySchedule
	debounce     time.Duration
	logger       *zap.Logger
}

// NewReindexer creates a new reindex worker. retry bounds the re-fetch loop
// for notes whose content lands a beat after the edit that scheduled the job;
// nil means the default schedule.
func NewReindexer(
	noteRepo database.NoteRepositoryInterface,
	activityRepo database.NoteActivityRepositoryInterface,
	jobQueue queue.JobQueue,
	engine *highlight.Engine,
	retry highlight.RetrySchedule,
	debounce time.Duration,
	logger *zap.Logger,
) *Reindexer {
	if retry == nil {
		retry = highlight.DefaultRetrySchedule()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{
		noteRepo:     noteRepo,
		activityRepo: activityRepo,
		jobQueue:     jobQueue,
		engine:       engine,
		retry:        retry,
		debounce:     debounce,
		logger:       logger,
	}
}

// ScheduleReindexJobs enqueues a reindex job for every note that has been
// idle past the debounce interval. Called periodically by the worker loop.
func (r *Reindexer) ScheduleReindexJobs(ctx context.Context) error {
	noteIDs, err := r.activityRepo.GetNotesNeedingReindex(ctx, r.debounce)
	if err != nil {
		return fmt.Errorf("failed to get notes needing reindex: %w", err)
	}

	scheduled := 0
	for _, noteID := range noteIDs {
		note, err := r.noteRepo.GetByID(ctx, noteID)
		if err != nil {
			r.logger.Warn("reindex_note_load_failed",
				zap.String("note_id", noteID.String()),
				zap.Error(err),
			)
			continue
		}

		job := queue.NewReindexJob(note.UserID, note.ID, nil)
		if err := r.jobQueue.Enqueue(ctx, job); err != nil {
			r.logger.Warn("reindex_enqueue_failed",
				zap.String("note_id", noteID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	if scheduled > 0 {
		r.logger.Info("scheduled_reindex_jobs", zap.Int("note_count", scheduled))
	}
	return nil
}

// ProcessReindexJob restores one note's highlights, rewrites its content with
// the compacted numbering, and prunes sidecar entries whose highlight no
// longer exists in the content.
func (r *Reindexer) ProcessReindexJob(ctx context.Context, job *queue.Job) error {
	if job.NoteID == nil {
		return fmt.Errorf("note_id is required for reindex job")
	}

	note, err := r.noteRepo.GetByID(ctx, *job.NoteID)
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}
	if note.UserID != job.UserID {
		return fmt.Errorf("note does not belong to user")
	}

	// Re-read the note on each attempt: an editor may save the marked-up
	// content a moment after the edit that flipped the pending flag.
	highlights := r.engine.RestoreWithRetry(ctx, r.retry, func(ctx context.Context) (string, []models.HighlightSidecar, error) {
		latest, err := r.noteRepo.GetByID(ctx, note.ID)
		if err != nil {
			return "", nil, err
		}
		note = latest
		return latest.Content, latest.Highlights, nil
	})

	set := highlight.NewSet(r.engine.Categories(), highlights)
	if numbers := set.NumbersByID(); len(numbers) > 0 {
		rewritten := highlight.ApplyNumbers(note.Content, numbers)
		if rewritten != note.Content {
			if err := r.noteRepo.UpdateContent(ctx, note.ID, rewritten); err != nil {
				return fmt.Errorf("failed to rewrite note content: %w", err)
			}
		}
	}

	if pruned, changed := pruneSidecar(note.Highlights, highlights); changed {
		note.Highlights = pruned
		if err := r.noteRepo.Update(ctx, note); err != nil {
			return fmt.Errorf("failed to prune sidecar: %w", err)
		}
	}

	if err := r.activityRepo.ClearPending(ctx, note.ID); err != nil {
		// Pending flag stays set; the next scheduler pass retries.
		r.logger.Warn("reindex_clear_pending_failed",
			zap.String("note_id", note.ID.String()),
			zap.Error(err),
		)
	}

	r.logger.Info("reindex_completed",
		zap.String("note_id", note.ID.String()),
		zap.Int("highlight_count", len(highlights)),
	)
	return nil
}

// pruneSidecar drops sidecar entries whose highlight is gone from the
// restored set.
func pruneSidecar(sidecar []models.HighlightSidecar, restored []models.Highlight) ([]models.HighlightSidecar, bool) {
	live := make(map[string]struct{}, len(restored))
	for _, h := range restored {
		live[h.ID] = struct{}{}
	}

	kept := make([]models.HighlightSidecar, 0, len(sidecar))
	for _, s := range sidecar {
		if _, ok := live[s.ID]; ok {
			kept = append(kept, s)
		}
	}
	return kept, len(kept) != len(sidecar)
}

// ProcessJob dispatches a queue message to the matching processor.
func (r *Reindexer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if !job.ShouldProcess() {
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Warn("failed_to_requeue_early_job", zap.Error(nackErr))
		}
		return nil
	}

	switch job.Type {
	case queue.JobTypeNoteReindex:
		if err := r.ProcessReindexJob(ctx, job); err != nil {
			return r.handleJobError(msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (r *Reindexer) handleJobError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		r.logger.Warn("reindex_job_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			r.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	r.logger.Error("reindex_job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Int("retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		r.logger.Warn("failed_to_nack_job_to_dlq", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
