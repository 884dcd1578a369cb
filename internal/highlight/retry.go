package highlight

import (
	"context"
	"time"

	"github.com/studydesk/api/internal/models"
)

// ContentFetcher produces the current serialized content and sidecar for a
// note. RestoreWithRetry calls it once per attempt; the fetcher owns whatever
// I/O is behind it.
type ContentFetcher func(ctx context.Context) (string, []models.HighlightSidecar, error)

// RetrySchedule bounds the fetch-and-extract loop. Delay receives the
// 1-based attempt that just failed.
type RetrySchedule interface {
	MaxAttempts() int
	Delay(attempt int) time.Duration
}

// LinearRetry waits attempt*Step between attempts, so later retries back off
// further while the total wait stays small.
type LinearRetry struct {
	Attempts int
	Step     time.Duration
}

func (r LinearRetry) MaxAttempts() int {
	if r.Attempts < 1 {
		return 1
	}
	return r.Attempts
}

func (r LinearRetry) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * r.Step
}

// DefaultRetrySchedule matches the observed settle time of asynchronous
// renderers: three attempts with 100ms, then 200ms between them.
func DefaultRetrySchedule() RetrySchedule {
	return LinearRetry{Attempts: 3, Step: 100 * time.Millisecond}
}
