package queue

import (
	"context"
	"time"
)

// MessageInterface is the acknowledgement surface handed to job processors.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is what producers and workers see of the broker.
type JobQueue interface {
	// Enqueue publishes a job, honoring its NotBefore/NotAfter window.
	Enqueue(ctx context.Context, job *Job) error

	// Consume streams messages until ctx is cancelled. The caller must ack
	// or nack every message; prefetchCount bounds in-flight messages per
	// consumer.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection.
	Close() error

	// HealthCheck verifies the queue connection is healthy.
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than a retention period.
// The garbage collector depends on this rather than a concrete queue.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
