// Package queue delivers job IDs from the API to render workers.
package queue

import (
	"context"

	"slidecast/internal/pkg/errors"
)

// ErrClosed is returned by Dequeue once the queue has shut down.
var ErrClosed = errors.New(errors.CodeUnavailable, "queue is closed")

// Queue is a FIFO of pending job IDs.
type Queue interface {
	// Enqueue adds a job ID. It fails with a capacity error when the
	// queue is full.
	Enqueue(ctx context.Context, jobID string) error
	// Dequeue blocks until a job ID is available, the context is
	// cancelled, or the queue is closed.
	Dequeue(ctx context.Context) (string, error)
	Close() error
}
