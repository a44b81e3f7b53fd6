package queue

import (
	"context"
	"sync"

	"slidecast/internal/pkg/errors"
)

// Memory is a bounded in-process queue backed by a channel. It is the
// default driver when the API and workers share a process.
type Memory struct {
	ch chan string

	mu     sync.Mutex
	closed bool
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1
	}
	return &Memory{ch: make(chan string, capacity)}
}

func (q *Memory) Enqueue(ctx context.Context, jobID string) error {
	// The lock covers the send so Close cannot slip in between the
	// closed check and the channel write.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}

	// Enqueue never blocks: a full queue is reported to the caller
	// instead of stalling the request.
	select {
	case q.ch <- jobID:
		return nil
	default:
		return errors.Capacity("render queue is full, try again later")
	}
}

func (q *Memory) Dequeue(ctx context.Context) (string, error) {
	select {
	case jobID, ok := <-q.ch:
		if !ok {
			return "", ErrClosed
		}
		return jobID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops delivery. Jobs already buffered are still drained by
// Dequeue before it starts reporting ErrClosed.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
