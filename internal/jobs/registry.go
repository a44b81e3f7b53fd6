package jobs

import (
	"context"

	"slidecast/internal/pkg/errors"
)

// Extra carries the optional fields set alongside a transition.
type Extra struct {
	OutputPath string
	ErrorText  string
}

// Registry tracks jobs. All methods are safe for concurrent use.
type Registry interface {
	// Create stores a new job in the queued state with a fresh ID.
	Create(ctx context.Context, req GenerationRequest) (*Job, error)

	// Get returns a job by ID, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*Job, error)

	// Claim atomically moves a queued job to processing and stamps
	// started_at. It returns false when the job is no longer queued,
	// which is how a losing worker learns to abort without side
	// effects.
	Claim(ctx context.Context, id string) (bool, error)

	// SetProgress updates the progress indicator of a processing job.
	// Progress on a terminal job is ignored.
	SetProgress(ctx context.Context, id string, progress int) error

	// Transition moves a job to a terminal state. It fails with
	// INVALID_TRANSITION if the state machine forbids the move.
	Transition(ctx context.Context, id string, to Status, extra Extra) (*Job, error)

	// Delete removes a queued job that never reached a worker. It is
	// the rollback for an enqueue failure and refuses jobs in any
	// other state.
	Delete(ctx context.Context, id string) error

	Close() error
}

// transitionErr builds the invariant-violation error for a refused move.
func transitionErr(from, to Status) error {
	return errors.InvalidTransition(string(from), string(to))
}
