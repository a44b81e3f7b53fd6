package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"slidecast/internal/pkg/errors"
)

// MemoryRegistry is the default in-process registry: a mutex-guarded
// map. Jobs do not survive a restart.
type MemoryRegistry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{jobs: make(map[string]*Job)}
}

func (r *MemoryRegistry) Create(ctx context.Context, req GenerationRequest) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	return copyJob(job), nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	return copyJob(job), nil
}

func (r *MemoryRegistry) Claim(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return false, errors.NotFound("job", id)
	}
	if job.Status != StatusQueued {
		return false, nil
	}

	now := time.Now().UTC()
	job.Status = StatusProcessing
	job.StartedAt = &now
	return true, nil
}

func (r *MemoryRegistry) SetProgress(ctx context.Context, id string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errors.NotFound("job", id)
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Progress = clampProgress(progress)
	return nil
}

func (r *MemoryRegistry) Transition(ctx context.Context, id string, to Status, extra Extra) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	if !CanTransition(job.Status, to) {
		return nil, transitionErr(job.Status, to)
	}

	now := time.Now().UTC()
	job.Status = to
	switch to {
	case StatusProcessing:
		job.StartedAt = &now
	case StatusDone:
		job.OutputPath = extra.OutputPath
		job.Progress = 100
		job.FinishedAt = &now
	case StatusFailed:
		job.ErrorText = extra.ErrorText
		job.FinishedAt = &now
	}

	return copyJob(job), nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return errors.NotFound("job", id)
	}
	if job.Status != StatusQueued {
		return errors.Conflict("only queued jobs can be deleted")
	}
	delete(r.jobs, id)
	return nil
}

func (r *MemoryRegistry) Close() error { return nil }

func copyJob(job *Job) *Job {
	out := *job
	if job.StartedAt != nil {
		t := *job.StartedAt
		out.StartedAt = &t
	}
	if job.FinishedAt != nil {
		t := *job.FinishedAt
		out.FinishedAt = &t
	}
	out.Request.TextOverlays = append([]TextOverlay(nil), job.Request.TextOverlays...)
	return &out
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
