package jobs

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"slidecast/internal/pkg/errors"
)

func testRequest() GenerationRequest {
	return GenerationRequest{
		UploadID:         "batch-1",
		DurationPerImage: 2.0,
		OutputQuality:    "medium",
		TextOverlays: []TextOverlay{
			{Text: "hello", Position: "center", ImageIndex: 0},
		},
	}
}

// registries returns every registry implementation that can run
// without external services.
func registries(t *testing.T) map[string]Registry {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open sqlite registry: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Registry{
		"memory": NewMemoryRegistry(),
		"sqlite": sqlite,
	}
}

func TestCreateStartsQueued(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, err := reg.Create(ctx, testRequest())
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if job.ID == "" {
				t.Error("expected a fresh job ID")
			}
			if job.Status != StatusQueued {
				t.Errorf("expected queued, got %s", job.Status)
			}
			if job.CreatedAt.IsZero() {
				t.Error("expected created_at to be set")
			}

			other, err := reg.Create(ctx, testRequest())
			if err != nil {
				t.Fatalf("second Create failed: %v", err)
			}
			if other.ID == job.ID {
				t.Error("expected unique job IDs")
			}
		})
	}
}

func TestGetRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			created, err := reg.Create(ctx, testRequest())
			if err != nil {
				t.Fatal(err)
			}

			got, err := reg.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Request.UploadID != "batch-1" {
				t.Errorf("expected request round-trip, got %+v", got.Request)
			}
			if len(got.Request.TextOverlays) != 1 || got.Request.TextOverlays[0].Text != "hello" {
				t.Errorf("expected overlays round-trip, got %+v", got.Request.TextOverlays)
			}
		})
	}
}

func TestGetUnknown(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Get(ctx, "nope")
			if !errors.IsNotFound(err) {
				t.Errorf("expected NOT_FOUND, got %v", err)
			}
		})
	}
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())

			claimed, err := reg.Claim(ctx, job.ID)
			if err != nil || !claimed {
				t.Fatalf("expected claim to succeed, claimed=%v err=%v", claimed, err)
			}

			got, _ := reg.Get(ctx, job.ID)
			if got.Status != StatusProcessing {
				t.Fatalf("expected processing after claim, got %s", got.Status)
			}
			if got.StartedAt == nil {
				t.Error("expected started_at after claim")
			}

			if err := reg.SetProgress(ctx, job.ID, 40); err != nil {
				t.Fatalf("SetProgress failed: %v", err)
			}
			got, _ = reg.Get(ctx, job.ID)
			if got.Progress != 40 {
				t.Errorf("expected progress 40, got %d", got.Progress)
			}

			done, err := reg.Transition(ctx, job.ID, StatusDone, Extra{OutputPath: "outputs/x.mp4"})
			if err != nil {
				t.Fatalf("Transition to done failed: %v", err)
			}
			if done.OutputPath != "outputs/x.mp4" {
				t.Errorf("expected output path, got %q", done.OutputPath)
			}
			if done.Progress != 100 {
				t.Errorf("expected progress 100 when done, got %d", done.Progress)
			}
			if done.FinishedAt == nil {
				t.Error("expected finished_at when done")
			}
		})
	}
}

func TestFailedCapturesError(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())
			_, _ = reg.Claim(ctx, job.ID)

			failed, err := reg.Transition(ctx, job.ID, StatusFailed, Extra{ErrorText: "ffmpeg exited 1"})
			if err != nil {
				t.Fatalf("Transition to failed errored: %v", err)
			}
			if failed.ErrorText != "ffmpeg exited 1" {
				t.Errorf("expected error text, got %q", failed.ErrorText)
			}
			if failed.OutputPath != "" {
				t.Error("failed job must not carry an output path")
			}
		})
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())
			_, _ = reg.Claim(ctx, job.ID)
			_, _ = reg.Transition(ctx, job.ID, StatusDone, Extra{OutputPath: "outputs/x.mp4"})

			if _, err := reg.Transition(ctx, job.ID, StatusFailed, Extra{}); !errors.IsInvalidTransition(err) {
				t.Errorf("expected INVALID_TRANSITION out of done, got %v", err)
			}

			if claimed, _ := reg.Claim(ctx, job.ID); claimed {
				t.Error("claim must fail on a terminal job")
			}

			// Progress on a terminal job is a no-op.
			_ = reg.SetProgress(ctx, job.ID, 5)
			got, _ := reg.Get(ctx, job.ID)
			if got.Progress != 100 {
				t.Errorf("expected terminal progress untouched, got %d", got.Progress)
			}
		})
	}
}

func TestSkippingForwardIsRefused(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())

			if _, err := reg.Transition(ctx, job.ID, StatusDone, Extra{}); !errors.IsInvalidTransition(err) {
				t.Errorf("expected INVALID_TRANSITION for queued->done, got %v", err)
			}
		})
	}
}

func TestConcurrentClaim(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())

			const workers = 16
			var wins int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					claimed, err := reg.Claim(ctx, job.ID)
					if err != nil {
						t.Errorf("claim errored: %v", err)
						return
					}
					if claimed {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}

			close(start)
			wg.Wait()

			if wins != 1 {
				t.Errorf("expected exactly one winning claim, got %d", wins)
			}
		})
	}
}

func TestDeleteOnlyQueuedJobs(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(t) {
		t.Run(name, func(t *testing.T) {
			job, _ := reg.Create(ctx, testRequest())
			if err := reg.Delete(ctx, job.ID); err != nil {
				t.Fatalf("Delete queued job failed: %v", err)
			}
			if _, err := reg.Get(ctx, job.ID); !errors.IsNotFound(err) {
				t.Errorf("expected job gone after delete, got %v", err)
			}

			if err := reg.Delete(ctx, "no-such-job"); !errors.IsNotFound(err) {
				t.Errorf("expected NOT_FOUND for unknown job, got %v", err)
			}

			claimed, _ := reg.Create(ctx, testRequest())
			_, _ = reg.Claim(ctx, claimed.ID)
			if err := reg.Delete(ctx, claimed.ID); !errors.IsCode(err, errors.CodeConflict) {
				t.Errorf("expected CONFLICT deleting processing job, got %v", err)
			}
		})
	}
}

func TestCanTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusProcessing, StatusDone, true},
		{StatusProcessing, StatusFailed, true},
		{StatusQueued, StatusDone, false},
		{StatusQueued, StatusFailed, false},
		{StatusDone, StatusProcessing, false},
		{StatusFailed, StatusProcessing, false},
		{StatusDone, StatusFailed, false},
		{StatusProcessing, StatusQueued, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}
