package worker

import (
	"context"
	"sync"
	"time"

	"slidecast/internal/pkg/logger"
	"slidecast/internal/queue"
)

// Pool runs a fixed number of render workers over one queue.
type Pool struct {
	queue     queue.Queue
	processor *Processor
	size      int
	log       *logger.Logger
}

func NewPool(q queue.Queue, p *Processor, size int, log *logger.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Pool{queue: q, processor: p, size: size, log: log.WithComponent("worker")}
}

// Run blocks until the context ends or the queue closes. Each worker
// pulls job IDs and processes them one at a time, so the pool size is
// the concurrent render limit.
func (p *Pool) Run(ctx context.Context) error {
	p.log.Info("worker pool starting", "workers", p.size)

	var wg sync.WaitGroup
	for i := 0; i < p.size; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.runLoop(ctx, id)
		}(i)
	}
	wg.Wait()

	p.log.Info("worker pool stopped")
	return ctx.Err()
}

func (p *Pool) runLoop(ctx context.Context, id int) {
	log := p.log.With("worker_id", id)
	for {
		jobID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || err == queue.ErrClosed {
				return
			}
			log.WithError(err).Warn("dequeue error, retrying")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)

		jobLog.Info("processing job")
		start := time.Now()
		if err := p.processor.ProcessJob(jobCtx, jobID); err != nil {
			jobLog.WithError(err).Error("job processing error",
				"duration_ms", time.Since(start).Milliseconds())
			continue
		}
		jobLog.Info("job finished", "duration_ms", time.Since(start).Milliseconds())
	}
}
