// Package janitor removes expired upload batches and rendered videos
// from the workspace on a schedule.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"slidecast/internal/pkg/logger"
)

// Janitor sweeps the workspace for expired files.
type Janitor struct {
	uploadsDir string
	outputsDir string
	uploadTTL  time.Duration
	outputTTL  time.Duration
	interval   time.Duration
	log        *logger.Logger
}

func New(uploadsDir, outputsDir string, uploadTTL, outputTTL, interval time.Duration, log *logger.Logger) *Janitor {
	if log == nil {
		log = logger.NewDefault()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		uploadsDir: uploadsDir,
		outputsDir: outputsDir,
		uploadTTL:  uploadTTL,
		outputTTL:  outputTTL,
		interval:   interval,
		log:        log.WithComponent("janitor"),
	}
}

// Run sweeps immediately, then on every tick until the context ends.
func (j *Janitor) Run(ctx context.Context) {
	j.Sweep(time.Now())

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			j.Sweep(now)
		}
	}
}

// Sweep removes upload batches and outputs whose age exceeds their
// retention, measured from last modification.
func (j *Janitor) Sweep(now time.Time) {
	removedUploads := j.sweepDir(j.uploadsDir, now.Add(-j.uploadTTL))
	removedOutputs := j.sweepDir(j.outputsDir, now.Add(-j.outputTTL))
	if removedUploads > 0 || removedOutputs > 0 {
		j.log.Info("swept expired files",
			"uploads_removed", removedUploads,
			"outputs_removed", removedOutputs,
		)
	}
}

// sweepDir removes direct children of dir older than the cutoff and
// returns how many were removed. Entries that vanish mid-sweep or
// cannot be removed are skipped.
func (j *Janitor) sweepDir(dir string, cutoff time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.log.WithError(err).Warn("cannot read sweep directory", "dir", dir)
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		target := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(target); err != nil {
			j.log.WithError(err).Warn("cannot remove expired entry", "path", target)
			continue
		}
		removed++
	}
	return removed
}
