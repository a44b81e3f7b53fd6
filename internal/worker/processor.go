// Package worker consumes the render queue and turns queued jobs into
// finished videos.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/music"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/pkg/logger"
	"slidecast/internal/ports"
	"slidecast/internal/render"
	"slidecast/internal/uploads"
)

// Deps wires a processor.
type Deps struct {
	Registry  jobs.Registry
	Uploads   *uploads.Store
	Music     *music.Library
	Artifacts ports.ObjectStore
	Pipeline  *render.Pipeline
	// ScratchDir holds per-job working directories.
	ScratchDir string
	// RenderTimeout bounds one job end to end.
	RenderTimeout time.Duration
	Log           *logger.Logger
}

// Processor renders one job at a time.
type Processor struct {
	deps Deps
	log  *logger.Logger
}

func NewProcessor(deps Deps) *Processor {
	log := deps.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Processor{deps: deps, log: log.WithComponent("processor")}
}

// ProcessJob runs a queued job to a terminal state. A job already
// claimed elsewhere is skipped without error. Render failures are
// recorded on the job, not returned, so the caller keeps consuming.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	log := p.log.WithJobID(jobID)

	job, err := p.deps.Registry.Get(ctx, jobID)
	if err != nil {
		return err
	}

	claimed, err := p.deps.Registry.Claim(ctx, jobID)
	if err != nil {
		return err
	}
	if !claimed {
		log.Info("job already claimed, skipping")
		return nil
	}

	if p.deps.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deps.RenderTimeout)
		defer cancel()
	}

	if err := p.renderJob(ctx, job); err != nil {
		p.fail(jobID, err, log)
		return nil
	}
	return nil
}

func (p *Processor) renderJob(ctx context.Context, job *jobs.Job) error {
	req := job.Request

	batch, err := p.deps.Uploads.Resolve(ctx, req.UploadID)
	if err != nil {
		return err
	}
	for _, ov := range req.TextOverlays {
		if ov.ImageIndex >= len(batch.Files) {
			return errors.Validationf("overlay image_index %d out of range for %d images",
				ov.ImageIndex, len(batch.Files))
		}
	}

	musicPath, err := p.deps.Music.Resolve(req.MusicFile)
	if err != nil {
		return err
	}

	preset, ok := config.PresetFor(req.OutputQuality)
	if !ok {
		return errors.ValidationField("output_quality", "unknown quality preset")
	}

	if err := p.deps.Registry.SetProgress(ctx, job.ID, 10); err != nil {
		return err
	}

	scratch := filepath.Join(p.deps.ScratchDir, job.ID)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return errors.Wrap(err, "worker.render", "cannot create scratch dir")
	}
	defer os.RemoveAll(scratch)

	images, err := p.materialize(ctx, batch, scratch)
	if err != nil {
		return err
	}

	localOut := filepath.Join(scratch, "final.mp4")
	params := render.Params{
		Images:             images,
		Overlays:           req.TextOverlays,
		MusicPath:          musicPath,
		DurationPerImage:   req.DurationPerImage,
		TransitionDuration: req.TransitionDuration,
		Preset:             preset,
		ScratchDir:         scratch,
		OutputPath:         localOut,
		OnProgress: func(pct int) {
			_ = p.deps.Registry.SetProgress(ctx, job.ID, pct)
		},
	}
	if err := p.deps.Pipeline.Render(ctx, params); err != nil {
		return err
	}

	outputKey, err := p.publish(ctx, job.ID, localOut)
	if err != nil {
		return err
	}

	_, err = p.deps.Registry.Transition(ctx, job.ID, jobs.StatusDone, jobs.Extra{OutputPath: outputKey})
	return err
}

// materialize copies the batch images into the scratch directory so
// ffmpeg can read them, regardless of which store holds them.
func (p *Processor) materialize(ctx context.Context, batch *uploads.Batch, scratch string) ([]string, error) {
	paths := make([]string, 0, len(batch.Files))
	for i, f := range batch.Files {
		rc, err := p.deps.Uploads.Open(ctx, f)
		if err != nil {
			return nil, errors.Wrap(err, "worker.materialize",
				fmt.Sprintf("cannot read uploaded image %s", f.Name))
		}

		dst := filepath.Join(scratch, fmt.Sprintf("src_%03d%s", i, filepath.Ext(f.Name)))
		out, err := os.Create(dst)
		if err != nil {
			rc.Close()
			return nil, errors.Wrap(err, "worker.materialize", "cannot create scratch file")
		}
		_, err = io.Copy(out, rc)
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, errors.Wrap(err, "worker.materialize", "cannot copy uploaded image")
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

func (p *Processor) publish(ctx context.Context, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "worker.publish", "cannot open rendered video")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.Wrap(err, "worker.publish", "cannot stat rendered video")
	}

	out, err := p.deps.Artifacts.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   path.Join("outputs", jobID+".mp4"),
		ContentType: "video/mp4",
		Reader:      f,
		Size:        info.Size(),
	})
	if err != nil {
		return "", errors.Wrap(err, "worker.publish", "cannot store rendered video")
	}
	return out.ObjectKey, nil
}

// fail marks the job failed with a terse operator-facing message. A
// transition refusal here means another actor already finalized the
// job, which is only logged.
func (p *Processor) fail(jobID string, cause error, log *logger.Logger) {
	msg := cause.Error()
	var e *errors.Error
	if errors.As(cause, &e) {
		msg = e.Message
	}
	log.WithError(cause).Error("render failed")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.deps.Registry.Transition(ctx, jobID, jobs.StatusFailed, jobs.Extra{ErrorText: msg}); err != nil {
		log.WithError(err).Warn("could not record job failure")
	}
}
