package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"slidecast/internal/config"
	"slidecast/internal/jobs"
	"slidecast/internal/pkg/errors"
	"slidecast/internal/render/ffmpeg"
)

// Progress milestones reported while a render advances. The worker
// maps these onto the job record.
const (
	ProgressFrames     = 20
	ProgressClipsStart = 20
	ProgressClipsEnd   = 60
	ProgressConcat     = 70
	ProgressMux        = 80
)

// Params describes one render.
type Params struct {
	// Images are local paths to the batch images, in slide order.
	Images []string
	// Overlays apply per image via their ImageIndex.
	Overlays []jobs.TextOverlay
	// MusicPath is a local audio file, empty for a silent video.
	MusicPath          string
	DurationPerImage   float64
	TransitionDuration float64
	Preset             config.QualityPreset
	// ScratchDir holds intermediate frames and clips. The caller owns
	// cleanup.
	ScratchDir string
	// OutputPath is where the final MP4 is written.
	OutputPath string
	// OnProgress, when set, receives milestone percentages in
	// ascending order.
	OnProgress func(percent int)
}

// Pipeline assembles slideshow videos.
type Pipeline struct {
	frames *FrameRenderer
	enc    ffmpeg.Client
}

func NewPipeline(frames *FrameRenderer, enc ffmpeg.Client) *Pipeline {
	return &Pipeline{frames: frames, enc: enc}
}

// Render runs the full pipeline: frames, per-image clips, concat, and
// optional audio mux. Intermediates land in params.ScratchDir; on
// success the final video is at params.OutputPath.
func (p *Pipeline) Render(ctx context.Context, params Params) error {
	if len(params.Images) == 0 {
		return errors.Validation("no images to render")
	}
	if params.DurationPerImage <= 0 {
		return errors.Validation("duration per image must be positive")
	}

	settings := ffmpeg.EncodeSettings{
		Width:        params.Preset.Width,
		Height:       params.Preset.Height,
		FPS:          params.Preset.FPS,
		VideoBitrate: params.Preset.Bitrate,
		AudioBitrate: params.Preset.AudioBitrate,
		Speed:        params.Preset.Speed,
	}

	frames, err := p.renderFrames(ctx, params)
	if err != nil {
		return err
	}
	params.report(ProgressFrames)

	clips, err := p.encodeClips(ctx, params, frames, settings)
	if err != nil {
		return err
	}

	silent := params.OutputPath
	if params.MusicPath != "" {
		silent = filepath.Join(params.ScratchDir, "silent.mp4")
	}
	if err := p.concat(ctx, params.ScratchDir, clips, silent); err != nil {
		return err
	}
	params.report(ProgressConcat)

	if params.MusicPath == "" {
		return nil
	}

	params.report(ProgressMux)
	total := params.DurationPerImage * float64(len(params.Images))
	if err := p.enc.MuxAudio(ctx, silent, params.MusicPath, params.OutputPath, total, settings, nil); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) renderFrames(ctx context.Context, params Params) ([]string, error) {
	overlaysByImage := make(map[int][]jobs.TextOverlay)
	for _, ov := range params.Overlays {
		overlaysByImage[ov.ImageIndex] = append(overlaysByImage[ov.ImageIndex], ov)
	}

	frames := make([]string, 0, len(params.Images))
	for i, src := range params.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(params.ScratchDir, fmt.Sprintf("frame_%03d.png", i))
		if err := p.frames.RenderFrame(src, dst, params.Preset.Width, params.Preset.Height, overlaysByImage[i]); err != nil {
			return nil, err
		}
		frames = append(frames, dst)
	}
	return frames, nil
}

func (p *Pipeline) encodeClips(ctx context.Context, params Params, frames []string, settings ffmpeg.EncodeSettings) ([]string, error) {
	fade := params.TransitionDuration
	if limit := params.DurationPerImage / 2; fade > limit {
		fade = limit
	}

	span := ProgressClipsEnd - ProgressClipsStart
	clips := make([]string, 0, len(frames))
	for i, frame := range frames {
		spec := ffmpeg.ClipSpec{
			ImagePath:  frame,
			OutputPath: filepath.Join(params.ScratchDir, fmt.Sprintf("clip_%03d.mp4", i)),
			Duration:   params.DurationPerImage,
			FadeIn:     fade,
			FadeOut:    fade,
			Settings:   settings,
		}

		// The encoder position interpolates within this clip's share of
		// the clip-encoding progress band.
		base := ProgressClipsStart + span*i/len(frames)
		next := ProgressClipsStart + span*(i+1)/len(frames)
		onEncode := func(seconds float64) {
			frac := seconds / params.DurationPerImage
			if frac > 1 {
				frac = 1
			}
			params.report(base + int(float64(next-base)*frac))
		}

		if err := p.enc.StillClip(ctx, spec, onEncode); err != nil {
			return nil, err
		}
		clips = append(clips, spec.OutputPath)
		params.report(next)
	}
	return clips, nil
}

func (p *Pipeline) concat(ctx context.Context, scratchDir string, clips []string, outputPath string) error {
	listPath := filepath.Join(scratchDir, "clips.txt")
	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", clip)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return errors.Wrap(err, "render.concat", "cannot write concat list")
	}
	return p.enc.Concat(ctx, listPath, outputPath, nil)
}

func (params Params) report(percent int) {
	if params.OnProgress != nil {
		params.OnProgress(percent)
	}
}
