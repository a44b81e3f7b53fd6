// Package ffmpeg wraps the ffmpeg command line for the three encode
// steps of a slideshow render: per-image clips, clip concatenation,
// and audio muxing.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"slidecast/internal/pkg/errors"
)

var commandContext = exec.CommandContext

// EncodeSettings are the output encoding parameters for one render.
type EncodeSettings struct {
	Width        int
	Height       int
	FPS          int
	VideoBitrate string // e.g. "1500k"
	AudioBitrate string // e.g. "128k"
	Speed        string // libx264 preset, e.g. "medium"
}

// ClipSpec describes one still-image clip.
type ClipSpec struct {
	ImagePath  string
	OutputPath string
	Duration   float64 // seconds on screen, fades included
	FadeIn     float64 // seconds, 0 disables
	FadeOut    float64 // seconds, 0 disables
	Settings   EncodeSettings
}

// Progress reports encoder position in output seconds.
type Progress func(seconds float64)

// Client defines the encode operations the render pipeline needs.
type Client interface {
	// StillClip encodes a single image into a video clip.
	StillClip(ctx context.Context, spec ClipSpec, progress Progress) error
	// Concat joins the clips listed in a concat demuxer file.
	Concat(ctx context.Context, listPath, outputPath string, progress Progress) error
	// MuxAudio loops the audio track under the video, trimmed to the
	// video duration.
	MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string, duration float64, settings EncodeSettings, progress Progress) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI runs a real ffmpeg binary.
type CLI struct {
	binary string
}

func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) StillClip(ctx context.Context, spec ClipSpec, progress Progress) error {
	if spec.ImagePath == "" || spec.OutputPath == "" {
		return errors.Validation("clip requires image and output paths")
	}
	if spec.Duration <= 0 {
		return errors.Validation("clip duration must be positive")
	}
	return c.run(ctx, stillClipArgs(spec), progress)
}

func (c *CLI) Concat(ctx context.Context, listPath, outputPath string, progress Progress) error {
	if listPath == "" || outputPath == "" {
		return errors.Validation("concat requires list and output paths")
	}
	return c.run(ctx, concatArgs(listPath, outputPath), progress)
}

func (c *CLI) MuxAudio(ctx context.Context, videoPath, audioPath, outputPath string, duration float64, settings EncodeSettings, progress Progress) error {
	if videoPath == "" || audioPath == "" || outputPath == "" {
		return errors.Validation("mux requires video, audio and output paths")
	}
	return c.run(ctx, muxAudioArgs(videoPath, audioPath, outputPath, duration, settings), progress)
}

func stillClipArgs(spec ClipSpec) []string {
	s := spec.Settings
	filters := []string{}
	if spec.FadeIn > 0 {
		filters = append(filters, fmt.Sprintf("fade=t=in:st=0:d=%s", formatSeconds(spec.FadeIn)))
	}
	if spec.FadeOut > 0 {
		start := spec.Duration - spec.FadeOut
		if start < 0 {
			start = 0
		}
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s",
			formatSeconds(start), formatSeconds(spec.FadeOut)))
	}
	filters = append(filters, "format=yuv420p")

	return []string{
		"-y",
		"-loop", "1",
		"-i", spec.ImagePath,
		"-t", formatSeconds(spec.Duration),
		"-vf", strings.Join(filters, ","),
		"-r", strconv.Itoa(s.FPS),
		"-c:v", "libx264",
		"-preset", s.Speed,
		"-b:v", s.VideoBitrate,
		"-an",
		"-progress", "pipe:1",
		"-nostats",
		spec.OutputPath,
	}
}

func concatArgs(listPath, outputPath string) []string {
	// Clips share one encode profile, so the streams are copied.
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
}

func muxAudioArgs(videoPath, audioPath, outputPath string, duration float64, settings EncodeSettings) []string {
	// The audio input loops so short tracks cover long slideshows,
	// then -t trims everything to the video duration.
	return []string{
		"-y",
		"-i", videoPath,
		"-stream_loop", "-1",
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", settings.AudioBitrate,
		"-t", formatSeconds(duration),
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	}
}

func (c *CLI) run(ctx context.Context, args []string, progress Progress) error {
	cmd := commandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "ffmpeg.run", "stdout pipe")
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, "ffmpeg.run", "start ffmpeg")
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if progress == nil {
			continue
		}
		if seconds, ok := parseProgressLine(scanner.Text()); ok {
			progress(seconds)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return errors.WrapWithCode(ctx.Err(), errors.CodeTimeout, "ffmpeg.run", "ffmpeg cancelled")
		}
		return errors.WrapWithCode(err, errors.CodeRender, "ffmpeg.run",
			fmt.Sprintf("ffmpeg failed: %s", tail(stderr.String(), 512)))
	}
	return nil
}

// parseProgressLine reads one key=value line of -progress output and
// extracts the encoder position.
func parseProgressLine(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds in current ffmpeg releases.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return float64(us) / 1e6, true
	default:
		return 0, false
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

var _ Client = (*CLI)(nil)
