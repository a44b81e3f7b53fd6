// Package jobs holds the job lifecycle model and the registry that
// tracks it. A job moves queued -> processing -> done|failed and never
// backward; the registry's transition guard is what enforces the
// at-most-one-worker-per-job invariant.
package jobs

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusDone, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the monotonic state machine allows
// moving from one status to another.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusDone || to == StatusFailed
	default:
		return false
	}
}

// Overlay positions accepted in generation requests.
const (
	PositionTop    = "top"
	PositionCenter = "center"
	PositionBottom = "bottom"
	PositionCustom = "custom"
)

// TextOverlay is text rendered onto one source image before assembly.
type TextOverlay struct {
	Text       string `json:"text" validate:"required,max=500"`
	Position   string `json:"position" validate:"omitempty,oneof=top center bottom custom"`
	FontSize   int    `json:"font_size" validate:"omitempty,gt=0,lte=400"`
	Color      string `json:"color" validate:"omitempty"`
	ImageIndex int    `json:"image_index" validate:"gte=0"`
	// X and Y position the text when Position is "custom".
	X int `json:"x,omitempty"`
	Y int `json:"y,omitempty"`
}

// GenerationRequest describes one slideshow to assemble.
type GenerationRequest struct {
	UploadID           string        `json:"upload_id" validate:"required"`
	TextOverlays       []TextOverlay `json:"text_overlays" validate:"dive"`
	MusicFile          string        `json:"music_file,omitempty"`
	DurationPerImage   float64       `json:"duration_per_image" validate:"gt=0"`
	TransitionDuration float64       `json:"transition_duration" validate:"gte=0"`
	OutputQuality      string        `json:"output_quality" validate:"oneof=low medium high"`
}

// Job is one tracked video-generation task.
type Job struct {
	ID       string            `json:"id"`
	Request  GenerationRequest `json:"request"`
	Status   Status            `json:"status"`
	Progress int               `json:"progress"`
	// OutputPath is the artifact object key; set only when done.
	OutputPath string `json:"output_path,omitempty"`
	// ErrorText is the captured failure detail; set only when failed.
	ErrorText  string     `json:"error_text,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
