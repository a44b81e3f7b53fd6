package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"slidecast/internal/httpkit"
	"slidecast/internal/jobs"
	"slidecast/internal/pkg/errors"
)

type statusResponse struct {
	JobID       string     `json:"job_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Error       string     `json:"error,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// generateRequest is the wire shape of a generation request. The
// optional knobs are pointers so an explicit zero is distinguishable
// from an omitted key and still fails validation.
type generateRequest struct {
	UploadID           string             `json:"upload_id"`
	TextOverlays       []jobs.TextOverlay `json:"text_overlays"`
	MusicFile          string             `json:"music_file"`
	DurationPerImage   *float64           `json:"duration_per_image"`
	TransitionDuration *float64           `json:"transition_duration"`
	OutputQuality      string             `json:"output_quality"`
}

// toGeneration fills omitted knobs with their defaults: 3s per image,
// 0.5s transitions, high quality.
func (g generateRequest) toGeneration() jobs.GenerationRequest {
	req := jobs.GenerationRequest{
		UploadID:           g.UploadID,
		TextOverlays:       g.TextOverlays,
		MusicFile:          g.MusicFile,
		DurationPerImage:   3,
		TransitionDuration: 0.5,
		OutputQuality:      g.OutputQuality,
	}
	if g.DurationPerImage != nil {
		req.DurationPerImage = *g.DurationPerImage
	}
	if g.TransitionDuration != nil {
		req.TransitionDuration = *g.TransitionDuration
	}
	if req.OutputQuality == "" {
		req.OutputQuality = "high"
	}
	return req
}

// GenerateVideo validates a generation request against the referenced
// upload, registers the job, and queues it for rendering.
func (h *Handler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body generateRequest
	if err := httpkit.DecodeJSON(r, &body); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}
	req := body.toGeneration()

	if err := h.validate.Struct(req); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid generation request",
			validationDetails(err))
		return
	}

	// An unknown upload is a bad request, not a missing resource: the
	// upload ID is request input, not the addressed resource.
	batch, err := h.uploads.Resolve(ctx, req.UploadID)
	if err != nil {
		if errors.IsNotFound(err) {
			httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown upload_id",
				map[string]any{"field": "upload_id"})
			return
		}
		httpkit.WriteError(w, err)
		return
	}

	for _, ov := range req.TextOverlays {
		if ov.ImageIndex >= len(batch.Files) {
			httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("overlay image_index %d out of range for %d images", ov.ImageIndex, len(batch.Files)),
				map[string]any{"field": "text_overlays"})
			return
		}
	}

	if req.MusicFile != "" {
		if _, err := h.music.Resolve(req.MusicFile); err != nil {
			httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "unknown music_file",
				map[string]any{"field": "music_file"})
			return
		}
	}

	job, err := h.registry.Create(ctx, req)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	if err := h.queue.Enqueue(ctx, job.ID); err != nil {
		// The job never reached a worker, so it can be rolled back
		// before the caller sees it.
		if delErr := h.registry.Delete(ctx, job.ID); delErr != nil {
			h.log.FromContext(ctx).WithError(delErr).Warn("could not roll back unqueued job",
				"job_id", job.ID)
		}
		httpkit.WriteError(w, err)
		return
	}

	h.log.FromContext(ctx).Info("job queued", "job_id", job.ID, "upload_id", req.UploadID)
	httpkit.WriteJSON(w, http.StatusAccepted, map[string]any{
		"job_id":     job.ID,
		"status":     string(job.Status),
		"status_url": "/api/video/status/" + job.ID,
	})
}

// VideoStatus reports the lifecycle state of a job.
func (h *Handler) VideoStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.registry.Get(r.Context(), jobID)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	resp := statusResponse{
		JobID:      job.ID,
		Status:     string(job.Status),
		Progress:   job.Progress,
		Error:      job.ErrorText,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
	}
	if job.Status == jobs.StatusDone {
		resp.DownloadURL = "/api/video/download/" + job.ID
	}
	httpkit.WriteJSON(w, http.StatusOK, resp)
}

// DownloadVideo streams the finished MP4. Requesting the artifact of
// an unfinished job is a conflict, not a missing resource.
func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	job, err := h.registry.Get(ctx, jobID)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	// A failed job will never produce an artifact; an unfinished one
	// still might, so the caller should retry rather than give up.
	if job.Status == jobs.StatusFailed {
		httpkit.WriteError(w, errors.NotFound("video artifact", jobID))
		return
	}
	if job.Status != jobs.StatusDone {
		httpkit.WriteErr(w, http.StatusConflict, "CONFLICT",
			fmt.Sprintf("video is not ready: job is %s", job.Status),
			map[string]any{"status": string(job.Status)})
		return
	}

	rc, contentType, size, err := h.artifacts.GetObject(ctx, job.OutputPath)
	if err != nil {
		httpkit.WriteError(w, errors.NotFound("video artifact", jobID))
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = "video/mp4"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+jobID+`.mp4"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	_, _ = io.Copy(w, rc)
}

func validationDetails(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return nil
	}
	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return map[string]any{"fields": fields}
}
