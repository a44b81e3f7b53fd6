package handlers

import (
	"net/http"

	"slidecast/internal/httpkit"
	"slidecast/internal/uploads"
)

type uploadedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type uploadResponse struct {
	UploadID  string         `json:"upload_id"`
	Files     []uploadedFile `json:"files"`
	Count     int            `json:"files_uploaded"`
	TotalSize int64          `json:"total_size"`
}

// UploadImages accepts a multipart batch under the "images" field and
// stores it as one immutable upload.
func (h *Handler) UploadImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The parse limit leaves headroom over the batch limit so the
	// store can report a precise validation error instead of a
	// truncated read.
	if err := r.ParseMultipartForm(h.cfg.MaxTotalBytes() + (1 << 20)); err != nil {
		httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid multipart body", nil)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "no images provided",
			map[string]any{"field": "images"})
		return
	}

	incoming := make([]uploads.Incoming, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			httpkit.WriteErr(w, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable upload part",
				map[string]any{"file": fh.Filename})
			return
		}
		defer f.Close()
		incoming = append(incoming, uploads.Incoming{
			Name:   fh.Filename,
			Size:   fh.Size,
			Reader: f,
		})
	}

	batch, err := h.uploads.Store(ctx, incoming)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	resp := uploadResponse{
		UploadID:  batch.ID,
		Count:     len(batch.Files),
		TotalSize: batch.TotalSize,
		Files:     make([]uploadedFile, 0, len(batch.Files)),
	}
	for _, f := range batch.Files {
		resp.Files = append(resp.Files, uploadedFile{Name: f.Name, Size: f.Size})
	}

	h.log.FromContext(ctx).Info("upload stored",
		"upload_id", batch.ID,
		"files", len(batch.Files),
		"total_bytes", batch.TotalSize,
	)
	httpkit.WriteJSON(w, http.StatusOK, resp)
}
