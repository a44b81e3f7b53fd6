package handlers

import (
	"net/http"

	"slidecast/internal/httpkit"
)

// MusicLibrary lists the audio tracks available for generation
// requests.
func (h *Handler) MusicLibrary(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.music.List()
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"music_files": tracks,
		"count":       len(tracks),
	})
}
