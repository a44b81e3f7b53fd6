package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"slidecast/internal/httpkit"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"service": "slidecast",
		"time":    time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("deep") == "true" {
		checks := map[string]string{}
		status := http.StatusOK

		if _, err := os.Stat(h.cfg.WorkspaceDir); err != nil {
			checks["workspace"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["workspace"] = "ok"
		}

		// The memory queue has no liveness to probe; only backends
		// with a Ping are checked.
		if p, ok := h.queue.(interface{ Ping(context.Context) error }); ok {
			if err := p.Ping(r.Context()); err != nil {
				checks["queue"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["queue"] = "ok"
			}
		}

		if status != http.StatusOK {
			resp["status"] = "degraded"
		}
		resp["checks"] = checks
		httpkit.WriteJSON(w, status, resp)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, resp)
}
