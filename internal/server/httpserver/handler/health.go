package handler

import (
	"net/http"
	"time"

	"github.com/yndnr/blobtier-go/internal/infra/buildinfo"
)

// handleHealth handles GET /health.
func (h *Handler[V]) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "healthy",
		"namespace": h.cache.Namespace(),
		"version":   buildinfo.Version,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}
