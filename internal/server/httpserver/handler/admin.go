package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/infra/buildinfo"
)

// handleAdminStatus handles GET /admin/v1/status.
func (h *Handler[V]) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	info := buildinfo.Get()
	h.writeJSON(w, r, http.StatusOK, &StatusResponse{
		Namespace:   h.cache.Namespace(),
		StoragePath: h.cache.StoragePath(),
		Quality:     h.cache.Quality(),
		Version:     info.Version,
		Commit:      info.Commit,
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// handleSetQuality handles PUT /admin/v1/quality.
func (h *Handler[V]) handleSetQuality(w http.ResponseWriter, r *http.Request) {
	var req SetQualityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("invalid request body"))
		return
	}

	previous := h.cache.Quality()
	if err := h.cache.SetQuality(req.Quality); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &SetQualityResponse{
		Previous: previous,
		Quality:  req.Quality,
	})
}

// handleClearMemory handles POST /admin/v1/memory/clear.
func (h *Handler[V]) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	h.cache.ClearMemory()
	h.logger.InfoContext(r.Context(), "memory tier cleared via admin api")

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"cleared":    "memory",
		"cleared_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleClearAll handles DELETE /admin/v1/blobs.
func (h *Handler[V]) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.WarnContext(r.Context(), "namespace cleared via admin api", "namespace", h.cache.Namespace())

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"cleared":    "all",
		"namespace":  h.cache.Namespace(),
		"cleared_at": time.Now().UTC().Format(time.RFC3339),
	})
}
