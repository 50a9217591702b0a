package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
	"github.com/yndnr/blobtier-go/pkg/imaging"
)

// Cache status values for the X-Cache header of fit responses.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// handlePutBlob handles PUT /v1/blobs/{key}.
func (h *Handler[V]) handlePutBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}
	memoryAlso, err := queryBool(r, "memory", true)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	v, err := h.payload.FromBody(body)
	if errors.Is(err, imaging.ErrTooManyPixels) {
		h.handleServiceError(w, r, domain.ErrTooLarge.WithDetails(err.Error()))
		return
	}
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("unreadable body").WithCause(err))
		return
	}

	if err := h.cache.Set(r.Context(), key, v, memoryAlso); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, &PutBlobResponse{
		Key:    key,
		Size:   len(body),
		Memory: memoryAlso,
	})
}

// handleGetBlob handles GET /v1/blobs/{key}.
func (h *Handler[V]) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}

	v, found, err := h.cache.Get(r.Context(), key)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if !found {
		h.handleServiceError(w, r, domain.ErrNotFound)
		return
	}
	h.writeBlob(w, r, v)
}

// handleDeleteBlob handles DELETE /v1/blobs/{key}.
func (h *Handler[V]) handleDeleteBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}
	if err := h.cache.Remove(r.Context(), key); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCopyBlob handles POST /v1/blobs/{key}/copy.
func (h *Handler[V]) handleCopyBlob(w http.ResponseWriter, r *http.Request) {
	from, ok := h.pathKey(w, r)
	if !ok {
		return
	}
	to := r.URL.Query().Get("to")
	if to == "" {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("query parameter to is required"))
		return
	}
	memoryAlso, err := queryBool(r, "memory", true)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if err := h.cache.Copy(r.Context(), from, to, memoryAlso); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &CopyBlobResponse{
		From:   from,
		To:     to,
		Memory: memoryAlso,
	})
}

// handleFitBlob handles GET /v1/blobs/{key}/fit/{width}/{height}.
func (h *Handler[V]) handleFitBlob(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}

	fit, err := h.parseFit(r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	v, fromCache, err := h.cache.ScaledVariant(r.Context(), key, fit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if fromCache {
		w.Header().Set("X-Cache", CacheHit)
	} else {
		w.Header().Set("X-Cache", CacheMiss)
	}
	h.writeBlob(w, r, v)
}

// handlePurgeVariants handles DELETE /v1/blobs/{key}/variants.
func (h *Handler[V]) handlePurgeVariants(w http.ResponseWriter, r *http.Request) {
	key, ok := h.pathKey(w, r)
	if !ok {
		return
	}

	n, err := h.cache.PurgeVariants(r.Context(), key)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, &PurgeVariantsResponse{
		Key:     key,
		Removed: n,
	})
}

// pathKey returns the {key} path value, writing a 400 when it is empty.
func (h *Handler[V]) pathKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key == "" {
		h.handleServiceError(w, r, domain.ErrInvalidArgument.WithDetails("key is required"))
		return "", false
	}
	return key, true
}

// readBody reads the request body, enforcing the size limit.
func (h *Handler[V]) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.ErrTooLarge.WithDetails(fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		}
		return nil, domain.ErrInvalidArgument.WithDetails("read body").WithCause(err)
	}
	if len(data) == 0 {
		return nil, domain.ErrInvalidArgument.WithDetails("body is empty")
	}
	return data, nil
}

func (h *Handler[V]) parseFit(r *http.Request) (keycodec.Fit, error) {
	width, err := strconv.Atoi(r.PathValue("width"))
	if err != nil {
		return keycodec.Fit{}, domain.ErrInvalidArgument.WithDetails("width must be an integer")
	}
	height, err := strconv.Atoi(r.PathValue("height"))
	if err != nil {
		return keycodec.Fit{}, domain.ErrInvalidArgument.WithDetails("height must be an integer")
	}

	fit := keycodec.Fit{Width: width, Height: height}
	if !fit.Valid() {
		return keycodec.Fit{}, domain.ErrInvalidArgument.WithDetails("width and height must be positive")
	}
	if width > h.maxSide || height > h.maxSide {
		return keycodec.Fit{}, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("width and height must not exceed %d", h.maxSide))
	}
	return fit, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("query parameter %s must be a boolean", name))
	}
	return v, nil
}
