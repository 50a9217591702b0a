package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/storage/keycodec"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
)

// Cache is the coordinator surface the API serves.
// *storage.Coordinator[V] implements it.
type Cache[V any] interface {
	Namespace() string
	StoragePath() string
	Quality() int
	SetQuality(q int) error

	Set(ctx context.Context, key string, v V, memoryAlso bool) error
	Get(ctx context.Context, key string) (V, bool, error)
	Copy(ctx context.Context, from, to string, memoryAlso bool) error
	Remove(ctx context.Context, key string) error
	ScaledVariant(ctx context.Context, key string, variant keycodec.Variant) (V, bool, error)
	PurgeVariants(ctx context.Context, key string) (int, error)
	ClearMemory()
	Clear(ctx context.Context) error
}

// Config configures a Handler.
type Config[V any] struct {
	Cache   Cache[V]
	Payload Payload[V]

	// MaxBodyBytes caps uploaded blobs. Zero means no limit.
	MaxBodyBytes int64

	// MaxVariantSide caps the width and height of fit requests.
	// Default: 4096
	MaxVariantSide int

	Logger *slog.Logger
}

// DefaultMaxVariantSide bounds fit requests.
const DefaultMaxVariantSide = 4096

// Handler serves the blob and admin API.
type Handler[V any] struct {
	cache   Cache[V]
	payload Payload[V]

	maxBody   int64
	maxSide   int
	startedAt time.Time
	logger    *slog.Logger
}

// New creates a Handler.
func New[V any](cfg Config[V]) *Handler[V] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxVariantSide <= 0 {
		cfg.MaxVariantSide = DefaultMaxVariantSide
	}
	return &Handler[V]{
		cache:     cfg.Cache,
		payload:   cfg.Payload,
		maxBody:   cfg.MaxBodyBytes,
		maxSide:   cfg.MaxVariantSide,
		startedAt: time.Now(),
		logger:    cfg.Logger,
	}
}

// Route is a pattern and the handler serving it.
type Route struct {
	Pattern string
	Handler http.HandlerFunc
	Admin   bool
}

// Routes returns every route of the API. The router wraps each with the
// middleware its group needs.
func (h *Handler[V]) Routes() []Route {
	return []Route{
		{Pattern: "GET /health", Handler: h.handleHealth},

		{Pattern: "PUT /v1/blobs/{key}", Handler: h.handlePutBlob},
		{Pattern: "GET /v1/blobs/{key}", Handler: h.handleGetBlob},
		{Pattern: "DELETE /v1/blobs/{key}", Handler: h.handleDeleteBlob},
		{Pattern: "POST /v1/blobs/{key}/copy", Handler: h.handleCopyBlob},
		{Pattern: "GET /v1/blobs/{key}/fit/{width}/{height}", Handler: h.handleFitBlob},
		{Pattern: "DELETE /v1/blobs/{key}/variants", Handler: h.handlePurgeVariants},

		{Pattern: "GET /admin/v1/status", Handler: h.handleAdminStatus, Admin: true},
		{Pattern: "PUT /admin/v1/quality", Handler: h.handleSetQuality, Admin: true},
		{Pattern: "POST /admin/v1/memory/clear", Handler: h.handleClearMemory, Admin: true},
		{Pattern: "DELETE /admin/v1/blobs", Handler: h.handleClearAll, Admin: true},
	}
}

// ServeHTTP serves every route without middleware. It is used in tests.
func (h *Handler[V]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	for _, rt := range h.Routes() {
		mux.HandleFunc(rt.Pattern, rt.Handler)
	}
	mux.ServeHTTP(w, r)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler[V]) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler[V]) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := logger.RequestIDFromContext(r.Context())
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// writeBlob writes a raw value.
func (h *Handler[V]) writeBlob(w http.ResponseWriter, r *http.Request, v V) {
	body, contentType, err := h.payload.ToBody(v)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrEncode.WithCause(err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

// handleServiceError converts cache errors to HTTP responses.
func (h *Handler[V]) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		if status >= 500 {
			h.logger.ErrorContext(r.Context(), "request failed", "error", err)
		}
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4130"):
		return http.StatusRequestEntityTooLarge
	case strings.HasSuffix(code, "-4220"):
		return http.StatusUnprocessableEntity
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "BT-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
