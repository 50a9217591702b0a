package httpserver

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/blobtier-go/internal/core/domain"
	"github.com/yndnr/blobtier-go/internal/telemetry/logger"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
	"github.com/yndnr/blobtier-go/pkg/cmap"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains multiple middlewares together. The first middleware is the
// outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Now(), entropy)
	if err != nil {
		return "req-unknown"
	}
	return "req-" + strings.ToLower(id.String())
}

// RequestID adds a unique request ID to each request. A client supplied
// X-Request-ID is kept.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" || len(requestID) > 128 {
				requestID = newRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = logger.WithClient(ctx, getClientIP(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recover recovers from panics and returns 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.ErrorContext(r.Context(), "panic recovered",
						"error", fmt.Sprint(rec),
						"route", r.Pattern,
					)
					writeError(w, r, domain.ErrInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Audit logs one line per request. Cache keys are logged through
// logger.KeyAttr so they follow the redaction setting.
func Audit(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			attrs := []any{
				"method", r.Method,
				"route", r.Pattern,
				"status", wrapped.statusCode,
				"bytes", wrapped.written,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if key := r.PathValue("key"); key != "" {
				attrs = append(attrs, logger.KeyAttr(key))
			}
			if c := wrapped.Header().Get("X-Cache"); c != "" {
				attrs = append(attrs, "cache", c)
			}

			switch {
			case wrapped.statusCode >= 500:
				log.ErrorContext(r.Context(), "request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.WarnContext(r.Context(), "request completed with client error", attrs...)
			default:
				log.InfoContext(r.Context(), "request completed", attrs...)
			}
		})
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(reg *metric.Registry) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			reg.RecordRequest(route, strconv.Itoa(wrapped.statusCode))
			reg.ObserveRequestDuration(route, time.Since(start).Seconds())
		})
	}
}

// AdminToken guards admin routes. Requests must carry
// "Authorization: Bearer <token>". With an empty token the admin routes
// only accept connections from a loopback address.
func AdminToken(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				if !isLoopback(r.RemoteAddr) {
					writeError(w, r, domain.ErrForbidden.WithDetails("admin api is limited to loopback without a token"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="blobtier-admin"`)
				writeError(w, r, domain.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Rate limiting
// ============================================================================

// DefaultLimiterIdle is how long a client's limiter survives without
// requests before Sweep drops it.
const DefaultLimiterIdle = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cmap.Map[string, *visitor]
	now     func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second per
// client, with bursts up to burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		clients: cmap.New[string, *visitor](),
		now:     time.Now,
	}
}

// Allow reports whether client may make a request now.
func (l *RateLimiter) Allow(client string) bool {
	now := l.now()
	v := l.clients.Compute(client, func(v *visitor, exists bool) (*visitor, bool) {
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		}
		v.lastSeen.Store(now.UnixNano())
		return v, true
	})
	return v.limiter.AllowN(now, 1)
}

// Clients returns the number of tracked clients.
func (l *RateLimiter) Clients() int {
	return l.clients.Count()
}

// Sweep drops limiters idle for longer than idle and returns how many
// were dropped.
func (l *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle).UnixNano()
	var stale []string
	l.clients.Range(func(client string, v *visitor) bool {
		if v.lastSeen.Load() < cutoff {
			stale = append(stale, client)
		}
		return true
	})

	dropped := 0
	for _, client := range stale {
		l.clients.Compute(client, func(v *visitor, exists bool) (*visitor, bool) {
			if exists && v.lastSeen.Load() < cutoff {
				dropped++
				return nil, false
			}
			return v, exists
		})
	}
	return dropped
}

// Run sweeps idle limiters every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(idle)
		}
	}
}

// Middleware returns the rate limiting middleware.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(getClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// Helpers
// ============================================================================

// responseWriter wraps http.ResponseWriter to capture status code and size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// writeError writes a middleware rejection in the API envelope.
func writeError(w http.ResponseWriter, r *http.Request, err *domain.DomainError) {
	status := http.StatusInternalServerError
	switch {
	case strings.HasSuffix(err.Code, "-4010"):
		status = http.StatusUnauthorized
	case strings.HasSuffix(err.Code, "-4030"):
		status = http.StatusForbidden
	case strings.HasSuffix(err.Code, "-4290"):
		status = http.StatusTooManyRequests
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", err.Code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":       err.Code,
		"message":    err.Error(),
		"request_id": logger.RequestIDFromContext(r.Context()),
		"timestamp":  time.Now().UnixMilli(),
	})
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// net.SplitHostPort handles IPv6 addresses like [::1]:8080.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isLoopback checks the connection address only; forwarding headers are
// client controlled.
func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
