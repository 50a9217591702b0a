package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/blobtier-go/internal/server/httpserver/handler"
	"github.com/yndnr/blobtier-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Routes are the API routes, usually handler.Handler.Routes().
	Routes []handler.Route

	// Metrics is served at GET /metrics and records request metrics.
	// Optional.
	Metrics *metric.Registry

	// RateLimiter limits blob routes per client IP. Optional.
	RateLimiter *RateLimiter

	// AdminToken is the bearer token for admin routes. Empty limits them
	// to loopback clients.
	AdminToken string

	// Local builds the router of the admin socket: only health and admin
	// routes, without the admin token or rate limit. Access is controlled
	// by the socket's file permissions.
	Local bool

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the HTTP router. Each route gets its own middleware
// chain so that the matched pattern and path values are visible to the
// middleware.
//
// Order: RequestID -> Recover -> Metrics -> Audit -> RateLimit|AdminToken -> Handler
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	base := []Middleware{RequestID(), Recover(cfg.Logger)}
	if cfg.Metrics != nil {
		base = append(base, Metrics(cfg.Metrics))
	}
	if cfg.EnableAudit {
		base = append(base, Audit(cfg.Logger))
	}

	mux := http.NewServeMux()
	for _, rt := range cfg.Routes {
		if cfg.Local && !rt.Admin && rt.Pattern != "GET /health" {
			continue
		}
		chain := append([]Middleware(nil), base...)
		switch {
		case cfg.Local:
		case rt.Admin:
			chain = append(chain, AdminToken(cfg.AdminToken))
		case cfg.RateLimiter != nil && rt.Pattern != "GET /health":
			chain = append(chain, cfg.RateLimiter.Middleware())
		}
		mux.Handle(rt.Pattern, Chain(rt.Handler, chain...))
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), RequestID(), Recover(cfg.Logger)))
	}

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		EnableAudit: true,
		Logger:      slog.Default(),
	}
}
