// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/stork/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	PredictionDependencies
	AdminDependencies
	AuthDependencies
}

// Server wires HTTP routes for the pool API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	predictionsHandler *PredictionsHandler
	adminHandler       *AdminHandler
	authHandler        *AuthHandler

	limiter *RateLimiter
	logger  logger.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

type serverConfig struct {
	rps        float64
	burst      int
	trustProxy bool
	logger     logger.Logger
}

// WithRateLimit sets the per-client budget for the rate limited routes.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		if rps > 0 && burst > 0 {
			c.rps = rps
			c.burst = burst
		}
	}
}

// WithTrustProxy makes the rate limiter key clients on X-Forwarded-For.
// Enable it only when a reverse proxy in front of the server sets the header.
func WithTrustProxy(trust bool) Option {
	return func(c *serverConfig) {
		c.trustProxy = trust
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{rps: defaultRateLimitRPS, burst: defaultRateLimitBurst}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get()
	}
	log := cfg.logger.Named("api")
	limiter := NewRateLimiter(cfg.rps, cfg.burst)
	limiter.trustProxy = cfg.trustProxy

	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		predictionsHandler: NewPredictionsHandler(deps, log),
		adminHandler:       NewAdminHandler(deps, log),
		authHandler:        NewAuthHandler(deps, log),
		limiter:            limiter,
		logger:             log,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, MetricsMiddleware(h, endpoint))
	}
	limited := func(pattern, endpoint string, h http.HandlerFunc) {
		route(pattern, endpoint, s.limiter.Middleware(h, endpoint))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	limited("POST /predictions", "predictions", s.predictionsHandler.HandleSubmit)
	route("GET /predictions", "predictions", s.predictionsHandler.HandleList)
	route("GET /predictions/by-email", "predictions_by_email", s.predictionsHandler.HandleByEmail)

	route("GET /admin/predictions/{id}", "admin_prediction", s.adminHandler.HandleGetPrediction)
	route("PATCH /admin/predictions/{id}", "admin_prediction", s.adminHandler.HandleUpdatePrediction)
	route("DELETE /admin/predictions/{id}", "admin_prediction", s.adminHandler.HandleDeletePrediction)
	route("GET /admin/actual-results", "admin_actual_results", s.adminHandler.HandleGetActualResult)
	route("POST /admin/actual-results", "admin_actual_results", s.adminHandler.HandleSaveActualResult)
	route("GET /admin/winners", "admin_winners", s.adminHandler.HandleWinners)
	route("GET /admin/settings", "admin_settings", s.adminHandler.HandleGetSettings)
	route("POST /admin/settings", "admin_settings", s.adminHandler.HandleUpdateSettings)
	route("POST /admin/check", "admin_check", s.adminHandler.HandleCheck)
	route("POST /admin/clear-all", "admin_clear_all", s.adminHandler.HandleClearAll)

	limited("POST /auth/send-verification", "auth_send_verification", s.authHandler.HandleSendVerification)
	limited("POST /auth/verify-email", "auth_verify_email", s.authHandler.HandleVerifyEmail)
	limited("POST /auth/validate-code", "auth_validate_code", s.authHandler.HandleValidateCode)
	route("POST /auth/logout", "auth_logout", s.authHandler.HandleLogout)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = message(status, err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// respondError classifies err and writes it. Server errors are logged.
func respondError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.Error(err), logger.Int("status", status))
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
