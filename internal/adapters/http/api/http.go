// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/huddle/internal/adapters/auth"
	service "github.com/okian/huddle/internal/app"
	"github.com/okian/huddle/internal/domain/digest"
	"github.com/okian/huddle/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CoachDigest(ctx context.Context, coachID string) (model.Digest, error)
	PlayerDigest(ctx context.Context, playerID string) (model.Digest, error)
}

// SessionVerifier turns a bearer token into a session.
type SessionVerifier interface {
	Verify(token string) (auth.Session, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	digestHandler *DigestHandler
	verifier      SessionVerifier
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, verifier SessionVerifier) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		digestHandler: NewDigestHandler(deps),
		verifier:      verifier,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc(coachPrefix, MetricsMiddleware(AuthMiddleware(s.verifier, s.digestHandler.HandleCoachDigest), "digest_coach"))
	mux.HandleFunc(playerPrefix, MetricsMiddleware(AuthMiddleware(s.verifier, s.digestHandler.HandlePlayerDigest), "digest_player"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps a digest error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, digest.ErrIdentityMismatch), errors.Is(err, ErrNotYours):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, digest.ErrAuth):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, digest.ErrSubjectRequired):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, digest.ErrRemoteFetch):
		return http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
