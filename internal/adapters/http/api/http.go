// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/stackpitch/venturerank/internal/app"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/internal/domain/types"
)

// Query mirrors the leaderboard page selector accepted by the service.
type Query = service.Query

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Leaderboard returns a ranked, scored page of products.
	Leaderboard(ctx context.Context, id types.Identity, q Query) (types.LeaderboardPage, error)

	// Vote write and read paths.
	CastVote(ctx context.Context, id types.Identity, productID int64, rating int) error
	Vote(ctx context.Context, id types.Identity, productID int64) (model.Vote, error)

	// Founder self-reporting write paths.
	ReportTraction(ctx context.Context, id types.Identity, wt model.WeeklyTraction) error
	ReportMetric(ctx context.Context, id types.Identity, snap model.MetricSnapshot) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	auth               *Authenticator
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	votesHandler       *VotesHandler
	reportsHandler     *ReportsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, auth *Authenticator) *Server {
	return &Server{
		auth:               auth,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps),
		votesHandler:       NewVotesHandler(deps),
		reportsHandler:     NewReportsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard/top", MetricsMiddleware(s.auth.Optional(s.leaderboardHandler.HandleGetLeaderboard), "leaderboard"))
	mux.HandleFunc("/products/", MetricsMiddleware(s.auth.Required(s.votesHandler.HandleVote), "vote"))
	mux.HandleFunc("/traction", MetricsMiddleware(s.auth.Required(s.reportsHandler.HandleTraction), "traction"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.auth.Required(s.reportsHandler.HandleMetric), "metric"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// rateLimitResponse mirrors the 429 body expected by the voting UI.
type rateLimitResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
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
