// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/stackpitch/venturerank/internal/app"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/internal/domain/types"
)

// ReportDependencies defines the interface for founder self-reports.
type ReportDependencies interface {
	ReportTraction(ctx context.Context, id types.Identity, wt model.WeeklyTraction) error
	ReportMetric(ctx context.Context, id types.Identity, snap model.MetricSnapshot) error
}

// ReportsHandler handles traction and metric self-report requests.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

// tractionRequest is the POST /traction body.
type tractionRequest struct {
	Year            int     `json:"year"`
	WeekNumber      int     `json:"week_number"`
	RevenueAmount   float64 `json:"revenue_amount"`
	NewUsers        int     `json:"new_users"`
	ActiveUsers     int     `json:"active_users"`
	ChurnedUsers    int     `json:"churned_users"`
	StrongestSignal string  `json:"strongest_signal"`
}

// metricRequest is the POST /metrics body. RecordedDate defaults to now.
type metricRequest struct {
	MetricName   string  `json:"metric_name"`
	MetricValue  float64 `json:"metric_value"`
	RecordedDate string  `json:"recorded_date"`
}

type reportAck struct {
	Success bool `json:"success"`
}

// HandleTraction handles POST /traction requests.
func (h *ReportsHandler) HandleTraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	var req tractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	err := h.deps.ReportTraction(r.Context(), id, model.WeeklyTraction{
		Year:            req.Year,
		WeekNumber:      req.WeekNumber,
		RevenueAmount:   req.RevenueAmount,
		NewUsers:        req.NewUsers,
		ActiveUsers:     req.ActiveUsers,
		ChurnedUsers:    req.ChurnedUsers,
		StrongestSignal: req.StrongestSignal,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reportAck{Success: true})
	case errors.Is(err, service.ErrInvalidReport):
		writeError(w, http.StatusBadRequest, "invalid_report", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// HandleMetric handles POST /metrics requests.
func (h *ReportsHandler) HandleMetric(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	var req metricRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	snap := model.MetricSnapshot{
		MetricName:  req.MetricName,
		MetricValue: req.MetricValue,
	}
	if req.RecordedDate != "" {
		recorded, err := time.Parse("2006-01-02", req.RecordedDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		snap.RecordedDate = recorded
	}

	err := h.deps.ReportMetric(r.Context(), id, snap)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reportAck{Success: true})
	case errors.Is(err, service.ErrInvalidReport):
		writeError(w, http.StatusBadRequest, "invalid_report", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
