// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/stackpitch/venturerank/internal/adapters/repository"
	service "github.com/stackpitch/venturerank/internal/app"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/internal/domain/types"
)

// VoteDependencies defines the interface for the vote write and read paths.
type VoteDependencies interface {
	CastVote(ctx context.Context, id types.Identity, productID int64, rating int) error
	Vote(ctx context.Context, id types.Identity, productID int64) (model.Vote, error)
}

// VotesHandler handles vote requests under /products/{id}/vote.
type VotesHandler struct {
	deps VoteDependencies
}

// NewVotesHandler creates a new votes handler.
func NewVotesHandler(deps VoteDependencies) *VotesHandler {
	return &VotesHandler{deps: deps}
}

// voteRequest is the POST /products/{id}/vote body.
type voteRequest struct {
	Rating int `json:"rating"`
}

// voteResponse is the successful POST body.
type voteResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
	Rating  int    `json:"rating"`
}

// currentVote is the GET body; Vote is null when the caller has not voted.
type currentVote struct {
	Vote *voteRequest `json:"vote"`
}

// HandleVote dispatches GET and POST /products/{id}/vote requests.
func (h *VotesHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseVotePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		h.castVote(w, r, id, productID)
	case http.MethodGet:
		h.getVote(w, r, id, productID)
	default:
		http.NotFound(w, r)
	}
}

func (h *VotesHandler) castVote(w http.ResponseWriter, r *http.Request, id types.Identity, productID int64) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	err := h.deps.CastVote(r.Context(), id, productID, req.Rating)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, voteResponse{
			Message: "vote recorded",
			Success: true,
			Rating:  req.Rating,
		})
	case errors.Is(err, service.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "invalid_rating", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
	default:
		var rle *service.RateLimitedError
		if errors.As(err, &rle) {
			w.Header().Set("Retry-After", strconv.Itoa(rle.RetryAfterSeconds()))
			writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
				Error:      "too many votes, slow down",
				RetryAfter: rle.RetryAfterSeconds(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func (h *VotesHandler) getVote(w http.ResponseWriter, r *http.Request, id types.Identity, productID int64) {
	vote, err := h.deps.Vote(r.Context(), id, productID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, currentVote{Vote: &voteRequest{Rating: vote.Rating}})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusOK, currentVote{Vote: nil})
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// parseVotePath extracts the product id from /products/{id}/vote.
func parseVotePath(path string) (int64, bool) {
	rest := strings.TrimPrefix(path, "/products/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "vote" {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
