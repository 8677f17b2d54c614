// Package repository provides the PostgreSQL store behind the leaderboard
// and vote write path.
package repository

import (
	"context"
	"time"

	"github.com/stackpitch/venturerank/internal/domain/model"
)

// Store is the persistence contract consumed by the application service.
type Store interface {
	// ListScoringRows assembles the denormalized scoring row for every
	// active product, optionally filtered by category and a creation
	// lower bound (zero time means no bound).
	ListScoringRows(ctx context.Context, category string, since time.Time) ([]model.ScoringRow, error)

	// GetProduct returns an active product by id, or ErrNotFound.
	GetProduct(ctx context.Context, id int64) (model.Product, error)

	// UpsertVote inserts or overwrites the user's vote and recomputes the
	// product's denormalized aggregates in the same transaction.
	UpsertVote(ctx context.Context, productID, userID int64, rating int) error

	// GetVote returns the user's existing vote, or ErrNotFound.
	GetVote(ctx context.Context, productID, userID int64) (model.Vote, error)

	// AddMetricSnapshot appends one metric time-series point.
	AddMetricSnapshot(ctx context.Context, snap model.MetricSnapshot) error

	// UpsertWeeklyTraction writes a founder's weekly traction report,
	// overwriting any earlier report for the same week.
	UpsertWeeklyTraction(ctx context.Context, wt model.WeeklyTraction) error
}
