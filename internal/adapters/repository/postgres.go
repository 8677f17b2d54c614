package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stackpitch/venturerank/internal/domain/model"
)

// PostgresStore implements Store on PostgreSQL via sqlx.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore opens and verifies a connection to databaseURL.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection, for tests and tools.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

// scoringRowsQuery assembles one denormalized row per active product. The
// per-product scalar subqueries and LATERAL joins are acceptable at this
// scale; the ORDER BY on raw rating is only a pre-sort hint, the real
// ordering happens in memory on the composite score.
const scoringRowsQuery = `
SELECT
    p.id,
    p.user_id,
    p.title,
    p.category,
    p.created_at,
    p.rating_average,
    p.votes_count,
    u.name AS creator_name,

    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'users'
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS current_users,
    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'revenue'
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS current_revenue,
    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'users'
          AND m.recorded_date <= CURRENT_DATE - 7
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS users_7d_ago,
    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'revenue'
          AND m.recorded_date <= CURRENT_DATE - 7
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS revenue_7d_ago,
    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'users'
          AND m.recorded_date <= CURRENT_DATE - 30
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS users_30d_ago,
    COALESCE((
        SELECT m.metric_value FROM user_metrics m
        WHERE m.user_id = p.user_id AND m.metric_name = 'revenue'
          AND m.recorded_date <= CURRENT_DATE - 30
        ORDER BY m.recorded_date DESC LIMIT 1), 0) AS revenue_30d_ago,

    (lt.revenue_amount IS NOT NULL)            AS has_latest_week,
    COALESCE(lt.revenue_amount, 0)             AS latest_week_revenue,
    COALESCE(lt.new_users, 0)::float8          AS latest_week_new_users,
    COALESCE(lt.active_users, 0)::float8       AS latest_week_active,
    (pt.revenue_amount IS NOT NULL)            AS has_prev_week,
    COALESCE(pt.revenue_amount, 0)             AS prev_week_revenue,
    COALESCE(pt.active_users, 0)::float8       AS prev_week_active,

    COALESCE((
        SELECT COUNT(*) FROM goal_weekly_traction t
        WHERE t.user_id = p.user_id
          AND t.created_at >= now() - INTERVAL '35 days'), 0) AS reporting_weeks,
    COALESCE((
        SELECT AVG(active_users)::float8 FROM (
            SELECT t2.active_users FROM goal_weekly_traction t2
            WHERE t2.user_id = p.user_id
            ORDER BY t2.year DESC, t2.week_number DESC LIMIT 4
        ) recent), 0) AS avg_active_4w,

    COALESCE((
        SELECT COUNT(*) FROM goals g
        WHERE g.user_id = p.user_id), 0) AS total_goals,
    COALESCE((
        SELECT COUNT(*) FROM goals g
        WHERE g.user_id = p.user_id AND g.status = 'completed'), 0) AS completed_goals,
    COALESCE((
        SELECT COUNT(*) FROM goals g
        WHERE g.user_id = p.user_id
          AND g.status IN ('active', 'in_progress')), 0) AS active_goals,
    EXISTS (
        SELECT 1 FROM goals g
        WHERE g.user_id = p.user_id
          AND g.updated_at >= now() - INTERVAL '7 days') AS recent_goal_change,

    COALESCE((
        SELECT COUNT(*) FROM ai_chat_interactions c
        WHERE c.user_id = p.user_id
          AND c.created_at >= now() - INTERVAL '7 days'), 0) AS chat_interactions_7d

FROM products p
JOIN users u ON u.id = p.user_id
LEFT JOIN LATERAL (
    SELECT t.revenue_amount, t.new_users, t.active_users
    FROM goal_weekly_traction t
    WHERE t.user_id = p.user_id
    ORDER BY t.year DESC, t.week_number DESC
    LIMIT 1
) lt ON TRUE
LEFT JOIN LATERAL (
    SELECT t.revenue_amount, t.active_users
    FROM goal_weekly_traction t
    WHERE t.user_id = p.user_id
    ORDER BY t.year DESC, t.week_number DESC
    OFFSET 1 LIMIT 1
) pt ON TRUE
WHERE p.status = 'active'
  AND ($1 = 'all' OR p.category = $1)
  AND ($2::timestamptz IS NULL OR p.created_at >= $2)
ORDER BY p.rating_average DESC, p.votes_count DESC`

// ListScoringRows returns the denormalized rows for scoring.
func (s *PostgresStore) ListScoringRows(ctx context.Context, category string, since time.Time) ([]model.ScoringRow, error) {
	if category == "" {
		category = "all"
	}
	var sinceArg *time.Time
	if !since.IsZero() {
		sinceArg = &since
	}

	var rows []model.ScoringRow
	if err := s.db.SelectContext(ctx, &rows, scoringRowsQuery, category, sinceArg); err != nil {
		return nil, fmt.Errorf("list scoring rows: %w", err)
	}
	return rows, nil
}

// GetProduct returns an active product by id.
func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := s.db.GetContext(ctx, &p, `
		SELECT id, user_id, title, category, status, rating_average, votes_count, created_at
		FROM products
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Product{}, ErrNotFound
		}
		return model.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// UpsertVote writes the vote and recomputes the product aggregates in one
// transaction. The aggregates are derived from the votes table rather than
// adjusted in place, so votes_count always converges to the number of
// distinct voters whatever the interleaving.
//
// The product row is locked before anything else. Under READ COMMITTED a
// blocked UPDATE re-evaluates only the target row after the lock wait, not
// the aggregate subquery, so without the lock two concurrent first votes
// could both recompute against a snapshot missing the other's row. Taking
// the row lock first serializes the recomputes and gives each a snapshot
// that includes every committed vote.
func (s *PostgresStore) UpsertVote(ctx context.Context, productID, userID int64, rating int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		SELECT 1 FROM products WHERE id = $1 FOR UPDATE
	`, productID); err != nil {
		return fmt.Errorf("lock product %d: %w", productID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO product_votes (product_id, user_id, rating, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = now()
	`, productID, userID, rating); err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET
			votes_count    = agg.cnt,
			rating_average = agg.avg
		FROM (
			SELECT COUNT(*) AS cnt, COALESCE(AVG(rating), 0) AS avg
			FROM product_votes
			WHERE product_id = $1
		) agg
		WHERE products.id = $1
	`, productID); err != nil {
		return fmt.Errorf("recompute vote aggregates: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote tx: %w", err)
	}
	return nil
}

// GetVote returns the user's existing vote on a product.
func (s *PostgresStore) GetVote(ctx context.Context, productID, userID int64) (model.Vote, error) {
	var v model.Vote
	err := s.db.GetContext(ctx, &v, `
		SELECT product_id, user_id, rating, updated_at
		FROM product_votes
		WHERE product_id = $1 AND user_id = $2
	`, productID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Vote{}, ErrNotFound
		}
		return model.Vote{}, fmt.Errorf("get vote: %w", err)
	}
	return v, nil
}

// AddMetricSnapshot appends one time-series point. The series is
// append-only; multiple snapshots per day are permitted.
func (s *PostgresStore) AddMetricSnapshot(ctx context.Context, snap model.MetricSnapshot) error {
	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO user_metrics (user_id, metric_name, metric_value, recorded_date)
		VALUES (:user_id, :metric_name, :metric_value, :recorded_date)
	`, snap); err != nil {
		return fmt.Errorf("add metric snapshot: %w", err)
	}
	return nil
}

// UpsertWeeklyTraction writes one weekly self-report.
func (s *PostgresStore) UpsertWeeklyTraction(ctx context.Context, wt model.WeeklyTraction) error {
	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO goal_weekly_traction
			(user_id, year, week_number, revenue_amount, new_users, active_users, churned_users, strongest_signal)
		VALUES
			(:user_id, :year, :week_number, :revenue_amount, :new_users, :active_users, :churned_users, :strongest_signal)
		ON CONFLICT (user_id, year, week_number)
		DO UPDATE SET
			revenue_amount   = EXCLUDED.revenue_amount,
			new_users        = EXCLUDED.new_users,
			active_users     = EXCLUDED.active_users,
			churned_users    = EXCLUDED.churned_users,
			strongest_signal = EXCLUDED.strongest_signal
	`, wt); err != nil {
		return fmt.Errorf("upsert weekly traction: %w", err)
	}
	return nil
}
