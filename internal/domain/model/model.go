// Package model contains domain models passed between layers.
package model

import "time"

// Product is the unit being ranked on the leaderboard. The rating_average
// and votes_count columns are denormalized from product_votes and maintained
// by the vote write path.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	Title         string    `db:"title" json:"title"`
	Category      string    `db:"category" json:"category"`
	Status        string    `db:"status" json:"status"`
	RatingAverage float64   `db:"rating_average" json:"rating_average"`
	VotesCount    int       `db:"votes_count" json:"votes_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Vote is a single user's rating of a product. At most one row exists per
// (product, user) pair; re-voting overwrites.
type Vote struct {
	ProductID int64     `db:"product_id" json:"product_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MetricSnapshot is one self-reported point in a user's metric time series.
// The series is append-only; "latest as of date X" is resolved by ordering
// on recorded_date.
type MetricSnapshot struct {
	UserID       int64     `db:"user_id" json:"user_id"`
	MetricName   string    `db:"metric_name" json:"metric_name"`
	MetricValue  float64   `db:"metric_value" json:"metric_value"`
	RecordedDate time.Time `db:"recorded_date" json:"recorded_date"`
}

// Metric names accepted by the scoring pipeline.
const (
	MetricUsers   = "users"
	MetricRevenue = "revenue"
)

// WeeklyTraction is a founder's self-reported weekly traction row. One row
// per user per ISO week.
type WeeklyTraction struct {
	UserID          int64   `db:"user_id" json:"user_id"`
	Year            int     `db:"year" json:"year"`
	WeekNumber      int     `db:"week_number" json:"week_number"`
	RevenueAmount   float64 `db:"revenue_amount" json:"revenue_amount"`
	NewUsers        int     `db:"new_users" json:"new_users"`
	ActiveUsers     int     `db:"active_users" json:"active_users"`
	ChurnedUsers    int     `db:"churned_users" json:"churned_users"`
	StrongestSignal string  `db:"strongest_signal" json:"strongest_signal"`
}

// Goal statuses that count as "active" for the execution sub-score.
const (
	GoalActive     = "active"
	GoalInProgress = "in_progress"
	GoalCompleted  = "completed"
)

// ScoringRow is the denormalized per-product row assembled by the repository
// for the score calculator. Every field defaults to its zero value when the
// underlying data is absent; the calculator is total over this shape.
type ScoringRow struct {
	ProductID     int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	Title         string    `db:"title"`
	Category      string    `db:"category"`
	CreatedAt     time.Time `db:"created_at"`
	RatingAverage float64   `db:"rating_average"`
	VotesCount    int       `db:"votes_count"`
	CreatorName   string    `db:"creator_name"`

	// Metric snapshots: latest values and historical baselines.
	CurrentUsers   float64 `db:"current_users"`
	CurrentRevenue float64 `db:"current_revenue"`
	Users7dAgo     float64 `db:"users_7d_ago"`
	Revenue7dAgo   float64 `db:"revenue_7d_ago"`
	Users30dAgo    float64 `db:"users_30d_ago"`
	Revenue30dAgo  float64 `db:"revenue_30d_ago"`

	// Weekly traction: latest and previous reported weeks.
	HasLatestWeek      bool    `db:"has_latest_week"`
	LatestWeekRevenue  float64 `db:"latest_week_revenue"`
	LatestWeekNewUsers float64 `db:"latest_week_new_users"`
	LatestWeekActive   float64 `db:"latest_week_active"`
	HasPrevWeek        bool    `db:"has_prev_week"`
	PrevWeekRevenue    float64 `db:"prev_week_revenue"`
	PrevWeekActive     float64 `db:"prev_week_active"`
	ReportingWeeks     int     `db:"reporting_weeks"`
	AvgActive4w        float64 `db:"avg_active_4w"`

	// Goals.
	TotalGoals       int  `db:"total_goals"`
	CompletedGoals   int  `db:"completed_goals"`
	ActiveGoals      int  `db:"active_goals"`
	RecentGoalChange bool `db:"recent_goal_change"`

	// AI chat interactions in the trailing 7 days.
	ChatInteractions7d int `db:"chat_interactions_7d"`
}
