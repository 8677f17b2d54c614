// Package types contains common types used across the application.
package types

// Identity is the request-scoped caller identity extracted from a verified
// token. It is passed explicitly through handlers, never stored globally.
type Identity struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == "admin" }

// Breakdown holds the five weighted sub-scores, each in [0,100].
type Breakdown struct {
	Growth     float64 `json:"growth"`
	Traction   float64 `json:"traction"`
	Validation float64 `json:"validation"`
	Execution  float64 `json:"execution"`
	Engagement float64 `json:"engagement"`
}

// GrowthRates echoes raw percentage deltas for UI display.
type GrowthRates struct {
	Users   float64 `json:"users"`
	Revenue float64 `json:"revenue"`
}

// TractionData echoes the raw traction numbers used for scoring.
type TractionData struct {
	UserWoWGrowth    float64 `json:"userWoWGrowth"`
	RevenueWoWGrowth float64 `json:"revenueWoWGrowth"`
	ReportingWeeks   int     `json:"reportingWeeks"`
	AvgActive4w      float64 `json:"avgActive4w"`
	LatestRevenue    float64 `json:"latestRevenue"`
	LatestNewUsers   float64 `json:"latestNewUsers"`
}

// ScoredProduct is a leaderboard row: the raw product fields extended with
// the composite score, grade and per-dimension breakdown.
type ScoredProduct struct {
	Rank           int          `json:"rank"`
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Category       string       `json:"category"`
	CreatorName    string       `json:"creator_name,omitempty"`
	RatingAverage  float64      `json:"rating_average"`
	VotesCount     int          `json:"votes_count"`
	CompletedGoals int          `json:"completed_goals"`
	TotalGoals     int          `json:"total_goals"`
	CurrentUsers   float64      `json:"current_users"`
	Score          float64      `json:"leaderboard_score"`
	Grade          string       `json:"vc_score"`
	GrowthVelocity float64      `json:"growth_velocity"`
	Breakdown      Breakdown    `json:"score_breakdown"`
	GrowthWoW      GrowthRates  `json:"growth_wow"`
	GrowthMoM      GrowthRates  `json:"growth_mom"`
	Traction       TractionData `json:"tractionData"`
}

// LeaderboardPage is the GET /leaderboard/top response body.
type LeaderboardPage struct {
	Leaderboard []ScoredProduct `json:"leaderboard"`
	IsAdmin     bool            `json:"isAdmin"`
}
