// Package scoring computes the VC-style composite score that ranks products
// on the leaderboard. The calculator is a pure function: no I/O, and total
// over its input domain. Absent inputs contribute zero and every ratio
// guards its denominator.
package scoring

import "math"

// Default weights of the five sub-scores. They sum to 1.0.
const (
	defaultGrowthWeight     = 0.35
	defaultTractionWeight   = 0.25
	defaultValidationWeight = 0.20
	defaultExecutionWeight  = 0.15
	defaultEngagementWeight = 0.05
)

// Scaling constants.
const (
	maxSubScore = 100.0

	// One percentage point of WoW growth is worth five score points.
	growthPointsPerPercent = 5.0
	// A product with a current value but no baseline gets a fixed
	// new-entrant growth rate instead of an undefined one.
	newEntrantGrowthPercent = 50.0
	userGrowthShare         = 0.40
	revenueGrowthShare      = 0.60

	// Traction uses log scaling so an order of magnitude yields a fixed
	// increment; 100k users or 100k revenue saturate their dimensions.
	tractionLogPoints    = 20.0
	revenuePerUserPoints = 50.0
	tractionUsersShare   = 0.30
	tractionRevenueShare = 0.40
	tractionRPUShare     = 0.20
	tractionNewUserShare = 0.10

	// Validation: 50 votes is a full vote signal; ratings are out of 5.
	fullValidationVotes   = 50.0
	ratingScale           = 5.0
	validationVotesShare  = 0.40
	validationRatingShare = 0.60

	// Execution bonuses.
	completionRatioPoints  = 60.0
	activeGoalBonus        = 20.0
	recentActivityBonus    = 10.0
	consistencyBonus       = 10.0
	consistencyWeeksNeeded = 4

	// Engagement: 20 chat interactions per week saturate the dimension.
	fullEngagementChats = 20.0
)

// Grade thresholds, applied to the unrounded composite score.
const (
	gradeAPlus = 80.0
	gradeA     = 70.0
	gradeBPlus = 60.0
	gradeB     = 50.0
	gradeCPlus = 40.0
	gradeC     = 30.0
)

// Weights configures the relative weight of each sub-score.
type Weights struct {
	Growth     float64
	Traction   float64
	Validation float64
	Execution  float64
	Engagement float64
}

// DefaultWeights returns the standard weight distribution.
func DefaultWeights() Weights {
	return Weights{
		Growth:     defaultGrowthWeight,
		Traction:   defaultTractionWeight,
		Validation: defaultValidationWeight,
		Execution:  defaultExecutionWeight,
		Engagement: defaultEngagementWeight,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Growth + w.Traction + w.Validation + w.Execution + w.Engagement
}

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithWeights sets custom sub-score weights. Weight sets that do not sum to
// a positive value are ignored.
func WithWeights(w Weights) Option {
	return func(c *Calculator) {
		if w.Sum() > 0 {
			c.weights = w
		}
	}
}

// Input is the denormalized per-product row consumed by the calculator.
// Zero values are valid everywhere; Has* flags distinguish "reported zero"
// from "never reported" for the weekly traction baseline.
type Input struct {
	// Vote aggregates.
	VotesCount    int
	RatingAverage float64

	// Metric snapshots.
	CurrentUsers   float64
	CurrentRevenue float64
	Users7dAgo     float64
	Revenue7dAgo   float64
	Users30dAgo    float64
	Revenue30dAgo  float64

	// Weekly traction.
	HasLatestWeek      bool
	LatestWeekRevenue  float64
	LatestWeekNewUsers float64
	LatestWeekActive   float64
	HasPrevWeek        bool
	PrevWeekRevenue    float64
	PrevWeekActive     float64
	ReportingWeeks     int

	// Goals.
	TotalGoals       int
	CompletedGoals   int
	ActiveGoals      int
	RecentGoalChange bool

	// AI chat interactions in the trailing 7 days.
	ChatInteractions7d int
}

// Breakdown holds the five sub-scores, each in [0,100].
type Breakdown struct {
	Growth     float64
	Traction   float64
	Validation float64
	Execution  float64
	Engagement float64
}

// Result is the calculator output for one product.
type Result struct {
	// FinalScore is the unrounded weighted composite. Grade thresholds
	// apply to this value; round only for display.
	FinalScore float64
	Grade      string
	Breakdown  Breakdown

	// Raw growth percentages echoed for UI display.
	UserWoW    float64
	RevenueWoW float64
	UserMoM    float64
	RevenueMoM float64
}

// GrowthVelocity is the average of the user and revenue WoW rates.
func (r Result) GrowthVelocity() float64 {
	return (r.UserWoW + r.RevenueWoW) / 2
}

// Calculator computes composite scores with configurable weights.
type Calculator struct {
	weights Weights
}

// New creates a Calculator with default weights unless overridden.
func New(opts ...Option) *Calculator {
	c := &Calculator{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes the composite score, grade and breakdown for one row.
func (c *Calculator) Score(in Input) Result {
	userWoW, revWoW := growthRates(in)

	b := Breakdown{
		Growth:     growthScore(userWoW, revWoW),
		Traction:   tractionScore(in),
		Validation: validationScore(in),
		Execution:  executionScore(in),
		Engagement: engagementScore(in),
	}

	final := b.Growth*c.weights.Growth +
		b.Traction*c.weights.Traction +
		b.Validation*c.weights.Validation +
		b.Execution*c.weights.Execution +
		b.Engagement*c.weights.Engagement

	return Result{
		FinalScore: final,
		Grade:      GradeFor(final),
		Breakdown:  b,
		UserWoW:    userWoW,
		RevenueWoW: revWoW,
		UserMoM:    pctChange(in.CurrentUsers, in.Users30dAgo),
		RevenueMoM: pctChange(in.CurrentRevenue, in.Revenue30dAgo),
	}
}

// GradeFor maps an unrounded composite score to a letter grade. The
// thresholds are inclusive on the upper side: exactly 80.0 is an A+.
func GradeFor(score float64) string {
	switch {
	case score >= gradeAPlus:
		return "A+"
	case score >= gradeA:
		return "A"
	case score >= gradeBPlus:
		return "B+"
	case score >= gradeB:
		return "B"
	case score >= gradeCPlus:
		return "C+"
	case score >= gradeC:
		return "C"
	default:
		return "D"
	}
}

// Round1 rounds a score to one decimal place for display.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// growthRates picks the WoW growth source: weekly traction when both the
// latest and previous weeks were reported, metric snapshots otherwise.
func growthRates(in Input) (userWoW, revWoW float64) {
	if in.HasLatestWeek && in.HasPrevWeek {
		return pctChange(in.LatestWeekActive, in.PrevWeekActive),
			pctChange(in.LatestWeekRevenue, in.PrevWeekRevenue)
	}
	return pctChange(in.CurrentUsers, in.Users7dAgo),
		pctChange(in.CurrentRevenue, in.Revenue7dAgo)
}

// pctChange returns the percentage delta from prev to cur. With no prior
// baseline a nonzero current value earns the fixed new-entrant rate rather
// than an undefined or infinite one.
func pctChange(cur, prev float64) float64 {
	switch {
	case prev > 0:
		return (cur - prev) / prev * 100
	case cur > 0:
		return newEntrantGrowthPercent
	default:
		return 0
	}
}

func growthScore(userWoW, revWoW float64) float64 {
	userPts := clamp(userWoW * growthPointsPerPercent)
	revPts := clamp(revWoW * growthPointsPerPercent)
	return userPts*userGrowthShare + revPts*revenueGrowthShare
}

func tractionScore(in Input) float64 {
	effUsers := in.CurrentUsers
	if in.HasLatestWeek && in.LatestWeekActive > 0 {
		effUsers = in.LatestWeekActive
	}
	effRevenue := in.CurrentRevenue
	if in.HasLatestWeek && in.LatestWeekRevenue > 0 {
		effRevenue = in.LatestWeekRevenue
	}

	usersPts := clamp(math.Log10(effUsers+1) * tractionLogPoints)
	revenuePts := clamp(math.Log10(effRevenue+1) * tractionLogPoints)

	var rpuPts float64
	if effUsers > 0 {
		rpu := effRevenue / effUsers
		rpuPts = clamp(math.Log10(rpu+1) * revenuePerUserPoints)
	}

	newUserPts := clamp(in.LatestWeekNewUsers)

	return usersPts*tractionUsersShare +
		revenuePts*tractionRevenueShare +
		rpuPts*tractionRPUShare +
		newUserPts*tractionNewUserShare
}

// validationScore is exactly zero with zero votes: no validation signal
// exists without votes, whatever the stored rating average says.
func validationScore(in Input) float64 {
	if in.VotesCount <= 0 {
		return 0
	}
	votePts := clamp(float64(in.VotesCount) / fullValidationVotes * maxSubScore)
	ratingPts := clamp(in.RatingAverage / ratingScale * maxSubScore)
	return votePts*validationVotesShare + ratingPts*validationRatingShare
}

func executionScore(in Input) float64 {
	var pts float64
	if in.TotalGoals > 0 {
		pts = float64(in.CompletedGoals) / float64(in.TotalGoals) * completionRatioPoints
	}
	if in.ActiveGoals > 0 {
		pts += activeGoalBonus
	}
	if in.RecentGoalChange {
		pts += recentActivityBonus
	}
	if in.ReportingWeeks >= consistencyWeeksNeeded {
		pts += consistencyBonus
	}
	return clamp(pts)
}

func engagementScore(in Input) float64 {
	return clamp(float64(in.ChatInteractions7d) / fullEngagementChats * maxSubScore)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(maxSubScore, v))
}
