package scoring_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	scoring "github.com/stackpitch/venturerank/internal/domain/scoring"
)

func TestCalculatorScore(t *testing.T) {
	Convey("Given a calculator with default weights", t, func() {
		calc := scoring.New()

		Convey("When scoring an empty row", func() {
			result := calc.Score(scoring.Input{})

			Convey("Then every dimension is zero and the grade is D", func() {
				So(result.FinalScore, ShouldEqual, 0)
				So(result.Grade, ShouldEqual, "D")
				So(result.Breakdown.Growth, ShouldEqual, 0)
				So(result.Breakdown.Traction, ShouldEqual, 0)
				So(result.Breakdown.Validation, ShouldEqual, 0)
				So(result.Breakdown.Execution, ShouldEqual, 0)
				So(result.Breakdown.Engagement, ShouldEqual, 0)
			})
		})

		Convey("When weekly traction revenue grows week over week", func() {
			in := scoring.Input{
				HasLatestWeek:     true,
				HasPrevWeek:       true,
				LatestWeekRevenue: 1000,
				PrevWeekRevenue:   500,
				LatestWeekActive:  200,
				PrevWeekActive:    100,
			}
			result := calc.Score(in)

			Convey("Then the WoW rates come from traction, not snapshots", func() {
				So(result.RevenueWoW, ShouldEqual, 100)
				So(result.UserWoW, ShouldEqual, 100)
			})

			Convey("And growth is fully saturated", func() {
				So(result.Breakdown.Growth, ShouldEqual, 100)
			})
		})

		Convey("When only metric snapshots exist", func() {
			in := scoring.Input{
				CurrentUsers: 110,
				Users7dAgo:   100,
			}
			result := calc.Score(in)

			Convey("Then user WoW falls back to the 7-day comparison", func() {
				So(result.UserWoW, ShouldAlmostEqual, 10, 0.0001)
			})
		})

		Convey("When a product has a current value but no baseline", func() {
			result := calc.Score(scoring.Input{CurrentRevenue: 400})

			Convey("Then revenue growth gets the new-entrant rate", func() {
				So(result.RevenueWoW, ShouldEqual, 50)
			})
		})

		Convey("When revenue increases with all else fixed", func() {
			base := scoring.Input{
				HasLatestWeek:    true,
				HasPrevWeek:      true,
				PrevWeekRevenue:  800,
				LatestWeekActive: 100,
				PrevWeekActive:   100,
				VotesCount:       10,
				RatingAverage:    4,
			}
			low := base
			low.LatestWeekRevenue = 1000
			high := base
			high.LatestWeekRevenue = 5000

			Convey("Then the final score never decreases", func() {
				So(calc.Score(high).FinalScore, ShouldBeGreaterThanOrEqualTo, calc.Score(low).FinalScore)
			})
		})

		Convey("When a product has zero votes but a nonzero rating average", func() {
			result := calc.Score(scoring.Input{RatingAverage: 4.5})

			Convey("Then the validation floor holds", func() {
				So(result.Breakdown.Validation, ShouldEqual, 0)
			})
		})

		Convey("When a product has votes", func() {
			result := calc.Score(scoring.Input{VotesCount: 50, RatingAverage: 5})

			Convey("Then validation saturates at the reference count", func() {
				So(result.Breakdown.Validation, ShouldEqual, 100)
			})
		})

		Convey("When goals and reporting discipline are present", func() {
			in := scoring.Input{
				TotalGoals:       4,
				CompletedGoals:   2,
				ActiveGoals:      1,
				RecentGoalChange: true,
				ReportingWeeks:   4,
			}
			result := calc.Score(in)

			Convey("Then execution sums ratio and bonuses", func() {
				// 60*0.5 + 20 + 10 + 10
				So(result.Breakdown.Execution, ShouldEqual, 70)
			})
		})

		Convey("When execution bonuses would exceed 100", func() {
			in := scoring.Input{
				TotalGoals:       1,
				CompletedGoals:   1,
				ActiveGoals:      1,
				RecentGoalChange: true,
				ReportingWeeks:   8,
			}
			result := calc.Score(in)

			Convey("Then execution is capped", func() {
				So(result.Breakdown.Execution, ShouldEqual, 100)
			})
		})

		Convey("When chat engagement exceeds the weekly reference", func() {
			result := calc.Score(scoring.Input{ChatInteractions7d: 200})

			Convey("Then engagement is capped at 100", func() {
				So(result.Breakdown.Engagement, ShouldEqual, 100)
			})
		})

		Convey("When growth rates are negative", func() {
			in := scoring.Input{
				CurrentUsers:   50,
				Users7dAgo:     100,
				CurrentRevenue: 50,
				Revenue7dAgo:   100,
			}
			result := calc.Score(in)

			Convey("Then the growth sub-score clamps at zero", func() {
				So(result.Breakdown.Growth, ShouldEqual, 0)
				So(result.UserWoW, ShouldEqual, -50)
			})
		})
	})
}

func TestGradeBoundaries(t *testing.T) {
	Convey("Given the grade step function", t, func() {
		Convey("Then thresholds are inclusive on the upper side", func() {
			So(scoring.GradeFor(80.0), ShouldEqual, "A+")
			So(scoring.GradeFor(79.9), ShouldEqual, "A")
			So(scoring.GradeFor(70.0), ShouldEqual, "A")
			So(scoring.GradeFor(69.9), ShouldEqual, "B+")
			So(scoring.GradeFor(60.0), ShouldEqual, "B+")
			So(scoring.GradeFor(50.0), ShouldEqual, "B")
			So(scoring.GradeFor(40.0), ShouldEqual, "C+")
			So(scoring.GradeFor(30.0), ShouldEqual, "C")
			So(scoring.GradeFor(29.9), ShouldEqual, "D")
			So(scoring.GradeFor(0), ShouldEqual, "D")
		})
	})
}

func TestCustomWeights(t *testing.T) {
	Convey("Given a calculator weighted entirely on validation", t, func() {
		calc := scoring.New(scoring.WithWeights(scoring.Weights{Validation: 1}))

		Convey("When scoring a fully validated product", func() {
			result := calc.Score(scoring.Input{VotesCount: 50, RatingAverage: 5})

			Convey("Then the composite equals the validation sub-score", func() {
				So(result.FinalScore, ShouldEqual, 100)
				So(result.Grade, ShouldEqual, "A+")
			})
		})
	})

	Convey("Given an all-zero weight override", t, func() {
		calc := scoring.New(scoring.WithWeights(scoring.Weights{}))

		Convey("Then the defaults are retained", func() {
			result := calc.Score(scoring.Input{VotesCount: 50, RatingAverage: 5})
			So(result.FinalScore, ShouldBeGreaterThan, 0)
		})
	})
}

func TestRound1(t *testing.T) {
	Convey("Given display rounding", t, func() {
		So(scoring.Round1(79.94), ShouldEqual, 79.9)
		So(scoring.Round1(79.95), ShouldEqual, 80.0)
		So(scoring.Round1(0), ShouldEqual, 0)
	})
}
