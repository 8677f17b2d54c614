package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stackpitch/venturerank/internal/adapters/http/api"
	"github.com/stackpitch/venturerank/internal/adapters/repository"
	service "github.com/stackpitch/venturerank/internal/app"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/internal/domain/types"
	"github.com/stackpitch/venturerank/pkg/logger"
)

const testSecret = "test-secret"

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeDeps implements api.Dependencies and api.StatsProvider with
// programmable behavior per test.
type fakeDeps struct {
	leaderboardFn func(ctx context.Context, id types.Identity, q api.Query) (types.LeaderboardPage, error)
	castVoteFn    func(ctx context.Context, id types.Identity, productID int64, rating int) error
	voteFn        func(ctx context.Context, id types.Identity, productID int64) (model.Vote, error)
	tractionFn    func(ctx context.Context, id types.Identity, wt model.WeeklyTraction) error
	metricFn      func(ctx context.Context, id types.Identity, snap model.MetricSnapshot) error
}

func (f *fakeDeps) Leaderboard(ctx context.Context, id types.Identity, q api.Query) (types.LeaderboardPage, error) {
	if f.leaderboardFn != nil {
		return f.leaderboardFn(ctx, id, q)
	}
	return types.LeaderboardPage{Leaderboard: []types.ScoredProduct{}, IsAdmin: id.IsAdmin()}, nil
}

func (f *fakeDeps) CastVote(ctx context.Context, id types.Identity, productID int64, rating int) error {
	if f.castVoteFn != nil {
		return f.castVoteFn(ctx, id, productID, rating)
	}
	return nil
}

func (f *fakeDeps) Vote(ctx context.Context, id types.Identity, productID int64) (model.Vote, error) {
	if f.voteFn != nil {
		return f.voteFn(ctx, id, productID)
	}
	return model.Vote{}, repository.ErrNotFound
}

func (f *fakeDeps) ReportTraction(ctx context.Context, id types.Identity, wt model.WeeklyTraction) error {
	if f.tractionFn != nil {
		return f.tractionFn(ctx, id, wt)
	}
	return nil
}

func (f *fakeDeps) ReportMetric(ctx context.Context, id types.Identity, snap model.MetricSnapshot) error {
	if f.metricFn != nil {
		return f.metricFn(ctx, id, snap)
	}
	return nil
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	auth := api.NewAuthenticator(testSecret)
	server := api.NewServer(deps, deps, auth)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func authHeader(t *testing.T, id types.Identity) string {
	t.Helper()
	token, err := api.NewAuthenticator(testSecret).SignToken(id)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)

		Convey("When requesting anonymously", func() {
			var gotID types.Identity
			var gotQuery api.Query
			deps.leaderboardFn = func(_ context.Context, id types.Identity, q api.Query) (types.LeaderboardPage, error) {
				gotID, gotQuery = id, q
				return types.LeaderboardPage{
					Leaderboard: []types.ScoredProduct{{Rank: 1, ID: 7, Title: "alpha", Score: 66.1, Grade: "B+"}},
				}, nil
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/top?category=saas&timeframe=week&limit=10", nil))

			Convey("Then the page is returned with the query applied", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gotID.UserID, ShouldEqual, 0)
				So(gotQuery.Category, ShouldEqual, "saas")
				So(gotQuery.Timeframe, ShouldEqual, "week")
				So(gotQuery.Limit, ShouldEqual, 10)

				var page map[string]json.RawMessage
				So(json.Unmarshal(rec.Body.Bytes(), &page), ShouldBeNil)
				So(page, ShouldContainKey, "leaderboard")
				So(page, ShouldContainKey, "isAdmin")

				var entries []map[string]any
				So(json.Unmarshal(page["leaderboard"], &entries), ShouldBeNil)
				So(entries[0]["leaderboard_score"], ShouldEqual, 66.1)
				So(entries[0]["vc_score"], ShouldEqual, "B+")
				So(entries[0], ShouldContainKey, "score_breakdown")
				So(entries[0], ShouldContainKey, "growth_velocity")
				So(entries[0], ShouldContainKey, "tractionData")
			})
		})

		Convey("When requesting with an admin token", func() {
			var gotID types.Identity
			deps.leaderboardFn = func(_ context.Context, id types.Identity, _ api.Query) (types.LeaderboardPage, error) {
				gotID = id
				return types.LeaderboardPage{IsAdmin: id.IsAdmin()}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/leaderboard/top", nil)
			req.Header.Set("Authorization", authHeader(t, types.Identity{UserID: 9, Role: "admin"}))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the identity reaches the service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gotID.UserID, ShouldEqual, 9)
				So(gotID.IsAdmin(), ShouldBeTrue)
				So(rec.Body.String(), ShouldContainSubstring, `"isAdmin":true`)
			})
		})

		Convey("When the limit is not a positive integer", func() {
			for _, limit := range []string{"abc", "0", "-3"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard/top?limit="+limit, nil))
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestVoteEndpoint(t *testing.T) {
	Convey("Given the vote endpoint", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)
		voter := types.Identity{UserID: 5, Role: "user"}

		Convey("When posting without a token", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products/1/vote", strings.NewReader(`{"rating":4}`)))

			Convey("Then the request is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When posting with a cookie token", func() {
			var gotUser int64
			deps.castVoteFn = func(_ context.Context, id types.Identity, _ int64, _ int) error {
				gotUser = id.UserID
				return nil
			}

			token, err := api.NewAuthenticator(testSecret).SignToken(voter)
			So(err, ShouldBeNil)
			req := httptest.NewRequest(http.MethodPost, "/products/1/vote", strings.NewReader(`{"rating":4}`))
			req.AddCookie(&http.Cookie{Name: "authToken", Value: token})
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the vote is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gotUser, ShouldEqual, 5)
			})
		})

		Convey("When posting a valid vote", func() {
			var gotProduct int64
			var gotRating int
			deps.castVoteFn = func(_ context.Context, _ types.Identity, productID int64, rating int) error {
				gotProduct, gotRating = productID, rating
				return nil
			}

			req := httptest.NewRequest(http.MethodPost, "/products/42/vote", strings.NewReader(`{"rating":5}`))
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the ack mirrors the rating", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(gotProduct, ShouldEqual, 42)
				So(gotRating, ShouldEqual, 5)

				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["success"], ShouldEqual, true)
				So(body["rating"], ShouldEqual, 5)
				So(body["message"], ShouldNotBeEmpty)
			})
		})

		Convey("When the rating is invalid", func() {
			deps.castVoteFn = func(_ context.Context, _ types.Identity, _ int64, _ int) error {
				return service.ErrInvalidRating
			}

			req := httptest.NewRequest(http.MethodPost, "/products/1/vote", strings.NewReader(`{"rating":6}`))
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the product does not exist", func() {
			deps.castVoteFn = func(_ context.Context, _ types.Identity, _ int64, _ int) error {
				return repository.ErrNotFound
			}

			req := httptest.NewRequest(http.MethodPost, "/products/999/vote", strings.NewReader(`{"rating":3}`))
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then 404 is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the voter is inside the cooldown", func() {
			deps.castVoteFn = func(_ context.Context, _ types.Identity, _ int64, _ int) error {
				return &service.RateLimitedError{RetryAfter: 3 * time.Second}
			}

			req := httptest.NewRequest(http.MethodPost, "/products/1/vote", strings.NewReader(`{"rating":4}`))
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then 429 carries the retry hint", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(rec.Header().Get("Retry-After"), ShouldEqual, "3")

				var body map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body["retryAfter"], ShouldEqual, 3)
				So(body["error"], ShouldNotBeEmpty)
			})
		})

		Convey("When reading the current vote", func() {
			deps.voteFn = func(_ context.Context, _ types.Identity, _ int64) (model.Vote, error) {
				return model.Vote{ProductID: 1, UserID: 5, Rating: 4}, nil
			}

			req := httptest.NewRequest(http.MethodGet, "/products/1/vote", nil)
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the vote is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"rating":4`)
			})
		})

		Convey("When the caller has not voted", func() {
			req := httptest.NewRequest(http.MethodGet, "/products/1/vote", nil)
			req.Header.Set("Authorization", authHeader(t, voter))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then vote is null", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"vote":null`)
			})
		})

		Convey("When the path is malformed", func() {
			for _, path := range []string{"/products/abc/vote", "/products/1/rating", "/products/1", "/products/0/vote"} {
				req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"rating":4}`))
				req.Header.Set("Authorization", authHeader(t, voter))
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, req)
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			}
		})

		Convey("When the token is garbage", func() {
			req := httptest.NewRequest(http.MethodPost, "/products/1/vote", strings.NewReader(`{"rating":4}`))
			req.Header.Set("Authorization", "Bearer not-a-token")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the request is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}

func TestReportEndpoints(t *testing.T) {
	Convey("Given the self-report endpoints", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)
		founder := types.Identity{UserID: 8, Role: "user"}

		Convey("When posting traction with a valid token", func() {
			var got model.WeeklyTraction
			deps.tractionFn = func(_ context.Context, _ types.Identity, wt model.WeeklyTraction) error {
				got = wt
				return nil
			}

			body := `{"year":2026,"week_number":35,"revenue_amount":1200,"new_users":30,"active_users":210}`
			req := httptest.NewRequest(http.MethodPost, "/traction", strings.NewReader(body))
			req.Header.Set("Authorization", authHeader(t, founder))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the report is acknowledged", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(got.Year, ShouldEqual, 2026)
				So(got.WeekNumber, ShouldEqual, 35)
				So(got.RevenueAmount, ShouldEqual, 1200)
			})
		})

		Convey("When posting traction without a token", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/traction", strings.NewReader(`{}`)))

			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the traction report is rejected by the service", func() {
			deps.tractionFn = func(_ context.Context, _ types.Identity, _ model.WeeklyTraction) error {
				return service.ErrInvalidReport
			}

			req := httptest.NewRequest(http.MethodPost, "/traction", strings.NewReader(`{"year":2026,"week_number":99}`))
			req.Header.Set("Authorization", authHeader(t, founder))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a metric snapshot", func() {
			var got model.MetricSnapshot
			deps.metricFn = func(_ context.Context, _ types.Identity, snap model.MetricSnapshot) error {
				got = snap
				return nil
			}

			body := `{"metric_name":"users","metric_value":500,"recorded_date":"2026-08-30"}`
			req := httptest.NewRequest(http.MethodPost, "/metrics", strings.NewReader(body))
			req.Header.Set("Authorization", authHeader(t, founder))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the snapshot reaches the service", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(got.MetricName, ShouldEqual, "users")
				So(got.MetricValue, ShouldEqual, 500)
				So(got.RecordedDate.Format("2006-01-02"), ShouldEqual, "2026-08-30")
			})
		})

		Convey("When the metric date is malformed", func() {
			req := httptest.NewRequest(http.MethodPost, "/metrics", strings.NewReader(`{"metric_name":"users","recorded_date":"30/08/2026"}`))
			req.Header.Set("Authorization", authHeader(t, founder))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsEndpoint(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When requesting stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the runtime counters are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When using the wrong method", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHealthEndpoint(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When scraping it", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then the Prometheus exposition is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
