package cache_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stackpitch/venturerank/internal/adapters/cache"
)

func TestMemoryCache(t *testing.T) {
	Convey("Given an in-memory cache with a controllable clock", t, func() {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		c := cache.NewMemoryCache(cache.WithClock(clock))
		ctx := context.Background()

		Convey("When a value is stored", func() {
			So(c.Set(ctx, "k", []byte("v"), 300*time.Second), ShouldBeNil)

			Convey("Then it is served before the TTL elapses", func() {
				val, ok, err := c.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(val), ShouldEqual, "v")
			})

			Convey("And it expires after the TTL", func() {
				now = now.Add(301 * time.Second)
				_, ok, err := c.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 0)
			})

			Convey("And deleting it removes it immediately", func() {
				So(c.Delete(ctx, "k"), ShouldBeNil)
				_, ok, _ := c.Get(ctx, "k")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a missing key is read", func() {
			_, ok, err := c.Get(ctx, "absent")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When the stored slice is mutated by the caller afterwards", func() {
			buf := []byte("abc")
			So(c.Set(ctx, "k", buf, time.Minute), ShouldBeNil)
			buf[0] = 'x'

			Convey("Then the cached copy is unaffected", func() {
				val, _, _ := c.Get(ctx, "k")
				So(string(val), ShouldEqual, "abc")
			})
		})
	})
}

func TestLeaderboardKeys(t *testing.T) {
	Convey("Given the leaderboard key layout", t, func() {
		Convey("Then keys carry category, timeframe, limit and version", func() {
			So(cache.LeaderboardKey("saas", "all", 50), ShouldEqual, "leaderboard:saas:all:50:v1")
		})

		Convey("When invalidating for a concrete category", func() {
			keys := cache.InvalidationKeys("saas", 50)

			Convey("Then both the category and 'all' are covered across timeframes", func() {
				So(len(keys), ShouldEqual, 8)
				So(keys, ShouldContain, "leaderboard:saas:all:50:v1")
				So(keys, ShouldContain, "leaderboard:saas:week:50:v1")
				So(keys, ShouldContain, "leaderboard:all:month:50:v1")
				So(keys, ShouldContain, "leaderboard:all:year:50:v1")
			})
		})

		Convey("When invalidating for the 'all' category", func() {
			keys := cache.InvalidationKeys("all", 50)

			Convey("Then the category list is not duplicated", func() {
				So(len(keys), ShouldEqual, 4)
			})
		})
	})
}
