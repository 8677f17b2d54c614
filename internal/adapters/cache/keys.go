package cache

import "fmt"

// Cache key layout. The trailing version segment lets a deploy with an
// incompatible payload shape roll over without a flush.
const (
	leaderboardKeyPrefix = "leaderboard"
	leaderboardKeyVer    = "v1"
)

// Timeframes that leaderboard responses are cached under.
var timeframes = []string{"week", "month", "year", "all"}

// LeaderboardKey builds the cache key for one leaderboard query.
func LeaderboardKey(category, timeframe string, limit int) string {
	return fmt.Sprintf("%s:%s:%s:%d:%s", leaderboardKeyPrefix, category, timeframe, limit, leaderboardKeyVer)
}

// InvalidationKeys enumerates the keys a vote on a product of the given
// category could have polluted: the product's category plus the "all"
// pseudo-category, across every timeframe, at the default limit. This is a
// best-effort set; entries cached under non-default limits age out within
// the TTL window instead.
func InvalidationKeys(category string, defaultLimit int) []string {
	categories := []string{"all"}
	if category != "" && category != "all" {
		categories = append(categories, category)
	}
	keys := make([]string, 0, len(categories)*len(timeframes))
	for _, c := range categories {
		for _, tf := range timeframes {
			keys = append(keys, LeaderboardKey(c, tf, defaultLimit))
		}
	}
	return keys
}
