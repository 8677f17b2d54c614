// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `koanf:"database_url"`

	// RedisAddr is the Redis host:port. When empty the service falls
	// back to the in-process cache.
	RedisAddr string `koanf:"redis_addr"`

	// CacheTTLSeconds controls how long leaderboard pages stay cached.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// VoteRateLimitSeconds is the per-user cooldown between votes.
	VoteRateLimitSeconds int `koanf:"vote_rate_limit_seconds"`

	// DefaultLimit is the leaderboard page size when none is requested.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLeaderboardLimit caps GET /leaderboard/top?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// JWTSecret signs and verifies session tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// ScoringWeights maps score components to their share of the
	// composite. Must sum to 1.0 when overridden.
	ScoringWeights map[string]float64 `koanf:"scoring_weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		DatabaseURL:          "postgres://localhost:5432/venturerank?sslmode=disable",
		RedisAddr:            "",
		CacheTTLSeconds:      300,
		VoteRateLimitSeconds: 5,
		DefaultLimit:         50,
		MaxLeaderboardLimit:  200,
		JWTSecret:            "",
		ScoringWeights: map[string]float64{
			"growth":     0.35,
			"traction":   0.25,
			"validation": 0.20,
			"execution":  0.15,
			"engagement": 0.05,
		},
	}
}
