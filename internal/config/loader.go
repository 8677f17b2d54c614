package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const weightSumTolerance = 0.001

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VRANK_CONFIG is set
//  3. env (prefix VRANK_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VRANK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: VRANK_ADDR, VRANK_CACHE_TTL_SECONDS, ...
	// Map env keys like VRANK_CACHE_TTL_SECONDS -> cache_ttl_seconds.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VRANK_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vrank_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	}
	if c.VoteRateLimitSeconds <= 0 {
		return fmt.Errorf("%w: vote_rate_limit_seconds must be positive", ErrInvalidConfig)
	}
	if c.DefaultLimit <= 0 || c.DefaultLimit > c.MaxLeaderboardLimit {
		return fmt.Errorf("%w: default_limit must be in (0, %d]", ErrInvalidConfig, c.MaxLeaderboardLimit)
	}
	if len(c.ScoringWeights) > 0 {
		var sum float64
		for _, w := range c.ScoringWeights {
			if w < 0 {
				return fmt.Errorf("%w: scoring weights must not be negative", ErrInvalidConfig)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > weightSumTolerance {
			return fmt.Errorf("%w: scoring weights must sum to 1.0, got %.3f", ErrInvalidConfig, sum)
		}
	}
	return nil
}
