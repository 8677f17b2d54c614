// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stackpitch/venturerank/internal/adapters/cache"
	"github.com/stackpitch/venturerank/internal/adapters/repository"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/internal/domain/ratelimit"
	"github.com/stackpitch/venturerank/internal/domain/scoring"
	"github.com/stackpitch/venturerank/internal/domain/types"
	"github.com/stackpitch/venturerank/pkg/logger"
	"github.com/stackpitch/venturerank/pkg/metrics"
)

// Timeframe lookback windows. Unknown timeframes fall back to "all".
const (
	timeframeWeek  = "week"
	timeframeMonth = "month"
	timeframeYear  = "year"
	timeframeAll   = "all"
)

const (
	defaultCacheTTL     = 5 * time.Minute
	defaultPageLimit    = 50
	defaultMaxPageLimit = 200
)

// Query selects a leaderboard page.
type Query struct {
	Category  string
	Timeframe string
	Limit     int
}

// Service implements the API dependencies for the leaderboard system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	cache   cache.Cache
	calc    *scoring.Calculator
	limiter ratelimit.Limiter

	// Configuration
	cacheTTL     time.Duration
	defaultLimit int
	maxLimit     int
	now          func() time.Time

	// Runtime counters for GET /stats.
	startedAt        time.Time
	votesAccepted    atomic.Int64
	votesRateLimited atomic.Int64
	pagesComputed    atomic.Int64
	pagesFromCache   atomic.Int64

	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCache sets the cache backend used for leaderboard pages and
// the vote rate limiter.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithCalculator sets a custom score calculator.
func WithCalculator(calc *scoring.Calculator) Option {
	return func(s *Service) {
		if calc != nil {
			s.calc = calc
		}
	}
}

// WithLimiter sets a custom vote rate limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// WithCacheTTL sets how long leaderboard pages stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithDefaultLimit sets the page size used when none is requested.
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// WithMaxLimit caps the requested page size for non-admin callers.
func WithMaxLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cacheTTL:     defaultCacheTTL,
		defaultLimit: defaultPageLimit,
		maxLimit:     defaultMaxPageLimit,
		now:          time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start finalizes wiring and makes the service ready to serve.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return errors.New("service requires a store")
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.calc == nil {
		s.calc = scoring.New()
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.New(s.cache)
	}

	s.startedAt = s.now()
	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.String("cache", s.cache.Name()),
		logger.Duration("cacheTTL", s.cacheTTL),
		logger.Int("defaultLimit", s.defaultLimit),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// Leaderboard returns a ranked page of scored products.
//
// Admin callers bypass the cache in both directions and are not subject
// to the page size cap. Cache failures degrade to a recompute.
func (s *Service) Leaderboard(ctx context.Context, id types.Identity, q Query) (types.LeaderboardPage, error) {
	if !s.isStarted() {
		return types.LeaderboardPage{}, ErrNotStarted
	}

	category := q.Category
	if category == "" {
		category = timeframeAll
	}
	timeframe := normalizeTimeframe(q.Timeframe)
	admin := id.IsAdmin()

	limit := q.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if !admin && limit > s.maxLimit {
		limit = s.maxLimit
	}

	key := cache.LeaderboardKey(category, timeframe, limit)
	if !admin {
		if page, ok := s.cachedPage(ctx, key); ok {
			s.pagesFromCache.Add(1)
			return page, nil
		}
	}

	page, err := s.computePage(ctx, category, timeframe, limit, admin)
	if err != nil {
		return types.LeaderboardPage{}, err
	}

	if !admin {
		s.storePage(ctx, key, page)
	}
	return page, nil
}

func (s *Service) cachedPage(ctx context.Context, key string) (types.LeaderboardPage, bool) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "leaderboard cache read failed",
			logger.String("key", key), logger.Error(err))
		return types.LeaderboardPage{}, false
	}
	if !ok {
		metrics.RecordCacheMiss()
		return types.LeaderboardPage{}, false
	}

	var page types.LeaderboardPage
	if err := json.Unmarshal(raw, &page); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "leaderboard cache entry corrupt",
			logger.String("key", key), logger.Error(err))
		return types.LeaderboardPage{}, false
	}
	metrics.RecordCacheHit()
	return page, true
}

func (s *Service) storePage(ctx context.Context, key string, page types.LeaderboardPage) {
	raw, err := json.Marshal(page)
	if err != nil {
		s.logger.Error(ctx, "leaderboard page marshal failed", logger.Error(err))
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
		metrics.RecordCacheError()
		s.logger.Warn(ctx, "leaderboard cache write failed",
			logger.String("key", key), logger.Error(err))
	}
}

func (s *Service) computePage(ctx context.Context, category, timeframe string, limit int, admin bool) (types.LeaderboardPage, error) {
	start := s.now()

	since := sinceFor(timeframe, start)
	rows, err := s.store.ListScoringRows(ctx, category, since)
	if err != nil {
		metrics.RecordStoreError()
		metrics.RecordLeaderboardError()
		return types.LeaderboardPage{}, fmt.Errorf("list scoring rows: %w", err)
	}

	entries := make([]types.ScoredProduct, 0, len(rows))
	for i := range rows {
		entries = append(entries, s.scoreRow(&rows[i]))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].VotesCount > entries[j].VotesCount
	})

	if !admin && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	elapsed := s.now().Sub(start)
	metrics.RecordComputeDuration(float64(elapsed.Nanoseconds()) / 1e6)
	metrics.UpdateLeaderboardEntries(len(entries))
	s.pagesComputed.Add(1)

	s.logger.Debug(ctx, "leaderboard page computed",
		logger.String("category", category),
		logger.String("timeframe", timeframe),
		logger.Int("entries", len(entries)),
		logger.Duration("elapsed", elapsed),
	)

	return types.LeaderboardPage{Leaderboard: entries, IsAdmin: admin}, nil
}

// scoreRow runs the calculator over one denormalized row and shapes the
// API entry. Display values are rounded here; ordering and grading used
// the unrounded composite inside the calculator.
func (s *Service) scoreRow(row *model.ScoringRow) types.ScoredProduct {
	res := s.calc.Score(scoring.Input{
		VotesCount:         row.VotesCount,
		RatingAverage:      row.RatingAverage,
		CurrentUsers:       row.CurrentUsers,
		CurrentRevenue:     row.CurrentRevenue,
		Users7dAgo:         row.Users7dAgo,
		Revenue7dAgo:       row.Revenue7dAgo,
		Users30dAgo:        row.Users30dAgo,
		Revenue30dAgo:      row.Revenue30dAgo,
		HasLatestWeek:      row.HasLatestWeek,
		LatestWeekRevenue:  row.LatestWeekRevenue,
		LatestWeekNewUsers: row.LatestWeekNewUsers,
		LatestWeekActive:   row.LatestWeekActive,
		HasPrevWeek:        row.HasPrevWeek,
		PrevWeekRevenue:    row.PrevWeekRevenue,
		PrevWeekActive:     row.PrevWeekActive,
		ReportingWeeks:     row.ReportingWeeks,
		TotalGoals:         row.TotalGoals,
		CompletedGoals:     row.CompletedGoals,
		ActiveGoals:        row.ActiveGoals,
		RecentGoalChange:   row.RecentGoalChange,
		ChatInteractions7d: row.ChatInteractions7d,
	})

	return types.ScoredProduct{
		ID:             row.ProductID,
		Title:          row.Title,
		Category:       row.Category,
		CreatorName:    row.CreatorName,
		RatingAverage:  row.RatingAverage,
		VotesCount:     row.VotesCount,
		CompletedGoals: row.CompletedGoals,
		TotalGoals:     row.TotalGoals,
		CurrentUsers:   row.CurrentUsers,
		Score:          scoring.Round1(res.FinalScore),
		Grade:          res.Grade,
		GrowthVelocity: scoring.Round1(res.GrowthVelocity()),
		Breakdown: types.Breakdown{
			Growth:     scoring.Round1(res.Breakdown.Growth),
			Traction:   scoring.Round1(res.Breakdown.Traction),
			Validation: scoring.Round1(res.Breakdown.Validation),
			Execution:  scoring.Round1(res.Breakdown.Execution),
			Engagement: scoring.Round1(res.Breakdown.Engagement),
		},
		GrowthWoW: types.GrowthRates{
			Users:   scoring.Round1(res.UserWoW),
			Revenue: scoring.Round1(res.RevenueWoW),
		},
		GrowthMoM: types.GrowthRates{
			Users:   scoring.Round1(res.UserMoM),
			Revenue: scoring.Round1(res.RevenueMoM),
		},
		Traction: types.TractionData{
			UserWoWGrowth:    scoring.Round1(res.UserWoW),
			RevenueWoWGrowth: scoring.Round1(res.RevenueWoW),
			ReportingWeeks:   row.ReportingWeeks,
			AvgActive4w:      scoring.Round1(row.AvgActive4w),
			LatestRevenue:    row.LatestWeekRevenue,
			LatestNewUsers:   row.LatestWeekNewUsers,
		},
	}
}

// CastVote records or overwrites the caller's rating for a product.
func (s *Service) CastVote(ctx context.Context, id types.Identity, productID int64, rating int) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	if rating < 1 || rating > 5 {
		metrics.RecordVoteRejected()
		return ErrInvalidRating
	}

	decision, err := s.limiter.Allow(ctx, id.UserID)
	if err != nil {
		// Limiter errors fail open; the vote still proceeds.
		s.logger.Warn(ctx, "vote rate limiter unavailable",
			logger.Int64("userID", id.UserID), logger.Error(err))
	}
	if !decision.Allowed {
		metrics.RecordVoteRateLimited()
		s.votesRateLimited.Add(1)
		return &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordVoteRejected()
			return err
		}
		metrics.RecordStoreError()
		return fmt.Errorf("load product %d: %w", productID, err)
	}

	if err := s.store.UpsertVote(ctx, productID, id.UserID, rating); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("record vote: %w", err)
	}
	metrics.RecordVoteAccepted()
	s.votesAccepted.Add(1)

	s.invalidateLeaderboard(ctx, product.Category)

	s.logger.Info(ctx, "vote recorded",
		logger.Int64("productID", productID),
		logger.Int64("userID", id.UserID),
		logger.Int("rating", rating),
	)
	return nil
}

// invalidateLeaderboard drops the cached pages a vote could have changed.
// Best effort: a failed delete leaves stale entries to age out via TTL.
func (s *Service) invalidateLeaderboard(ctx context.Context, category string) {
	keys := cache.InvalidationKeys(category, s.defaultLimit)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		metrics.RecordCacheInvalidationError()
		s.logger.Warn(ctx, "leaderboard cache invalidation failed",
			logger.String("category", category), logger.Error(err))
		return
	}
	metrics.RecordCacheInvalidation()
}

// Vote returns the caller's existing vote for a product, if any.
func (s *Service) Vote(ctx context.Context, id types.Identity, productID int64) (model.Vote, error) {
	if !s.isStarted() {
		return model.Vote{}, ErrNotStarted
	}
	return s.store.GetVote(ctx, productID, id.UserID)
}

// ReportTraction upserts the caller's weekly traction self-report.
func (s *Service) ReportTraction(ctx context.Context, id types.Identity, wt model.WeeklyTraction) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	if wt.Year < 2000 || wt.Year > 2200 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidReport, wt.Year)
	}
	if wt.WeekNumber < 1 || wt.WeekNumber > 53 {
		return fmt.Errorf("%w: week %d out of range", ErrInvalidReport, wt.WeekNumber)
	}
	if wt.RevenueAmount < 0 || wt.NewUsers < 0 || wt.ActiveUsers < 0 || wt.ChurnedUsers < 0 {
		return fmt.Errorf("%w: traction values must not be negative", ErrInvalidReport)
	}

	wt.UserID = id.UserID
	if err := s.store.UpsertWeeklyTraction(ctx, wt); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("record traction: %w", err)
	}
	return nil
}

// ReportMetric appends one metric snapshot for the caller.
func (s *Service) ReportMetric(ctx context.Context, id types.Identity, snap model.MetricSnapshot) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	if snap.MetricName != model.MetricUsers && snap.MetricName != model.MetricRevenue {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidReport, snap.MetricName)
	}
	if snap.MetricValue < 0 {
		return fmt.Errorf("%w: metric value must not be negative", ErrInvalidReport)
	}

	snap.UserID = id.UserID
	if snap.RecordedDate.IsZero() {
		snap.RecordedDate = s.now()
	}
	if err := s.store.AddMetricSnapshot(ctx, snap); err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("record metric: %w", err)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"defaultLimit": s.defaultLimit,
		"maxLimit":     s.maxLimit,
		"cacheTTLSec":  int(s.cacheTTL / time.Second),
	}
	if s.started {
		stats["cache"] = s.cache.Name()
		stats["uptimeSec"] = int(s.now().Sub(s.startedAt) / time.Second)
		stats["votesAccepted"] = s.votesAccepted.Load()
		stats["votesRateLimited"] = s.votesRateLimited.Load()
		stats["pagesComputed"] = s.pagesComputed.Load()
		stats["pagesFromCache"] = s.pagesFromCache.Load()
	}
	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func normalizeTimeframe(tf string) string {
	switch tf {
	case timeframeWeek, timeframeMonth, timeframeYear:
		return tf
	default:
		return timeframeAll
	}
}

// sinceFor maps a timeframe to a creation lower bound. The zero time
// means no bound.
func sinceFor(tf string, now time.Time) time.Time {
	switch tf {
	case timeframeWeek:
		return now.AddDate(0, 0, -7)
	case timeframeMonth:
		return now.AddDate(0, 0, -30)
	case timeframeYear:
		return now.AddDate(0, 0, -365)
	default:
		return time.Time{}
	}
}
