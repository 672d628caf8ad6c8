// Package portfolio is the orchestrator: it owns the authoritative in-memory
// trade list, drives recomputation of holdings and buckets on every mutation
// or price refresh, and mediates between optimistic local updates and remote
// persistence.
package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/buckets"
	"github.com/kmehta/nivesh-backend/internal/usecase/holdings"
	"github.com/kmehta/nivesh-backend/internal/usecase/pricing"
)

// Snapshot is one consistent view of the derived data. Snapshots are
// immutable: recomputation builds a new one and swaps the pointer, so readers
// never observe a partially updated state.
type Snapshot struct {
	Holdings   []*domain.Holding
	Buckets    []*domain.BucketSummary
	ComputedAt time.Time
}

// Config tunes orchestrator behavior.
type Config struct {
	RefreshCooldown time.Duration // skip a refresh if one completed this recently
}

// Service is the portfolio orchestrator for one user session.
// The trade list and price cache are single-owner: all mutation goes through
// this service under its mutex.
type Service struct {
	userID      string
	tradeRepo   domain.TradeRepository
	bucketRepo  domain.BucketRepository
	holdingRepo domain.HoldingRepository
	cache       *pricing.Cache
	scheduler   *pricing.Scheduler
	holdingsAgg *holdings.Aggregator
	bucketsAgg  *buckets.Aggregator
	cfg         Config
	log         zerolog.Logger

	mu          sync.Mutex
	trades      []*domain.Trade
	buckets     []*domain.Bucket
	snapshot    *Snapshot
	refreshing  bool
	lastRefresh time.Time
	unsubscribe func()
}

// NewService creates an orchestrator for the given user.
// holdingRepo may be nil when no denormalized cache is wanted.
func NewService(
	userID string,
	tradeRepo domain.TradeRepository,
	bucketRepo domain.BucketRepository,
	holdingRepo domain.HoldingRepository,
	cache *pricing.Cache,
	scheduler *pricing.Scheduler,
	holdingsAgg *holdings.Aggregator,
	bucketsAgg *buckets.Aggregator,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.RefreshCooldown <= 0 {
		cfg.RefreshCooldown = 5 * time.Minute
	}
	return &Service{
		userID:      userID,
		tradeRepo:   tradeRepo,
		bucketRepo:  bucketRepo,
		holdingRepo: holdingRepo,
		cache:       cache,
		scheduler:   scheduler,
		holdingsAgg: holdingsAgg,
		bucketsAgg:  bucketsAgg,
		cfg:         cfg,
		log:         log.With().Str("component", "portfolio").Str("user", userID).Logger(),
		snapshot:    &Snapshot{},
	}
}

// Load pulls the trade list and bucket overrides from persistence, computes
// the initial derived views, and subscribes to remote changes. Remote
// deliveries replace the local trade list wholesale; an update landing after
// an un-round-tripped optimistic write may transiently overwrite it, which is
// accepted under the eventual-consistency model.
func (s *Service) Load(ctx context.Context) error {
	trades, err := s.tradeRepo.List(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to load trades: %w", err)
	}

	persisted, err := s.bucketRepo.List(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("failed to load buckets: %w", err)
	}

	s.mu.Lock()
	s.trades = trades
	s.buckets = persisted
	instruments := pricing.UniqueInstruments(s.trades)
	s.mu.Unlock()

	// Warm the price cache before the first derivation so market holdings
	// don't show a total loss until someone triggers a refresh. This does
	// not arm the refresh cooldown.
	s.scheduler.RefreshAll(ctx, instruments)

	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()

	unsub, err := s.tradeRepo.Subscribe(ctx, s.userID, s.onRemoteTrades)
	if err != nil {
		// Subscription is best-effort: the session still works without
		// realtime delivery
		s.log.Warn().Err(err).Msg("trade subscription unavailable")
	} else {
		s.unsubscribe = unsub
	}

	return nil
}

// Close cancels the remote subscription.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// onRemoteTrades replaces the trade list wholesale on each delivery.
func (s *Service) onRemoteTrades(trades []*domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = trades
	s.recomputeLocked()
	s.log.Debug().Int("trades", len(trades)).Msg("trade list replaced from subscription")
}

// Trades returns a copy of the current trade list.
func (s *Service) Trades() []*domain.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Snapshot returns the current derived view.
func (s *Service) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// AddTrade validates, optimistically appends, persists, and rolls back on
// persistence failure. BuyAmount is always derived here, never taken from the
// caller.
func (s *Service) AddTrade(ctx context.Context, trade *domain.Trade) error {
	if trade.ID == uuid.Nil {
		trade.ID = uuid.New()
	}
	trade.RecomputeBuyAmount()
	if err := trade.Validate(); err != nil {
		return err
	}

	cmd := &addTradeCommand{trade: trade}

	s.mu.Lock()
	s.trades = cmd.Apply(s.trades)
	s.recomputeLocked()
	s.mu.Unlock()

	if err := s.tradeRepo.Add(ctx, s.userID, trade); err != nil {
		s.mu.Lock()
		s.trades = cmd.Revert(s.trades)
		s.recomputeLocked()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("trade", trade.ID.String()).Msg("add trade failed, rolled back")
		return fmt.Errorf("failed to persist trade: %w", err)
	}

	return nil
}

// UpdateTrade merges partial fields into an existing trade, rederiving
// BuyAmount when quantity or rate changed, with rollback on failure.
func (s *Service) UpdateTrade(ctx context.Context, id uuid.UUID, upd TradeUpdate) (*domain.Trade, error) {
	s.mu.Lock()
	idx := indexOf(s.trades, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, domain.ErrTradeNotFound
	}
	before := s.trades[idx]
	after := merge(before, upd)
	if err := after.Validate(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	cmd := &updateTradeCommand{before: before, after: after}
	s.trades = cmd.Apply(s.trades)
	s.recomputeLocked()
	s.mu.Unlock()

	if err := s.tradeRepo.Update(ctx, s.userID, after); err != nil {
		s.mu.Lock()
		s.trades = cmd.Revert(s.trades)
		s.recomputeLocked()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("trade", id.String()).Msg("update trade failed, rolled back")
		return nil, fmt.Errorf("failed to persist trade update: %w", err)
	}

	return after, nil
}

// DeleteTrade optimistically removes a trade, re-inserting it if the remote
// deletion fails.
func (s *Service) DeleteTrade(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	idx := indexOf(s.trades, id)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrTradeNotFound
	}

	cmd := &deleteTradeCommand{removed: s.trades[idx], index: idx}
	s.trades = cmd.Apply(s.trades)
	s.recomputeLocked()
	s.mu.Unlock()

	if err := s.tradeRepo.Delete(ctx, s.userID, id); err != nil {
		s.mu.Lock()
		s.trades = cmd.Revert(s.trades)
		s.recomputeLocked()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("trade", id.String()).Msg("delete trade failed, rolled back")
		return fmt.Errorf("failed to persist trade deletion: %w", err)
	}

	return nil
}

// UpsertBucket persists a bucket override and recomputes the bucket view.
func (s *Service) UpsertBucket(ctx context.Context, bucket *domain.Bucket) error {
	if err := bucket.Validate(); err != nil {
		return err
	}
	if !domain.KnownBucket(bucket.Name) {
		return domain.ErrBucketNotFound
	}

	if err := s.bucketRepo.Upsert(ctx, s.userID, bucket); err != nil {
		return fmt.Errorf("failed to persist bucket: %w", err)
	}

	s.mu.Lock()
	replaced := false
	for i, b := range s.buckets {
		if b.Name == bucket.Name {
			s.buckets[i] = bucket
			replaced = true
			break
		}
	}
	if !replaced {
		s.buckets = append(s.buckets, bucket)
	}
	s.recomputeLocked()
	s.mu.Unlock()

	return nil
}

// RefreshPrices resolves every distinct instrument through the price cache in
// rate-limited batches, then recomputes the derived views. A refresh already
// in flight, or one completed within the cooldown, makes this a no-op (skip,
// don't queue). Returns whether a refresh actually ran.
func (s *Service) RefreshPrices(ctx context.Context) bool {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		s.log.Debug().Msg("refresh already in flight, skipping")
		return false
	}
	if time.Since(s.lastRefresh) < s.cfg.RefreshCooldown {
		s.mu.Unlock()
		s.log.Debug().Msg("cache refreshed recently, skipping")
		return false
	}
	s.refreshing = true
	instruments := pricing.UniqueInstruments(s.trades)
	s.mu.Unlock()

	s.scheduler.RefreshAll(ctx, instruments)

	s.mu.Lock()
	s.refreshing = false
	if ctx.Err() == nil {
		// A cancelled refresh may have fetched nothing; leave the cooldown
		// unarmed so the next attempt is not suppressed.
		s.lastRefresh = time.Now()
	}
	s.recomputeLocked()
	snap := s.snapshot
	s.mu.Unlock()

	s.persistHoldingsCache(ctx, snap.Holdings)
	return true
}

// recomputeLocked rebuilds the derived snapshot from the in-memory trade
// list. Callers must hold s.mu. Never requires a remote round-trip.
func (s *Service) recomputeLocked() {
	hs := s.holdingsAgg.Aggregate(s.trades)
	bs := s.bucketsAgg.Aggregate(hs, s.buckets)
	s.snapshot = &Snapshot{
		Holdings:   hs,
		Buckets:    bs,
		ComputedAt: time.Now(),
	}
}

// persistHoldingsCache writes the denormalized holdings for fast first paint.
// Failures are logged and ignored: the cache is never authoritative.
func (s *Service) persistHoldingsCache(ctx context.Context, hs []*domain.Holding) {
	if s.holdingRepo == nil {
		return
	}
	if err := s.holdingRepo.ReplaceAll(ctx, s.userID, hs); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist holdings cache")
	}
}
