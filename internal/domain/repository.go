package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeRepository defines the interface for trade persistence operations
type TradeRepository interface {
	// List retrieves all trades for a user, ordered by date ascending
	List(ctx context.Context, userID string) ([]*Trade, error)

	// Add persists a new trade
	Add(ctx context.Context, userID string, trade *Trade) error

	// Update replaces an existing trade
	Update(ctx context.Context, userID string, trade *Trade) error

	// Delete removes a trade by ID
	Delete(ctx context.Context, userID string, id uuid.UUID) error

	// Subscribe registers a callback invoked with the full trade list whenever
	// the user's trades change remotely. The returned function cancels the
	// subscription.
	Subscribe(ctx context.Context, userID string, fn func([]*Trade)) (func(), error)
}

// BucketRepository defines the interface for persisted bucket overrides.
// Only TargetAmount and Purpose are authoritative in storage.
type BucketRepository interface {
	// List retrieves all persisted bucket records for a user
	List(ctx context.Context, userID string) ([]*Bucket, error)

	// Upsert creates or replaces a bucket record keyed by name
	Upsert(ctx context.Context, userID string, bucket *Bucket) error
}

// HoldingRepository persists the denormalized holdings cache used for fast
// first paint. It is never read back as a source of truth.
type HoldingRepository interface {
	// ReplaceAll atomically replaces the user's cached holdings
	ReplaceAll(ctx context.Context, userID string, holdings []*Holding) error
}

// PriceSource resolves the current price for an instrument.
// Implementations are pluggable transports (NAV feed, stock sheet, spot feed,
// synthetic fallback); returning ErrPriceUnavailable signals the next source
// in the chain should be tried.
type PriceSource interface {
	Resolve(ctx context.Context, identifier string, assetType InvestmentType) (decimal.Decimal, error)
}

// Identity yields the current authenticated user, or empty when anonymous.
type Identity interface {
	CurrentUserID(ctx context.Context) string
}
