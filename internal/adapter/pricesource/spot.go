package pricesource

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// SpotSource serves per-gram spot prices for physical metals from an
// in-memory table. Prices can be updated at runtime (e.g. from an admin
// endpoint or a future feed integration).
type SpotSource struct {
	mu     sync.RWMutex
	prices map[domain.InvestmentType]decimal.Decimal
}

// NewSpotSource creates a spot table with reasonable INR per-gram defaults.
func NewSpotSource() *SpotSource {
	return &SpotSource{
		prices: map[domain.InvestmentType]decimal.Decimal{
			domain.InvestmentTypeGold:   decimal.NewFromInt(6000),
			domain.InvestmentTypeSilver: decimal.NewFromInt(75),
		},
	}
}

// Set updates the spot price for a metal.
func (s *SpotSource) Set(t domain.InvestmentType, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[t] = price
}

// Resolve returns the spot price for gold and silver, regardless of the
// identifier. Other asset types are passed on.
func (s *SpotSource) Resolve(_ context.Context, _ string, assetType domain.InvestmentType) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[assetType]
	if !ok {
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	return price, nil
}
