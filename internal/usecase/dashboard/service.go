package dashboard

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// Summary represents the top-of-page portfolio overview
type Summary struct {
	NetWorth        decimal.Decimal
	TotalInvested   decimal.Decimal
	GainLossAmount  decimal.Decimal
	GainLossPercent float64
	HoldingsCount   int
	BucketProgress  []BucketProgress
}

// BucketProgress is one bucket's contribution to the overview
type BucketProgress struct {
	Name            string
	Purpose         string
	CurrentValue    decimal.Decimal
	TargetAmount    decimal.Decimal
	ProgressPercent float64
}

// Summarize folds the derived holdings and bucket views into the dashboard
// overview. Pure: operates on an already-computed snapshot.
func Summarize(holdings []*domain.Holding, buckets []*domain.BucketSummary) *Summary {
	s := &Summary{
		NetWorth:      decimal.Zero,
		TotalInvested: decimal.Zero,
		HoldingsCount: len(holdings),
	}

	for _, h := range holdings {
		s.NetWorth = s.NetWorth.Add(h.CurrentValue)
		s.TotalInvested = s.TotalInvested.Add(h.InvestedAmount)
	}

	s.GainLossAmount = s.NetWorth.Sub(s.TotalInvested)
	if !s.TotalInvested.IsZero() {
		p := s.GainLossAmount.InexactFloat64() / s.TotalInvested.InexactFloat64() * 100
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			s.GainLossPercent = p
		}
	}

	for _, b := range buckets {
		s.BucketProgress = append(s.BucketProgress, BucketProgress{
			Name:            b.Name,
			Purpose:         b.Purpose,
			CurrentValue:    b.CurrentValue,
			TargetAmount:    b.TargetAmount,
			ProgressPercent: b.ProgressPercent,
		})
	}

	return s
}
