// Package buckets folds holdings into per-goal-bucket aggregates, layering
// persisted target/purpose overrides onto the fixed bucket enumeration.
package buckets

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// Aggregator computes bucket summaries from holdings.
type Aggregator struct {
	log zerolog.Logger
}

// NewAggregator creates a bucket aggregator.
func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{log: log.With().Str("component", "buckets").Logger()}
}

// Aggregate partitions holdings by bucket label into the fixed bucket set.
// Persisted records override TargetAmount and Purpose; computed fields are
// always derived fresh. Holdings whose label matches no known bucket are
// dropped from aggregation. Output is sorted alphabetically by name.
func (a *Aggregator) Aggregate(holdings []*domain.Holding, persisted []*domain.Bucket) []*domain.BucketSummary {
	definitions := make(map[string]*domain.Bucket)
	for _, b := range domain.DefaultBuckets() {
		definitions[b.Name] = b
	}
	for _, b := range persisted {
		if def, ok := definitions[b.Name]; ok {
			def.TargetAmount = b.TargetAmount
			def.Purpose = b.Purpose
		}
	}

	byBucket := make(map[string][]*domain.Holding)
	for _, h := range holdings {
		if _, ok := definitions[h.BucketAllocation]; !ok {
			a.log.Debug().
				Str("bucket", h.BucketAllocation).
				Str("instrument", h.InstrumentKey).
				Msg("holding tagged with unknown bucket, excluded from aggregation")
			continue
		}
		byBucket[h.BucketAllocation] = append(byBucket[h.BucketAllocation], h)
	}

	out := make([]*domain.BucketSummary, 0, len(definitions))
	for name, def := range definitions {
		out = append(out, summarize(def, byBucket[name]))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func summarize(def *domain.Bucket, members []*domain.Holding) *domain.BucketSummary {
	s := &domain.BucketSummary{
		Name:           def.Name,
		Purpose:        def.Purpose,
		TargetAmount:   def.TargetAmount,
		CurrentValue:   decimal.Zero,
		InvestedAmount: decimal.Zero,
		HoldingsCount:  len(members),
	}

	for _, h := range members {
		s.CurrentValue = s.CurrentValue.Add(h.CurrentValue)
		s.InvestedAmount = s.InvestedAmount.Add(h.InvestedAmount)
	}

	s.GainLossAmount = s.CurrentValue.Sub(s.InvestedAmount)
	if !s.InvestedAmount.IsZero() {
		p := s.GainLossAmount.InexactFloat64() / s.InvestedAmount.InexactFloat64() * 100
		if !math.IsNaN(p) && !math.IsInf(p, 0) {
			s.GainLossPercent = p
		}
	}

	s.ProgressPercent = progress(s.CurrentValue, s.TargetAmount)

	// Value-weighted metrics: weight = holding value / bucket total
	if s.CurrentValue.GreaterThan(decimal.Zero) {
		total := s.CurrentValue.InexactFloat64()
		for _, h := range members {
			w := h.CurrentValue.InexactFloat64() / total
			s.AnnualYield += w * h.AnnualYield
			s.XIRR += w * h.XIRR
		}
	}

	return s
}

// progress reports currentValue against targetAmount as a percent, clamped to
// 100 and guarded against a zero target.
func progress(currentValue, targetAmount decimal.Decimal) float64 {
	if targetAmount.IsZero() {
		return 0
	}
	p := currentValue.InexactFloat64() / targetAmount.InexactFloat64() * 100
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
