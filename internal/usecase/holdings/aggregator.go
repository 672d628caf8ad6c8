// Package holdings derives the current holdings view from the trade list and
// the price cache: FIFO cost basis, market or compounded valuation, and
// per-holding return metrics.
package holdings

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/fixeddeposit"
	"github.com/kmehta/nivesh-backend/internal/usecase/lots"
	"github.com/kmehta/nivesh-backend/internal/usecase/pricing"
	"github.com/kmehta/nivesh-backend/internal/usecase/xirr"
)

const daysPerYear = 365.25

// Aggregator assembles holdings from trades and the price cache.
type Aggregator struct {
	cache *pricing.Cache
	log   zerolog.Logger
	now   func() time.Time
}

// NewAggregator creates a holdings aggregator backed by the given cache.
func NewAggregator(cache *pricing.Cache, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		cache: cache,
		log:   log.With().Str("component", "holdings").Logger(),
		now:   time.Now,
	}
}

// Aggregate derives one Holding per distinct instrument with positive net
// quantity, sorted descending by current value.
//
// A malformed instrument group never aborts the whole recomputation: metrics
// that cannot be computed degrade to zero and groups with nothing left are
// pruned.
func (a *Aggregator) Aggregate(trades []*domain.Trade) []*domain.Holding {
	groups := groupByInstrument(trades)
	now := a.now()

	out := make([]*domain.Holding, 0, len(groups))
	for key, group := range groups {
		h := a.buildHolding(key, group, now)
		if h != nil {
			out = append(out, h)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CurrentValue.Equal(out[j].CurrentValue) {
			return out[i].CurrentValue.GreaterThan(out[j].CurrentValue)
		}
		// Stable tiebreak so repeated runs produce identical output
		return out[i].InstrumentKey < out[j].InstrumentKey
	})
	return out
}

func (a *Aggregator) buildHolding(key string, group []*domain.Trade, now time.Time) *domain.Holding {
	matched := lots.Match(group)

	// Zero/negative holdings never appear in the output
	if matched.NetQuantity.LessThanOrEqual(decimal.Zero) ||
		matched.InvestedAmount.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	first := earliestBuy(group)
	last := group[len(group)-1]

	h := &domain.Holding{
		InstrumentKey:    key,
		Name:             last.Name,
		ISIN:             last.ISIN,
		InvestmentType:   last.InvestmentType,
		NetQuantity:      matched.NetQuantity,
		InvestedAmount:   matched.InvestedAmount,
		AverageBuyPrice:  matched.InvestedAmount.Div(matched.NetQuantity),
		BucketAllocation: lastBucketAllocation(group),
	}
	if first != nil {
		h.FirstBuyDate = first.Date
	}

	if h.InvestmentType == domain.InvestmentTypeFixedDeposit {
		a.valueFixedDeposit(h, group, matched, now)
	} else {
		inst := pricing.Instrument{Name: h.Name, ISIN: h.ISIN, InvestmentType: h.InvestmentType}
		h.CurrentPrice, _ = a.cache.Get(inst)
		h.CurrentValue = h.NetQuantity.Mul(h.CurrentPrice)
	}

	h.GainLossAmount = h.CurrentValue.Sub(h.InvestedAmount)
	h.GainLossPercent = safePercent(h.GainLossAmount, h.InvestedAmount)

	// Terminal cash flow: current value realized today
	flows := append(matched.CashFlows, domain.CashFlow{Date: now, Amount: h.CurrentValue})
	h.XIRR = xirr.Solve(flows)
	h.AnnualYield = annualYield(h.CurrentValue, h.InvestedAmount, h.FirstBuyDate, now)

	return h
}

// valueFixedDeposit overrides market pricing with compounded deposit value,
// applied to the most recent buy lot's principal and rate.
func (a *Aggregator) valueFixedDeposit(h *domain.Holding, group []*domain.Trade, matched lots.Result, now time.Time) {
	if len(matched.RemainingLots) == 0 {
		return
	}
	lot := matched.RemainingLots[len(matched.RemainingLots)-1]
	principal := lot.Quantity.Mul(lot.Price)

	v := fixeddeposit.Value(principal, latestInterestRate(group), lot.Date, now)
	h.CurrentValue = v.MaturityValue
	if !h.NetQuantity.IsZero() {
		h.CurrentPrice = v.MaturityValue.Div(h.NetQuantity)
	}
}

// latestInterestRate returns the interest rate of the group's most recent buy.
func latestInterestRate(group []*domain.Trade) decimal.Decimal {
	var latest *domain.Trade
	for _, t := range group {
		if t.TransactionType != domain.TransactionTypeBuy {
			continue
		}
		if latest == nil || !t.Date.Before(latest.Date) {
			latest = t
		}
	}
	if latest == nil {
		return decimal.Zero
	}
	return latest.InterestRate
}

// annualYield computes the CAGR-style annualized return in percent.
// Years are floored at one day so a same-day holding never divides by zero.
func annualYield(currentValue, invested decimal.Decimal, firstBuy, now time.Time) float64 {
	if invested.LessThanOrEqual(decimal.Zero) || firstBuy.IsZero() {
		return 0
	}

	years := now.Sub(firstBuy).Hours() / 24 / daysPerYear
	if years < 1/daysPerYear {
		years = 1 / daysPerYear
	}

	ratio := currentValue.InexactFloat64() / invested.InexactFloat64()
	y := (math.Pow(ratio, 1/years) - 1) * 100
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	return y
}

func safePercent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	p := part.InexactFloat64() / whole.InexactFloat64() * 100
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return p
}

// groupByInstrument partitions trades by instrument identity: ISIN for
// mutual funds, display name otherwise.
func groupByInstrument(trades []*domain.Trade) map[string][]*domain.Trade {
	groups := make(map[string][]*domain.Trade)
	for _, t := range trades {
		key := t.InstrumentKey()
		groups[key] = append(groups[key], t)
	}
	return groups
}

// earliestBuy returns the oldest buy trade in the group, or nil.
func earliestBuy(group []*domain.Trade) *domain.Trade {
	var first *domain.Trade
	for _, t := range group {
		if t.TransactionType != domain.TransactionTypeBuy {
			continue
		}
		if first == nil || t.Date.Before(first.Date) {
			first = t
		}
	}
	return first
}

// lastBucketAllocation returns the bucket label of the group's latest trade.
func lastBucketAllocation(group []*domain.Trade) string {
	var latest *domain.Trade
	for _, t := range group {
		if latest == nil || !t.Date.Before(latest.Date) {
			latest = t
		}
	}
	if latest == nil {
		return ""
	}
	return latest.BucketAllocation
}
