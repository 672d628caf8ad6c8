package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a derived, recomputed-on-demand view of one instrument.
// Holdings are never the source of truth — they are a pure function of the
// trade list and the price cache snapshot. Any persisted copy is a
// denormalized cache for fast paint only.
type Holding struct {
	InstrumentKey    string
	Name             string
	ISIN             string
	InvestmentType   InvestmentType
	NetQuantity      decimal.Decimal
	AverageBuyPrice  decimal.Decimal
	InvestedAmount   decimal.Decimal // remaining cost basis of unconsumed lots
	CurrentPrice     decimal.Decimal
	CurrentValue     decimal.Decimal
	GainLossAmount   decimal.Decimal
	GainLossPercent  float64
	AnnualYield      float64 // CAGR-style annualized return, percent
	XIRR             float64 // money-weighted return, percent
	BucketAllocation string
	FirstBuyDate     time.Time
}

// CashFlow is a single dated signed amount in an instrument's cash-flow
// series. Outflows (buys) are negative, inflows (sells, terminal value)
// positive.
type CashFlow struct {
	Date   time.Time
	Amount decimal.Decimal
}
