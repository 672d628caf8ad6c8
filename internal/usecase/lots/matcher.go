// Package lots implements FIFO lot matching for one instrument's
// transaction history.
package lots

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// Lot is a single open buy-lot awaiting consumption.
type Lot struct {
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Date     time.Time
}

// Result is the outcome of matching one instrument's transactions.
type Result struct {
	NetQuantity    decimal.Decimal
	InvestedAmount decimal.Decimal // remaining cost basis of unconsumed lots
	CashFlows      []domain.CashFlow
	RemainingLots  []Lot
}

// Match runs FIFO lot matching over one instrument's trades.
//
// Buys push a lot and record a negative cash flow. Sells consume oldest lots
// first, reduce cost basis by the consumed quantity at each lot's price, and
// record a positive cash flow of the sell proceeds. Over-selling is not
// rejected: the net quantity goes negative and the holding is filtered out
// downstream. A sell with no remaining lots consumes no cost basis but still
// decrements quantity.
//
// Pure and idempotent given the same trade list.
func Match(trades []*domain.Trade) Result {
	sorted := make([]*domain.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	res := Result{
		NetQuantity:    decimal.Zero,
		InvestedAmount: decimal.Zero,
	}
	var open []Lot

	for _, t := range sorted {
		switch t.TransactionType {
		case domain.TransactionTypeBuy:
			open = append(open, Lot{
				Quantity: t.Quantity,
				Price:    t.BuyRate,
				Date:     t.Date,
			})
			amount := t.Quantity.Mul(t.BuyRate)
			res.NetQuantity = res.NetQuantity.Add(t.Quantity)
			res.InvestedAmount = res.InvestedAmount.Add(amount)
			res.CashFlows = append(res.CashFlows, domain.CashFlow{
				Date:   t.Date,
				Amount: amount.Neg(),
			})

		case domain.TransactionTypeSell:
			open = consume(open, t.Quantity, &res.InvestedAmount)
			res.NetQuantity = res.NetQuantity.Sub(t.Quantity)
			res.CashFlows = append(res.CashFlows, domain.CashFlow{
				Date:   t.Date,
				Amount: t.SellProceeds(),
			})
		}
	}

	res.RemainingLots = open
	return res
}

// consume removes qty from the oldest lots first, reducing invested by the
// cost basis of whatever it could actually cover.
func consume(open []Lot, qty decimal.Decimal, invested *decimal.Decimal) []Lot {
	remaining := qty

	for len(open) > 0 && remaining.GreaterThan(decimal.Zero) {
		lot := &open[0]
		if lot.Quantity.GreaterThan(remaining) {
			// Partial consumption of the oldest lot
			*invested = invested.Sub(remaining.Mul(lot.Price))
			lot.Quantity = lot.Quantity.Sub(remaining)
			remaining = decimal.Zero
		} else {
			*invested = invested.Sub(lot.Quantity.Mul(lot.Price))
			remaining = remaining.Sub(lot.Quantity)
			open = open[1:]
		}
	}

	return open
}
