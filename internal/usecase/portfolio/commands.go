package portfolio

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// command is one optimistic local mutation of the trade list. Apply runs
// before the remote write; Revert restores the exact prior state when the
// write fails. Each command captures enough state at construction to revert
// deterministically.
type command interface {
	Apply(trades []*domain.Trade) []*domain.Trade
	Revert(trades []*domain.Trade) []*domain.Trade
}

// addTradeCommand appends a trade; revert removes it by ID.
type addTradeCommand struct {
	trade *domain.Trade
}

func (c *addTradeCommand) Apply(trades []*domain.Trade) []*domain.Trade {
	return append(trades, c.trade)
}

func (c *addTradeCommand) Revert(trades []*domain.Trade) []*domain.Trade {
	out := trades[:0]
	for _, t := range trades {
		if t.ID != c.trade.ID {
			out = append(out, t)
		}
	}
	return out
}

// updateTradeCommand swaps in the merged trade; revert restores the captured
// pre-update record.
type updateTradeCommand struct {
	before *domain.Trade
	after  *domain.Trade
}

func (c *updateTradeCommand) Apply(trades []*domain.Trade) []*domain.Trade {
	return replaceByID(trades, c.after)
}

func (c *updateTradeCommand) Revert(trades []*domain.Trade) []*domain.Trade {
	return replaceByID(trades, c.before)
}

// deleteTradeCommand removes a trade; revert re-inserts the removed record at
// its original position.
type deleteTradeCommand struct {
	removed *domain.Trade
	index   int
}

func (c *deleteTradeCommand) Apply(trades []*domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, 0, len(trades)-1)
	for i, t := range trades {
		if i == c.index {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (c *deleteTradeCommand) Revert(trades []*domain.Trade) []*domain.Trade {
	// A subscription delivery may have replaced the list wholesale between
	// Apply and Revert, so the captured index can exceed the current length.
	idx := c.index
	if idx > len(trades) {
		idx = len(trades)
	}
	out := make([]*domain.Trade, 0, len(trades)+1)
	out = append(out, trades[:idx]...)
	out = append(out, c.removed)
	out = append(out, trades[idx:]...)
	return out
}

func replaceByID(trades []*domain.Trade, replacement *domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, len(trades))
	copy(out, trades)
	for i, t := range out {
		if t.ID == replacement.ID {
			out[i] = replacement
			break
		}
	}
	return out
}

// TradeUpdate carries the partial fields of an update request. Nil fields are
// left untouched; BuyAmount is rederived whenever quantity or rate changes.
type TradeUpdate struct {
	Date             *time.Time
	Name             *string
	ISIN             *string
	Quantity         *decimal.Decimal
	BuyRate          *decimal.Decimal
	SellRate         *decimal.Decimal
	SellAmount       *decimal.Decimal
	InterestRate     *decimal.Decimal
	BrokerBank       *string
	BucketAllocation *string
}

// merge produces the post-update trade without mutating the original.
func merge(before *domain.Trade, upd TradeUpdate) *domain.Trade {
	after := *before

	if upd.Date != nil {
		after.Date = *upd.Date
	}
	if upd.Name != nil {
		after.Name = *upd.Name
	}
	if upd.ISIN != nil {
		after.ISIN = *upd.ISIN
	}
	if upd.Quantity != nil {
		after.Quantity = *upd.Quantity
	}
	if upd.BuyRate != nil {
		after.BuyRate = *upd.BuyRate
	}
	if upd.SellRate != nil {
		after.SellRate = *upd.SellRate
	}
	if upd.SellAmount != nil {
		after.SellAmount = *upd.SellAmount
	}
	if upd.InterestRate != nil {
		after.InterestRate = *upd.InterestRate
	}
	if upd.BrokerBank != nil {
		after.BrokerBank = *upd.BrokerBank
	}
	if upd.BucketAllocation != nil {
		after.BucketAllocation = *upd.BucketAllocation
	}

	if upd.Quantity != nil || upd.BuyRate != nil {
		after.RecomputeBuyAmount()
	}

	return &after
}

func indexOf(trades []*domain.Trade, id uuid.UUID) int {
	for i, t := range trades {
		if t.ID == id {
			return i
		}
	}
	return -1
}
