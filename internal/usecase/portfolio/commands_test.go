package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

func TestMerge_PartialFields(t *testing.T) {
	before := stockBuy("INFY", 10, 1500)

	name := "INFOSYS"
	bucket := "bucket3"
	after := merge(before, TradeUpdate{Name: &name, BucketAllocation: &bucket})

	assert.Equal(t, "INFOSYS", after.Name)
	assert.Equal(t, "bucket3", after.BucketAllocation)
	assert.True(t, after.Quantity.Equal(before.Quantity))
	assert.True(t, after.BuyAmount.Equal(before.BuyAmount), "buy amount untouched when qty/rate unchanged")

	// original untouched
	assert.Equal(t, "INFY", before.Name)
}

func TestMerge_RateChangeRederivesBuyAmount(t *testing.T) {
	before := stockBuy("INFY", 10, 1500)

	rate := decimal.NewFromInt(1600)
	after := merge(before, TradeUpdate{BuyRate: &rate})

	assert.True(t, after.BuyAmount.Equal(decimal.NewFromInt(16000)))
	assert.True(t, before.BuyAmount.Equal(decimal.NewFromInt(15000)))
}

func TestMerge_DateChange(t *testing.T) {
	before := stockBuy("INFY", 10, 1500)

	d := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	after := merge(before, TradeUpdate{Date: &d})

	assert.True(t, after.Date.Equal(d))
}

func TestDeleteCommand_RevertPreservesOrder(t *testing.T) {
	a, b, c := stockBuy("A", 1, 1), stockBuy("B", 1, 1), stockBuy("C", 1, 1)
	trades := []*domain.Trade{a, b, c}

	cmd := &deleteTradeCommand{removed: b, index: 1}
	applied := cmd.Apply(trades)
	assert.Len(t, applied, 2)

	reverted := cmd.Revert(applied)
	assert.Len(t, reverted, 3)
	assert.Equal(t, "A", reverted[0].Name)
	assert.Equal(t, "B", reverted[1].Name)
	assert.Equal(t, "C", reverted[2].Name)
}
