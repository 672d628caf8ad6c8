package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validBuyTrade() Trade {
	t := Trade{
		ID:               uuid.New(),
		Date:             time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		InvestmentType:   InvestmentTypeStock,
		Name:             "RELIANCE",
		TransactionType:  TransactionTypeBuy,
		Quantity:         decimal.NewFromInt(10),
		BuyRate:          decimal.NewFromInt(2500),
		BucketAllocation: "bucket2",
	}
	t.RecomputeBuyAmount()
	return t
}

func TestTrade_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Trade)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid buy trade should pass",
			mutate:  func(tr *Trade) {},
			wantErr: false,
		},
		{
			name: "empty name should fail",
			mutate: func(tr *Trade) {
				tr.Name = ""
			},
			wantErr: true,
			errMsg:  "trade name cannot be empty",
		},
		{
			name: "unknown investment type should fail",
			mutate: func(tr *Trade) {
				tr.InvestmentType = InvestmentType("crypto")
			},
			wantErr: true,
			errMsg:  "unknown investment type",
		},
		{
			name: "invalid transaction type should fail",
			mutate: func(tr *Trade) {
				tr.TransactionType = TransactionType("short")
			},
			wantErr: true,
			errMsg:  "transaction type must be buy or sell",
		},
		{
			name: "zero quantity should fail",
			mutate: func(tr *Trade) {
				tr.Quantity = decimal.Zero
				tr.RecomputeBuyAmount()
			},
			wantErr: true,
			errMsg:  "trade quantity must be positive",
		},
		{
			name: "negative rate should fail",
			mutate: func(tr *Trade) {
				tr.BuyRate = decimal.NewFromInt(-1)
				tr.RecomputeBuyAmount()
			},
			wantErr: true,
			errMsg:  "trade rate cannot be negative",
		},
		{
			name: "zero date should fail",
			mutate: func(tr *Trade) {
				tr.Date = time.Time{}
			},
			wantErr: true,
			errMsg:  "trade date is required",
		},
		{
			name: "fixed deposit without interest rate should fail",
			mutate: func(tr *Trade) {
				tr.InvestmentType = InvestmentTypeFixedDeposit
			},
			wantErr: true,
			errMsg:  "fixed deposit requires a positive interest rate",
		},
		{
			name: "fixed deposit with interest rate should pass",
			mutate: func(tr *Trade) {
				tr.InvestmentType = InvestmentTypeFixedDeposit
				tr.InterestRate = decimal.NewFromFloat(7.5)
			},
			wantErr: false,
		},
		{
			name: "drifted buy amount should fail",
			mutate: func(tr *Trade) {
				tr.BuyAmount = tr.BuyAmount.Add(decimal.NewFromInt(1))
			},
			wantErr: true,
			errMsg:  "buy amount must equal quantity times rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := validBuyTrade()
			tt.mutate(&trade)

			err := trade.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrade_InstrumentKey(t *testing.T) {
	mf := validBuyTrade()
	mf.InvestmentType = InvestmentTypeMutualFund
	mf.Name = "Parag Parikh Flexi Cap"
	mf.ISIN = "INF879O01027"
	assert.Equal(t, "INF879O01027", mf.InstrumentKey(), "mutual funds key on ISIN")

	mfNoISIN := mf
	mfNoISIN.ISIN = ""
	assert.Equal(t, "Parag Parikh Flexi Cap", mfNoISIN.InstrumentKey(), "missing ISIN falls back to name")

	stock := validBuyTrade()
	stock.ISIN = "INE002A01018" // stocks may carry an ISIN, but key on name
	assert.Equal(t, "RELIANCE", stock.InstrumentKey())
}

func TestTrade_RecomputeBuyAmount(t *testing.T) {
	trade := validBuyTrade()
	assert.True(t, trade.BuyAmount.Equal(decimal.NewFromInt(25000)))

	trade.Quantity = decimal.NewFromInt(4)
	trade.RecomputeBuyAmount()
	assert.True(t, trade.BuyAmount.Equal(decimal.NewFromInt(10000)))
}

func TestTrade_SellProceeds(t *testing.T) {
	tests := []struct {
		name       string
		sellAmount decimal.Decimal
		sellRate   decimal.Decimal
		want       decimal.Decimal
	}{
		{
			name:       "explicit sell amount wins",
			sellAmount: decimal.NewFromInt(9999),
			sellRate:   decimal.NewFromInt(100),
			want:       decimal.NewFromInt(9999),
		},
		{
			name:     "sell rate used when no amount",
			sellRate: decimal.NewFromInt(2600),
			want:     decimal.NewFromInt(26000), // 10 * 2600
		},
		{
			name: "buy rate reused as last resort",
			want: decimal.NewFromInt(25000), // 10 * 2500
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := validBuyTrade()
			trade.TransactionType = TransactionTypeSell
			trade.SellAmount = tt.sellAmount
			trade.SellRate = tt.sellRate

			assert.True(t, trade.SellProceeds().Equal(tt.want),
				"got %s want %s", trade.SellProceeds(), tt.want)
		})
	}
}
