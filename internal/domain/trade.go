package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentType represents the asset class of a trade
type InvestmentType string

const (
	InvestmentTypeStock        InvestmentType = "stock"
	InvestmentTypeMutualFund   InvestmentType = "mutual_fund"
	InvestmentTypeBond         InvestmentType = "bond"
	InvestmentTypeFixedDeposit InvestmentType = "fixed_deposit"
	InvestmentTypeGold         InvestmentType = "gold"
	InvestmentTypeSilver       InvestmentType = "silver"
	InvestmentTypeIndexFund    InvestmentType = "index_fund"
	InvestmentTypeETF          InvestmentType = "etf"
	InvestmentTypeNPS          InvestmentType = "nps"
)

// TransactionType represents the direction of a trade
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "buy"
	TransactionTypeSell TransactionType = "sell"
)

// validInvestmentTypes is the closed set of supported asset classes
var validInvestmentTypes = map[InvestmentType]bool{
	InvestmentTypeStock:        true,
	InvestmentTypeMutualFund:   true,
	InvestmentTypeBond:         true,
	InvestmentTypeFixedDeposit: true,
	InvestmentTypeGold:         true,
	InvestmentTypeSilver:       true,
	InvestmentTypeIndexFund:    true,
	InvestmentTypeETF:          true,
	InvestmentTypeNPS:          true,
}

// Trade represents a single buy/sell transaction entity in the domain layer.
// Once settled, a trade is immutable except through an explicit update that
// recomputes its derived BuyAmount.
type Trade struct {
	ID               uuid.UUID
	Date             time.Time // calendar date, no time component
	InvestmentType   InvestmentType
	Name             string
	ISIN             string          // canonical key for mutual funds; may double as a broker symbol for stocks
	InterestRate     decimal.Decimal // annual percent, required for fixed deposits
	TransactionType  TransactionType
	Quantity         decimal.Decimal
	BuyRate          decimal.Decimal // price per unit; reused as sell price when SellRate is absent
	SellRate         decimal.Decimal
	SellAmount       decimal.Decimal
	BuyAmount        decimal.Decimal // always Quantity * BuyRate, never independently editable
	BrokerBank       string
	BucketAllocation string // one of the known bucket labels
}

// InstrumentKey returns the identity under which this trade's instrument is
// grouped into a holding: ISIN for mutual funds, display name otherwise.
func (t *Trade) InstrumentKey() string {
	if t.InvestmentType == InvestmentTypeMutualFund && t.ISIN != "" {
		return t.ISIN
	}
	return t.Name
}

// RecomputeBuyAmount refreshes the derived BuyAmount field.
// Must be called whenever Quantity or BuyRate changes.
func (t *Trade) RecomputeBuyAmount() {
	t.BuyAmount = t.Quantity.Mul(t.BuyRate)
}

// Validate ensures the trade adheres to domain rules
// Returns an error if validation fails
func (t *Trade) Validate() error {
	if t.Name == "" {
		return errors.New("trade name cannot be empty")
	}

	if !validInvestmentTypes[t.InvestmentType] {
		return errors.New("unknown investment type: " + string(t.InvestmentType))
	}

	if t.TransactionType != TransactionTypeBuy && t.TransactionType != TransactionTypeSell {
		return errors.New("transaction type must be buy or sell")
	}

	if t.Quantity.LessThanOrEqual(decimal.Zero) {
		return errors.New("trade quantity must be positive")
	}

	if t.BuyRate.LessThan(decimal.Zero) {
		return errors.New("trade rate cannot be negative")
	}

	if t.Date.IsZero() {
		return errors.New("trade date is required")
	}

	if t.InvestmentType == InvestmentTypeFixedDeposit && t.InterestRate.LessThanOrEqual(decimal.Zero) {
		return errors.New("fixed deposit requires a positive interest rate")
	}

	// BuyAmount is derived; a drifted value indicates a caller bypassed RecomputeBuyAmount
	if !t.BuyAmount.Equal(t.Quantity.Mul(t.BuyRate)) {
		return errors.New("buy amount must equal quantity times rate")
	}

	return nil
}

// SellProceeds resolves the cash received for a sell trade.
// Preference order: explicit SellAmount, then Quantity*SellRate, then
// Quantity*BuyRate (the buy-rate field is reused as the sell price when no
// dedicated rate was recorded).
func (t *Trade) SellProceeds() decimal.Decimal {
	if t.SellAmount.GreaterThan(decimal.Zero) {
		return t.SellAmount
	}
	if t.SellRate.GreaterThan(decimal.Zero) {
		return t.Quantity.Mul(t.SellRate)
	}
	return t.Quantity.Mul(t.BuyRate)
}
