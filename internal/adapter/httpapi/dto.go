package httpapi

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/dashboard"
	"github.com/kmehta/nivesh-backend/internal/usecase/portfolio"
)

// Monetary values cross the wire as strings to avoid float rounding,
// mirroring how decimals are handled everywhere else in the system.

const dateLayout = "2006-01-02"

type tradeRequest struct {
	Date             string `json:"date"`
	InvestmentType   string `json:"investmentType"`
	Name             string `json:"name"`
	ISIN             string `json:"isin,omitempty"`
	InterestRate     string `json:"interestRate,omitempty"`
	TransactionType  string `json:"transactionType"`
	Quantity         string `json:"quantity"`
	BuyRate          string `json:"buyRate"`
	SellRate         string `json:"sellRate,omitempty"`
	SellAmount       string `json:"sellAmount,omitempty"`
	BrokerBank       string `json:"brokerBank,omitempty"`
	BucketAllocation string `json:"bucketAllocation,omitempty"`
}

// toDomain converts the request into a trade entity. BuyAmount is derived by
// the orchestrator, never accepted from the client.
func (r *tradeRequest) toDomain() (*domain.Trade, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return nil, errors.New("date must be formatted YYYY-MM-DD")
	}

	trade := &domain.Trade{
		Date:             date,
		InvestmentType:   domain.InvestmentType(r.InvestmentType),
		Name:             r.Name,
		ISIN:             r.ISIN,
		TransactionType:  domain.TransactionType(r.TransactionType),
		BrokerBank:       r.BrokerBank,
		BucketAllocation: r.BucketAllocation,
	}

	for _, f := range []struct {
		dst      *decimal.Decimal
		src      string
		name     string
		required bool
	}{
		{&trade.Quantity, r.Quantity, "quantity", true},
		{&trade.BuyRate, r.BuyRate, "buyRate", true},
		{&trade.SellRate, r.SellRate, "sellRate", false},
		{&trade.SellAmount, r.SellAmount, "sellAmount", false},
		{&trade.InterestRate, r.InterestRate, "interestRate", false},
	} {
		if f.src == "" {
			if f.required {
				return nil, errors.New(f.name + " is required")
			}
			continue
		}
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, errors.New("invalid " + f.name)
		}
		*f.dst = d
	}

	return trade, nil
}

type tradeUpdateRequest struct {
	Date             *string `json:"date,omitempty"`
	Name             *string `json:"name,omitempty"`
	ISIN             *string `json:"isin,omitempty"`
	InterestRate     *string `json:"interestRate,omitempty"`
	Quantity         *string `json:"quantity,omitempty"`
	BuyRate          *string `json:"buyRate,omitempty"`
	SellRate         *string `json:"sellRate,omitempty"`
	SellAmount       *string `json:"sellAmount,omitempty"`
	BrokerBank       *string `json:"brokerBank,omitempty"`
	BucketAllocation *string `json:"bucketAllocation,omitempty"`
}

func (r *tradeUpdateRequest) toUpdate() (portfolio.TradeUpdate, error) {
	upd := portfolio.TradeUpdate{
		Name:             r.Name,
		ISIN:             r.ISIN,
		BrokerBank:       r.BrokerBank,
		BucketAllocation: r.BucketAllocation,
	}

	if r.Date != nil {
		date, err := time.Parse(dateLayout, *r.Date)
		if err != nil {
			return upd, errors.New("date must be formatted YYYY-MM-DD")
		}
		upd.Date = &date
	}

	for _, f := range []struct {
		dst  **decimal.Decimal
		src  *string
		name string
	}{
		{&upd.Quantity, r.Quantity, "quantity"},
		{&upd.BuyRate, r.BuyRate, "buyRate"},
		{&upd.SellRate, r.SellRate, "sellRate"},
		{&upd.SellAmount, r.SellAmount, "sellAmount"},
		{&upd.InterestRate, r.InterestRate, "interestRate"},
	} {
		if f.src == nil {
			continue
		}
		d, err := decimal.NewFromString(*f.src)
		if err != nil {
			return upd, errors.New("invalid " + f.name)
		}
		*f.dst = &d
	}

	return upd, nil
}

type tradeResponse struct {
	ID               string `json:"id"`
	Date             string `json:"date"`
	InvestmentType   string `json:"investmentType"`
	Name             string `json:"name"`
	ISIN             string `json:"isin,omitempty"`
	InterestRate     string `json:"interestRate"`
	TransactionType  string `json:"transactionType"`
	Quantity         string `json:"quantity"`
	BuyRate          string `json:"buyRate"`
	SellRate         string `json:"sellRate"`
	SellAmount       string `json:"sellAmount"`
	BuyAmount        string `json:"buyAmount"`
	BrokerBank       string `json:"brokerBank,omitempty"`
	BucketAllocation string `json:"bucketAllocation,omitempty"`
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		ID:               t.ID.String(),
		Date:             t.Date.Format(dateLayout),
		InvestmentType:   string(t.InvestmentType),
		Name:             t.Name,
		ISIN:             t.ISIN,
		InterestRate:     t.InterestRate.String(),
		TransactionType:  string(t.TransactionType),
		Quantity:         t.Quantity.String(),
		BuyRate:          t.BuyRate.String(),
		SellRate:         t.SellRate.String(),
		SellAmount:       t.SellAmount.String(),
		BuyAmount:        t.BuyAmount.String(),
		BrokerBank:       t.BrokerBank,
		BucketAllocation: t.BucketAllocation,
	}
}

type holdingResponse struct {
	InstrumentKey    string  `json:"instrumentKey"`
	Name             string  `json:"name"`
	ISIN             string  `json:"isin,omitempty"`
	InvestmentType   string  `json:"investmentType"`
	NetQuantity      string  `json:"netQuantity"`
	AverageBuyPrice  string  `json:"averageBuyPrice"`
	InvestedAmount   string  `json:"investedAmount"`
	CurrentPrice     string  `json:"currentPrice"`
	CurrentValue     string  `json:"currentValue"`
	GainLossAmount   string  `json:"gainLossAmount"`
	GainLossPercent  float64 `json:"gainLossPercent"`
	AnnualYield      float64 `json:"annualYield"`
	XIRR             float64 `json:"xirr"`
	BucketAllocation string  `json:"bucketAllocation,omitempty"`
	FirstBuyDate     string  `json:"firstBuyDate"`
}

func toHoldingResponse(h *domain.Holding) holdingResponse {
	return holdingResponse{
		InstrumentKey:    h.InstrumentKey,
		Name:             h.Name,
		ISIN:             h.ISIN,
		InvestmentType:   string(h.InvestmentType),
		NetQuantity:      h.NetQuantity.String(),
		AverageBuyPrice:  h.AverageBuyPrice.String(),
		InvestedAmount:   h.InvestedAmount.String(),
		CurrentPrice:     h.CurrentPrice.String(),
		CurrentValue:     h.CurrentValue.String(),
		GainLossAmount:   h.GainLossAmount.String(),
		GainLossPercent:  h.GainLossPercent,
		AnnualYield:      h.AnnualYield,
		XIRR:             h.XIRR,
		BucketAllocation: h.BucketAllocation,
		FirstBuyDate:     h.FirstBuyDate.Format(dateLayout),
	}
}

type bucketSummaryResponse struct {
	Name            string  `json:"name"`
	Purpose         string  `json:"purpose"`
	TargetAmount    string  `json:"targetAmount"`
	CurrentValue    string  `json:"currentValue"`
	InvestedAmount  string  `json:"investedAmount"`
	GainLossAmount  string  `json:"gainLossAmount"`
	GainLossPercent float64 `json:"gainLossPercent"`
	ProgressPercent float64 `json:"progressPercent"`
	HoldingsCount   int     `json:"holdingsCount"`
	AnnualYield     float64 `json:"annualYield"`
	XIRR            float64 `json:"xirr"`
}

func toBucketSummaryResponse(b *domain.BucketSummary) bucketSummaryResponse {
	return bucketSummaryResponse{
		Name:            b.Name,
		Purpose:         b.Purpose,
		TargetAmount:    b.TargetAmount.String(),
		CurrentValue:    b.CurrentValue.String(),
		InvestedAmount:  b.InvestedAmount.String(),
		GainLossAmount:  b.GainLossAmount.String(),
		GainLossPercent: b.GainLossPercent,
		ProgressPercent: b.ProgressPercent,
		HoldingsCount:   b.HoldingsCount,
		AnnualYield:     b.AnnualYield,
		XIRR:            b.XIRR,
	}
}

type bucketUpdateRequest struct {
	TargetAmount string `json:"targetAmount"`
	Purpose      string `json:"purpose"`
}

type dashboardResponse struct {
	NetWorth        string                   `json:"netWorth"`
	TotalInvested   string                   `json:"totalInvested"`
	GainLossAmount  string                   `json:"gainLossAmount"`
	GainLossPercent float64                  `json:"gainLossPercent"`
	HoldingsCount   int                      `json:"holdingsCount"`
	BucketProgress  []bucketProgressResponse `json:"bucketProgress"`
}

type bucketProgressResponse struct {
	Name            string  `json:"name"`
	Purpose         string  `json:"purpose"`
	CurrentValue    string  `json:"currentValue"`
	TargetAmount    string  `json:"targetAmount"`
	ProgressPercent float64 `json:"progressPercent"`
}

func toDashboardResponse(s *dashboard.Summary) dashboardResponse {
	resp := dashboardResponse{
		NetWorth:        s.NetWorth.String(),
		TotalInvested:   s.TotalInvested.String(),
		GainLossAmount:  s.GainLossAmount.String(),
		GainLossPercent: s.GainLossPercent,
		HoldingsCount:   s.HoldingsCount,
		BucketProgress:  []bucketProgressResponse{},
	}
	for _, b := range s.BucketProgress {
		resp.BucketProgress = append(resp.BucketProgress, bucketProgressResponse{
			Name:            b.Name,
			Purpose:         b.Purpose,
			CurrentValue:    b.CurrentValue.String(),
			TargetAmount:    b.TargetAmount.String(),
			ProgressPercent: b.ProgressPercent,
		})
	}
	return resp
}

type otpRequestBody struct {
	Phone string `json:"phone"`
}

type otpRequestResponse struct {
	RequestID string `json:"requestId"`
}

type otpVerifyBody struct {
	RequestID string `json:"requestId"`
	Code      string `json:"code"`
}

type otpVerifyResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

type refreshResponse struct {
	Refreshed bool `json:"refreshed"`
}

type errorResponse struct {
	Error string `json:"error"`
}
