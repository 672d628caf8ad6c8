package pricesource

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// SheetSource resolves listed instrument prices from a published CSV sheet
// with a symbol,price header row. It covers stocks, ETFs, bonds and NPS
// units; fund NAVs come from the NAV feed instead.
type SheetSource struct {
	url string
	cli *http.Client
	log zerolog.Logger
}

// NewSheetSource creates a CSV sheet source. An empty url disables it.
func NewSheetSource(url string, log zerolog.Logger) *SheetSource {
	return &SheetSource{
		url: url,
		cli: &http.Client{Timeout: 15 * time.Second},
		log: log.With().Str("component", "sheet_source").Logger(),
	}
}

// Resolve fetches the sheet and looks up the symbol. The sheet is small
// enough that per-call fetching is acceptable; the price cache in front
// bounds the call rate.
func (s *SheetSource) Resolve(ctx context.Context, identifier string, assetType domain.InvestmentType) (decimal.Decimal, error) {
	switch assetType {
	case domain.InvestmentTypeStock, domain.InvestmentTypeETF, domain.InvestmentTypeBond, domain.InvestmentTypeNPS:
	default:
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	if s.url == "" {
		return decimal.Zero, domain.ErrPriceUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build sheet request: %w", err)
	}

	resp, err := s.cli.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch price sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price sheet returned status %d", resp.StatusCode)
	}

	symbol := strings.ToUpper(strings.TrimSpace(identifier))
	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse price sheet: %w", err)
	}

	for i, rec := range records {
		if i == 0 || len(rec) < 2 {
			// Header row
			continue
		}
		if strings.ToUpper(strings.TrimSpace(rec[0])) != symbol {
			continue
		}

		price, err := decimal.NewFromString(strings.TrimSpace(rec[1]))
		if err != nil || price.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("price sheet has invalid price for %s", symbol)
		}
		return price, nil
	}

	return decimal.Zero, domain.ErrPriceUnavailable
}
