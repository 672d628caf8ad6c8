package pricing

import (
	"strings"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// Instrument identifies one priceable asset extracted from the trade list.
type Instrument struct {
	Name           string
	ISIN           string
	InvestmentType domain.InvestmentType
}

// Identifier returns the value handed to price sources: ISIN when present,
// display name otherwise.
func (i Instrument) Identifier() string {
	if i.ISIN != "" {
		return i.ISIN
	}
	return i.Name
}

// CacheKey builds the canonical, collision-free cache key for an instrument.
// Mutual funds key on ISIN, stocks on symbol (falling back to name),
// commodities on a fixed spot key, everything else on (type, name).
func CacheKey(i Instrument) string {
	switch i.InvestmentType {
	case domain.InvestmentTypeMutualFund:
		if i.ISIN != "" {
			return "mf:" + i.ISIN
		}
		return "mf:" + normalize(i.Name)
	case domain.InvestmentTypeStock:
		if i.ISIN != "" {
			return "stock:" + normalize(i.ISIN)
		}
		return "stock:" + normalize(i.Name)
	case domain.InvestmentTypeGold:
		return "spot:gold"
	case domain.InvestmentTypeSilver:
		return "spot:silver"
	default:
		return string(i.InvestmentType) + ":" + normalize(i.Name)
	}
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// UniqueInstruments extracts the de-duplicated instrument set from a trade
// list, so a refresh issues one fetch per cache key.
func UniqueInstruments(trades []*domain.Trade) []Instrument {
	seen := make(map[string]bool)
	var out []Instrument

	for _, t := range trades {
		// Fixed deposits are valued by compounding, not by market price
		if t.InvestmentType == domain.InvestmentTypeFixedDeposit {
			continue
		}
		inst := Instrument{Name: t.Name, ISIN: t.ISIN, InvestmentType: t.InvestmentType}
		key := CacheKey(inst)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inst)
	}

	return out
}
