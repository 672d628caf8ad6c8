// Package pricesource provides the concrete price feeds behind the cache:
// an AMFI-style NAV dump for mutual funds, a published CSV sheet for listed
// instruments, and a static spot table for metals.
package pricesource

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// NAVSource resolves mutual fund and index fund prices by ISIN from an
// AMFI-style NAV dump. The full feed is fetched once and parsed into a map;
// the parse is reused until feedTTL elapses.
type NAVSource struct {
	url string
	cli *http.Client
	log zerolog.Logger

	mu      sync.Mutex
	navs    map[string]decimal.Decimal
	fetched time.Time
	feedTTL time.Duration
}

// NewNAVSource creates a NAV feed source. An empty url disables it.
func NewNAVSource(url string, log zerolog.Logger) *NAVSource {
	return &NAVSource{
		url:     url,
		cli:     &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("component", "nav_source").Logger(),
		feedTTL: 6 * time.Hour,
	}
}

// Resolve looks up the NAV for an ISIN. Non-fund asset types are passed on to
// the next source in the chain.
func (s *NAVSource) Resolve(ctx context.Context, identifier string, assetType domain.InvestmentType) (decimal.Decimal, error) {
	if assetType != domain.InvestmentTypeMutualFund && assetType != domain.InvestmentTypeIndexFund {
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	if s.url == "" {
		return decimal.Zero, domain.ErrPriceUnavailable
	}

	navs, err := s.feed(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	nav, ok := navs[strings.ToUpper(strings.TrimSpace(identifier))]
	if !ok {
		return decimal.Zero, domain.ErrPriceUnavailable
	}
	return nav, nil
}

// feed returns the parsed ISIN->NAV map, refetching when stale.
func (s *NAVSource) feed(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.navs != nil && time.Since(s.fetched) < s.feedTTL {
		return s.navs, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build NAV request: %w", err)
	}

	resp, err := s.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch NAV feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NAV feed returned status %d", resp.StatusCode)
	}

	navs := make(map[string]decimal.Decimal)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		// Scheme Code;ISIN Payout;ISIN Reinvest;Scheme Name;NAV;Date
		fields := strings.Split(scanner.Text(), ";")
		if len(fields) < 5 {
			continue
		}

		nav, err := decimal.NewFromString(strings.TrimSpace(fields[4]))
		if err != nil || nav.LessThanOrEqual(decimal.Zero) {
			continue
		}

		for _, isin := range []string{fields[1], fields[2]} {
			isin = strings.ToUpper(strings.TrimSpace(isin))
			if isin != "" && isin != "-" {
				navs[isin] = nav
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NAV feed: %w", err)
	}

	s.navs = navs
	s.fetched = time.Now()
	s.log.Info().Int("schemes", len(navs)).Msg("NAV feed refreshed")
	return navs, nil
}
