// Package xirr solves the money-weighted annualized return of an irregular
// dated cash-flow series via Newton-Raphson iteration.
package xirr

import (
	"math"
	"sort"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

const (
	maxIterations = 100
	tolerance     = 1e-6
	initialGuess  = 0.10
	minRate       = -0.99
	maxRate       = 10.0

	// output bounds, percent
	minPercent = -99.0
	maxPercent = 1000.0

	daysPerYear = 365.25
)

// Solve returns the annualized internal rate of return of the cash-flow
// series as a percent. Outflows must be negative, inflows positive.
//
// Fewer than two flows return exactly 0. The solver has no convergence
// guarantee for pathological cash-flow shapes; the result is a best-effort
// estimate clamped to [-99, 1000], with non-finite values collapsed to 0.
func Solve(flows []domain.CashFlow) float64 {
	if len(flows) < 2 {
		return 0
	}

	sorted := make([]domain.CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	base := sorted[0].Date
	years := make([]float64, len(sorted))
	amounts := make([]float64, len(sorted))
	for i, f := range sorted {
		years[i] = f.Date.Sub(base).Hours() / 24 / daysPerYear
		amounts[i] = f.Amount.InexactFloat64()
	}

	rate := initialGuess
	for iter := 0; iter < maxIterations; iter++ {
		npv, dnpv := npvAndDerivative(rate, years, amounts)
		if math.Abs(npv) < tolerance {
			break
		}
		if dnpv == 0 {
			break
		}

		next := rate - npv/dnpv
		if next < minRate || next > maxRate {
			// Stop at the current estimate rather than diverging further
			break
		}
		rate = next
	}

	percent := rate * 100
	if math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0
	}
	if percent < minPercent {
		return minPercent
	}
	if percent > maxPercent {
		return maxPercent
	}
	return percent
}

// npvAndDerivative evaluates NPV(rate) = sum amount_i / (1+rate)^years_i and
// its derivative with respect to rate.
func npvAndDerivative(rate float64, years, amounts []float64) (float64, float64) {
	npv := 0.0
	dnpv := 0.0
	base := 1 + rate

	for i, amount := range amounts {
		y := years[i]
		discount := math.Pow(base, y)
		if discount == 0 || math.IsInf(discount, 0) {
			continue
		}
		npv += amount / discount
		if y != 0 {
			dnpv -= y * amount / (discount * base)
		}
	}

	return npv, dnpv
}
