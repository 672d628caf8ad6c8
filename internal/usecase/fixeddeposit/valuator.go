// Package fixeddeposit values fixed deposits by quarterly compounding,
// since deposits have no market price to fetch.
package fixeddeposit

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// compounding periods per year (quarterly)
	periodsPerYear = 4

	daysPerYear = 365.25
)

// Valuation is the result of compounding a deposit to an as-of date.
type Valuation struct {
	MaturityValue  decimal.Decimal
	InterestEarned decimal.Decimal
	DaysInvested   int
}

// Value computes the compounded value of a deposit at asOf.
//
// maturity = principal * (1 + r/n)^(n*t) with n=4 and t = elapsed days / 365.25.
// A future start date yields t < 0 and a valid discounted result; this is
// accepted, not rejected. Leap years are covered by the 365.25 approximation
// only.
func Value(principal decimal.Decimal, annualRatePercent decimal.Decimal, startDate, asOf time.Time) Valuation {
	days := asOf.Sub(startDate).Hours() / 24
	t := days / daysPerYear
	r := annualRatePercent.InexactFloat64() / 100

	factor := math.Pow(1+r/periodsPerYear, periodsPerYear*t)
	maturity := principal.Mul(decimal.NewFromFloat(factor))

	return Valuation{
		MaturityValue:  maturity,
		InterestEarned: maturity.Sub(principal),
		DaysInvested:   int(days),
	}
}

// ValueNow computes the compounded value of a deposit as of the current time.
func ValueNow(principal decimal.Decimal, annualRatePercent decimal.Decimal, startDate time.Time) Valuation {
	return Value(principal, annualRatePercent, startDate, time.Now())
}
