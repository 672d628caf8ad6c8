package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Bucket represents a user-editable savings goal. Only TargetAmount and
// Purpose carry independent identity and are persisted; everything else about
// a bucket is derived from holdings.
type Bucket struct {
	Name         string // bucket label, e.g. "bucket1a"
	TargetAmount decimal.Decimal
	Purpose      string
}

// Validate ensures the bucket adheres to domain rules
// Returns an error if validation fails
func (b *Bucket) Validate() error {
	if b.Name == "" {
		return errors.New("bucket name cannot be empty")
	}

	if b.TargetAmount.LessThan(decimal.Zero) {
		return errors.New("bucket target amount cannot be negative")
	}

	return nil
}

// BucketSummary is the derived aggregate over all holdings tagged with one
// bucket label.
type BucketSummary struct {
	Name            string
	Purpose         string
	TargetAmount    decimal.Decimal
	CurrentValue    decimal.Decimal
	InvestedAmount  decimal.Decimal
	GainLossAmount  decimal.Decimal
	GainLossPercent float64
	ProgressPercent float64 // min(current/target*100, 100)
	HoldingsCount   int
	AnnualYield     float64 // value-weighted
	XIRR            float64 // value-weighted
}

// DefaultBuckets returns the fixed enumeration of goal buckets with their
// default targets and purposes. Persisted bucket records override
// TargetAmount and Purpose; the set of labels itself is closed.
func DefaultBuckets() []*Bucket {
	return []*Bucket{
		{Name: "bucket1a", TargetAmount: decimal.NewFromInt(500000), Purpose: "Emergency fund"},
		{Name: "bucket1b", TargetAmount: decimal.NewFromInt(300000), Purpose: "Health buffer"},
		{Name: "bucket1c", TargetAmount: decimal.NewFromInt(200000), Purpose: "Insurance premiums"},
		{Name: "bucket1d", TargetAmount: decimal.NewFromInt(400000), Purpose: "Short-term goals"},
		{Name: "bucket1e", TargetAmount: decimal.NewFromInt(250000), Purpose: "Vacation"},
		{Name: "bucket2", TargetAmount: decimal.NewFromInt(2500000), Purpose: "House down payment"},
		{Name: "bucket3", TargetAmount: decimal.NewFromInt(10000000), Purpose: "Retirement"},
	}
}

// KnownBucket reports whether label is part of the fixed bucket enumeration.
func KnownBucket(label string) bool {
	for _, b := range DefaultBuckets() {
		if b.Name == label {
			return true
		}
	}
	return false
}
