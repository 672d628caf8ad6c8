package domain

import "errors"

var (
	// ErrTradeNotFound is returned when a trade ID does not exist in storage
	ErrTradeNotFound = errors.New("trade not found")

	// ErrBucketNotFound is returned when a bucket label has no persisted record
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrPriceUnavailable signals a price source could not resolve a value for
	// the requested instrument. Never fatal: callers degrade to cached or
	// synthetic prices.
	ErrPriceUnavailable = errors.New("price unavailable")
)
