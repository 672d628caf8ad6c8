package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// bucketRepository implements domain.BucketRepository
type bucketRepository struct {
	db *DB
}

// NewBucketRepository creates a new bucket repository
func NewBucketRepository(db *DB) domain.BucketRepository {
	return &bucketRepository{db: db}
}

// List retrieves all persisted bucket records for a user
func (r *bucketRepository) List(ctx context.Context, userID string) ([]*domain.Bucket, error) {
	query := `
		SELECT name, target_amount, purpose
		FROM buckets
		WHERE user_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []*domain.Bucket
	for rows.Next() {
		var bucket domain.Bucket
		var targetStr string

		if err := rows.Scan(&bucket.Name, &targetStr, &bucket.Purpose); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}

		target, err := decimal.NewFromString(targetStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse target_amount: %w", err)
		}
		bucket.TargetAmount = target

		buckets = append(buckets, &bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}

	return buckets, nil
}

// Upsert creates or replaces a bucket record keyed by (user, name)
func (r *bucketRepository) Upsert(ctx context.Context, userID string, bucket *domain.Bucket) error {
	query := `
		INSERT INTO buckets (user_id, name, target_amount, purpose)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, name)
		DO UPDATE SET target_amount = EXCLUDED.target_amount, purpose = EXCLUDED.purpose
	`

	_, err := r.db.ExecContext(ctx, query,
		userID,
		bucket.Name,
		bucket.TargetAmount.String(),
		bucket.Purpose,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert bucket: %w", err)
	}

	return nil
}
