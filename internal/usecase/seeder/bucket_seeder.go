package seeder

import (
	"context"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// BucketSeeder ensures every label in the fixed bucket enumeration has a
// persisted record for a user, so targets and purposes are editable from the
// first session.
type BucketSeeder struct {
	repo domain.BucketRepository
}

// NewBucketSeeder creates a new BucketSeeder instance
func NewBucketSeeder(repo domain.BucketRepository) *BucketSeeder {
	return &BucketSeeder{repo: repo}
}

// Seed creates any missing default bucket records for the user.
// Existing records are never overwritten: persisted targets and purposes are
// user data.
func (s *BucketSeeder) Seed(ctx context.Context, userID string) error {
	existing, err := s.repo.List(ctx, userID)
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(existing))
	for _, b := range existing {
		present[b.Name] = true
	}

	for _, def := range domain.DefaultBuckets() {
		if present[def.Name] {
			continue
		}

		if err := def.Validate(); err != nil {
			return err
		}
		if err := s.repo.Upsert(ctx, userID, def); err != nil {
			return err
		}
	}

	return nil
}
