package postgres

import (
	"context"
	"fmt"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository.
// The holdings table is a denormalized cache for fast first paint; it is
// replaced wholesale and never read back as a source of truth.
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding cache repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// ReplaceAll atomically replaces the user's cached holdings
func (r *holdingRepository) ReplaceAll(ctx context.Context, userID string, holdings []*domain.Holding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin holdings replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM holdings WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear holdings cache: %w", err)
	}

	insert := `
		INSERT INTO holdings (user_id, instrument_key, name, isin, investment_type,
			net_quantity, average_buy_price, invested_amount, current_price,
			current_value, gain_loss_amount, gain_loss_percent, annual_yield,
			xirr, bucket_allocation, first_buy_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	for _, h := range holdings {
		_, err := tx.ExecContext(ctx, insert,
			userID,
			h.InstrumentKey,
			h.Name,
			nullString(h.ISIN),
			string(h.InvestmentType),
			h.NetQuantity.String(),
			h.AverageBuyPrice.String(),
			h.InvestedAmount.String(),
			h.CurrentPrice.String(),
			h.CurrentValue.String(),
			h.GainLossAmount.String(),
			h.GainLossPercent,
			h.AnnualYield,
			h.XIRR,
			nullString(h.BucketAllocation),
			h.FirstBuyDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.InstrumentKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit holdings replace: %w", err)
	}

	return nil
}
