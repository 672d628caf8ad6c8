package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kmehta/nivesh-backend/internal/domain"
)

// tradeRepository implements domain.TradeRepository
type tradeRepository struct {
	db       *DB
	listener *Listener
}

// NewTradeRepository creates a new trade repository.
// listener may be nil, in which case Subscribe is unavailable.
func NewTradeRepository(db *DB, listener *Listener) domain.TradeRepository {
	return &tradeRepository{db: db, listener: listener}
}

const tradeColumns = `id, trade_date, investment_type, name, isin, interest_rate,
		transaction_type, quantity, buy_rate, sell_rate, sell_amount, buy_amount,
		broker_bank, bucket_allocation`

// List retrieves all trades for a user, ordered by date ascending
func (r *tradeRepository) List(ctx context.Context, userID string) ([]*domain.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY trade_date ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}

	return trades, nil
}

// Add persists a new trade
func (r *tradeRepository) Add(ctx context.Context, userID string, trade *domain.Trade) error {
	query := `
		INSERT INTO trades (id, user_id, trade_date, investment_type, name, isin,
			interest_rate, transaction_type, quantity, buy_rate, sell_rate,
			sell_amount, buy_amount, broker_bank, bucket_allocation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID,
		userID,
		trade.Date,
		string(trade.InvestmentType),
		trade.Name,
		nullString(trade.ISIN),
		trade.InterestRate.String(),
		string(trade.TransactionType),
		trade.Quantity.String(),
		trade.BuyRate.String(),
		trade.SellRate.String(),
		trade.SellAmount.String(),
		trade.BuyAmount.String(),
		nullString(trade.BrokerBank),
		nullString(trade.BucketAllocation),
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	return r.notify(ctx, userID)
}

// Update replaces an existing trade
func (r *tradeRepository) Update(ctx context.Context, userID string, trade *domain.Trade) error {
	query := `
		UPDATE trades
		SET trade_date = $3, investment_type = $4, name = $5, isin = $6,
			interest_rate = $7, transaction_type = $8, quantity = $9,
			buy_rate = $10, sell_rate = $11, sell_amount = $12, buy_amount = $13,
			broker_bank = $14, bucket_allocation = $15
		WHERE id = $1 AND user_id = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		trade.ID,
		userID,
		trade.Date,
		string(trade.InvestmentType),
		trade.Name,
		nullString(trade.ISIN),
		trade.InterestRate.String(),
		string(trade.TransactionType),
		trade.Quantity.String(),
		trade.BuyRate.String(),
		trade.SellRate.String(),
		trade.SellAmount.String(),
		trade.BuyAmount.String(),
		nullString(trade.BrokerBank),
		nullString(trade.BucketAllocation),
	)
	if err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTradeNotFound
	}

	return r.notify(ctx, userID)
}

// Delete removes a trade by ID
func (r *tradeRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrTradeNotFound
	}

	return r.notify(ctx, userID)
}

// Subscribe delivers the full trade list whenever a change notification
// arrives for the user's channel.
func (r *tradeRepository) Subscribe(ctx context.Context, userID string, fn func([]*domain.Trade)) (func(), error) {
	if r.listener == nil {
		return nil, errors.New("trade subscription requires a listener")
	}

	return r.listener.Subscribe(tradeChannel(userID), func() {
		trades, err := r.List(ctx, userID)
		if err != nil {
			return
		}
		fn(trades)
	})
}

// notify pings the user's channel so other sessions reload their trade list.
func (r *tradeRepository) notify(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_notify($1, '')`, tradeChannel(userID))
	if err != nil {
		return fmt.Errorf("failed to notify trade change: %w", err)
	}
	return nil
}

func tradeChannel(userID string) string {
	return "trades_" + userID
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var trade domain.Trade
	var investmentType, transactionType string
	var isin, brokerBank, bucketAllocation sql.NullString
	var interestRate, quantity, buyRate, sellRate, sellAmount, buyAmount string
	var tradeDate time.Time

	err := row.Scan(
		&trade.ID,
		&tradeDate,
		&investmentType,
		&trade.Name,
		&isin,
		&interestRate,
		&transactionType,
		&quantity,
		&buyRate,
		&sellRate,
		&sellAmount,
		&buyAmount,
		&brokerBank,
		&bucketAllocation,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTradeNotFound
		}
		return nil, fmt.Errorf("failed to scan trade: %w", err)
	}

	trade.Date = tradeDate
	trade.InvestmentType = domain.InvestmentType(investmentType)
	trade.TransactionType = domain.TransactionType(transactionType)
	trade.ISIN = isin.String
	trade.BrokerBank = brokerBank.String
	trade.BucketAllocation = bucketAllocation.String

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&trade.InterestRate, interestRate},
		{&trade.Quantity, quantity},
		{&trade.BuyRate, buyRate},
		{&trade.SellRate, sellRate},
		{&trade.SellAmount, sellAmount},
		{&trade.BuyAmount, buyAmount},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse trade decimal: %w", err)
		}
		*f.dst = d
	}

	return &trade, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
