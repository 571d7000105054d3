package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/banking-assistant/backend/internal/models"
)

// PostgresStore — источник данных поверх PostgreSQL, для стендов
// с настоящей таблицей транзакций вместо файлового мока.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создает источник данных поверх пула подключений.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Transactions возвращает все транзакции счета.
func (s *PostgresStore) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, posted_at, direction, amount,
		       merchant_name, merchant_category, merchant_subcategory,
		       is_pending, COALESCE(payment_rail, ''), COALESCE(card_last4, '')
		FROM transactions
		WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.PostedAt,
			&tx.Direction,
			&tx.Amount,
			&tx.Merchant.Name,
			&tx.Merchant.Category,
			&tx.Merchant.Subcategory,
			&tx.IsPending,
			&tx.PaymentRail,
			&tx.CardLast4,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	return transactions, nil
}

// Balance возвращает баланс счета.
func (s *PostgresStore) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	var balance models.Balance
	err := s.pool.QueryRow(ctx, `
		SELECT account_id, available, current, as_of
		FROM balances
		WHERE account_id = $1`, accountID).
		Scan(&balance.AccountID, &balance.Available, &balance.Current, &balance.AsOf)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Balance{}, ErrNotFound
	}
	if err != nil {
		return models.Balance{}, fmt.Errorf("query balance: %w", err)
	}

	return balance, nil
}
