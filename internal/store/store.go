package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"example.com/banking-assistant/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

const (
	// DefaultLimit — разумный конечный предел выборки по умолчанию.
	DefaultLimit = 500
	// MaxLimit — верхняя граница limit для внешних вызовов.
	MaxLimit = 5000
)

// Source отдает все транзакции и баланс счета; порядок не гарантируется.
type Source interface {
	Transactions(ctx context.Context, accountID string) ([]models.Transaction, error)
	Balance(ctx context.Context, accountID string) (models.Balance, error)
}

// Fetch выбирает транзакции счета за окно дат включительно,
// сортирует от новых к старым и обрезает по limit.
// От сортировки зависят все обработчики с семантикой "последние N".
func Fetch(ctx context.Context, src Source, accountID string, start, end time.Time, includePending bool, limit int) ([]models.Transaction, error) {
	all, err := src.Transactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filtered := make([]models.Transaction, 0, len(all))
	for _, tx := range all {
		day := tx.PostedAt
		postedDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

		if postedDay.Before(startDay) || postedDay.After(endDay) {
			continue
		}
		if !includePending && tx.IsPending {
			continue
		}
		filtered = append(filtered, tx)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PostedAt.After(filtered[j].PostedAt)
	})

	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	return filtered, nil
}

// Find возвращает одну транзакцию счета по идентификатору.
func Find(ctx context.Context, src Source, accountID, txID string) (models.Transaction, error) {
	all, err := src.Transactions(ctx, accountID)
	if err != nil {
		return models.Transaction{}, err
	}

	for _, tx := range all {
		if tx.ID == txID {
			return tx, nil
		}
	}

	return models.Transaction{}, ErrNotFound
}
