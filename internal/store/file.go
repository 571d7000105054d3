package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"example.com/banking-assistant/backend/internal/models"
)

// FileStore читает мок-данные счета из JSON-файлов каталога data.
// Транзакции счета загружаются один раз и кэшируются на время жизни процесса.
type FileStore struct {
	dataDir string

	mu    sync.RWMutex
	cache map[string][]models.Transaction
}

// NewFileStore создает файловый источник данных поверх каталога data.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		dataDir: dataDir,
		cache:   make(map[string][]models.Transaction),
	}
}

// Transactions возвращает все транзакции счета из кэша или файла.
// Отсутствующий файл означает пустой счет, а не ошибку.
func (s *FileStore) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.RLock()
	cached, ok := s.cache[accountID]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(s.dataDir, fmt.Sprintf("txns_%s.json", accountID))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.Transaction{}, nil
		}
		return nil, fmt.Errorf("read transactions file: %w", err)
	}

	var transactions []models.Transaction
	if err := json.Unmarshal(raw, &transactions); err != nil {
		return nil, fmt.Errorf("decode transactions file: %w", err)
	}

	// Конкурентные первые чтения могут загрузить файл дважды,
	// содержимое одинаковое, поэтому последняя запись безопасна.
	s.mu.Lock()
	s.cache[accountID] = transactions
	s.mu.Unlock()

	return transactions, nil
}

// Balance возвращает баланс счета из JSON-файла.
func (s *FileStore) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	path := filepath.Join(s.dataDir, fmt.Sprintf("balance_%s.json", accountID))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Balance{}, ErrNotFound
		}
		return models.Balance{}, fmt.Errorf("read balance file: %w", err)
	}

	var balance models.Balance
	if err := json.Unmarshal(raw, &balance); err != nil {
		return models.Balance{}, fmt.Errorf("decode balance file: %w", err)
	}

	return balance, nil
}
