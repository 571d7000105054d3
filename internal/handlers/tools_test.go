package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"example.com/banking-assistant/backend/internal/models"
	"example.com/banking-assistant/backend/internal/store"
)

type stubSource struct {
	transactions []models.Transaction
	balance      models.Balance
	balanceErr   error
}

func (s *stubSource) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return s.transactions, nil
}

func (s *stubSource) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	if s.balanceErr != nil {
		return models.Balance{}, s.balanceErr
	}
	return s.balance, nil
}

func toolsRequest(target string) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

// TestListTransactionsRequiresAccount проверяет обязательность accountId.
func TestListTransactionsRequiresAccount(t *testing.T) {
	h := NewToolsHandler(&stubSource{})

	rec, c := toolsRequest("/tool/transactions?start=2026-01-01&end=2026-01-31")
	if err := h.ListTransactions(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// TestListTransactionsValidatesParams проверяет отказ на кривых параметрах.
func TestListTransactionsValidatesParams(t *testing.T) {
	h := NewToolsHandler(&stubSource{})

	targets := []string{
		"/tool/transactions?accountId=A123&start=01-01-2026&end=2026-01-31",
		"/tool/transactions?accountId=A123&start=2026-01-01",
		"/tool/transactions?accountId=A123&start=2026-01-01&end=2026-01-31&includePending=maybe",
		"/tool/transactions?accountId=A123&start=2026-01-01&end=2026-01-31&limit=0",
		"/tool/transactions?accountId=A123&start=2026-01-01&end=2026-01-31&limit=9999",
	}
	for _, target := range targets {
		rec, c := toolsRequest(target)
		if err := h.ListTransactions(c); err != nil {
			t.Fatalf("expected no error for %s, got %v", target, err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", target, rec.Code)
		}
	}
}

// TestListTransactionsOK проверяет выборку за окно дат.
func TestListTransactionsOK(t *testing.T) {
	h := NewToolsHandler(&stubSource{transactions: []models.Transaction{
		{
			ID:        "t1",
			AccountID: "A123",
			PostedAt:  time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
			Direction: models.DirectionDebit,
			Amount:    25,
			Merchant:  models.Merchant{Name: "Shop", Category: "Shopping"},
		},
		{
			ID:        "t2",
			AccountID: "A123",
			PostedAt:  time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
			Direction: models.DirectionDebit,
			Amount:    40,
			Merchant:  models.Merchant{Name: "Shop", Category: "Shopping"},
		},
	}})

	rec, c := toolsRequest("/tool/transactions?accountId=A123&start=2026-01-01&end=2026-01-31")
	if err := h.ListTransactions(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var transactions []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &transactions); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(transactions) != 1 || transactions[0].ID != "t1" {
		t.Fatalf("unexpected transactions: %+v", transactions)
	}
}

// TestGetTransactionNotFound проверяет 404 на неизвестном id.
func TestGetTransactionNotFound(t *testing.T) {
	h := NewToolsHandler(&stubSource{})

	rec, c := toolsRequest("/tool/transactions/t999?accountId=A123")
	c.SetParamNames("txId")
	c.SetParamValues("t999")

	if err := h.GetTransaction(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// TestGetBalance проверяет отдачу баланса и 404 для пустого счета.
func TestGetBalance(t *testing.T) {
	h := NewToolsHandler(&stubSource{balance: models.Balance{AccountID: "A123", Available: 100, Current: 120}})

	rec, c := toolsRequest("/tool/balances?accountId=A123")
	if err := h.GetBalance(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var balance models.Balance
	if err := json.Unmarshal(rec.Body.Bytes(), &balance); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if balance.Current != 120 {
		t.Fatalf("unexpected balance: %+v", balance)
	}

	h = NewToolsHandler(&stubSource{balanceErr: store.ErrNotFound})
	rec, c = toolsRequest("/tool/balances?accountId=A999")
	if err := h.GetBalance(c); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// TestParseDateParam проверяет разбор дат в query-параметрах.
func TestParseDateParam(t *testing.T) {
	_, c := toolsRequest("/tool/transactions?start=2026-01-15")
	value, err := parseDateParam(c, "start")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if value.Format(dateLayout) != "2026-01-15" {
		t.Fatalf("unexpected date: %s", value.Format(dateLayout))
	}

	_, c = toolsRequest("/tool/transactions?start=15.01.2026")
	if _, err := parseDateParam(c, "start"); err == nil {
		t.Fatal("expected error for invalid format")
	}

	_, c = toolsRequest("/tool/transactions")
	if _, err := parseDateParam(c, "end"); err == nil {
		t.Fatal("expected error for missing param")
	}
}
