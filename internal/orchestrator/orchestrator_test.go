package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"example.com/banking-assistant/backend/internal/ai"
	"example.com/banking-assistant/backend/internal/models"
	"example.com/banking-assistant/backend/internal/query"
	"example.com/banking-assistant/backend/internal/store"
	"example.com/banking-assistant/backend/internal/ui"
)

type fakeCompiler struct {
	result ai.Result
	err    error
}

func (f *fakeCompiler) Compile(ctx context.Context, userMessage string) (ai.Result, error) {
	return f.result, f.err
}

type countingSource struct {
	transactions []models.Transaction
	balance      models.Balance
	balanceErr   error

	// Счетчики под мьютексом: обработчик сравнения месяцев читает
	// источник из двух горутин одновременно.
	mu           sync.Mutex
	listCalls    int
	balanceCalls int
}

func (s *countingSource) Transactions(ctx context.Context, accountID string) ([]models.Transaction, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	return s.transactions, nil
}

func (s *countingSource) Balance(ctx context.Context, accountID string) (models.Balance, error) {
	s.mu.Lock()
	s.balanceCalls++
	s.mu.Unlock()
	if s.balanceErr != nil {
		return models.Balance{}, s.balanceErr
	}
	return s.balance, nil
}

var today = time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC)

func debit(id string, postedAt time.Time, amount float64, merchant, category string) models.Transaction {
	return models.Transaction{
		ID:        id,
		AccountID: "A123",
		PostedAt:  postedAt,
		Direction: models.DirectionDebit,
		Amount:    amount,
		Merchant:  models.Merchant{Name: merchant, Category: category},
	}
}

func newOrchestrator(compiler Compiler, source store.Source) *Orchestrator {
	return New(compiler, source).WithClock(func() time.Time { return today })
}

func bankingSpec(intent query.Intent, tr query.TimeRange, params map[string]any) query.QuerySpec {
	if params == nil {
		params = map[string]any{}
	}
	return query.QuerySpec{
		IsBankingDomain: query.DomainIn,
		Intent:          intent,
		TimeRange:       tr,
		Params:          params,
	}
}

// TestChatDomainGate проверяет, что вне домена выборка данных не происходит.
func TestChatDomainGate(t *testing.T) {
	for _, flag := range []query.DomainFlag{query.DomainOut, query.DomainAmbiguous} {
		source := &countingSource{}
		spec := bankingSpec(query.IntentTransactionsList, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, nil)
		spec.IsBankingDomain = flag

		orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

		response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "asdkjasdj"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if source.listCalls != 0 || source.balanceCalls != 0 {
			t.Fatalf("expected no source calls, got %d/%d", source.listCalls, source.balanceCalls)
		}
		if len(response.UI.Messages) != 1 {
			t.Fatalf("expected a single clarification message, got %d", len(response.UI.Messages))
		}
		if response.Query == nil {
			t.Fatal("expected query to be present even when unexecuted")
		}
	}
}

// TestChatGateUsesModelQuestion проверяет, что гейт отдает вопрос модели.
func TestChatGateUsesModelQuestion(t *testing.T) {
	spec := bankingSpec(query.IntentTransactionsList, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, nil)
	spec.IsBankingDomain = query.DomainAmbiguous

	orch := newOrchestrator(&fakeCompiler{result: ai.Result{
		Spec:                  spec,
		ClarificationNeeded:   true,
		ClarificationQuestion: "Did you mean your recent transactions?",
	}}, &countingSource{})

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "???"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if response.UI.Messages[0].Content != "Did you mean your recent transactions?" {
		t.Fatalf("unexpected message: %q", response.UI.Messages[0].Content)
	}
}

// TestChatMalformedOutputRecovers проверяет мягкое восстановление после кривого ответа модели.
func TestChatMalformedOutputRecovers(t *testing.T) {
	orch := newOrchestrator(&fakeCompiler{err: ai.ErrMalformedModelOutput}, &countingSource{})

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "hello"})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if response.Query != nil {
		t.Fatal("expected no query for malformed output")
	}
	if len(response.UI.Messages) != 1 {
		t.Fatalf("expected a single message, got %d", len(response.UI.Messages))
	}
}

// TestChatUpstreamErrorPropagates проверяет проброс сетевого сбоя модели.
func TestChatUpstreamErrorPropagates(t *testing.T) {
	orch := newOrchestrator(&fakeCompiler{err: ai.ErrUpstreamUnavailable}, &countingSource{})

	if _, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "hi"}); !errors.Is(err, ai.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

// TestChatTransactionsList проверяет сценарий "последние 2 недели".
func TestChatTransactionsList(t *testing.T) {
	source := &countingSource{transactions: []models.Transaction{
		debit("t1", today.AddDate(0, 0, -1), 20, "Shop", "Shopping"),
		debit("t2", today.AddDate(0, 0, -40), 30, "Shop", "Shopping"),
		debit("t3", today.AddDate(0, 0, -5), 10, "Cafe", "Dining"),
	}}

	spec := bankingSpec(query.IntentTransactionsList, query.TimeRange{Mode: query.ModeRelative, Last: 2, Unit: query.UnitWeeks}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "show me my transactions from the last 2 weeks"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(response.UI.Components) != 1 {
		t.Fatalf("expected one component, got %d", len(response.UI.Components))
	}
	table, ok := response.UI.Components[0].(ui.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", response.UI.Components[0])
	}

	// Транзакция сорокадневной давности не попадает в окно двух недель.
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0][0] != "t1" || table.Rows[1][0] != "t3" {
		t.Fatalf("expected newest-first rows, got %v", table.Rows)
	}

	if len(response.UI.Controls) != 1 || response.UI.Controls[0].Type != "dateRangePicker" {
		t.Fatalf("expected default date range control, got %+v", response.UI.Controls)
	}
}

// TestChatTransactionsListLimitClamped проверяет, что limit<=0 не снимает ограничение.
func TestChatTransactionsListLimitClamped(t *testing.T) {
	transactions := make([]models.Transaction, 0, 60)
	for i := 0; i < 60; i++ {
		transactions = append(transactions, debit(
			fmt.Sprintf("t%02d", i),
			today.Add(-time.Duration(i)*time.Hour),
			10, "Shop", "Shopping",
		))
	}
	source := &countingSource{transactions: transactions}

	spec := bankingSpec(query.IntentTransactionsList, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, map[string]any{"limit": float64(0)})
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "show everything"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	table, ok := response.UI.Components[0].(ui.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", response.UI.Components[0])
	}
	if len(table.Rows) != 50 {
		t.Fatalf("expected the default limit of 50 rows, got %d", len(table.Rows))
	}
}

// TestChatFallbackIntent проверяет мягкий ответ на неизвестный интент.
func TestChatFallbackIntent(t *testing.T) {
	source := &countingSource{}
	spec := bankingSpec(query.Intent("order_pizza"), query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "order pizza"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if source.listCalls != 0 {
		t.Fatalf("expected no fetch for unknown intent, got %d", source.listCalls)
	}
	if response.UI.Messages[0].Content != fallbackMessage {
		t.Fatalf("unexpected message: %q", response.UI.Messages[0].Content)
	}

	// Контрол окна добавляется и к fallback-ответу, как и к любому другому.
	if len(response.UI.Controls) != 1 || response.UI.Controls[0].Type != "dateRangePicker" {
		t.Fatalf("expected default date range control on fallback, got %+v", response.UI.Controls)
	}
}

// TestChatUnrecognizedWithoutID проверяет просьбу выбрать транзакцию.
func TestChatUnrecognizedWithoutID(t *testing.T) {
	source := &countingSource{}
	spec := bankingSpec(query.IntentUnrecognizedTransaction, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "i don't recognize this"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if source.listCalls != 0 || source.balanceCalls != 0 {
		t.Fatal("expected no source calls without a transaction id")
	}
	if len(response.UI.Messages) != 1 {
		t.Fatalf("expected a single clarification message, got %d", len(response.UI.Messages))
	}
}

// TestChatUnrecognizedByParam проверяет диспут по id из params.
func TestChatUnrecognizedByParam(t *testing.T) {
	source := &countingSource{
		transactions: []models.Transaction{debit("t016", today.AddDate(0, 0, -3), 64.12, "TST* RIVERSIDE GRILL", "Dining")},
		balance:      models.Balance{AccountID: "A123", Available: 100, Current: 120},
	}
	spec := bankingSpec(query.IntentUnrecognizedTransaction, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, map[string]any{"transaction_id": "t016"})
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "I don't recognize transaction t016"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(response.UI.Components) != 1 {
		t.Fatalf("expected a dispute form, got %d components", len(response.UI.Components))
	}
	form, ok := response.UI.Components[0].(ui.Form)
	if !ok {
		t.Fatalf("expected a form, got %T", response.UI.Components[0])
	}
	if form.Fields[0].Value != "t016" {
		t.Fatalf("expected form prefilled with t016, got %v", form.Fields[0].Value)
	}
	if source.balanceCalls != 1 {
		t.Fatalf("expected one balance call, got %d", source.balanceCalls)
	}
}

// TestChatUnrecognizedFromContext проверяет запасной id из контекста запроса.
func TestChatUnrecognizedFromContext(t *testing.T) {
	source := &countingSource{
		transactions: []models.Transaction{debit("t011", today.AddDate(0, 0, -2), 86.40, "Whole Foods Market", "Groceries")},
		balance:      models.Balance{AccountID: "A123", Available: 100, Current: 120},
	}
	spec := bankingSpec(query.IntentUnrecognizedTransaction, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{
		AccountID:             "A123",
		Message:               "i don't recognize this transaction",
		SelectedTransactionID: "t011",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(response.UI.Components) != 1 {
		t.Fatalf("expected a dispute form, got %d components", len(response.UI.Components))
	}
}

// TestChatUnrecognizedNotFound проверяет мягкий ответ на неизвестный id.
func TestChatUnrecognizedNotFound(t *testing.T) {
	source := &countingSource{balance: models.Balance{AccountID: "A123"}}
	spec := bankingSpec(query.IntentUnrecognizedTransaction, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, map[string]any{"transaction_id": "t999"})
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "what is t999"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(response.UI.Components) != 0 {
		t.Fatal("expected no components for a missing transaction")
	}
	if len(response.UI.Messages) != 1 {
		t.Fatalf("expected a single not-found message, got %d", len(response.UI.Messages))
	}
}

// TestChatCompareMonths проверяет два независимых чтения и сводку по категориям.
func TestChatCompareMonths(t *testing.T) {
	source := &countingSource{transactions: []models.Transaction{
		debit("a1", time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC), 300, "Best Buy", "Shopping"),
		debit("a2", time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC), 100, "Whole Foods Market", "Groceries"),
		debit("j1", time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC), 50, "Whole Foods Market", "Groceries"),
	}}

	spec := bankingSpec(query.IntentCompareMonthsWhy, query.TimeRange{Mode: query.ModePreset, Preset: "last_month"}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "why did I spend more this month?"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if source.listCalls != 2 {
		t.Fatalf("expected two month fetches, got %d", source.listCalls)
	}
	if len(response.UI.Components) != 2 {
		t.Fatalf("expected table and chart, got %d components", len(response.UI.Components))
	}

	table, ok := response.UI.Components[0].(ui.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", response.UI.Components[0])
	}
	// Shopping выросла с нуля на 300 — самое большое изменение.
	if table.Rows[0][0] != "Shopping" {
		t.Fatalf("expected Shopping as top mover, got %v", table.Rows[0][0])
	}
}

// TestChatTopSpending проверяет топ категорий с ограничением top_k.
func TestChatTopSpending(t *testing.T) {
	source := &countingSource{transactions: []models.Transaction{
		debit("t1", today.AddDate(0, 0, -10), 300, "Best Buy", "Shopping"),
		debit("t2", today.AddDate(0, 0, -12), 200, "Whole Foods Market", "Groceries"),
		debit("t3", today.AddDate(0, 0, -15), 100, "Shell Oil", "Transport"),
	}}

	spec := bankingSpec(query.IntentTopSpending, query.TimeRange{Mode: query.ModePreset, Preset: "ytd"}, map[string]any{"top_k": float64(2)})
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "top spending this year"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	chart, ok := response.UI.Components[0].(ui.Chart)
	if !ok {
		t.Fatalf("expected a chart, got %T", response.UI.Components[0])
	}
	if len(chart.Data) != 2 {
		t.Fatalf("expected top 2 categories, got %d", len(chart.Data))
	}
	if chart.Data[0]["category"] != "Shopping" {
		t.Fatalf("expected Shopping first, got %v", chart.Data[0]["category"])
	}

	if response.UI.Controls[0].Default != "ytd" {
		t.Fatalf("expected ytd control default, got %q", response.UI.Controls[0].Default)
	}
}

// TestChatRecurringPayments проверяет сбор регулярных серий.
func TestChatRecurringPayments(t *testing.T) {
	base := time.Date(2026, time.June, 12, 0, 0, 0, 0, time.UTC)
	source := &countingSource{transactions: []models.Transaction{
		debit("n1", base, 15.99, "Netflix", "Entertainment"),
		debit("n2", base.AddDate(0, 1, 0), 15.99, "Netflix", "Entertainment"),
		debit("n3", base.AddDate(0, 2, 0), 15.99, "Netflix", "Entertainment"),
		debit("x1", base, 42, "Best Buy", "Shopping"),
	}}

	spec := bankingSpec(query.IntentRecurringPayments, query.TimeRange{Mode: query.ModeRelative, Last: 3, Unit: query.UnitMonths}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "show my subscriptions"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	table, ok := response.UI.Components[0].(ui.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", response.UI.Components[0])
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected a single recurring series, got %d", len(table.Rows))
	}
	if table.Rows[0][0] != "Netflix" || table.Rows[0][1] != "monthly" {
		t.Fatalf("unexpected series: %v", table.Rows[0])
	}
}

// TestChatForecastBalance проверяет проекцию баланса по чистому потоку.
func TestChatForecastBalance(t *testing.T) {
	source := &countingSource{
		transactions: []models.Transaction{
			debit("t1", today.AddDate(0, 0, -10), 300, "Best Buy", "Shopping"),
		},
		balance: models.Balance{AccountID: "A123", Available: 1000, Current: 1200},
	}

	spec := bankingSpec(query.IntentForecastBalance, query.TimeRange{Mode: query.ModeRelative, Last: 3, Unit: query.UnitMonths}, nil)
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "forecast my balance"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	chart, ok := response.UI.Components[0].(ui.Chart)
	if !ok {
		t.Fatalf("expected a chart, got %T", response.UI.Components[0])
	}
	if chart.ChartType != "line" {
		t.Fatalf("expected line chart, got %s", chart.ChartType)
	}
	if source.balanceCalls != 1 {
		t.Fatalf("expected one balance call, got %d", source.balanceCalls)
	}
}

// TestChatMerchantTotal проверяет сумму трат по одному мерчанту.
func TestChatMerchantTotal(t *testing.T) {
	source := &countingSource{transactions: []models.Transaction{
		debit("t1", today.AddDate(0, 0, -5), 15.99, "Netflix", "Entertainment"),
		debit("t2", today.AddDate(0, 0, -35), 15.99, "Netflix", "Entertainment"),
		debit("t3", today.AddDate(0, 0, -6), 50, "Best Buy", "Shopping"),
	}}

	spec := bankingSpec(query.IntentMerchantTotal, query.TimeRange{Mode: query.ModeRelative, Last: 30, Unit: query.UnitDays}, map[string]any{"merchant": "netflix"})
	orch := newOrchestrator(&fakeCompiler{result: ai.Result{Spec: spec}}, source)

	response, err := orch.Chat(context.Background(), ChatRequest{AccountID: "A123", Message: "how much do I pay netflix"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	table, ok := response.UI.Components[0].(ui.Table)
	if !ok {
		t.Fatalf("expected a table, got %T", response.UI.Components[0])
	}
	if len(table.Rows) != 1 {
		t.Fatalf("expected one matching payment in the window, got %d", len(table.Rows))
	}
}
