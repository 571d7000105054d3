package orchestrator

import (
	"context"
	"errors"
	"time"

	"example.com/banking-assistant/backend/internal/ai"
	"example.com/banking-assistant/backend/internal/query"
	"example.com/banking-assistant/backend/internal/store"
	"example.com/banking-assistant/backend/internal/ui"
)

const (
	outOfDomainMessage = "I can help with banking/account questions (transactions, spending, balance). What would you like to check?"
	fallbackMessage    = "I didn't understand that request. Try asking about transactions, spending, or balance."
)

// Compiler компилирует сообщение пользователя в QuerySpec.
type Compiler interface {
	Compile(ctx context.Context, userMessage string) (ai.Result, error)
}

// ChatRequest — входящий запрос оркестратору.
type ChatRequest struct {
	AccountID             string
	Message               string
	SelectedTransactionID string
}

// ChatResponse — скомпилированный запрос и спецификация интерфейса.
type ChatResponse struct {
	Query *query.QuerySpec `json:"query"`
	UI    ui.Spec          `json:"ui"`
}

type intentHandler func(ctx context.Context, req ChatRequest, spec query.QuerySpec) (ui.Spec, error)

// Orchestrator ведет запрос по конвейеру: компиляция, доменный гейт,
// разрешение окна, выборка, обработчик интента, сборка ответа.
type Orchestrator struct {
	compiler Compiler
	source   store.Source
	now      func() time.Time

	handlers map[query.Intent]intentHandler
}

// New создает оркестратор поверх компилятора и источника данных.
func New(compiler Compiler, source store.Source) *Orchestrator {
	o := &Orchestrator{
		compiler: compiler,
		source:   source,
		now:      time.Now,
	}

	// Закрытая таблица диспетчеризации: ровно один обработчик на интент,
	// все значения вне таблицы уходят в fallback-сообщение.
	o.handlers = map[query.Intent]intentHandler{
		query.IntentTransactionsList:        o.handleTransactionsList,
		query.IntentTopSpending:             o.handleTopSpending,
		query.IntentMerchantTotal:           o.handleMerchantTotal,
		query.IntentRecurringPayments:       o.handleRecurringPayments,
		query.IntentUnrecognizedTransaction: o.handleUnrecognizedTransaction,
		query.IntentForecastBalance:         o.handleForecastBalance,
		query.IntentCompareMonthsWhy:        o.handleCompareMonthsWhy,
	}

	return o
}

// WithClock подменяет источник времени, нужен детерминизм в тестах.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Chat обрабатывает одно сообщение пользователя.
func (o *Orchestrator) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	result, err := o.compiler.Compile(ctx, req.Message)
	if err != nil {
		// Нечитаемый ответ модели превращаем в просьбу переформулировать,
		// остальные сбои компиляции локально не чинятся.
		if errors.Is(err, ai.ErrMalformedModelOutput) {
			return ChatResponse{UI: ui.WithMessage(outOfDomainMessage)}, nil
		}
		return ChatResponse{}, err
	}

	spec := result.Spec

	// Доменный гейт: вне домена и неоднозначные запросы не исполняются,
	// до выборки данных дело не доходит.
	if spec.IsBankingDomain != query.DomainIn {
		message := result.ClarificationQuestion
		if message == "" {
			message = outOfDomainMessage
		}
		return ChatResponse{Query: &spec, UI: ui.WithMessage(message)}, nil
	}

	var uiSpec ui.Spec
	if handler, ok := o.handlers[spec.Intent]; ok {
		uiSpec, err = handler(ctx, req, spec)
		if err != nil {
			return ChatResponse{}, err
		}
	} else {
		uiSpec = ui.WithMessage(fallbackMessage)
	}

	// Фронтенд всегда может предложить поменять окно.
	if len(uiSpec.Controls) == 0 {
		uiSpec.Controls = []ui.Control{ui.DateRangePicker(defaultControlPreset(spec.TimeRange))}
	}

	return ChatResponse{Query: &spec, UI: uiSpec}, nil
}

func defaultControlPreset(tr query.TimeRange) string {
	if tr.Preset != "" {
		return tr.Preset
	}

	return string(tr.Mode)
}
