package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"example.com/banking-assistant/backend/internal/query"
)

// Compiler превращает свободный текст пользователя в валидный QuerySpec.
// Один вызов модели на компиляцию, без ретраев и кэширования.
type Compiler struct {
	client Client
}

// Result — результат компиляции: QuerySpec плюс уточнение от самой модели.
type Result struct {
	Spec                  query.QuerySpec
	ClarificationNeeded   bool
	ClarificationQuestion string
	Confidence            float64
}

type modelEnvelope struct {
	IsBankingDomain       json.RawMessage `json:"is_banking_domain"`
	ClarificationNeeded   bool            `json:"clarification_needed"`
	ClarificationQuestion string          `json:"clarification_question"`
	Confidence            float64         `json:"confidence"`
	Query                 map[string]any  `json:"query"`
}

// NewCompiler создает компилятор запросов поверх LLM-клиента.
func NewCompiler(client Client) *Compiler {
	return &Compiler{client: client}
}

// Compile компилирует сообщение пользователя в QuerySpec.
func (c *Compiler) Compile(ctx context.Context, userMessage string) (Result, error) {
	messages := []Message{
		{Role: "system", Content: querySpecSystemPrompt},
		{Role: "user", Content: userMessage},
	}

	content, _, err := c.client.Chat(ctx, messages)
	if err != nil {
		return Result{}, err
	}

	payload := extractJSON(content)
	if payload == "" {
		return Result{}, fmt.Errorf("%w: no json object in response", ErrMalformedModelOutput)
	}

	var envelope modelEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	queryData := envelope.Query
	if queryData == nil {
		queryData = map[string]any{}
	}

	// Правила нормализации применяются по порядку, каждое тотально:
	// результат всегда определен, частично выправленные данные не минуют схему.
	mergeDomainFlag(queryData, envelope.IsBankingDomain)
	defaultRelativeWindow(queryData)
	coerceParams(queryData)
	canonicalizeIntent(queryData)

	spec, err := validateQuerySpec(queryData)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Spec:                  spec,
		ClarificationNeeded:   envelope.ClarificationNeeded,
		ClarificationQuestion: strings.TrimSpace(envelope.ClarificationQuestion),
		Confidence:            envelope.Confidence,
	}, nil
}

// Warmup делает пробный вызов модели, чтобы прогреть бэкенд.
// Ошибка не мешает старту сервиса, решение об этом — у вызывающего.
func (c *Compiler) Warmup(ctx context.Context) error {
	_, _, err := c.client.Chat(ctx, []Message{
		{Role: "system", Content: "Reply with the single word: ok"},
		{Role: "user", Content: "ping"},
	})
	return err
}

// mergeDomainFlag переносит доменный флаг с верхнего уровня ответа внутрь query.
func mergeDomainFlag(queryData map[string]any, flag json.RawMessage) {
	switch string(flag) {
	case "true":
		queryData["is_banking_domain"] = true
	case "false":
		queryData["is_banking_domain"] = false
	default:
		queryData["is_banking_domain"] = nil
	}
}

// defaultRelativeWindow подставляет широкое окно 180 дней, когда модель
// вернула relative без last/unit (запросы "последние N" без явного окна).
// Числа строками ("14") принимаются и нормализуются в числа.
func defaultRelativeWindow(queryData map[string]any) {
	timeRange, ok := queryData["time_range"].(map[string]any)
	if !ok {
		return
	}

	if timeRange["mode"] != "relative" {
		return
	}

	last := numericValue(timeRange["last"])
	unit, unitOK := timeRange["unit"].(string)
	if last <= 0 || !unitOK || unit == "" {
		timeRange["last"] = float64(180)
		timeRange["unit"] = "days"
		return
	}

	timeRange["last"] = last
}

func numericValue(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return parsed
		}
	}

	return 0
}

// coerceParams гарантирует, что params — всегда словарь.
// Строка с JSON разбирается, мусор и отсутствие заменяются пустым словарем.
func coerceParams(queryData map[string]any) {
	switch params := queryData["params"].(type) {
	case map[string]any:
		return
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(params), &parsed); err == nil && parsed != nil {
			queryData["params"] = parsed
			return
		}
		queryData["params"] = map[string]any{}
	default:
		queryData["params"] = map[string]any{}
	}
}

// canonicalizeIntent сводит устаревшие имена интентов к каноническим.
func canonicalizeIntent(queryData map[string]any) {
	intent, ok := queryData["intent"].(string)
	if !ok {
		return
	}

	queryData["intent"] = string(query.CanonicalIntent(intent))
}

// validateQuerySpec проверяет выправленное дерево по схеме и декодирует его.
func validateQuerySpec(queryData map[string]any) (query.QuerySpec, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(querySpecSchema),
		gojsonschema.NewGoLoader(queryData),
	)
	if err != nil {
		return query.QuerySpec{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	if !result.Valid() {
		fieldErrors := make([]string, 0, len(result.Errors()))
		for _, fieldErr := range result.Errors() {
			fieldErrors = append(fieldErrors, fieldErr.String())
		}
		return query.QuerySpec{}, &InvalidQuerySpecError{Errors: fieldErrors}
	}

	encoded, err := json.Marshal(queryData)
	if err != nil {
		return query.QuerySpec{}, fmt.Errorf("%w: %v", ErrMalformedModelOutput, err)
	}

	var spec query.QuerySpec
	if err := json.Unmarshal(encoded, &spec); err != nil {
		return query.QuerySpec{}, &InvalidQuerySpecError{Errors: []string{err.Error()}}
	}

	return spec, nil
}

// extractJSON вырезает первый JSON-объект из ответа модели:
// снимает кодовые заборы и берет жадный диапазон от первой { до последней }.
func extractJSON(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimPrefix(strings.TrimSpace(trimmed), "json")
		trimmed = strings.TrimSpace(trimmed)
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return trimmed[start : end+1]
}
