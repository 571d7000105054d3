package query

import (
	"bytes"
	"encoding/json"
	"strings"
)

type Intent string

const (
	IntentTransactionsList        Intent = "transactions_list"
	IntentTopSpending             Intent = "top_spending"
	IntentMerchantTotal           Intent = "merchant_total"
	IntentRecurringPayments       Intent = "recurring_payments"
	IntentUnrecognizedTransaction Intent = "unrecognized_transaction"
	IntentForecastBalance         Intent = "forecast_balance"
	IntentCompareMonthsWhy        Intent = "compare_months_why"
)

// intentAliases — устаревшие имена интентов, которые модель может вернуть.
var intentAliases = map[string]Intent{
	"list_last_n":         IntentTransactionsList,
	"transactions_filter": IntentTransactionsList,
	"top_spending_ytd":    IntentTopSpending,
}

// CanonicalIntent приводит значение интента к каноническому имени.
func CanonicalIntent(value string) Intent {
	trimmed := strings.TrimSpace(value)
	if canonical, ok := intentAliases[trimmed]; ok {
		return canonical
	}

	return Intent(trimmed)
}

// DomainFlag — тристабильный флаг банковской тематики запроса.
type DomainFlag int

const (
	DomainAmbiguous DomainFlag = iota
	DomainIn
	DomainOut
)

// UnmarshalJSON читает флаг из true/false/null.
func (f *DomainFlag) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("true")):
		*f = DomainIn
	case bytes.Equal(data, []byte("false")):
		*f = DomainOut
	default:
		*f = DomainAmbiguous
	}

	return nil
}

// MarshalJSON пишет флаг как true/false/null.
func (f DomainFlag) MarshalJSON() ([]byte, error) {
	switch f {
	case DomainIn:
		return []byte("true"), nil
	case DomainOut:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

type Mode string

const (
	ModePreset   Mode = "preset"
	ModeRelative Mode = "relative"
	ModeCustom   Mode = "custom"
)

type Unit string

const (
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// TimeRange — декларативное описание временного окна.
// Активен ровно один режим; поля чужих режимов остаются нулевыми.
type TimeRange struct {
	Mode   Mode   `json:"mode"`
	Preset string `json:"preset,omitempty"`
	Last   int    `json:"last,omitempty"`
	Unit   Unit   `json:"unit,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// QuerySpec — скомпилированный и провалидированный запрос пользователя.
// Создается компилятором один раз на запрос и дальше не изменяется.
type QuerySpec struct {
	IsBankingDomain DomainFlag     `json:"is_banking_domain"`
	Intent          Intent         `json:"intent"`
	TimeRange       TimeRange      `json:"time_range"`
	Params          map[string]any `json:"params"`
}

// IntParam возвращает целочисленный параметр или значение по умолчанию.
// JSON-числа приходят как float64, строки с числами тоже принимаются.
func (q QuerySpec) IntParam(key string, fallback int) int {
	value, ok := q.Params[key]
	if !ok {
		return fallback
	}

	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var parsed int
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &parsed); err == nil {
			return parsed
		}
	}

	return fallback
}

// StringParam возвращает строковый параметр или пустую строку.
func (q QuerySpec) StringParam(key string) string {
	value, ok := q.Params[key]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}

	return ""
}
