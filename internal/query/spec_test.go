package query

import (
	"encoding/json"
	"testing"
)

// TestCanonicalIntent проверяет сведение устаревших имен интентов.
func TestCanonicalIntent(t *testing.T) {
	cases := map[string]Intent{
		"list_last_n":         IntentTransactionsList,
		"transactions_filter": IntentTransactionsList,
		"top_spending_ytd":    IntentTopSpending,
		"transactions_list":   IntentTransactionsList,
		"recurring_payments":  IntentRecurringPayments,
		"something_else":      Intent("something_else"),
	}

	for raw, want := range cases {
		if got := CanonicalIntent(raw); got != want {
			t.Fatalf("%s: expected %s, got %s", raw, want, got)
		}
	}
}

// TestDomainFlagUnmarshal проверяет чтение тристабильного флага из JSON.
func TestDomainFlagUnmarshal(t *testing.T) {
	cases := []struct {
		payload string
		want    DomainFlag
	}{
		{`{"is_banking_domain": true}`, DomainIn},
		{`{"is_banking_domain": false}`, DomainOut},
		{`{"is_banking_domain": null}`, DomainAmbiguous},
		{`{}`, DomainAmbiguous},
	}

	for _, tc := range cases {
		var spec QuerySpec
		if err := json.Unmarshal([]byte(tc.payload), &spec); err != nil {
			t.Fatalf("%s: expected no error, got %v", tc.payload, err)
		}
		if spec.IsBankingDomain != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.payload, tc.want, spec.IsBankingDomain)
		}
	}
}

// TestDomainFlagMarshal проверяет запись флага обратно в true/false/null.
func TestDomainFlagMarshal(t *testing.T) {
	cases := map[DomainFlag]string{
		DomainIn:        "true",
		DomainOut:       "false",
		DomainAmbiguous: "null",
	}

	for flag, want := range cases {
		got, err := json.Marshal(flag)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}

// TestIntParam проверяет чтение числовых параметров.
func TestIntParam(t *testing.T) {
	spec := QuerySpec{Params: map[string]any{
		"limit":  float64(10),
		"top_k":  "7",
		"broken": "ten",
	}}

	if got := spec.IntParam("limit", 50); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := spec.IntParam("top_k", 5); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := spec.IntParam("broken", 5); got != 5 {
		t.Fatalf("expected fallback 5, got %d", got)
	}
	if got := spec.IntParam("missing", 3); got != 3 {
		t.Fatalf("expected fallback 3, got %d", got)
	}
}

// TestStringParam проверяет чтение строковых параметров.
func TestStringParam(t *testing.T) {
	spec := QuerySpec{Params: map[string]any{
		"transaction_id": " t016 ",
		"limit":          float64(10),
		"empty":          nil,
	}}

	if got := spec.StringParam("transaction_id"); got != "t016" {
		t.Fatalf("expected t016, got %q", got)
	}
	if got := spec.StringParam("limit"); got != "" {
		t.Fatalf("expected empty string for non-string, got %q", got)
	}
	if got := spec.StringParam("empty"); got != "" {
		t.Fatalf("expected empty string for nil, got %q", got)
	}
}
