package analysis

import (
	"testing"

	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBuildTrace_Summary(t *testing.T) {
	in := cases.Input{
		Customer: map[string]any{"customer_id": "C-9", "name": "Acme Ltd", "segment": "retail"},
		KYC:      map[string]any{"risk_rating": "high"},
		Transactions: []cases.Transaction{
			{"amount": 9500.0, "counterparty": "Cash", "date": "2025-01-02"},
			{"amount": 9800.0, "counterparty": "Cash"},
			{"amount": "9,900", "counterparty": "Bank B"},
			{"amount": 58000.0},
		},
		AlertReason: "Multiple cash deposits below threshold",
	}

	tr := BuildTrace(in)

	assert.Equal(t, "C-9", tr.InputSummary.CustomerID)
	assert.Equal(t, "Acme Ltd", tr.InputSummary.CustomerName)
	assert.Equal(t, 4, tr.InputSummary.TransactionCount)
	assert.True(t, decimal.NewFromInt(87200).Equal(tr.InputSummary.TotalAmount), tr.InputSummary.TotalAmount.String())
	assert.Equal(t, 3, tr.InputSummary.UniqueCounterparties)
	assert.Equal(t, []string{"customer_id", "name", "segment"}, tr.DataSources["customer_data"])
	assert.Equal(t, []string{"risk_rating"}, tr.DataSources["kyc_data"])
	assert.Equal(t, []string{"amount", "counterparty", "date"}, tr.DataSources["transaction_fields"])
	assert.Equal(t, []string{"Large transaction amounts", "Possible structuring pattern"}, tr.KeyIndicators)
	assert.Equal(t, "structuring", tr.TypologyMatch)
}

func TestBuildTrace_EmptyInput(t *testing.T) {
	tr := BuildTrace(cases.Input{})

	assert.Zero(t, tr.InputSummary.TransactionCount)
	assert.True(t, tr.InputSummary.TotalAmount.IsZero())
	assert.Empty(t, tr.KeyIndicators)
	assert.Equal(t, []string{}, tr.DataSources["transaction_fields"])
	assert.Equal(t, "unknown", tr.TypologyMatch)
}

func TestBuildTrace_VolumeIndicators(t *testing.T) {
	txns := make([]cases.Transaction, 21)
	for i := range txns {
		txns[i] = cases.Transaction{"amount": 100}
	}

	tr := BuildTrace(cases.Input{Transactions: txns})

	assert.Equal(t, []string{"High transaction volume", "Rapid fund movement"}, tr.KeyIndicators)

	tr = BuildTrace(cases.Input{Transactions: txns[:11]})
	assert.Equal(t, []string{"Rapid fund movement"}, tr.KeyIndicators)
}

func TestMatchTypology(t *testing.T) {
	for reason, want := range map[string]string{
		"Structured deposits":                "structuring",
		"RAPID movement of funds":            "layering",
		"Over-invoiced import shipments":     "trade_based",
		"Unusual cash activity":              "cash_intensive",
		"Many payers to single destination":  "funnel_account",
		"Multiple transfers then withdrawal": "structuring",
		"Adverse media hit":                  "unknown",
		"":                                   "unknown",
	} {
		assert.Equal(t, want, MatchTypology(reason), reason)
	}
}
