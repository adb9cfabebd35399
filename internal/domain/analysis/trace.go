package analysis

import (
	"sort"
	"strings"

	"github.com/bryanwahyu/automaton-sar/internal/domain/cases"
	"github.com/shopspring/decimal"
)

// Trace is the deterministic reasoning summary stored with the generation
// audit event, so reviewers can see what the generator was given.
type Trace struct {
	InputSummary  InputSummary        `json:"input_summary"`
	DataSources   map[string][]string `json:"data_sources"`
	KeyIndicators []string            `json:"key_indicators"`
	TypologyMatch string              `json:"typology_match"`
}

type InputSummary struct {
	CustomerID           string          `json:"customer_id"`
	CustomerName         string          `json:"customer_name"`
	AlertReason          string          `json:"alert_reason"`
	TransactionCount     int             `json:"transaction_count"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	UniqueCounterparties int             `json:"unique_counterparties"`
}

// typologyKeywords is checked in order; first hit wins.
var typologyKeywords = []struct {
	typology string
	keywords []string
}{
	{"structuring", []string{"multiple", "below threshold", "structured"}},
	{"layering", []string{"rapid", "multiple transfers", "complex"}},
	{"trade_based", []string{"trade", "import", "export"}},
	{"cash_intensive", []string{"cash", "deposit"}},
	{"funnel_account", []string{"multiple sources", "single destination"}},
}

var (
	largeTransaction = decimal.NewFromInt(50000)
	structuringFloor = decimal.NewFromInt(9000)
	structuringCeil  = decimal.NewFromInt(10000)
)

// BuildTrace summarises the case input without calling the generator.
func BuildTrace(in cases.Input) Trace {
	total := decimal.Zero
	counterparties := map[string]struct{}{}
	for _, t := range in.Transactions {
		total = total.Add(t.Amount())
		counterparties[t.Counterparty()] = struct{}{}
	}

	return Trace{
		InputSummary: InputSummary{
			CustomerID:           in.CustomerString("customer_id"),
			CustomerName:         in.CustomerString("name"),
			AlertReason:          in.AlertReason,
			TransactionCount:     len(in.Transactions),
			TotalAmount:          total,
			UniqueCounterparties: len(counterparties),
		},
		DataSources: map[string][]string{
			"customer_data":      sortedKeys(in.Customer),
			"kyc_data":           sortedKeys(in.KYC),
			"transaction_fields": firstTransactionFields(in.Transactions),
		},
		KeyIndicators: keyIndicators(in),
		TypologyMatch: MatchTypology(in.AlertReason),
	}
}

// MatchTypology maps alert wording to a coarse typology, "unknown" otherwise.
func MatchTypology(alertReason string) string {
	lower := strings.ToLower(alertReason)
	for _, tk := range typologyKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				return tk.typology
			}
		}
	}
	return "unknown"
}

func keyIndicators(in cases.Input) []string {
	var out []string
	if len(in.Transactions) > 20 {
		out = append(out, "High transaction volume")
	}
	amounts := in.Amounts()
	max := decimal.Zero
	near := 0
	for _, a := range amounts {
		if a.GreaterThan(max) {
			max = a
		}
		if a.GreaterThanOrEqual(structuringFloor) && a.LessThanOrEqual(structuringCeil) {
			near++
		}
	}
	if max.GreaterThan(largeTransaction) {
		out = append(out, "Large transaction amounts")
	}
	if near >= 3 {
		out = append(out, "Possible structuring pattern")
	}
	if len(in.Transactions) > 10 {
		out = append(out, "Rapid fund movement")
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstTransactionFields(txns []cases.Transaction) []string {
	if len(txns) == 0 {
		return []string{}
	}
	return sortedKeys(txns[0])
}
