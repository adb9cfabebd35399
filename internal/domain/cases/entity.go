package cases

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned by callers that require a minimally populated case.
var ErrInvalidInput = errors.New("invalid case input")

// CaseID identifier type
type CaseID string

// Transaction is one raw transaction record. Keys follow the intake payload
// (date, amount, counterparty, description); anything else is carried as-is.
type Transaction map[string]any

// Input is the immutable evidence bundle every analysis is derived from.
type Input struct {
	Customer     map[string]any `json:"customer_data"`
	KYC          map[string]any `json:"kyc_data"`
	Transactions []Transaction  `json:"transaction_data"`
	AlertReason  string         `json:"alert_reason"`
}

// Amount returns the transaction amount. Absent or non-numeric amounts are zero.
func (t Transaction) Amount() decimal.Decimal {
	d, _ := ParseAmount(t["amount"])
	return d
}

// Counterparty returns the counterparty as text, empty when absent.
func (t Transaction) Counterparty() string {
	v, ok := t["counterparty"]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Amounts outside these bounds are treated as non-numeric. Decimal
// arithmetic rescales operands to a common exponent, so an input like
// "1e5000000" would otherwise cost seconds per comparison.
const (
	maxAmountDigits   = 15 // integer digits, below a quadrillion
	minAmountExponent = -18
)

// ParseAmount converts the loosely typed amount values found in intake JSON.
// The bool reports whether v was a usable number.
func ParseAmount(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return bounded(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return bounded(decimal.NewFromFloat(n))
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Zero, false
		}
		return bounded(decimal.NewFromFloat32(n))
	case int:
		return bounded(decimal.NewFromInt(int64(n)))
	case int64:
		return bounded(decimal.NewFromInt(n))
	case int32:
		return decimal.NewFromInt32(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return bounded(d)
	case string:
		s := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(n))
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		return bounded(d)
	default:
		return decimal.Zero, false
	}
}

// bounded checks magnitude from the coefficient length and exponent only,
// without rescaling d.
func bounded(d decimal.Decimal) (decimal.Decimal, bool) {
	exp := int(d.Exponent())
	if exp < minAmountExponent || d.NumDigits()+exp > maxAmountDigits {
		return decimal.Zero, false
	}
	return d, true
}

// Amounts returns every transaction amount in input order.
func (in Input) Amounts() []decimal.Decimal {
	out := make([]decimal.Decimal, len(in.Transactions))
	for i, t := range in.Transactions {
		out[i] = t.Amount()
	}
	return out
}

// CustomerString reads a customer attribute as text.
func (in Input) CustomerString(key string) string {
	if in.Customer == nil {
		return ""
	}
	v, ok := in.Customer[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// NewCaseID returns an identifier in the SAR-XXXXXXXX form.
func NewCaseID() CaseID {
	return CaseID("SAR-" + shortHex())
}

// NewAlertID returns an identifier in the ALERT-XXXXXXXX form.
func NewAlertID() string {
	return "ALERT-" + shortHex()
}

func shortHex() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(hex[:8])
}
