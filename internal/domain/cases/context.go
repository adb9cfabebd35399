package cases

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Header labels of the normalized case text, in render order.
const (
	HeaderCustomer     = "CUSTOMER INFORMATION:"
	HeaderKYC          = "KYC DATA:"
	HeaderTransactions = "TRANSACTION DATA:"
	HeaderAlertReason  = "ALERT REASON:"
)

// BuildContext renders the case into the single text block shared by every
// generation stage. Maps are rendered as indented JSON with sorted keys, so a
// transaction without an amount simply has no amount line.
func BuildContext(in Input) string {
	var b strings.Builder
	writeBlock(&b, HeaderCustomer, renderJSON(in.Customer, "{}"))
	writeBlock(&b, HeaderKYC, renderJSON(in.KYC, "{}"))
	writeBlock(&b, HeaderTransactions, renderJSON(in.Transactions, "[]"))
	writeBlock(&b, HeaderAlertReason, in.AlertReason)
	return b.String()
}

func writeBlock(b *strings.Builder, header, body string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n")
}

func renderJSON[T any](v T, empty string) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// unsupported values (channels, funcs) still render something readable
		return fmt.Sprintf("%v", v)
	}
	s := string(raw)
	if s == "null" {
		return empty
	}
	return s
}
