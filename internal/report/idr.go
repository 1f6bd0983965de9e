package report

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
)

// FormatIDR renders d in rupiah without fraction digits, e.g. "Rp 1.500.000".
func FormatIDR(d decimal.Decimal) string {
	r := d.Round(0)
	neg := r.Sign() < 0
	digits := r.Abs().StringFixed(0)

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("Rp ")
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatAmount renders t's amount with a + or - prefix by kind.
func FormatAmount(t models.Transaction) string {
	sign := "+"
	if t.Type == models.KindExpense {
		sign = "-"
	}
	return sign + FormatIDR(t.Amount.Abs())
}
