package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
)

func tx(date, desc, category string, amount int64, kind models.Kind) models.Transaction {
	return models.Transaction{Date: date, Description: desc, Category: category, Amount: decimal.NewFromInt(amount), Type: kind}
}

var sample = []models.Transaction{
	tx("2024-05-03", "Iklan Pagi", "Iklan", 1500000, models.KindIncome),
	tx("2024-05-02", "Sewa studio", "Operasional", -500000, models.KindExpense),
	tx("2024-04-28", "Iklan malam", "Iklan", 2000000, models.KindIncome),
	tx("2024-04-20", "Listrik", "Operasional", 250000, models.KindExpense),
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"search is case insensitive", Filter{Search: "iklan"}, 2},
		{"kind", Filter{Kind: models.KindExpense}, 2},
		{"category", Filter{Category: "operasional"}, 2},
		{"date range inclusive", Filter{From: "2024-04-28", To: "2024-05-02"}, 2},
		{"combined", Filter{Search: "iklan", From: "2024-05-01"}, 1},
		{"no match", Filter{Search: "gaji"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Apply(sample, tt.filter), tt.want)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample)

	assert.True(t, decimal.NewFromInt(3500000).Equal(s.Income), s.Income.String())
	assert.True(t, decimal.NewFromInt(750000).Equal(s.Expense), s.Expense.String())
	assert.True(t, decimal.NewFromInt(2750000).Equal(s.Balance), s.Balance.String())
	assert.Equal(t, 4, s.Count)

	require.Len(t, s.ByCategory, 2)
	assert.Equal(t, "Iklan", s.ByCategory[0].Category)
	assert.Equal(t, 2, s.ByCategory[0].Count)
	assert.Equal(t, models.KindExpense, s.ByCategory[1].Kind)
	assert.True(t, decimal.NewFromInt(750000).Equal(s.ByCategory[1].Total))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.True(t, s.Balance.IsZero())
	assert.Empty(t, s.ByCategory)
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "-500000", Signed(sample[1]).String())
	assert.Equal(t, "-250000", Signed(sample[3]).String())
	assert.Equal(t, "1500000", Signed(sample[0]).String())
}

func TestFormatIDR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "Rp 0"},
		{"999", "Rp 999"},
		{"1000", "Rp 1.000"},
		{"1500000", "Rp 1.500.000"},
		{"1234567.6", "Rp 1.234.568"},
		{"-250000", "-Rp 250.000"},
		{"-0.4", "Rp 0"},
		{"-0.6", "-Rp 1"},
		{"100000000000", "Rp 100.000.000.000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatIDR(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "+Rp 1.500.000", FormatAmount(sample[0]))
	assert.Equal(t, "-Rp 500.000", FormatAmount(sample[1]))
}

func TestDaily(t *testing.T) {
	rows := []models.Transaction{
		{Date: "2024-05-02", Type: models.KindExpense, Amount: decimal.NewFromInt(-300)},
		{Date: "2024-05-01", Type: models.KindIncome, Amount: decimal.NewFromInt(1000)},
		{Date: "2024-05-02", Type: models.KindIncome, Amount: decimal.NewFromInt(500)},
	}

	days := Daily(rows)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-05-01", days[0].Date)
	assert.True(t, days[0].Balance.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "2024-05-02", days[1].Date)
	assert.True(t, days[1].Income.Equal(decimal.NewFromInt(500)))
	assert.True(t, days[1].Expense.Equal(decimal.NewFromInt(300)))
	assert.True(t, days[1].Balance.Equal(decimal.NewFromInt(200)))
}
