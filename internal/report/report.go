// Package report filters and totals transactions for display.
package report

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
)

// Filter selects transactions. Zero fields match everything; From and To are
// inclusive YYYY-MM-DD bounds.
type Filter struct {
	Search   string
	Kind     models.Kind
	Category string
	From     string
	To       string
}

// Match reports whether t passes every set criterion.
func (f Filter) Match(t models.Transaction) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(f.Search)) {
		return false
	}
	if f.Kind != "" && t.Type != f.Kind {
		return false
	}
	if f.Category != "" && !strings.EqualFold(t.Category, f.Category) {
		return false
	}
	// dates are fixed-width, so string order is date order
	if f.From != "" && t.Date < f.From {
		return false
	}
	if f.To != "" && t.Date > f.To {
		return false
	}
	return true
}

// Apply returns the rows matching f, keeping their order.
func Apply(rows []models.Transaction, f Filter) []models.Transaction {
	out := make([]models.Transaction, 0, len(rows))
	for _, t := range rows {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Kind     models.Kind     `json:"type"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// Summary totals a set of transactions. Income and Expense are magnitudes;
// the kind decides the sign.
type Summary struct {
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Balance    decimal.Decimal `json:"balance"`
	Count      int             `json:"count"`
	ByCategory []CategoryTotal `json:"by_category"`
}

// Signed is the amount of t with the sign implied by its kind.
func Signed(t models.Transaction) decimal.Decimal {
	if t.Type == models.KindExpense {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

func Summarize(rows []models.Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	type key struct {
		category string
		kind     models.Kind
	}
	totals := map[key]*CategoryTotal{}
	for _, t := range rows {
		amount := t.Amount.Abs()
		if t.Type == models.KindExpense {
			s.Expense = s.Expense.Add(amount)
		} else {
			s.Income = s.Income.Add(amount)
		}
		s.Count++

		k := key{t.Category, t.Type}
		ct, ok := totals[k]
		if !ok {
			ct = &CategoryTotal{Category: t.Category, Kind: t.Type, Total: decimal.Zero}
			totals[k] = ct
		}
		ct.Total = ct.Total.Add(amount)
		ct.Count++
	}
	s.Balance = s.Income.Sub(s.Expense)

	s.ByCategory = make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Kind < b.Kind
	})
	return s
}

// DailyTotal is the income and expense of a single date.
type DailyTotal struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Daily groups rows by date, oldest first.
func Daily(rows []models.Transaction) []DailyTotal {
	byDate := map[string]*DailyTotal{}
	for _, t := range rows {
		d, ok := byDate[t.Date]
		if !ok {
			d = &DailyTotal{Date: t.Date, Income: decimal.Zero, Expense: decimal.Zero}
			byDate[t.Date] = d
		}
		if t.Type == models.KindExpense {
			d.Expense = d.Expense.Add(t.Amount.Abs())
		} else {
			d.Income = d.Income.Add(t.Amount.Abs())
		}
	}
	out := make([]DailyTotal, 0, len(byDate))
	for _, d := range byDate {
		d.Balance = d.Income.Sub(d.Expense)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
