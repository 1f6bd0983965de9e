package service

import (
	"context"
	"time"

	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/report"
)

// MonthlyStats is the dashboard overview of one calendar month.
type MonthlyStats struct {
	Month   string              `json:"month"`
	Summary report.Summary      `json:"summary"`
	Daily   []report.DailyTotal `json:"daily"`
}

// Monthly totals the transactions dated in month (YYYY-MM). An empty month
// means the current one.
func (s *TableService) Monthly(ctx context.Context, month string) (*MonthlyStats, error) {
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, invalid("Format bulan harus YYYY-MM")
	}
	end := start.AddDate(0, 1, 0)

	rows, err := s.Transactions(ctx, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	return &MonthlyStats{
		Month:   month,
		Summary: report.Summarize(rows),
		Daily:   report.Daily(rows),
	}, nil
}
