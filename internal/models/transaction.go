package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind separates money coming in from money going out.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// DateLayout is the wire and storage format of Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is a row of the transactions collection.
// Amount is signed; Type decides how it counts toward totals.
type Transaction struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	Date        string          `gorm:"size:10;index;not null" json:"date"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Category    string          `gorm:"size:64;index;not null" json:"category"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Type        Kind            `gorm:"size:16;index;not null" json:"type"`
	UserID      string          `gorm:"size:36;index;not null" json:"user_id"`
}
