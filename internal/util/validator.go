package util

import (
	"fmt"
	"net/mail"
	"time"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromInt(1_000_000_000_000)

// ValidateAmount checks a signed amount: non-zero and below one trillion in
// magnitude, with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return fmt.Errorf("amount must not be zero")
	}
	if amount.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("amount too large, got %s", amount.String())
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than two decimal places, got %s", amount.String())
	}
	return nil
}

// ValidateDate requires YYYY-MM-DD.
func ValidateDate(dateStr string) error {
	if dateStr == "" {
		return fmt.Errorf("date is empty")
	}
	_, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}
	return nil
}

// ValidateCategory requires a non-empty category of reasonable length.
func ValidateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("category is empty")
	}
	if len(category) > 64 {
		return fmt.Errorf("category too long, max 64 characters")
	}
	return nil
}

// ValidateEmail accepts a bare address such as demo@efarina.tv.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email %q", email)
	}
	return nil
}

// ValidatePassword enforces the data service minimum of 6 characters.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 72 {
		return fmt.Errorf("password must be at most 72 characters")
	}
	return nil
}
