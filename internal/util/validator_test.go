package util

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"positive", "1500000", false},
		{"negative expense", "-250000.50", false},
		{"cents", "0.01", false},
		{"trailing zeros", "10.500", false},
		{"zero", "0", true},
		{"too large", "1000000000000", true},
		{"too large negative", "-1000000000000", true},
		{"three decimals", "10.505", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateDate(t *testing.T) {
	for _, d := range []string{"2024-01-01", "2024-12-31", "2024-02-29"} {
		assert.NoError(t, ValidateDate(d), d)
	}
	for _, d := range []string{"", "2024/01/01", "01-01-2024", "2024-13-01", "2023-02-29", "abc"} {
		assert.Error(t, ValidateDate(d), d)
	}
}

func TestValidateCategory(t *testing.T) {
	assert.NoError(t, ValidateCategory("Pendapatan Iklan"))
	assert.NoError(t, ValidateCategory("Gaji & Kompensasi"))
	assert.Error(t, ValidateCategory(""))
	assert.Error(t, ValidateCategory(string(make([]byte, 65))))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("demo@efarina.tv"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("Ann <a@x.com>"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("123456"))
	assert.Error(t, ValidatePassword("12345"))
}
