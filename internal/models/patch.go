package models

import "github.com/shopspring/decimal"

// UserPatch is a partial update of a users row. Nil fields are left unchanged.
type UserPatch struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Role       *Role   `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Status     *Status `json:"status,omitempty"`
}

// Columns maps the set fields to column names.
func (p UserPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Email != nil {
		cols["email"] = *p.Email
	}
	if p.Role != nil {
		cols["role"] = *p.Role
	}
	if p.Department != nil {
		cols["department"] = *p.Department
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	return cols
}

// TransactionPatch is a partial update of a transactions row. Ownership
// cannot be changed through a patch.
type TransactionPatch struct {
	Date        *string          `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Type        *Kind            `json:"type,omitempty"`
}

func (p TransactionPatch) Columns() map[string]any {
	cols := map[string]any{}
	if p.Date != nil {
		cols["date"] = *p.Date
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.Type != nil {
		cols["type"] = *p.Type
	}
	return cols
}
