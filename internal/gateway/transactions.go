package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/taufik7000/efarina-finance-flow/internal/apperr"
	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/cache"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// TransactionInput is a new transaction. The owner is always the signed-in
// identity.
type TransactionInput struct {
	Date        string
	Description string
	Category    string
	Amount      decimal.Decimal
	Type        models.Kind
}

func (in TransactionInput) validate() error {
	if err := util.ValidateDate(in.Date); err != nil {
		return err
	}
	if err := util.ValidateCategory(in.Category); err != nil {
		return err
	}
	if err := util.ValidateAmount(in.Amount); err != nil {
		return err
	}
	if !in.Type.Valid() {
		return fmt.Errorf("invalid type %q", in.Type)
	}
	return nil
}

// Transactions is the gateway for the transactions collection.
type Transactions struct {
	*Gateway
	list *cache.Query[[]models.Transaction]
}

func NewTransactions(remote backend.Tables, sessions Sessions, c *cache.Client, opts ...Option) *Transactions {
	g := New(remote, sessions, c, backend.Transactions, Messages{
		Created: "Transaksi berhasil ditambahkan",
		Updated: "Transaksi berhasil diperbarui",
		Deleted: "Transaksi berhasil dihapus",
	}, opts...)
	return &Transactions{
		Gateway: g,
		list:    listQuery[models.Transaction](g, backend.Query{}.Order("date", false)),
	}
}

// List returns every transaction, newest date first.
func (t *Transactions) List(ctx context.Context) ([]models.Transaction, error) {
	return t.list.Get(ctx)
}

// Create stores in owned by the signed-in identity.
func (t *Transactions) Create(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	id := t.sessions.Identity()
	if id == nil {
		return nil, apperr.NotAuthenticated("gateway.create transactions")
	}
	if err := in.validate(); err != nil {
		return nil, t.fail(ctx, OpCreate, err)
	}
	row := models.Transaction{
		Date:        in.Date,
		Description: in.Description,
		Category:    in.Category,
		Amount:      in.Amount,
		Type:        in.Type,
		UserID:      id.ID,
	}
	var out models.Transaction
	if err := t.Gateway.Create(ctx, row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes the set fields of transaction id.
func (t *Transactions) Update(ctx context.Context, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	if err := validatePatch(patch); err != nil {
		return nil, t.fail(ctx, OpUpdate, err)
	}
	var out models.Transaction
	if err := t.Gateway.Update(ctx, id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func validatePatch(p models.TransactionPatch) error {
	if p.Date != nil {
		if err := util.ValidateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := util.ValidateCategory(*p.Category); err != nil {
			return err
		}
	}
	if p.Amount != nil {
		if err := util.ValidateAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("invalid type %q", *p.Type)
	}
	return nil
}
