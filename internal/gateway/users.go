package gateway

import (
	"context"
	"fmt"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/cache"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// UserInput is a new roster entry.
type UserInput struct {
	Name       string
	Email      string
	Role       models.Role
	Department string
	Status     models.Status
}

func (in UserInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("name is empty")
	}
	if err := util.ValidateEmail(in.Email); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return fmt.Errorf("invalid role %q", in.Role)
	}
	if in.Status != "" && !in.Status.Valid() {
		return fmt.Errorf("invalid status %q", in.Status)
	}
	return nil
}

// Users is the gateway for the users collection.
type Users struct {
	*Gateway
	list *cache.Query[[]models.User]
}

func NewUsers(remote backend.Tables, sessions Sessions, c *cache.Client, opts ...Option) *Users {
	g := New(remote, sessions, c, backend.Users, Messages{
		Created: "Pengguna berhasil ditambahkan",
		Updated: "Data pengguna berhasil diperbarui",
		Deleted: "Pengguna berhasil dihapus",
	}, opts...)
	return &Users{
		Gateway: g,
		list:    listQuery[models.User](g, backend.Query{}.Order("created_at", false)),
	}
}

// List returns the roster, newest first.
func (u *Users) List(ctx context.Context) ([]models.User, error) {
	return u.list.Get(ctx)
}

func (u *Users) Create(ctx context.Context, in UserInput) (*models.User, error) {
	if err := in.validate(); err != nil {
		return nil, u.fail(ctx, OpCreate, err)
	}
	status := in.Status
	if status == "" {
		status = models.StatusActive
	}
	department := in.Department
	if department == "" {
		department = models.DefaultDepartment
	}
	row := models.User{
		Name:       in.Name,
		Email:      in.Email,
		Role:       in.Role,
		Department: department,
		Status:     status,
	}
	var out models.User
	if err := u.Gateway.Create(ctx, row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u *Users) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	if patch.Role != nil && !patch.Role.Valid() {
		return nil, u.fail(ctx, OpUpdate, fmt.Errorf("invalid role %q", *patch.Role))
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, u.fail(ctx, OpUpdate, fmt.Errorf("invalid status %q", *patch.Status))
	}
	var out models.User
	if err := u.Gateway.Update(ctx, id, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
