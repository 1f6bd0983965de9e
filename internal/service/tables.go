package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

var columns = map[backend.Collection]map[string]bool{
	backend.Users: {
		"id": true, "created_at": true, "name": true, "email": true,
		"role": true, "department": true, "status": true,
	},
	backend.Transactions: {
		"id": true, "created_at": true, "date": true, "description": true,
		"category": true, "amount": true, "type": true, "user_id": true,
	},
}

const maxRows = 1000

// TableService serves the users and transactions collections.
//
// Profiles are readable without a session so the sign-in flow can look up
// the demo account; a profile may be inserted anonymously only for an
// existing identity. Everything else needs a caller.
type TableService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewTableService(db *gorm.DB, m *metrics.Metrics, logger *slog.Logger) *TableService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &TableService{db: db, metrics: m, logger: logger}
}

func requireCaller(caller *models.Identity) error {
	if caller == nil {
		return ErrInvalidToken
	}
	return nil
}

// scope applies q to tx after checking every column against c's schema.
func scope(tx *gorm.DB, c backend.Collection, q backend.Query) (*gorm.DB, error) {
	allowed := columns[c]
	for _, f := range q.Filters {
		if !allowed[f.Column] {
			return nil, invalid(fmt.Sprintf("kolom tidak dikenal: %s", f.Column))
		}
		switch f.Op {
		case backend.OpEq:
			tx = tx.Where(f.Column+" = ?", f.Value)
		case backend.OpNeq:
			tx = tx.Where(f.Column+" <> ?", f.Value)
		case backend.OpGt:
			tx = tx.Where(f.Column+" > ?", f.Value)
		case backend.OpGte:
			tx = tx.Where(f.Column+" >= ?", f.Value)
		case backend.OpLt:
			tx = tx.Where(f.Column+" < ?", f.Value)
		case backend.OpLte:
			tx = tx.Where(f.Column+" <= ?", f.Value)
		case backend.OpLike:
			tx = tx.Where(f.Column+" LIKE ?", likePattern(f.Value))
		case backend.OpILike:
			tx = tx.Where("LOWER("+f.Column+") LIKE LOWER(?)", likePattern(f.Value))
		default:
			return nil, invalid(fmt.Sprintf("operator tidak dikenal: %s", f.Op))
		}
	}
	if q.OrderBy != "" {
		if !allowed[q.OrderBy] {
			return nil, invalid(fmt.Sprintf("kolom tidak dikenal: %s", q.OrderBy))
		}
		dir := " ASC"
		if q.Descending {
			dir = " DESC"
		}
		tx = tx.Order(q.OrderBy + dir)
	}
	limit := q.Limit
	if limit <= 0 || limit > maxRows {
		limit = maxRows
	}
	return tx.Limit(limit), nil
}

// likePattern accepts PostgREST's * wildcard as well as %.
func likePattern(v string) string {
	return strings.ReplaceAll(v, "*", "%")
}

func decodeStrict(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalid("Payload tidak valid: " + err.Error())
	}
	return nil
}

// List returns the rows of c matching q. caller is nil for anonymous access.
func (s *TableService) List(ctx context.Context, caller *models.Identity, c backend.Collection, q backend.Query) (any, error) {
	switch c {
	case backend.Users:
		var rows []models.User
		tx, err := scope(s.db.WithContext(ctx).Model(&models.User{}), c, q)
		if err != nil {
			return nil, err
		}
		if err := tx.Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	case backend.Transactions:
		if err := requireCaller(caller); err != nil {
			return nil, err
		}
		var rows []models.Transaction
		tx, err := scope(s.db.WithContext(ctx).Model(&models.Transaction{}), c, q)
		if err != nil {
			return nil, err
		}
		if err := tx.Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	}
	return nil, ErrNotFound
}

// Insert creates a row of c from a JSON body.
func (s *TableService) Insert(ctx context.Context, caller *models.Identity, c backend.Collection, body []byte) (row any, err error) {
	defer func() { s.metrics.Mutation(string(c), "insert", err) }()

	switch c {
	case backend.Users:
		return s.insertUser(ctx, caller, body)
	case backend.Transactions:
		return s.insertTransaction(ctx, caller, body)
	}
	return nil, ErrNotFound
}

func (s *TableService) insertUser(ctx context.Context, caller *models.Identity, body []byte) (*models.User, error) {
	var u models.User
	if err := decodeStrict(body, &u); err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if u.Department == "" {
		u.Department = models.DefaultDepartment
	}
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	if err := validateUser(&u); err != nil {
		return nil, err
	}

	if caller == nil {
		// anonymous inserts only attach a profile to a registered identity
		if u.ID == "" {
			return nil, ErrInvalidToken
		}
		var ident models.Identity
		if err := s.db.WithContext(ctx).Select("id", "email").First(&ident, "id = ?", u.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrForbidden
			}
			return nil, err
		}
		if ident.Email != u.Email || u.Role != models.RoleUser || u.Status != models.StatusActive {
			return nil, ErrForbidden
		}
	} else if u.ID == "" {
		u.ID = uuid.NewString()
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? OR email = ?", u.ID, u.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}
	if err := s.db.WithContext(ctx).Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &u, nil
}

func validateUser(u *models.User) error {
	if u.Name == "" {
		return invalid("Nama wajib diisi")
	}
	if err := util.ValidateEmail(u.Email); err != nil {
		return invalid("Email tidak valid")
	}
	if !u.Role.Valid() {
		return invalid("Role tidak valid")
	}
	if !u.Status.Valid() {
		return invalid("Status tidak valid")
	}
	return nil
}

func (s *TableService) insertTransaction(ctx context.Context, caller *models.Identity, body []byte) (*models.Transaction, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	var t models.Transaction
	if err := decodeStrict(body, &t); err != nil {
		return nil, err
	}
	t.UserID = caller.ID
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	if err := validateTransaction(&t); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &t, nil
}

func validateTransaction(t *models.Transaction) error {
	if err := util.ValidateDate(t.Date); err != nil {
		return invalid("Tanggal tidak valid")
	}
	if t.Description == "" {
		return invalid("Deskripsi wajib diisi")
	}
	if err := util.ValidateCategory(t.Category); err != nil {
		return invalid("Kategori tidak valid")
	}
	if err := util.ValidateAmount(t.Amount); err != nil {
		return invalid("Jumlah tidak valid")
	}
	if !t.Type.Valid() {
		return invalid("Jenis transaksi tidak valid")
	}
	return nil
}

// Update applies a JSON patch to the row of c with the given id and returns
// the updated row.
func (s *TableService) Update(ctx context.Context, caller *models.Identity, c backend.Collection, id string, body []byte) (row any, err error) {
	defer func() { s.metrics.Mutation(string(c), "update", err) }()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	switch c {
	case backend.Users:
		var p models.UserPatch
		if err := decodeStrict(body, &p); err != nil {
			return nil, err
		}
		if err := validateUserPatch(&p); err != nil {
			return nil, err
		}
		if p.Email != nil {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", *p.Email, id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrConflict
			}
		}
		var u models.User
		if err := s.patch(ctx, &u, id, p.Columns()); err != nil {
			return nil, err
		}
		return &u, nil
	case backend.Transactions:
		var p models.TransactionPatch
		if err := decodeStrict(body, &p); err != nil {
			return nil, err
		}
		if err := validateTransactionPatch(&p); err != nil {
			return nil, err
		}
		var t models.Transaction
		if err := s.patch(ctx, &t, id, p.Columns()); err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, ErrNotFound
}

// patch updates the row of model's table with the given id and reloads it
// into model.
func (s *TableService) patch(ctx context.Context, model any, id string, cols map[string]any) error {
	if len(cols) == 0 {
		return invalid("Tidak ada perubahan")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				return ErrConflict
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(model, "id = ?", id).Error
	})
}

func validateUserPatch(p *models.UserPatch) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalid("Nama wajib diisi")
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if err := util.ValidateEmail(email); err != nil {
			return invalid("Email tidak valid")
		}
		p.Email = &email
	}
	if p.Role != nil && !p.Role.Valid() {
		return invalid("Role tidak valid")
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("Status tidak valid")
	}
	return nil
}

func validateTransactionPatch(p *models.TransactionPatch) error {
	if p.Date != nil {
		if err := util.ValidateDate(*p.Date); err != nil {
			return invalid("Tanggal tidak valid")
		}
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return invalid("Deskripsi wajib diisi")
	}
	if p.Category != nil {
		if err := util.ValidateCategory(*p.Category); err != nil {
			return invalid("Kategori tidak valid")
		}
	}
	if p.Amount != nil {
		if err := util.ValidateAmount(*p.Amount); err != nil {
			return invalid("Jumlah tidak valid")
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return invalid("Jenis transaksi tidak valid")
	}
	return nil
}

// Delete removes the row of c with the given id. Deleting a missing row
// succeeds.
func (s *TableService) Delete(ctx context.Context, caller *models.Identity, c backend.Collection, id string) (err error) {
	defer func() { s.metrics.Mutation(string(c), "delete", err) }()

	if err := requireCaller(caller); err != nil {
		return err
	}
	var model any
	switch c {
	case backend.Users:
		model = &models.User{}
	case backend.Transactions:
		model = &models.Transaction{}
	default:
		return ErrNotFound
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(model).Error
}

// Transactions returns every transaction in [from, to), ordered by date.
// Empty bounds are open.
func (s *TableService) Transactions(ctx context.Context, from, to string) ([]models.Transaction, error) {
	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if from != "" {
		tx = tx.Where("date >= ?", from)
	}
	if to != "" {
		tx = tx.Where("date < ?", to)
	}
	var rows []models.Transaction
	if err := tx.Order("date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
