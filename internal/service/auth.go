// Package service holds the data service's business rules on top of gorm.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/taufik7000/efarina-finance-flow/internal/backend"
	"github.com/taufik7000/efarina-finance-flow/internal/config"
	"github.com/taufik7000/efarina-finance-flow/internal/metrics"
	"github.com/taufik7000/efarina-finance-flow/internal/models"
	"github.com/taufik7000/efarina-finance-flow/internal/realtime"
	"github.com/taufik7000/efarina-finance-flow/internal/util"
)

// AuthService issues, refreshes and revokes sessions.
type AuthService struct {
	db      *gorm.DB
	jwt     config.JWTConfig
	sec     config.SecurityConfig
	hub     *realtime.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewAuthService(db *gorm.DB, jwtCfg config.JWTConfig, secCfg config.SecurityConfig, hub *realtime.Hub, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &AuthService{db: db, jwt: jwtCfg, sec: secCfg, hub: hub, metrics: m, logger: logger, now: time.Now}
}

// Public is the projection of an identity sent to clients.
func Public(id *models.Identity) backend.Identity {
	return backend.Identity{ID: id.ID, Email: id.Email, Name: id.Name, CreatedAt: id.CreatedAt}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an identity. It does not create a session.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (id *models.Identity, err error) {
	defer func() { s.metrics.Auth("signup", err) }()

	email = normalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, invalid("Email tidak valid")
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, invalid("Password minimal 6 karakter")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Identity{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrIdentityExists
	}

	hash, err := util.HashPassword(password, s.sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	id = &models.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
	}
	if err := s.db.WithContext(ctx).Create(id).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}
	s.logger.Info("identity registered", "identity", id.ID)
	return id, nil
}

// SignIn checks the password and opens a session. Repeated failures lock the
// identity for a while.
func (s *AuthService) SignIn(ctx context.Context, email, password, ip string) (sess *backend.Session, err error) {
	defer func() { s.metrics.Auth("signin", err) }()

	var id models.Identity
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if id.LockedUntil != nil && now.Before(*id.LockedUntil) {
		return nil, ErrLocked
	}

	if !util.CheckPassword(password, id.PasswordHash) {
		id.FailedLoginAttempts++
		if id.FailedLoginAttempts >= s.maxFailed() {
			lockUntil := now.Add(s.lockFor())
			id.LockedUntil = &lockUntil
			id.FailedLoginAttempts = 0
			s.logger.Warn("identity locked", "identity", id.ID, "until", lockUntil)
		}
		_ = s.db.WithContext(ctx).Save(&id).Error
		return nil, ErrInvalidCredentials
	}

	id.FailedLoginAttempts = 0
	id.LockedUntil = nil
	id.LastSignInAt = &now
	id.LastSignInIP = ip
	if err := s.db.WithContext(ctx).Save(&id).Error; err != nil {
		return nil, err
	}
	return s.open(ctx, &id)
}

func (s *AuthService) maxFailed() int {
	if s.sec.MaxFailed <= 0 {
		return 5
	}
	return s.sec.MaxFailed
}

func (s *AuthService) lockFor() time.Duration {
	if s.sec.LockMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.sec.LockMinutes) * time.Minute
}

func newRefreshToken() (string, error) {
	return util.RandomString(48)
}

// open creates a session row and its tokens.
func (s *AuthService) open(ctx context.Context, id *models.Identity) (*backend.Session, error) {
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	row := models.Session{
		ID:           ulid.Make().String(),
		IdentityID:   id.ID,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.jwt.RefreshTTL()),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return s.issue(id, &row)
}

func (s *AuthService) issue(id *models.Identity, row *models.Session) (*backend.Session, error) {
	token, exp, err := util.GenerateToken(s.jwt.Secret, s.jwt.Issuer, id.ID, row.ID, id.Email, s.jwt.AccessTTL())
	if err != nil {
		return nil, err
	}
	return &backend.Session{
		AccessToken:  token,
		RefreshToken: row.RefreshToken,
		ExpiresAt:    exp,
		Identity:     Public(id),
	}, nil
}

// Refresh rotates the refresh token of a live session and issues a new
// access token. A used refresh token is no longer valid.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (sess *backend.Session, err error) {
	defer func() { s.metrics.Auth("refresh", err) }()

	if refreshToken == "" {
		return nil, ErrInvalidRefresh
	}
	var row models.Session
	err = s.db.WithContext(ctx).Preload("Identity").
		Where("refresh_token = ? AND revoked = ? AND expires_at > ?", refreshToken, false, s.now()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	next, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND refresh_token = ?", row.ID, refreshToken).
		Updates(map[string]any{"refresh_token": next, "refreshed_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	// lost a race with another refresh of the same token
	if res.RowsAffected == 0 {
		return nil, ErrInvalidRefresh
	}
	row.RefreshToken = next
	row.RefreshedAt = &now
	return s.issue(&row.Identity, &row)
}

// Authenticate resolves an access token to its identity and live session.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.Identity, *models.Session, error) {
	claims, err := util.ParseToken(s.jwt.Secret, accessToken)
	if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(s.now()) {
		return nil, nil, ErrInvalidToken
	}
	var row models.Session
	err = s.db.WithContext(ctx).Preload("Identity").
		Where("id = ? AND identity_id = ?", claims.SessionID, claims.IdentityID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if row.Revoked || !row.ExpiresAt.After(s.now()) {
		return nil, nil, ErrInvalidToken
	}
	id := row.Identity
	return &id, &row, nil
}

// SignOut revokes a session and tells its listeners.
func (s *AuthService) SignOut(ctx context.Context, sess *models.Session) (err error) {
	defer func() { s.metrics.Auth("signout", err) }()

	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", sess.ID).Update("revoked", true).Error; err != nil {
		return err
	}
	s.publish(sess.ID, backend.EventSignedOut, sess.IdentityID)
	return nil
}

// UserUpdate changes the caller's own identity.
type UserUpdate struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// UpdateUser applies upd. A password change revokes every other session of
// the identity.
func (s *AuthService) UpdateUser(ctx context.Context, id *models.Identity, current *models.Session, upd UserUpdate) (*models.Identity, error) {
	cols := map[string]any{}
	if upd.Name != nil {
		cols["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Password != nil {
		if err := util.ValidatePassword(*upd.Password); err != nil {
			return nil, invalid("Password minimal 6 karakter")
		}
		hash, err := util.HashPassword(*upd.Password, s.sec.BcryptCost)
		if err != nil {
			return nil, err
		}
		cols["password_hash"] = hash
	}
	if len(cols) == 0 {
		return nil, invalid("Tidak ada perubahan")
	}

	var revoked []models.Session
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Identity{}).Where("id = ?", id.ID).Updates(cols).Error; err != nil {
			return err
		}
		if upd.Password == nil {
			return nil
		}
		if err := tx.Where("identity_id = ? AND id <> ? AND revoked = ?", id.ID, current.ID, false).
			Find(&revoked).Error; err != nil {
			return err
		}
		if len(revoked) == 0 {
			return nil
		}
		return tx.Model(&models.Session{}).
			Where("identity_id = ? AND id <> ?", id.ID, current.ID).
			Update("revoked", true).Error
	})
	if err != nil {
		return nil, err
	}

	for _, r := range revoked {
		s.publish(r.ID, backend.EventSignedOut, id.ID)
	}
	s.publish(current.ID, backend.EventUserUpdated, id.ID)

	var fresh models.Identity
	if err := s.db.WithContext(ctx).First(&fresh, "id = ?", id.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

func (s *AuthService) publish(sessionID string, t backend.EventType, identityID string) {
	if s.hub == nil {
		return
	}
	ev := backend.Event{Type: t, IdentityID: identityID, SessionID: sessionID, At: s.now().UTC()}
	if err := s.hub.Publish(sessionID, ev); err != nil {
		s.logger.Warn("publish session event", "session", sessionID, "error", err)
	}
}

// CreateIdentity provisions an identity together with its profile row in
// one transaction, for administrative tooling.
func (s *AuthService) CreateIdentity(ctx context.Context, email, password, name string, role models.Role, department string) (*models.Identity, error) {
	email = normalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, invalid("Email tidak valid")
	}
	if err := util.ValidatePassword(password); err != nil {
		return nil, invalid("Password minimal 6 karakter")
	}
	if !role.Valid() {
		return nil, invalid("Role tidak valid")
	}
	if department == "" {
		department = models.DefaultDepartment
	}
	hash, err := util.HashPassword(password, s.sec.BcryptCost)
	if err != nil {
		return nil, err
	}
	id := &models.Identity{ID: uuid.NewString(), Email: email, PasswordHash: hash, Name: name}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(id).Error; err != nil {
			return err
		}
		return tx.Create(&models.User{
			ID:         id.ID,
			Name:       name,
			Email:      email,
			Role:       role,
			Department: department,
			Status:     models.StatusActive,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrIdentityExists
		}
		return nil, err
	}
	return id, nil
}
