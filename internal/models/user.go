package models

import "time"

// Role is the dashboard permission level of a profile.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEditor  Role = "editor"
	RoleFinance Role = "finance"
	RoleUser    Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleFinance, RoleUser:
		return true
	}
	return false
}

// Status marks whether a profile may use the dashboard.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// DefaultDepartment is assigned to self-registered profiles.
const DefaultDepartment = "Umum"

// User is a row of the users collection: the profile attached to an identity.
type User struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Name       string    `gorm:"size:128;not null" json:"name"`
	Email      string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role       Role      `gorm:"size:16;index;not null" json:"role"`
	Department string    `gorm:"size:64;not null" json:"department"`
	Status     Status    `gorm:"size:16;index;not null;default:active" json:"status"`
}

// Identity is an authentication account. Only the data service sees the
// credential columns; clients receive the public projection.
type Identity struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Name         string `gorm:"size:128"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	FailedLoginAttempts int        `gorm:"default:0"`
	LockedUntil         *time.Time `gorm:"index"`
	LastSignInAt        *time.Time
	LastSignInIP        string `gorm:"size:64"`
}
