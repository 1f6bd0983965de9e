package models

import "time"

// Session stores issued sign-ins so they can be refreshed and revoked.
type Session struct {
	ID           string    `gorm:"primaryKey;size:26"` // ulid
	IdentityID   string    `gorm:"size:36;index;not null"`
	RefreshToken string    `gorm:"size:128;uniqueIndex;not null"`
	ExpiresAt    time.Time `gorm:"index;not null"`
	Revoked      bool      `gorm:"index;not null"`
	CreatedAt    time.Time
	RefreshedAt  *time.Time

	Identity Identity `gorm:"constraint:OnDelete:CASCADE"`
}
