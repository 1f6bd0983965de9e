package models

import "time"

// AuditLog records mutating API calls per identity.
type AuditLog struct {
	ID         uint    `gorm:"primaryKey"`
	IdentityID *string `gorm:"size:36;index"`
	Method     string  `gorm:"size:16"`
	Status     int
	PathEnc    string `gorm:"size:1024"` // encrypted request path
	ActionEnc  string `gorm:"size:4096"` // encrypted method, path and body summary
	IP         string `gorm:"size:64"`
	UserAgent  string `gorm:"size:255"`
	CreatedAt  time.Time
}
