package models

import "time"

// Integration stores OAuth credentials and account metadata for one
// connected ad-platform account.
type Integration struct {
	ID           string `gorm:"primaryKey"` // UUID
	UserID       string `gorm:"index"`
	Provider     string `gorm:"index"` // "google-ads", "meta-ads"
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Email        string
	Name         string
	AccountID    string // provider-subject identifier
	AdAccountID  string
	ConnectedAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
