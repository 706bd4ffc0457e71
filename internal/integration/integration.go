// Package integration holds the domain types shared by the token store,
// the provider adapters and the orchestration service.
package integration

import (
	"fmt"
	"time"
)

// Provider identifies a supported ad platform.
type Provider string

const (
	ProviderGoogleAds Provider = "google-ads"
	ProviderMetaAds   Provider = "meta-ads"
)

// ParseProvider maps a URL/path tag to a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGoogleAds:
		return ProviderGoogleAds, nil
	case ProviderMetaAds:
		return ProviderMetaAds, nil
	default:
		return "", NewConfigError(fmt.Sprintf("unsupported provider %q", s))
	}
}

// Record is one connected ad-platform account, credentials included.
// Only redacted projections ever leave the service layer.
type Record struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Provider     Provider  `json:"provider"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	AccountID    string    `json:"accountId,omitempty"` // provider-subject identifier
	AdAccountID  string    `json:"adAccountId,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

// Expired reports whether the access token is past its expiry.
// A zero ExpiresAt means the provider did not report one; treat as live.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Redact returns the secret-free projection of the record.
func (r *Record) Redact() Redacted {
	return Redacted{
		ID:          r.ID,
		UserID:      r.UserID,
		Provider:    r.Provider,
		Email:       r.Email,
		Name:        r.Name,
		AdAccountID: r.AdAccountID,
		ExpiresAt:   r.ExpiresAt,
		ConnectedAt: r.ConnectedAt,
	}
}

// Redacted is the record projection safe to return from listing and
// status endpoints. It must never carry tokens.
type Redacted struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Provider    Provider  `json:"provider"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	AdAccountID string    `json:"adAccountId,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// TokenSet is the outcome of a code exchange or a refresh.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AccountInfo is the descriptive identity fetched once at connect time.
type AccountInfo struct {
	ID    string
	Email string
	Name  string
}

// CampaignStatus is the normalized status shared across providers.
type CampaignStatus string

const (
	StatusActive   CampaignStatus = "active"
	StatusPaused   CampaignStatus = "paused"
	StatusFinished CampaignStatus = "finished"
)

// Campaign is a provider-normalized campaign summary with metrics.
// Metrics default to zero when the per-entity insights fetch fails.
type Campaign struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      CampaignStatus `json:"status"`
	Objective   string         `json:"objective,omitempty"`
	Impressions int64          `json:"impressions"`
	Clicks      int64          `json:"clicks"`
	Spend       float64        `json:"spent"`
	Conversions int64          `json:"conversions"`
}

// AdAccount is one ad account reachable under a connected identity.
type AdAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Currency string `json:"currency,omitempty"`
}
