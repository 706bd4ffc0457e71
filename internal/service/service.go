// Package service orchestrates provider adapters and the token store. It is
// the only surface the HTTP layer talks to.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"github.com/adboardhq/adboard/internal/store"
	"github.com/google/uuid"
)

// Service wires the adapter registry to the token store.
type Service struct {
	store    store.Store
	registry *providers.Registry
	creds    map[integration.Provider]providers.Credentials

	now   func() time.Time
	newID func() string
}

// New creates a Service. creds are the configured fallback client
// credentials per provider; callers may override them per request.
func New(st store.Store, registry *providers.Registry, creds map[integration.Provider]providers.Credentials) *Service {
	if creds == nil {
		creds = map[integration.Provider]providers.Credentials{}
	}
	return &Service{
		store:    st,
		registry: registry,
		creds:    creds,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Status is the connection state for one user and provider.
type Status struct {
	Connected   bool                  `json:"connected"`
	Integration *integration.Redacted `json:"integration,omitempty"`
}

// CampaignReport is the outcome of a campaign listing.
type CampaignReport struct {
	Email     string                 `json:"email,omitempty"`
	Campaigns []integration.Campaign `json:"campaigns"`
}

// credentials merges request-supplied credentials with configured ones.
// A request that carries a client pair wins; the developer token falls
// back to configuration either way.
func (s *Service) credentials(provider integration.Provider, req providers.Credentials) providers.Credentials {
	configured := s.creds[provider]
	if !req.Valid() {
		return configured
	}
	if req.DeveloperToken == "" {
		req.DeveloperToken = configured.DeveloperToken
	}
	return req
}

func newState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// BeginConnect returns the provider consent URL for the caller to redirect
// the user to.
func (s *Service) BeginConnect(ctx context.Context, provider integration.Provider, creds providers.Credentials, redirectURI string) (string, error) {
	adapter, err := s.registry.Lookup(provider)
	if err != nil {
		return "", err
	}
	return adapter.AuthorizationURL(s.credentials(provider, creds), redirectURI, newState())
}

// CompleteConnect exchanges the authorization code, labels the record with
// account info and persists it. The token is discarded when the account
// info fetch fails: a credential with no way to display it is worthless.
func (s *Service) CompleteConnect(ctx context.Context, provider integration.Provider, creds providers.Credentials, code, redirectURI, userID string) (*integration.Redacted, error) {
	if code == "" || userID == "" {
		return nil, integration.NewConfigError("code and userId are required")
	}
	adapter, err := s.registry.Lookup(provider)
	if err != nil {
		return nil, err
	}

	tokens, err := adapter.ExchangeCode(ctx, s.credentials(provider, creds), code, redirectURI)
	if err != nil {
		return nil, err
	}

	info, err := adapter.AccountInfo(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}

	rec := &integration.Record{
		ID:           s.newID(),
		UserID:       userID,
		Provider:     provider,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Email:        info.Email,
		Name:         info.Name,
		AccountID:    info.ID,
		ConnectedAt:  s.now(),
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	log.Printf("🔗 Connected %s integration %s for user %s (%s)", provider, rec.ID, userID, rec.Email)

	red := rec.Redact()
	return &red, nil
}

// Status reports whether the user has a connected integration for the
// provider. When several exist the most recently connected one wins;
// ListByUser returns newest-first so the first match is deterministic.
func (s *Service) Status(ctx context.Context, userID string, provider integration.Provider) (*Status, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Provider == provider {
			return &Status{Connected: true, Integration: &list[i]}, nil
		}
	}
	return &Status{Connected: false}, nil
}

// ListIntegrations returns the user's redacted integration records.
func (s *Service) ListIntegrations(ctx context.Context, userID string) ([]integration.Redacted, error) {
	return s.store.ListByUser(ctx, userID)
}

// Disconnect revokes the token best-effort and removes the record. It is
// idempotent: disconnecting an absent id succeeds silently, and revocation
// failure never blocks local removal.
func (s *Service) Disconnect(ctx context.Context, integrationID string) error {
	rec, err := s.store.Get(ctx, integrationID)
	if err != nil {
		return err
	}
	if rec != nil && rec.AccessToken != "" {
		if adapter, lookupErr := s.registry.Lookup(rec.Provider); lookupErr == nil {
			if !adapter.RevokeToken(ctx, rec.AccessToken) {
				log.Printf("⚠️ Could not revoke %s token for integration %s, removing locally anyway", rec.Provider, integrationID)
			}
		}
	}
	removed, err := s.store.Delete(ctx, integrationID)
	if err != nil {
		return err
	}
	if removed {
		log.Printf("🔌 Disconnected integration %s", integrationID)
	}
	return nil
}

// SetAdAccount stores the ad-account selector on an existing integration.
func (s *Service) SetAdAccount(ctx context.Context, integrationID, adAccountID string) (*integration.Redacted, error) {
	if adAccountID == "" {
		return nil, integration.NewConfigError("adAccountId is required")
	}
	rec, err := s.store.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, integration.NewNotFoundError(integrationID)
	}
	rec.AdAccountID = adAccountID
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	red := rec.Redact()
	return &red, nil
}

// AdAccounts lists the ad accounts reachable under an integration.
func (s *Service) AdAccounts(ctx context.Context, integrationID string) ([]integration.AdAccount, error) {
	rec, err := s.store.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, integration.NewNotFoundError(integrationID)
	}
	adapter, err := s.registry.Lookup(rec.Provider)
	if err != nil {
		return nil, err
	}
	if err := s.ensureFresh(ctx, adapter, rec); err != nil {
		return nil, err
	}
	return adapter.AdAccounts(ctx, rec.AccessToken)
}

// ListCampaigns fetches normalized campaign summaries for an integration.
// adAccountOverride takes precedence over the stored selector.
func (s *Service) ListCampaigns(ctx context.Context, integrationID, adAccountOverride string) (*CampaignReport, error) {
	rec, err := s.store.Get(ctx, integrationID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, integration.NewNotFoundError(integrationID)
	}
	adapter, err := s.registry.Lookup(rec.Provider)
	if err != nil {
		return nil, err
	}

	selector := adAccountOverride
	if selector == "" {
		selector = rec.AdAccountID
	}
	if adapter.RequiresAdAccount() && selector == "" {
		return nil, integration.NewSelectionRequiredError(rec.Provider,
			"select an ad account via POST /api/integrations/{integrationId}/ad-account first")
	}

	if err := s.ensureFresh(ctx, adapter, rec); err != nil {
		return nil, err
	}

	campaigns, err := adapter.Campaigns(ctx, rec.AccessToken, selector)
	if err != nil {
		return nil, err
	}
	return &CampaignReport{Email: rec.Email, Campaigns: campaigns}, nil
}

// ensureFresh renews an expired access token when a refresh token exists,
// mutating the record in place. Without one expiry is terminal and the
// caller is told to reconnect.
func (s *Service) ensureFresh(ctx context.Context, adapter providers.Adapter, rec *integration.Record) error {
	if !rec.Expired(s.now()) {
		return nil
	}
	if rec.RefreshToken == "" {
		return integration.NewExpiredCredentialError(rec.Provider, nil)
	}

	tokens, err := adapter.Refresh(ctx, s.credentials(rec.Provider, providers.Credentials{}), rec.RefreshToken)
	if err != nil {
		if errors.Is(err, providers.ErrRefreshUnsupported) {
			return integration.NewExpiredCredentialError(rec.Provider, nil)
		}
		return err
	}

	rec.AccessToken = tokens.AccessToken
	rec.ExpiresAt = tokens.ExpiresAt
	if tokens.RefreshToken != "" {
		rec.RefreshToken = tokens.RefreshToken
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return err
	}
	log.Printf("✅ Refreshed %s token for integration %s", rec.Provider, rec.ID)
	return nil
}
