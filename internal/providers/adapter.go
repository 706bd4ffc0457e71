// Package providers defines the capability set every ad-platform adapter
// implements and the registry the service selects adapters from. Provider
// dialect differences stay behind this interface; the failure policy
// (never retry exchanges, best-effort revoke, partial-failure-tolerant
// reporting) is uniform across implementations.
package providers

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/adboardhq/adboard/internal/integration"
)

// ErrRefreshUnsupported is returned by providers that never issue refresh
// tokens; expiry is terminal until the user reauthorizes.
var ErrRefreshUnsupported = errors.New("provider does not issue refresh tokens")

// Credentials are the OAuth client credentials for one provider app.
// DeveloperToken is only meaningful for Google Ads reporting.
type Credentials struct {
	ClientID       string
	ClientSecret   string
	DeveloperToken string
}

// Valid reports whether the client pair is present.
func (c Credentials) Valid() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Adapter is the uniform capability set over one provider's OAuth and
// reporting dialect.
type Adapter interface {
	Provider() integration.Provider

	// AuthorizationURL is pure construction; no network call.
	AuthorizationURL(creds Credentials, redirectURI, state string) (string, error)

	// ExchangeCode performs a single call to the token endpoint. Never
	// retried: authorization codes are single-use.
	ExchangeCode(ctx context.Context, creds Credentials, code, redirectURI string) (*integration.TokenSet, error)

	// AccountInfo fetches the descriptive identity for labeling the record.
	AccountInfo(ctx context.Context, accessToken string) (*integration.AccountInfo, error)

	// RevokeToken is best-effort: failures are logged and reported as
	// false, never as an error.
	RevokeToken(ctx context.Context, accessToken string) bool

	// AdAccounts lists the ad accounts reachable under the identity.
	AdAccounts(ctx context.Context, accessToken string) ([]integration.AdAccount, error)

	// Campaigns fetches campaign summaries with metrics for the selected
	// ad account. Per-entity metric failures zero that entity's metrics
	// instead of aborting the batch.
	Campaigns(ctx context.Context, accessToken, adAccountID string) ([]integration.Campaign, error)

	// Refresh renews an access token, or returns ErrRefreshUnsupported.
	Refresh(ctx context.Context, creds Credentials, refreshToken string) (*integration.TokenSet, error)

	// RequiresAdAccount reports whether reporting calls need a selector.
	RequiresAdAccount() bool
}

// Registry holds adapters keyed by provider tag.
type Registry struct {
	adapters map[integration.Provider]Adapter
}

// NewRegistry indexes the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[integration.Provider]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Provider()] = a
	}
	return r
}

// Lookup returns the adapter for the provider tag.
func (r *Registry) Lookup(provider integration.Provider) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, integration.NewConfigError("no adapter registered for provider " + string(provider))
	}
	return a, nil
}

// IsTransient reports whether an outbound call failed on the transport
// rather than being rejected by the provider.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
