// Package googleads speaks the Google OAuth and Google Ads reporting dialect.
package googleads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// Scopes requested at connect time. The adwords scope covers reporting;
// the userinfo scopes label the integration record.
var Scopes = []string{
	"https://www.googleapis.com/auth/adwords",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Adapter implements providers.Adapter for Google Ads.
type Adapter struct {
	httpClient     *http.Client
	endpoint       oauth2.Endpoint
	userinfoURL    string
	revokeURL      string
	adsBaseURL     string
	developerToken string
}

// New creates the adapter. The developer token is required for reporting
// calls only; OAuth flows work without it.
func New(developerToken string) *Adapter {
	return &Adapter{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		endpoint:       googleoauth.Endpoint,
		userinfoURL:    "https://www.googleapis.com/oauth2/v1/userinfo",
		revokeURL:      "https://oauth2.googleapis.com/revoke",
		adsBaseURL:     "https://googleads.googleapis.com/v16",
		developerToken: developerToken,
	}
}

func (a *Adapter) Provider() integration.Provider {
	return integration.ProviderGoogleAds
}

func (a *Adapter) RequiresAdAccount() bool { return true }

func (a *Adapter) oauthConfig(creds providers.Credentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     a.endpoint,
	}
}

// AuthorizationURL builds the consent URL. offline access and forced
// consent guarantee a refresh token on first authorization.
func (a *Adapter) AuthorizationURL(creds providers.Credentials, redirectURI, state string) (string, error) {
	if !creds.Valid() {
		return "", integration.NewConfigError("google-ads: clientId and clientSecret are required")
	}
	if redirectURI == "" {
		return "", integration.NewConfigError("google-ads: redirectUri is required")
	}
	cfg := a.oauthConfig(creds, redirectURI)
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// ExchangeCode trades the single-use authorization code for tokens.
func (a *Adapter) ExchangeCode(ctx context.Context, creds providers.Credentials, code, redirectURI string) (*integration.TokenSet, error) {
	if !creds.Valid() {
		return nil, integration.NewConfigError("google-ads: clientId and clientSecret are required")
	}
	cfg := a.oauthConfig(creds, redirectURI)
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, integration.NewAuthExchangeError(a.Provider(), err, string(retrieveErr.Body))
		}
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("google token exchange", err)
		}
		return nil, integration.NewAuthExchangeError(a.Provider(), err, "")
	}

	return &integration.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}, nil
}

// AccountInfo fetches the userinfo profile used to label the record.
func (a *Adapter) AccountInfo(ctx context.Context, accessToken string) (*integration.AccountInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userinfoURL, nil)
	if err != nil {
		return nil, integration.NewAccountInfoError(a.Provider(), err, "")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("google userinfo", err)
		}
		return nil, integration.NewAccountInfoError(a.Provider(), err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, integration.NewAccountInfoError(a.Provider(), nil, string(body))
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, integration.NewAccountInfoError(a.Provider(), err, "")
	}
	return &integration.AccountInfo{ID: info.ID, Email: info.Email, Name: info.Name}, nil
}

// RevokeToken is best-effort: the local record must remain removable even
// when Google rejects the revocation.
func (a *Adapter) RevokeToken(ctx context.Context, accessToken string) bool {
	revokeURL := a.revokeURL + "?token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ google-ads: token revocation failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ google-ads: token revocation rejected with status %d", resp.StatusCode)
		return false
	}
	return true
}

// AdAccounts lists customer ids the authorized user can access.
func (a *Adapter) AdAccounts(ctx context.Context, accessToken string) ([]integration.AdAccount, error) {
	body, err := a.adsGet(ctx, accessToken, a.adsBaseURL+"/customers:listAccessibleCustomers")
	if err != nil {
		return nil, err
	}

	var payload struct {
		ResourceNames []string `json:"resourceNames"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	accounts := make([]integration.AdAccount, 0, len(payload.ResourceNames))
	for _, name := range payload.ResourceNames {
		accounts = append(accounts, integration.AdAccount{
			ID: strings.TrimPrefix(name, "customers/"),
		})
	}
	return accounts, nil
}

const (
	campaignQuery = "SELECT campaign.id, campaign.name, campaign.status FROM campaign ORDER BY campaign.id"
	metricsQuery  = "SELECT campaign.id, metrics.impressions, metrics.clicks, metrics.cost_micros, metrics.conversions " +
		"FROM campaign WHERE segments.date DURING LAST_30_DAYS"
)

type searchResult struct {
	Results []struct {
		Campaign struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"campaign"`
		Metrics struct {
			Impressions string  `json:"impressions"`
			Clicks      string  `json:"clicks"`
			CostMicros  string  `json:"costMicros"`
			Conversions float64 `json:"conversions"`
		} `json:"metrics"`
	} `json:"results"`
}

// Campaigns runs a campaign listing query and a LAST_30_DAYS metrics query,
// merged by campaign id. A failed metrics query degrades every campaign to
// zeroed metrics instead of aborting the batch.
func (a *Adapter) Campaigns(ctx context.Context, accessToken, adAccountID string) ([]integration.Campaign, error) {
	if a.developerToken == "" {
		return nil, integration.NewConfigError("google-ads: developer token not configured")
	}

	searchURL := fmt.Sprintf("%s/customers/%s/googleAds:search", a.adsBaseURL, adAccountID)

	listing, err := a.search(ctx, accessToken, searchURL, campaignQuery)
	if err != nil {
		return nil, err
	}

	campaigns := make([]integration.Campaign, 0, len(listing.Results))
	byID := make(map[string]int, len(listing.Results))
	for _, res := range listing.Results {
		byID[res.Campaign.ID] = len(campaigns)
		campaigns = append(campaigns, integration.Campaign{
			ID:     res.Campaign.ID,
			Name:   res.Campaign.Name,
			Status: normalizeStatus(res.Campaign.Status),
		})
	}

	metrics, err := a.search(ctx, accessToken, searchURL, metricsQuery)
	if err != nil {
		log.Printf("⚠️ google-ads: metrics query failed for customer %s, returning zeroed metrics: %v", adAccountID, err)
		return campaigns, nil
	}
	for _, res := range metrics.Results {
		idx, ok := byID[res.Campaign.ID]
		if !ok {
			continue
		}
		campaigns[idx].Impressions = parseInt(res.Metrics.Impressions)
		campaigns[idx].Clicks = parseInt(res.Metrics.Clicks)
		campaigns[idx].Spend = float64(parseInt(res.Metrics.CostMicros)) / 1e6
		campaigns[idx].Conversions = int64(res.Metrics.Conversions)
	}
	return campaigns, nil
}

func (a *Adapter) search(ctx context.Context, accessToken, searchURL, query string) (*searchResult, error) {
	payload, _ := json.Marshal(map[string]string{"query": query})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, searchURL, strings.NewReader(string(payload)))
	if err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("developer-token", a.developerToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("google ads search", err)
		}
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, integration.NewExpiredCredentialError(a.Provider(), nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, integration.NewReportError(a.Provider(), nil, string(body))
	}

	var result searchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	return &result, nil
}

func (a *Adapter) adsGet(ctx context.Context, accessToken, rawURL string) ([]byte, error) {
	if a.developerToken == "" {
		return nil, integration.NewConfigError("google-ads: developer token not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("developer-token", a.developerToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("google ads get", err)
		}
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, integration.NewExpiredCredentialError(a.Provider(), nil)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, integration.NewReportError(a.Provider(), nil, string(body))
	}
	return body, nil
}

// Refresh renews the access token through the refresh grant.
func (a *Adapter) Refresh(ctx context.Context, creds providers.Credentials, refreshToken string) (*integration.TokenSet, error) {
	if !creds.Valid() {
		return nil, integration.NewConfigError("google-ads: clientId and clientSecret are required")
	}
	cfg := a.oauthConfig(creds, "")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if isPermanentRefreshError(err) {
			return nil, integration.NewExpiredCredentialError(a.Provider(), err)
		}
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("google token refresh", err)
		}
		return nil, integration.NewExpiredCredentialError(a.Provider(), err)
	}

	set := &integration.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tok.Expiry,
	}
	// Persist rotated refresh token if the provider issued one.
	if tok.RefreshToken != "" {
		set.RefreshToken = tok.RefreshToken
	}
	return set, nil
}

// isPermanentRefreshError distinguishes revoked grants from transient
// failures. Permanent failures mean the user must reauthorize.
func isPermanentRefreshError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	permanentMarkers := []string{
		"invalid_grant",
		"invalid_client",
		"unauthorized_client",
		"token has been expired or revoked",
		"revoked",
	}
	for _, marker := range permanentMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func normalizeStatus(status string) integration.CampaignStatus {
	switch status {
	case "ENABLED":
		return integration.StatusActive
	case "PAUSED":
		return integration.StatusPaused
	case "REMOVED":
		return integration.StatusFinished
	default:
		return integration.StatusPaused
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
