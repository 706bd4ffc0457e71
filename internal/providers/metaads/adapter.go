// Package metaads speaks the Meta Graph API OAuth and Marketing dialect.
package metaads

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
	"sync"
	"time"

	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"golang.org/x/oauth2"
)

// Scopes requested at connect time.
var Scopes = []string{"ads_read", "read_insights", "business_management"}

// insightsConcurrency bounds the per-campaign insights fan-out.
const insightsConcurrency = 5

// Adapter implements providers.Adapter for Meta Ads.
type Adapter struct {
	httpClient *http.Client
	endpoint   oauth2.Endpoint
	graphURL   string
}

// New creates the adapter pinned to Graph API v19.0.
func New() *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
		},
		graphURL: "https://graph.facebook.com/v19.0",
	}
}

func (a *Adapter) Provider() integration.Provider {
	return integration.ProviderMetaAds
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

// AuthorizationURL builds the dialog URL. Meta issues no refresh tokens,
// so there is no offline-access flag to set.
func (a *Adapter) AuthorizationURL(creds providers.Credentials, redirectURI, state string) (string, error) {
	if !creds.Valid() {
		return "", integration.NewConfigError("meta-ads: clientId and clientSecret are required")
	}
	if redirectURI == "" {
		return "", integration.NewConfigError("meta-ads: redirectUri is required")
	}
	cfg := a.oauthConfig(creds, redirectURI)
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode trades the single-use authorization code for an access token.
func (a *Adapter) ExchangeCode(ctx context.Context, creds providers.Credentials, code, redirectURI string) (*integration.TokenSet, error) {
	if !creds.Valid() {
		return nil, integration.NewConfigError("meta-ads: clientId and clientSecret are required")
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
			return nil, integration.NewTransientNetworkError("meta token exchange", err)
		}
		return nil, integration.NewAuthExchangeError(a.Provider(), err, "")
	}

	// Meta returns no refresh token; expiry is terminal until reauthorization.
	return &integration.TokenSet{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}, nil
}

// AccountInfo fetches the /me profile used to label the record.
func (a *Adapter) AccountInfo(ctx context.Context, accessToken string) (*integration.AccountInfo, error) {
	params := url.Values{
		"fields":       {"id,name,email"},
		"access_token": {accessToken},
	}
	body, status, err := a.graphGet(ctx, "/me", params)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("meta account info", err)
		}
		return nil, integration.NewAccountInfoError(a.Provider(), err, "")
	}
	if status != http.StatusOK {
		return nil, integration.NewAccountInfoError(a.Provider(), nil, string(body))
	}

	var info struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, integration.NewAccountInfoError(a.Provider(), err, "")
	}
	return &integration.AccountInfo{ID: info.ID, Email: info.Email, Name: info.Name}, nil
}

// RevokeToken deletes the app permissions grant. Best-effort.
func (a *Adapter) RevokeToken(ctx context.Context, accessToken string) bool {
	revokeURL := fmt.Sprintf("%s/me/permissions?access_token=%s", a.graphURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, revokeURL, nil)
	if err != nil {
		return false
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ meta-ads: token revocation failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ meta-ads: token revocation rejected with status %d", resp.StatusCode)
		return false
	}
	return true
}

// AdAccounts lists the ad accounts reachable under the identity.
func (a *Adapter) AdAccounts(ctx context.Context, accessToken string) ([]integration.AdAccount, error) {
	params := url.Values{
		"fields":       {"id,name,currency,account_status"},
		"limit":        {"100"},
		"access_token": {accessToken},
	}
	body, status, err := a.graphGet(ctx, "/me/adaccounts", params)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("meta ad accounts", err)
		}
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	if status == http.StatusUnauthorized {
		return nil, integration.NewExpiredCredentialError(a.Provider(), nil)
	}
	if status != http.StatusOK {
		return nil, integration.NewReportError(a.Provider(), nil, string(body))
	}

	var payload struct {
		Data []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Currency string `json:"currency"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	accounts := make([]integration.AdAccount, 0, len(payload.Data))
	for _, acc := range payload.Data {
		accounts = append(accounts, integration.AdAccount{
			ID:       acc.ID,
			Name:     acc.Name,
			Currency: acc.Currency,
		})
	}
	return accounts, nil
}

type graphCampaign struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Objective string `json:"objective"`
}

// Campaigns lists campaigns for the ad account and fans out one insights
// call per campaign over the last 30 days. A failed insights call zeroes
// that campaign's metrics; identity fields always survive.
func (a *Adapter) Campaigns(ctx context.Context, accessToken, adAccountID string) ([]integration.Campaign, error) {
	accountID := strings.TrimPrefix(adAccountID, "act_")
	params := url.Values{
		"fields":       {"id,name,status,objective,created_time"},
		"limit":        {"100"},
		"access_token": {accessToken},
	}
	body, status, err := a.graphGet(ctx, "/act_"+accountID+"/campaigns", params)
	if err != nil {
		if providers.IsTransient(err) {
			return nil, integration.NewTransientNetworkError("meta campaigns", err)
		}
		return nil, integration.NewReportError(a.Provider(), err, "")
	}
	if status == http.StatusUnauthorized {
		return nil, integration.NewExpiredCredentialError(a.Provider(), nil)
	}
	if status != http.StatusOK {
		return nil, integration.NewReportError(a.Provider(), nil, string(body))
	}

	var listing struct {
		Data []graphCampaign `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, integration.NewReportError(a.Provider(), err, "")
	}

	campaigns := make([]integration.Campaign, len(listing.Data))
	var wg sync.WaitGroup
	sem := make(chan struct{}, insightsConcurrency)
	for i, c := range listing.Data {
		campaigns[i] = integration.Campaign{
			ID:        c.ID,
			Name:      c.Name,
			Status:    normalizeStatus(c.Status),
			Objective: c.Objective,
		}
		wg.Add(1)
		go func(idx int, campaignID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			metrics, err := a.campaignInsights(ctx, accessToken, campaignID)
			if err != nil {
				log.Printf("⚠️ meta-ads: insights unavailable for campaign %s, metrics zeroed: %v", campaignID, err)
				return
			}
			campaigns[idx].Impressions = metrics.impressions
			campaigns[idx].Clicks = metrics.clicks
			campaigns[idx].Spend = metrics.spend
			campaigns[idx].Conversions = metrics.conversions
		}(i, c.ID)
	}
	wg.Wait()
	return campaigns, nil
}

type campaignMetrics struct {
	impressions int64
	clicks      int64
	spend       float64
	conversions int64
}

func (a *Adapter) campaignInsights(ctx context.Context, accessToken, campaignID string) (*campaignMetrics, error) {
	until := time.Now()
	since := until.Add(-30 * 24 * time.Hour)
	timeRange, _ := json.Marshal(map[string]string{
		"since": since.Format("2006-01-02"),
		"until": until.Format("2006-01-02"),
	})

	params := url.Values{
		"fields":       {"impressions,clicks,spend,actions,action_values"},
		"time_range":   {string(timeRange)},
		"access_token": {accessToken},
	}
	body, status, err := a.graphGet(ctx, "/"+campaignID+"/insights", params)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("insights call returned status %d", status)
	}

	var payload struct {
		Data []struct {
			Impressions string `json:"impressions"`
			Clicks      string `json:"clicks"`
			Spend       string `json:"spend"`
			Actions     []struct {
				ActionType string `json:"action_type"`
				Value      string `json:"value"`
			} `json:"actions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	metrics := &campaignMetrics{}
	if len(payload.Data) == 0 {
		return metrics, nil
	}
	row := payload.Data[0]
	metrics.impressions = parseInt(row.Impressions)
	metrics.clicks = parseInt(row.Clicks)
	metrics.spend = parseFloat(row.Spend)
	for _, action := range row.Actions {
		if action.ActionType == "offsite_conversion.post_purchase" {
			metrics.conversions = parseInt(action.Value)
		}
	}
	return metrics, nil
}

func (a *Adapter) graphGet(ctx context.Context, path string, params url.Values) ([]byte, int, error) {
	reqURL := a.graphURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// Refresh is unsupported: Meta user tokens carry no refresh grant.
func (a *Adapter) Refresh(ctx context.Context, creds providers.Credentials, refreshToken string) (*integration.TokenSet, error) {
	return nil, providers.ErrRefreshUnsupported
}

func normalizeStatus(status string) integration.CampaignStatus {
	switch status {
	case "ACTIVE":
		return integration.StatusActive
	case "PAUSED":
		return integration.StatusPaused
	case "ARCHIVED", "DELETED", "COMPLETED":
		return integration.StatusFinished
	default:
		return integration.StatusPaused
	}
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
