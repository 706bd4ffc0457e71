// Package api exposes the integration service over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/adboardhq/adboard/internal/insights"
	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"github.com/adboardhq/adboard/internal/service"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

func providerFromPath(r *http.Request) (integration.Provider, error) {
	return integration.ParseProvider(chi.URLParam(r, "provider"))
}

type oauthURLRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectUri"`
}

// OAuthURLHandler returns the provider consent URL.
func OAuthURLHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req oauthURLRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, integration.NewConfigError("invalid request body"))
			return
		}

		authURL, err := svc.BeginConnect(r.Context(), provider, providers.Credentials{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
		}, req.RedirectURI)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
	}
}

type callbackRequest struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirectUri"`
	UserID       string `json:"userId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// CallbackHandler exchanges the authorization code and persists the
// integration, returning the redacted record.
func CallbackHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req callbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, integration.NewConfigError("invalid request body"))
			return
		}

		record, err := svc.CompleteConnect(r.Context(), provider, providers.Credentials{
			ClientID:     req.ClientID,
			ClientSecret: req.ClientSecret,
		}, req.Code, req.RedirectURI, req.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"integration": record,
		})
	}
}

// StatusHandler reports connection state for a user and provider.
func StatusHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, err := providerFromPath(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		status, err := svc.Status(r.Context(), chi.URLParam(r, "userId"), provider)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

type disconnectRequest struct {
	IntegrationID string `json:"integrationId"`
}

// DisconnectHandler revokes best-effort and removes the integration.
func DisconnectHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req disconnectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IntegrationID == "" {
			writeError(w, r, integration.NewConfigError("integrationId is required"))
			return
		}
		if err := svc.Disconnect(r.Context(), req.IntegrationID); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Integration disconnected successfully",
		})
	}
}

// CampaignsHandler returns the normalized campaign list for an integration.
// An adAccountId query parameter overrides the stored selector.
func CampaignsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.ListCampaigns(r.Context(),
			chi.URLParam(r, "integrationId"),
			r.URL.Query().Get("adAccountId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"email":     report.Email,
			"campaigns": report.Campaigns,
		})
	}
}

// IntegrationsHandler lists all of a user's integrations, redacted.
func IntegrationsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListIntegrations(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"integrations": list,
			"count":        len(list),
		})
	}
}

// IntegrationDeleteHandler is the REST-style disconnect.
func IntegrationDeleteHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Disconnect(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Integration disconnected",
		})
	}
}

type adAccountRequest struct {
	AdAccountID string `json:"adAccountId"`
}

// SetAdAccountHandler stores the ad-account selector on an integration.
func SetAdAccountHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, integration.NewConfigError("invalid request body"))
			return
		}
		record, err := svc.SetAdAccount(r.Context(), chi.URLParam(r, "id"), req.AdAccountID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"integration": record,
		})
	}
}

// AdAccountsHandler lists the ad accounts reachable under an integration.
func AdAccountsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.AdAccounts(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"adAccounts": accounts,
		})
	}
}

// InsightsHandler lists all warehouse insights, newest first.
func InsightsHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := insights.List(r.Context(), db)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"insights": list,
			"total":    len(list),
		})
	}
}

// InsightForCampaignHandler returns the newest insight mentioning the
// campaign, falling back to the newest insight overall.
func InsightForCampaignHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		insight, err := insights.ForCampaign(r.Context(), db, chi.URLParam(r, "campaignName"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		if insight == nil {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"insight": nil,
				"message": "No insights found for this campaign",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"insight": insight,
		})
	}
}

// HealthHandler is the liveness probe.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
