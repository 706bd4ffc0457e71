package metaads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/adboardhq/adboard/internal/integration"
	"github.com/adboardhq/adboard/internal/providers"
	"golang.org/x/oauth2"
)

func testCreds() providers.Credentials {
	return providers.Credentials{ClientID: "app-id", ClientSecret: "app-secret"}
}

func testAdapter(server *httptest.Server) *Adapter {
	a := New()
	a.httpClient = server.Client()
	a.endpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/dialog/oauth",
		TokenURL: server.URL + "/oauth/access_token",
	}
	a.graphURL = server.URL
	return a
}

func TestAuthorizationURL(t *testing.T) {
	a := New()
	raw, err := a.AuthorizationURL(testCreds(), "http://localhost:3000/cb", "state-1")
	if err != nil {
		t.Fatalf("authorization url: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.HasPrefix(raw, "https://www.facebook.com/v19.0/dialog/oauth") {
		t.Errorf("dialog URL not pinned to v19.0: %s", raw)
	}
	q := parsed.Query()
	if q.Get("client_id") != "app-id" || q.Get("state") != "state-1" {
		t.Errorf("unexpected query: %v", q)
	}
	if !strings.Contains(q.Get("scope"), "ads_read") {
		t.Errorf("scope missing ads_read: %q", q.Get("scope"))
	}
	if q.Get("access_type") != "" {
		t.Errorf("meta flow must not request offline access, got %q", q.Get("access_type"))
	}
}

func TestExchangeCodeHasNoRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"meta-tok","token_type":"bearer","expires_in":5183944}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tokens, err := testAdapter(server).ExchangeCode(context.Background(), testCreds(), "code-1", "http://localhost/cb")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if tokens.AccessToken != "meta-tok" {
		t.Fatalf("unexpected token set: %+v", tokens)
	}
	if tokens.RefreshToken != "" {
		t.Fatalf("meta must not yield a refresh token: %+v", tokens)
	}
}

func TestExchangeCodeRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := testAdapter(server).ExchangeCode(context.Background(), testCreds(), "bad", "http://localhost/cb")
	if !integration.HasTextCode(err, integration.TextCodeAuthExchange) {
		t.Fatalf("expected %q, got %v", integration.TextCodeAuthExchange, err)
	}
}

func TestAccountInfo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("access_token"); got != "meta-tok" {
			t.Errorf("access_token = %q", got)
		}
		if got := r.URL.Query().Get("fields"); got != "id,name,email" {
			t.Errorf("fields = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"10203","name":"Ads User","email":"ads@example.com"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	info, err := testAdapter(server).AccountInfo(context.Background(), "meta-tok")
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if info.ID != "10203" || info.Email != "ads@example.com" || info.Name != "Ads User" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestRevokeToken(t *testing.T) {
	status := http.StatusOK
	mux := http.NewServeMux()
	mux.HandleFunc("/me/permissions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, `{"success":true}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	a := testAdapter(server)

	if !a.RevokeToken(context.Background(), "meta-tok") {
		t.Fatalf("expected successful revocation")
	}
	status = http.StatusBadRequest
	if a.RevokeToken(context.Background(), "meta-tok") {
		t.Fatalf("rejected revocation must report false")
	}
}

func TestRevokeTokenNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	a := testAdapter(server)
	server.Close() // every call now fails to connect

	if a.RevokeToken(context.Background(), "meta-tok") {
		t.Fatalf("unreachable provider must report false, not panic or error")
	}
}

func TestAdAccounts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/adaccounts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"act_111","name":"Brand","currency":"USD"},
			{"id":"act_222","name":"Performance","currency":"EUR"}
		]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	accounts, err := testAdapter(server).AdAccounts(context.Background(), "meta-tok")
	if err != nil {
		t.Fatalf("ad accounts: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != "act_111" || accounts[1].Currency != "EUR" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

func TestCampaignsWithInsights(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/act_111/campaigns", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"c1","name":"Launch","status":"ACTIVE","objective":"OUTCOME_SALES"},
			{"id":"c2","name":"Archive","status":"ARCHIVED","objective":"OUTCOME_TRAFFIC"}
		]}`)
	})
	mux.HandleFunc("/c1/insights", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"impressions":"1000","clicks":"50","spend":"12.50",
			"actions":[{"action_type":"link_click","value":"40"},{"action_type":"offsite_conversion.post_purchase","value":"3"}]}]}`)
	})
	mux.HandleFunc("/c2/insights", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	campaigns, err := testAdapter(server).Campaigns(context.Background(), "meta-tok", "act_111")
	if err != nil {
		t.Fatalf("campaigns: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("expected 2 campaigns, got %+v", campaigns)
	}
	first := campaigns[0]
	if first.ID != "c1" || first.Status != integration.StatusActive || first.Objective != "OUTCOME_SALES" {
		t.Fatalf("unexpected first campaign: %+v", first)
	}
	if first.Impressions != 1000 || first.Clicks != 50 || first.Spend != 12.5 || first.Conversions != 3 {
		t.Fatalf("metrics wrong: %+v", first)
	}
	second := campaigns[1]
	if second.Status != integration.StatusFinished {
		t.Fatalf("ARCHIVED should normalize to finished: %+v", second)
	}
	if second.Impressions != 0 || second.Spend != 0 {
		t.Fatalf("empty insights should leave metrics zeroed: %+v", second)
	}
}

func TestCampaignsPartialInsightsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/act_111/campaigns", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"c1","name":"Healthy","status":"ACTIVE"},
			{"id":"c2","name":"Broken","status":"ACTIVE"}
		]}`)
	})
	mux.HandleFunc("/c1/insights", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"impressions":"500","clicks":"25","spend":"5.00"}]}`)
	})
	mux.HandleFunc("/c2/insights", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	campaigns, err := testAdapter(server).Campaigns(context.Background(), "meta-tok", "act_111")
	if err != nil {
		t.Fatalf("one failed insights call must not abort the batch: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("expected both campaigns, got %+v", campaigns)
	}
	byID := map[string]integration.Campaign{}
	for _, c := range campaigns {
		byID[c.ID] = c
	}
	if byID["c1"].Impressions != 500 || byID["c1"].Spend != 5.0 {
		t.Fatalf("healthy campaign lost its metrics: %+v", byID["c1"])
	}
	broken := byID["c2"]
	if broken.Name != "Broken" || broken.Status != integration.StatusActive {
		t.Fatalf("identity fields must survive an insights failure: %+v", broken)
	}
	if broken.Impressions != 0 || broken.Clicks != 0 || broken.Spend != 0 || broken.Conversions != 0 {
		t.Fatalf("failed insights should zero metrics: %+v", broken)
	}
}

func TestCampaignsAcceptsBareAccountID(t *testing.T) {
	hit := false
	mux := http.NewServeMux()
	mux.HandleFunc("/act_111/campaigns", func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	// Selector stored without the act_ prefix still resolves.
	if _, err := testAdapter(server).Campaigns(context.Background(), "meta-tok", "111"); err != nil {
		t.Fatalf("campaigns: %v", err)
	}
	if !hit {
		t.Fatalf("campaign listing endpoint was not called")
	}
}

func TestCampaignsUnauthorizedMapsToExpired(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/act_111/campaigns", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Error validating access token"}}`, http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := testAdapter(server).Campaigns(context.Background(), "stale", "act_111")
	if !integration.HasTextCode(err, integration.TextCodeCredentialExpired) {
		t.Fatalf("expected %q, got %v", integration.TextCodeCredentialExpired, err)
	}
}

func TestRefreshUnsupported(t *testing.T) {
	a := New()
	_, err := a.Refresh(context.Background(), testCreds(), "whatever")
	if !errors.Is(err, providers.ErrRefreshUnsupported) {
		t.Fatalf("expected ErrRefreshUnsupported, got %v", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]integration.CampaignStatus{
		"ACTIVE":    integration.StatusActive,
		"PAUSED":    integration.StatusPaused,
		"ARCHIVED":  integration.StatusFinished,
		"DELETED":   integration.StatusFinished,
		"COMPLETED": integration.StatusFinished,
		"IN_REVIEW": integration.StatusPaused,
		"":          integration.StatusPaused,
	}
	for in, want := range cases {
		if got := normalizeStatus(in); got != want {
			t.Errorf("normalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}
