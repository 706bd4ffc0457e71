package integration

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseProvider(t *testing.T) {
	cases := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"google-ads", ProviderGoogleAds, false},
		{"meta-ads", ProviderMetaAds, false},
		{"tiktok-ads", "", true},
		{"", "", true},
		{"GOOGLE-ADS", "", true},
	}
	for _, tc := range cases {
		got, err := ParseProvider(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseProvider(%q): expected error, got %q", tc.in, got)
			}
			if err != nil && !HasTextCode(err, TextCodeConfig) {
				t.Errorf("ParseProvider(%q): expected %q text code", tc.in, TextCodeConfig)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseProvider(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestRecordExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	live := Record{ExpiresAt: now.Add(time.Minute)}
	if live.Expired(now) {
		t.Errorf("token expiring in a minute should not be expired")
	}

	expired := Record{ExpiresAt: now.Add(-time.Minute)}
	if !expired.Expired(now) {
		t.Errorf("token expired a minute ago should be expired")
	}

	atBoundary := Record{ExpiresAt: now}
	if !atBoundary.Expired(now) {
		t.Errorf("token at its exact expiry instant should be expired")
	}

	noExpiry := Record{}
	if noExpiry.Expired(now) {
		t.Errorf("zero ExpiresAt means no reported expiry, should not be expired")
	}
}

func TestRedactStripsSecrets(t *testing.T) {
	rec := Record{
		ID:           "int-1",
		UserID:       "user-1",
		Provider:     ProviderGoogleAds,
		AccessToken:  "very-secret-access",
		RefreshToken: "very-secret-refresh",
		Email:        "a@b.com",
		Name:         "A B",
		AccountID:    "1234567890",
		AdAccountID:  "9876543210",
		ExpiresAt:    time.Now().Add(time.Hour),
		ConnectedAt:  time.Now(),
	}

	red := rec.Redact()
	if red.ID != rec.ID || red.UserID != rec.UserID || red.Provider != rec.Provider ||
		red.Email != rec.Email || red.AdAccountID != rec.AdAccountID {
		t.Fatalf("redaction dropped non-secret fields: %+v", red)
	}

	data, err := json.Marshal(red)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "very-secret") {
		t.Fatalf("redacted projection leaked a credential: %s", data)
	}
}

func TestCampaignSpendJSONKey(t *testing.T) {
	data, err := json.Marshal(Campaign{ID: "c1", Name: "Launch", Status: StatusActive, Spend: 12.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"spent":12.5`) {
		t.Fatalf("expected spend under the \"spent\" key, got %s", data)
	}
}
