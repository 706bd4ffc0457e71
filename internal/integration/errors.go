package integration

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried in every error envelope so clients can branch
// without string-matching messages.
const (
	TextCodeConfig              = "INTEGRATION_CONFIG"
	TextCodeAuthExchange        = "OAUTH_EXCHANGE_FAILED"
	TextCodeAccountInfo         = "ACCOUNT_INFO_FAILED"
	TextCodeNotFound            = "INTEGRATION_NOT_FOUND"
	TextCodeSelectionRequired   = "AD_ACCOUNT_REQUIRED"
	TextCodeCredentialExpired   = "CREDENTIAL_EXPIRED"
	TextCodeUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	TextCodeReportFailed        = "CAMPAIGN_FETCH_FAILED"
)

// NewConfigError flags missing or malformed client configuration. Never retried.
func NewConfigError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeConfig)
}

// NewAuthExchangeError wraps a provider rejection of a code exchange.
// The raw provider payload rides along in metadata for diagnostics;
// authorization codes are single-use so this is never retried.
func NewAuthExchangeError(provider Provider, source error, providerPayload string) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, "oauth code exchange rejected")
	} else {
		err = goerrors.New("oauth code exchange rejected", goerrors.CategoryExternal)
	}
	err = err.
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeAuthExchange)
	meta := map[string]any{"provider": string(provider)}
	if providerPayload != "" {
		meta["provider_response"] = providerPayload
	}
	err.WithMetadata(meta)
	return err
}

// NewAccountInfoError wraps a failed identity/me lookup. The token is not
// persisted when this fires; the caller surfaces the error instead.
func NewAccountInfoError(provider Provider, source error, providerPayload string) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, "account info fetch failed")
	} else {
		err = goerrors.New("account info fetch failed", goerrors.CategoryExternal)
	}
	err = err.
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeAccountInfo)
	meta := map[string]any{"provider": string(provider)}
	if providerPayload != "" {
		meta["provider_response"] = providerPayload
	}
	err.WithMetadata(meta)
	return err
}

// NewNotFoundError reports an unknown integration id.
func NewNotFoundError(integrationID string) error {
	err := goerrors.New("integration not found", goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(TextCodeNotFound)
	err.WithMetadata(map[string]any{"integration_id": integrationID})
	return err
}

// NewSelectionRequiredError reports a reporting call made before an ad
// account was chosen for a provider that exposes several.
func NewSelectionRequiredError(provider Provider, hint string) error {
	err := goerrors.New("ad account selection required", goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeSelectionRequired)
	err.WithMetadata(map[string]any{"provider": string(provider), "hint": hint})
	return err
}

// NewExpiredCredentialError reports a token that is expired or revoked on
// use and cannot be silently renewed. The caller should prompt reconnection.
func NewExpiredCredentialError(provider Provider, source error) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryAuth, "credential expired, reconnect required")
	} else {
		err = goerrors.New("credential expired, reconnect required", goerrors.CategoryAuth)
	}
	err = err.
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeCredentialExpired)
	err.WithMetadata(map[string]any{"provider": string(provider)})
	return err
}

// NewTransientNetworkError wraps timeouts and connection failures on
// outbound provider calls.
func NewTransientNetworkError(op string, source error) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, "provider unreachable")
	} else {
		err = goerrors.New("provider unreachable", goerrors.CategoryExternal)
	}
	err = err.
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeUpstreamUnreachable)
	err.WithMetadata(map[string]any{"operation": op})
	return err
}

// NewReportError wraps a whole-batch campaign/reporting failure. Per-entity
// insight failures never reach this path; they degrade to zeroed metrics.
func NewReportError(provider Provider, source error, providerPayload string) error {
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryExternal, "campaign fetch failed")
	} else {
		err = goerrors.New("campaign fetch failed", goerrors.CategoryExternal)
	}
	err = err.
		WithCode(http.StatusBadGateway).
		WithTextCode(TextCodeReportFailed)
	meta := map[string]any{"provider": string(provider)}
	if providerPayload != "" {
		meta["provider_response"] = providerPayload
	}
	err.WithMetadata(meta)
	return err
}

// HasTextCode reports whether err carries the given envelope text code.
func HasTextCode(err error, textCode string) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == textCode
}
