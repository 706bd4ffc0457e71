package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adboardhq/adboard/internal/logging"
	goerrors "github.com/goliatone/go-errors"
)

// errorEnvelope is the JSON error body shared by all endpoints.
type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// writeError maps a service error to its HTTP status. Rich envelopes carry
// their own status and text code; anything else is a plain 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	envelope := errorEnvelope{Error: err.Error()}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.Code != 0 {
			status = rich.Code
		}
		envelope.Error = rich.Message
		envelope.Code = rich.TextCode
		if hint, ok := rich.Metadata["hint"].(string); ok {
			envelope.Hint = hint
		}
	}

	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s] %s %s failed: %v", logging.GetRequestID(r.Context()), r.Method, r.URL.Path, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
