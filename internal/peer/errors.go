package peer

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse is the clear text error body, shaped like the issuing API's.
type ErrorResponse struct {
	Errors struct {
		Error []ErrorDetail `json:"Error"`
	} `json:"Errors"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Source      string `json:"Source"`
	ReasonCode  string `json:"ReasonCode"`
	Description string `json:"Description"`
	Recoverable bool   `json:"Recoverable"`
}

func writeError(w http.ResponseWriter, status int, reason string, err error) {
	log.Error().
		Str("event", "peer_error").
		Str("reason_code", reason).
		Int("status", status).
		Err(err).
		Msg("request rejected")

	var resp ErrorResponse
	resp.Errors.Error = []ErrorDetail{{
		Source:      "go_fle-peer",
		ReasonCode:  reason,
		Description: err.Error(),
	}}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
