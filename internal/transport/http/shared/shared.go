// Package shared centralizes the JSON envelopes and parsing helpers the
// feature handlers have in common.
package shared

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	dErrors "veristry/pkg/domain-errors"
)

// ErrorResponse is the error envelope. Relayers key retry logic off Error,
// so it always carries the specific code, never a catch-all.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteError translates a domain error into the HTTP envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   string(code),
		Message: err.Error(),
	})
}

// WriteJSON writes a success payload.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ParseHexBytes decodes a 0x-prefixed hex field.
func ParseHexBytes(field, value string) ([]byte, error) {
	s := value
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("field %s is not valid hex: %w", field, err)
	}
	return b, nil
}
