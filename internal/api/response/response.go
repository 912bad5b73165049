// Package response holds the JSON response helpers shared by all handlers,
// keeping payload shape and error structure consistent across the API.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorResponse is the error body every endpoint returns: a stable message
// identifying what failed, and optionally the underlying error text.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RespondJSON writes data as a JSON body with the given status code. A nil
// data writes the status only, which is what 204 No Content needs. Encoding
// failures are logged; the status line has already gone out by then.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode JSON response: %v", err)
		}
	}
}

// RespondError writes a structured error body. message is the stable,
// client-facing description; details carries the underlying error text and
// may be empty.
func RespondError(w http.ResponseWriter, status int, message, details string) {
	RespondJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
