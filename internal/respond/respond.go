// Package respond writes the JSON bodies every surface of the API shares.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with the given status. Encoding failures at this point cannot
// be reported to the client anymore; the body is simply truncated.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes the canonical {"error": message} body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
