package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/go-membership-api/internal/domain"
)

// writeJSONError writes a failed Result with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.Result{Code: code, Message: msg})
}
