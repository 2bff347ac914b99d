package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON is the bare 200 encoder; WriteJSON in errors.go sets headers
// and an explicit status. New endpoints should prefer WriteJSON.
func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// methodMux dispatches one route by HTTP method, rejecting the rest.
func methodMux(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method]
		if !ok {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
