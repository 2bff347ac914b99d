package httpapi

import (
	"encoding/json"
	"net/http"

	"pricehunt-engine/internal/secrets"
)

type SecretsHandler struct{}

type setSecretReq struct {
	Value string `json:"value"`
}

func (h SecretsHandler) setAccount(account string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setSecretReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Value == "" {
			http.Error(w, "value is required", http.StatusBadRequest)
			return
		}
		if err := secrets.Set(account, req.Value); err != nil {
			http.Error(w, "failed to store secret: "+err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SetProxyAPIKey stores the proxy backend API key in the OS keyring.
func (h SecretsHandler) SetProxyAPIKey(w http.ResponseWriter, r *http.Request) {
	h.setAccount(secrets.AccountProxyAPIKey)(w, r)
}

// SetStructuredPassword stores the structured backend password in the OS keyring.
func (h SecretsHandler) SetStructuredPassword(w http.ResponseWriter, r *http.Request) {
	h.setAccount(secrets.AccountStructuredPassword)(w, r)
}
