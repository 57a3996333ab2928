package middlewarex

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"funnelpay/internal/config"
)

// AdminAuth guards the admin surface with the static bearer token from
// config. An empty configured token locks the surface entirely.
func AdminAuth(cfg config.Cfg) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")
			if cfg.Sec.AdminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Sec.AdminToken)) != 1 {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WebhookAuth validates the shared token the gateway sends with every
// confirmation callback.
func WebhookAuth(cfg config.Cfg) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := r.Header.Get("X-Gateway-Token")
			if cfg.Gateway.WebhookToken == "" || subtle.ConstantTimeCompare([]byte(tok), []byte(cfg.Gateway.WebhookToken)) != 1 {
				http.Error(w, "unknown token", http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
