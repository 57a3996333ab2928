package handlers

import (
	"encoding/json"
	"net/http"

	"funnelpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

type gatewayCallback struct {
	Code   string `json:"code" validate:"required"`
	Status string `json:"status" validate:"required"`
}

// GatewayWebhook is the confirmation path: the gateway posts here when
// a charge settles. This is the only writer that flips confirmed, and
// it deliberately bypasses the reconciler (confirmed rows are outside
// its ownership).
func GatewayWebhook(store repositories.ConfirmationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cb gatewayCallback
		if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(cb); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if cb.Status != "paid" && cb.Status != "confirmed" {
			// Intermediate statuses are acknowledged and dropped; only
			// settlement matters here.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		rec, err := store.ConfirmByGatewayCode(r.Context(), cb.Code)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			// Unknown or already confirmed code: ack so the gateway
			// stops retrying.
			writeJSON(w, http.StatusOK, map[string]string{"status": "unknown"})
			return
		}

		log.Info().Str("customer_key", rec.CustomerKey).Str("gateway_code", cb.Code).Msg("payment confirmed")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
