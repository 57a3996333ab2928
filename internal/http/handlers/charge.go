package handlers

import (
	"encoding/json"
	"net/http"

	"funnelpay/internal/core/reconcile"
	"funnelpay/internal/gateway"

	"github.com/rs/zerolog/log"
)

type chargeRequest struct {
	Phone       string `json:"phone" validate:"required"`
	Description string `json:"description"`
}

// CreateCharge registers the customer's current pending record with
// the payment gateway and stores the returned transaction code on the
// record. The checkout page calls this when the customer reaches the
// payment step.
func CreateCharge(rec *reconcile.Reconciler, gw *gateway.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// Update with no fields resolves the current record, creating a
		// basic-plan one if the funnel skipped the sync step.
		current, err := rec.Update(r.Context(), reconcile.UpdateInput{CustomerKey: req.Phone})
		if err != nil {
			writeReconcileError(w, err)
			return
		}
		if current == nil {
			http.Error(w, "pending record unavailable", http.StatusServiceUnavailable)
			return
		}

		charge, err := gw.CreateCharge(r.Context(), gateway.ChargeRequest{
			Reference:   gateway.NewReference(),
			AmountCents: int64(current.Amount),
			Description: req.Description,
			CustomerKey: current.CustomerKey,
		})
		if err != nil {
			log.Error().Err(err).Str("customer_key", current.CustomerKey).Msg("gateway charge failed")
			http.Error(w, "gateway unavailable", http.StatusBadGateway)
			return
		}

		out, err := rec.Update(r.Context(), reconcile.UpdateInput{
			CustomerKey: req.Phone,
			GatewayCode: &charge.Code,
		})
		if err != nil {
			writeReconcileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": toDTO(out), "charge": charge})
	}
}
