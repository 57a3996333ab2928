package handlers

import (
	"encoding/json"
	"net/http"

	"funnelpay/internal/core/reconcile"
	"funnelpay/internal/domain/pending"
)

type syncRequest struct {
	Phone    string  `json:"phone" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	PlanID   string  `json:"planId" validate:"required,oneof=basic premium"`
	PlanName string  `json:"planName"`
	Method   string  `json:"method"`
	Name     string  `json:"name"`
	LeadID   *int64  `json:"leadId"`
	RecordID *int64  `json:"recordId"`
}

// SyncPending is the funnel's main trigger: plan selection, step
// completion and retry timers all post the full desired state here.
func SyncPending(rec *reconcile.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out, err := rec.Upsert(r.Context(), reconcile.UpsertInput{
			CustomerKey: req.Phone,
			Amount:      toCents(req.Amount),
			PlanID:      pending.PlanID(req.PlanID),
			PlanName:    req.PlanName,
			Method:      req.Method,
			Name:        req.Name,
			LeadID:      req.LeadID,
			RecordID:    req.RecordID,
		})
		if err != nil {
			writeReconcileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": toDTO(out)})
	}
}

type patchRequest struct {
	Phone       string   `json:"phone" validate:"required"`
	Amount      *float64 `json:"amount" validate:"omitempty,gte=0"`
	Name        string   `json:"name"`
	GatewayCode *string  `json:"gatewayCode"`
	LeadID      *int64   `json:"leadId"`
}

// PatchPending applies a partial update; callers that only know one
// changed field (a late name capture, a gateway code) use this.
func PatchPending(rec *reconcile.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		in := reconcile.UpdateInput{
			CustomerKey: req.Phone,
			Name:        req.Name,
			GatewayCode: req.GatewayCode,
			LeadID:      req.LeadID,
		}
		if req.Amount != nil {
			cents := toCents(*req.Amount)
			in.Amount = &cents
		}

		out, err := rec.Update(r.Context(), in)
		if err != nil {
			writeReconcileError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": toDTO(out)})
	}
}
