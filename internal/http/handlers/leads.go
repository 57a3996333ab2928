package handlers

import (
	"encoding/json"
	"net/http"

	"funnelpay/internal/domain/lead"
	"funnelpay/internal/domain/pending"
	"funnelpay/internal/store/repositories"
)

type leadRequest struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name"`
}

// CaptureLead records a funnel visitor before any payment intent
// exists. The reconciler later consults this for name fallback.
func CaptureLead(store repositories.LeadStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req leadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		key := pending.NormalizeKey(req.Phone)
		if key == "" {
			http.Error(w, "phone has no digits", http.StatusBadRequest)
			return
		}

		l, err := lead.New(key, req.Name, req.Phone)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.UpsertLead(r.Context(), l); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": l.ID, "customerKey": l.CustomerKey}})
	}
}
