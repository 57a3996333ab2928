package handlers

import (
	"net/http"
	"strconv"

	"funnelpay/internal/store/repositories"
)

// ListPending serves the admin dashboard table.
func ListPending(store repositories.AdminStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		offset := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
				limit = n
			}
		}
		if v := r.URL.Query().Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		rows, err := store.ListRecords(r.Context(), limit, offset)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		out := make([]*recordDTO, 0, len(rows))
		for i := range rows {
			out = append(out, toDTO(&rows[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": out})
	}
}
