package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"funnelpay/internal/domain/pending"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// recordDTO is the wire shape of a pending record. Amounts cross the
// wire as decimal currency units; cents stay internal.
type recordDTO struct {
	ID           int64     `json:"id"`
	CustomerKey  string    `json:"customerKey"`
	Amount       float64   `json:"amount"`
	PlanID       string    `json:"planId"`
	PlanName     string    `json:"planName"`
	CustomerName string    `json:"customerName"`
	Method       string    `json:"method,omitempty"`
	Confirmed    bool      `json:"confirmed"`
	GatewayCode  *string   `json:"gatewayCode"`
	LinkedLeadID *int64    `json:"linkedLeadId"`
	ExpiresAt    time.Time `json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toDTO(r *pending.Record) *recordDTO {
	if r == nil {
		return nil
	}
	return &recordDTO{
		ID:           r.ID,
		CustomerKey:  r.CustomerKey,
		Amount:       float64(r.Amount) / 100,
		PlanID:       string(r.PlanID),
		PlanName:     r.PlanName,
		CustomerName: r.CustomerName,
		Method:       r.Method,
		Confirmed:    r.Confirmed,
		GatewayCode:  r.GatewayCode,
		LinkedLeadID: r.LinkedLeadID,
		ExpiresAt:    r.ExpiresAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toCents(amount float64) pending.Money {
	return pending.Money(math.Round(amount * 100))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeReconcileError maps reconciler errors: key/input validation is
// the only class that reaches callers.
func writeReconcileError(w http.ResponseWriter, err error) {
	var derr pending.DomainError
	if errors.As(err, &derr) {
		http.Error(w, derr.Message, http.StatusBadRequest)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}
