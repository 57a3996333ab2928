package pending

import (
	"fmt"
	"strings"
	"time"
)

// Record is a pending payment intent for a single customer key. While
// Confirmed is false it is the one mutable row the reconciler owns for
// that key; once confirmed it becomes immutable history.
type Record struct {
	ID           int64
	CustomerKey  string
	Amount       Money
	PlanID       PlanID
	PlanName     string
	CustomerName string
	Method       string
	Confirmed    bool
	// GatewayCode is the gateway transaction code. Nil until the
	// gateway assigns one; never a placeholder string.
	GatewayCode  *string
	LinkedLeadID *int64
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Money represents a monetary amount in smallest currency unit (cents)
type Money int64

// PlanID identifies a checkout plan
type PlanID string

const (
	PlanBasic   PlanID = "basic"
	PlanPremium PlanID = "premium"
)

// Valid reports whether p is a known plan
func (p PlanID) Valid() bool {
	return p == PlanBasic || p == PlanPremium
}

// DisplayName returns the denormalized label stored alongside the plan id
func (p PlanID) DisplayName() string {
	switch p {
	case PlanPremium:
		return "Premium"
	default:
		return "Basic"
	}
}

// DefaultTTL is how long a fresh or refreshed record stays actionable.
const DefaultTTL = 15 * time.Minute

// NormalizeKey canonicalizes a raw customer identifier (a phone number
// in whatever format the funnel captured it) into the digits-only
// lookup key. Output may be empty; callers must treat that as invalid.
func NormalizeKey(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// NewRecord creates an unconfirmed record with validation
func NewRecord(key string, amount Money, plan PlanID, planName, customerName, method string, linkedLeadID *int64, expiresAt time.Time) (*Record, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if amount < 0 {
		return nil, DomainError{Code: ErrCodeInvalidAmount, Message: fmt.Sprintf("amount cannot be negative: %d", amount)}
	}
	if !plan.Valid() {
		return nil, DomainError{Code: ErrCodeInvalidPlan, Message: fmt.Sprintf("unknown plan: %s", plan)}
	}
	if planName == "" {
		planName = plan.DisplayName()
	}
	now := time.Now()
	return &Record{
		CustomerKey:  key,
		Amount:       amount,
		PlanID:       plan,
		PlanName:     planName,
		CustomerName: customerName,
		Method:       method,
		Confirmed:    false,
		LinkedLeadID: linkedLeadID,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Update carries a partial field set for an in-place record update.
// Nil pointers leave the stored column untouched.
type Update struct {
	Amount       *Money
	PlanID       *PlanID
	PlanName     *string
	CustomerName *string
	Method       *string
	Confirmed    *bool
	GatewayCode  *string
	LinkedLeadID *int64
	ExpiresAt    *time.Time
}

// Apply mutates r with the provided fields. Used by in-memory stores;
// the SQL store expresses the same semantics with COALESCE.
func (u Update) Apply(r *Record, now time.Time) {
	if u.Amount != nil {
		r.Amount = *u.Amount
	}
	if u.PlanID != nil {
		r.PlanID = *u.PlanID
	}
	if u.PlanName != nil {
		r.PlanName = *u.PlanName
	}
	if u.CustomerName != nil {
		r.CustomerName = *u.CustomerName
	}
	if u.Method != nil {
		r.Method = *u.Method
	}
	if u.Confirmed != nil {
		r.Confirmed = *u.Confirmed
	}
	if u.GatewayCode != nil {
		r.GatewayCode = u.GatewayCode
	}
	if u.LinkedLeadID != nil {
		r.LinkedLeadID = u.LinkedLeadID
	}
	if u.ExpiresAt != nil {
		r.ExpiresAt = *u.ExpiresAt
	}
	r.UpdatedAt = now
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string
	Message string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("pending error [%s]: %s", e.Code, e.Message)
}

// Domain error codes
const (
	ErrCodeInvalidKey    = "INVALID_KEY"
	ErrCodeInvalidAmount = "INVALID_AMOUNT"
	ErrCodeInvalidPlan   = "INVALID_PLAN"
)

// ErrInvalidKey is returned when a customer key normalizes to the
// empty string. It is the one failure the reconciler surfaces to its
// callers; everything downstream of it is best-effort.
var ErrInvalidKey = DomainError{Code: ErrCodeInvalidKey, Message: "customer key has no digits"}
