package repositories

import (
	"context"
	"time"

	"funnelpay/internal/domain/lead"
	"funnelpay/internal/domain/pending"
)

// PendingStore defines the contract the reconciler holds against the
// backing record store. Lookups return nil (not an error) when no row
// matches. FindLatestUnconfirmedByKey must tolerate more than one
// unconfirmed row per key and return only the newest; uniqueness is
// the reconciler's invariant, never the store's assumption.
// UpdateRecordByID must never touch a confirmed row; confirmed records
// are immutable history outside the confirmation path.
type PendingStore interface {
	FindLeadByKey(ctx context.Context, key string) (*lead.Lead, error)
	FindLatestUnconfirmedByKey(ctx context.Context, key string) (*pending.Record, error)
	FindRecordByID(ctx context.Context, id int64) (*pending.Record, error)
	InsertRecord(ctx context.Context, rec *pending.Record) error
	UpdateRecordByID(ctx context.Context, id int64, fields pending.Update) error
	DeleteUnconfirmedByKeyExcept(ctx context.Context, key string, keepID int64) error
}

// LeadStore defines the contract for lead capture
type LeadStore interface {
	UpsertLead(ctx context.Context, l *lead.Lead) error
	FindLeadByKey(ctx context.Context, key string) (*lead.Lead, error)
}

// ConfirmationStore is the confirmation path used by the gateway
// webhook, outside the reconciler's write path. Confirming is a
// one-way transition.
type ConfirmationStore interface {
	ConfirmByGatewayCode(ctx context.Context, code string) (*pending.Record, error)
}

// AdminStore defines the read API behind the admin listing
type AdminStore interface {
	ListRecords(ctx context.Context, limit, offset int) ([]pending.Record, error)
}

// SweepStore defines the cleanup surface used by the expiry sweeper
type SweepStore interface {
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
}
