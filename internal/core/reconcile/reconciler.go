package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"funnelpay/internal/core/serial"
	"funnelpay/internal/domain/lead"
	"funnelpay/internal/domain/pending"
	"funnelpay/internal/store/repositories"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Reconciler keeps the store's unconfirmed-record state for a customer
// key in sync with the caller's latest known intent, preserving the
// at-most-one-unconfirmed-record invariant. All mutation for a key is
// funneled through the per-key serial queue, so two overlapping
// triggers (plan click, step timer, webhook) can never both observe
// "no record" and both insert.
type Reconciler struct {
	store repositories.PendingStore
	queue *serial.Queue
	ttl   time.Duration
	now   func() time.Time
}

func New(store repositories.PendingStore, queue *serial.Queue, ttl time.Duration) *Reconciler {
	if ttl <= 0 {
		ttl = pending.DefaultTTL
	}
	return &Reconciler{store: store, queue: queue, ttl: ttl, now: time.Now}
}

// UpsertInput is the full desired state for a customer's pending record
type UpsertInput struct {
	CustomerKey string
	Amount      pending.Money
	PlanID      pending.PlanID
	PlanName    string
	Method      string
	// Name overrides any stored name when set
	Name string
	// LeadID links the record to a captured lead when known
	LeadID *int64
	// RecordID targets a known record when the key lookup comes up
	// empty (e.g. the client carried an id from an earlier response).
	// It is honored only for the key's own unconfirmed record.
	RecordID *int64
}

func (in UpsertInput) validate() error {
	if in.Amount < 0 {
		return pending.DomainError{Code: pending.ErrCodeInvalidAmount, Message: fmt.Sprintf("amount cannot be negative: %d", in.Amount)}
	}
	if !in.PlanID.Valid() {
		return pending.DomainError{Code: pending.ErrCodeInvalidPlan, Message: fmt.Sprintf("unknown plan: %s", in.PlanID)}
	}
	return nil
}

// Upsert creates or refreshes the single unconfirmed record for the
// customer key. Only input validation surfaces as an error; store
// failures are logged and suppressed, and the call returns whatever
// the post-write re-fetch yields (possibly nil).
func (r *Reconciler) Upsert(ctx context.Context, in UpsertInput) (*pending.Record, error) {
	key := pending.NormalizeKey(in.CustomerKey)
	if key == "" {
		return nil, pending.ErrInvalidKey
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var out *pending.Record
	_ = r.queue.Do(key, func() error {
		out = r.upsert(ctx, key, in)
		return nil
	})
	return out, nil
}

// UpdateInput is a partial update; nil/empty fields keep stored values
type UpdateInput struct {
	CustomerKey string
	Amount      *pending.Money
	Name        string
	GatewayCode *string
	LeadID      *int64
}

// Update applies a partial update to the existing unconfirmed record.
// With no existing record it falls back to a full upsert on the basic
// plan, so this entry point never fails just because nothing is
// tracked yet.
func (r *Reconciler) Update(ctx context.Context, in UpdateInput) (*pending.Record, error) {
	key := pending.NormalizeKey(in.CustomerKey)
	if key == "" {
		return nil, pending.ErrInvalidKey
	}
	if in.Amount != nil && *in.Amount < 0 {
		return nil, pending.DomainError{Code: pending.ErrCodeInvalidAmount, Message: fmt.Sprintf("amount cannot be negative: %d", *in.Amount)}
	}

	var out *pending.Record
	_ = r.queue.Do(key, func() error {
		out = r.update(ctx, key, in)
		return nil
	})
	return out, nil
}

// upsert runs with the key's queue slot held.
func (r *Reconciler) upsert(ctx context.Context, key string, in UpsertInput) *pending.Record {
	existing, ld, ok := r.lookup(ctx, key)
	if !ok {
		return nil
	}

	name := resolveUpsertName(in.Name, existing, ld, in.CustomerKey)
	leadID := resolveLinkedLead(in.LeadID, existing, ld)
	planName := in.PlanName
	if planName == "" {
		planName = in.PlanID.DisplayName()
	}
	expires := r.now().Add(r.ttl)

	// Prefer the record found by key. A caller-supplied id is only
	// trusted after a fetch proves it is this key's own unconfirmed
	// row; anything else (stale, foreign, already confirmed) falls
	// through to a fresh insert.
	var targetID int64
	switch {
	case existing != nil:
		targetID = existing.ID
	case in.RecordID != nil:
		if rec := r.fetchByID(ctx, *in.RecordID); rec != nil && !rec.Confirmed && rec.CustomerKey == key {
			targetID = rec.ID
		}
	}

	if targetID != 0 {
		fields := pending.Update{
			Amount:       &in.Amount,
			PlanID:       &in.PlanID,
			PlanName:     &planName,
			CustomerName: &name,
			Method:       &in.Method,
			Confirmed:    ptr(false),
			ExpiresAt:    &expires,
			LinkedLeadID: leadID,
		}
		if out := r.applyUpdate(ctx, key, targetID, fields); out.action == actionUpdated {
			r.cleanup(ctx, key, targetID)
		}
	} else {
		r.applyInsert(ctx, key, in.Amount, in.PlanID, planName, name, in.Method, leadID, expires)
	}

	return r.refetch(ctx, key)
}

// update runs with the key's queue slot held.
func (r *Reconciler) update(ctx context.Context, key string, in UpdateInput) *pending.Record {
	existing, err := r.store.FindLatestUnconfirmedByKey(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("customer_key", key).Msg("reconcile: lookup failed")
		return nil
	}

	if existing == nil {
		up := UpsertInput{
			CustomerKey: in.CustomerKey,
			PlanID:      pending.PlanBasic,
			PlanName:    pending.PlanBasic.DisplayName(),
			Name:        in.Name,
			LeadID:      in.LeadID,
		}
		if in.Amount != nil {
			up.Amount = *in.Amount
		}
		return r.upsert(ctx, key, up)
	}

	// Partial path: name falls back through the stored name to the raw
	// key, deliberately skipping the lead (unlike Upsert).
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = existing.CustomerName
	}
	if name == "" {
		name = in.CustomerKey
	}
	expires := r.now().Add(r.ttl)

	fields := pending.Update{
		Amount:       in.Amount,
		CustomerName: &name,
		Confirmed:    ptr(false),
		GatewayCode:  in.GatewayCode,
		LinkedLeadID: in.LeadID,
		ExpiresAt:    &expires,
	}
	out := r.applyUpdate(ctx, key, existing.ID, fields)
	if out.action == actionUpdated {
		r.cleanup(ctx, key, existing.ID)
	}

	return r.refetch(ctx, key)
}

// lookup fetches the latest unconfirmed record and the lead for the
// key concurrently. A store failure abandons the whole attempt.
func (r *Reconciler) lookup(ctx context.Context, key string) (*pending.Record, *lead.Lead, bool) {
	var (
		existing *pending.Record
		ld       *lead.Lead
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ld, err = r.store.FindLeadByKey(gctx, key)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = r.store.FindLatestUnconfirmedByKey(gctx, key)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("customer_key", key).Msg("reconcile: lookup failed")
		return nil, nil, false
	}
	return existing, ld, true
}

func (r *Reconciler) fetchByID(ctx context.Context, id int64) *pending.Record {
	rec, err := r.store.FindRecordByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("record_id", id).Msg("reconcile: record fetch failed")
		return nil
	}
	return rec
}

func (r *Reconciler) cleanup(ctx context.Context, key string, keepID int64) {
	if err := r.store.DeleteUnconfirmedByKeyExcept(ctx, key, keepID); err != nil {
		log.Error().Err(err).Str("customer_key", key).Int64("keep_id", keepID).Msg("reconcile: duplicate cleanup failed")
	}
}

func (r *Reconciler) refetch(ctx context.Context, key string) *pending.Record {
	rec, err := r.store.FindLatestUnconfirmedByKey(ctx, key)
	if err != nil {
		log.Error().Err(err).Str("customer_key", key).Msg("reconcile: refetch failed")
		return nil
	}
	return rec
}

// resolveUpsertName picks the display name for the full-upsert path:
// explicit override, then stored record name, then lead name, then the
// raw key.
func resolveUpsertName(override string, existing *pending.Record, ld *lead.Lead, rawKey string) string {
	if name := strings.TrimSpace(override); name != "" {
		return name
	}
	if existing != nil && existing.CustomerName != "" {
		return existing.CustomerName
	}
	if ld != nil && ld.Name != "" {
		return ld.Name
	}
	return rawKey
}

// resolveLinkedLead picks the lead back-reference: the looked-up
// lead's own id, then the explicit override, then whatever the
// existing record already carries.
func resolveLinkedLead(override *int64, existing *pending.Record, ld *lead.Lead) *int64 {
	if ld != nil {
		id := ld.ID
		return &id
	}
	if override != nil {
		return override
	}
	if existing != nil && existing.LinkedLeadID != nil {
		return existing.LinkedLeadID
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
