package reconcile

import (
	"context"
	"time"

	"funnelpay/internal/domain/pending"

	"github.com/rs/zerolog/log"
)

// action classifies the net effect of a write step
type action int

const (
	actionNone action = iota
	actionUpdated
	actionInserted
	actionFailed
)

// outcome is the explicit result of an internal write step. The public
// entry points log failures and continue; nothing downstream of input
// validation ever reaches the caller as an error.
type outcome struct {
	action action
	err    error
}

func (r *Reconciler) applyUpdate(ctx context.Context, key string, id int64, fields pending.Update) outcome {
	if err := r.store.UpdateRecordByID(ctx, id, fields); err != nil {
		log.Error().Err(err).Str("customer_key", key).Int64("record_id", id).Msg("reconcile: update failed")
		return outcome{action: actionFailed, err: err}
	}
	log.Debug().Str("customer_key", key).Int64("record_id", id).Msg("reconcile: record updated")
	return outcome{action: actionUpdated}
}

func (r *Reconciler) applyInsert(
	ctx context.Context,
	key string,
	amount pending.Money,
	plan pending.PlanID,
	planName, name, method string,
	leadID *int64,
	expires time.Time,
) outcome {
	rec, err := pending.NewRecord(key, amount, plan, planName, name, method, leadID, expires)
	if err != nil {
		log.Error().Err(err).Str("customer_key", key).Msg("reconcile: invalid insert state")
		return outcome{action: actionFailed, err: err}
	}
	if err := r.store.InsertRecord(ctx, rec); err != nil {
		log.Error().Err(err).Str("customer_key", key).Msg("reconcile: insert failed")
		return outcome{action: actionFailed, err: err}
	}
	log.Debug().Str("customer_key", key).Msg("reconcile: record inserted")
	return outcome{action: actionInserted}
}
