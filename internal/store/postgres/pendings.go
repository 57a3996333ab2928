package postgres

import (
	"context"
	"errors"
	"time"

	"funnelpay/internal/domain/pending"

	"github.com/jackc/pgx/v5"
)

const recordColumns = `id, customer_key, amount_cents, plan_id, plan_name,
	customer_name, method, confirmed, gateway_code, linked_lead_id,
	expires_at, created_at, updated_at`

func scanRecord(row pgx.Row) (*pending.Record, error) {
	var r pending.Record
	var amount int64
	var plan string
	err := row.Scan(
		&r.ID, &r.CustomerKey, &amount, &plan, &r.PlanName,
		&r.CustomerName, &r.Method, &r.Confirmed, &r.GatewayCode, &r.LinkedLeadID,
		&r.ExpiresAt, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Amount = pending.Money(amount)
	r.PlanID = pending.PlanID(plan)
	return &r, nil
}

// FindLatestUnconfirmedByKey returns the newest unconfirmed record for
// the key, or nil. It never assumes uniqueness; duplicate rows are the
// reconciler's problem to clean up, not ours to reject.
func (r *Repo) FindLatestUnconfirmedByKey(ctx context.Context, key string) (*pending.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `
		SELECT `+recordColumns+`
		  FROM pending_payments
		 WHERE customer_key = $1 AND NOT confirmed
		 ORDER BY id DESC
		 LIMIT 1`,
		key,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *Repo) FindRecordByID(ctx context.Context, id int64) (*pending.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `
		SELECT `+recordColumns+`
		  FROM pending_payments
		 WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *Repo) InsertRecord(ctx context.Context, rec *pending.Record) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO pending_payments (
			customer_key, amount_cents, plan_id, plan_name, customer_name,
			method, confirmed, gateway_code, linked_lead_id, expires_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,false,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		rec.CustomerKey, int64(rec.Amount), string(rec.PlanID), rec.PlanName, rec.CustomerName,
		rec.Method, rec.GatewayCode, rec.LinkedLeadID, rec.ExpiresAt,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

// UpdateRecordByID writes only the provided fields; nil pointers keep
// the stored column. Confirmed rows are immutable through this path,
// and zero rows affected is not an error.
func (r *Repo) UpdateRecordByID(ctx context.Context, id int64, fields pending.Update) error {
	_, err := r.db.Exec(ctx, `
		UPDATE pending_payments SET
			amount_cents   = COALESCE($2, amount_cents),
			plan_id        = COALESCE($3, plan_id),
			plan_name      = COALESCE($4, plan_name),
			customer_name  = COALESCE($5, customer_name),
			method         = COALESCE($6, method),
			confirmed      = COALESCE($7, confirmed),
			gateway_code   = COALESCE($8, gateway_code),
			linked_lead_id = COALESCE($9, linked_lead_id),
			expires_at     = COALESCE($10, expires_at),
			updated_at     = now()
		 WHERE id = $1 AND NOT confirmed`,
		id,
		(*int64)(fields.Amount),
		(*string)(fields.PlanID),
		fields.PlanName,
		fields.CustomerName,
		fields.Method,
		fields.Confirmed,
		fields.GatewayCode,
		fields.LinkedLeadID,
		fields.ExpiresAt,
	)
	return err
}

// DeleteUnconfirmedByKeyExcept removes every unconfirmed row for the
// key other than keepID, restoring the at-most-one invariant even if
// it was previously violated.
func (r *Repo) DeleteUnconfirmedByKeyExcept(ctx context.Context, key string, keepID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM pending_payments
		 WHERE customer_key = $1 AND NOT confirmed AND id <> $2`,
		key, keepID,
	)
	return err
}

// ConfirmByGatewayCode flips the matching unconfirmed record to
// confirmed and returns it, or nil when no code matches. Already
// confirmed records are left alone (webhook retries are idempotent).
func (r *Repo) ConfirmByGatewayCode(ctx context.Context, code string) (*pending.Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `
		UPDATE pending_payments
		   SET confirmed = true, updated_at = now()
		 WHERE gateway_code = $1 AND NOT confirmed
		RETURNING `+recordColumns,
		code,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *Repo) ListRecords(ctx context.Context, limit, offset int) ([]pending.Record, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recordColumns+`
		  FROM pending_payments
		 ORDER BY id DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pending.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM pending_payments
		 WHERE NOT confirmed AND expires_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
