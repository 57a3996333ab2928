package postgres

import (
	"context"
	"errors"

	"funnelpay/internal/domain/lead"

	"github.com/jackc/pgx/v5"
)

func (r *Repo) FindLeadByKey(ctx context.Context, key string) (*lead.Lead, error) {
	var l lead.Lead
	err := r.db.QueryRow(ctx, `
		SELECT id, customer_key, name, phone, created_at
		  FROM leads
		 WHERE customer_key = $1
		 ORDER BY id DESC
		 LIMIT 1`,
		key,
	).Scan(&l.ID, &l.CustomerKey, &l.Name, &l.Phone, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// UpsertLead creates or refreshes the lead for a key. Empty incoming
// fields never blank out stored values.
func (r *Repo) UpsertLead(ctx context.Context, l *lead.Lead) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO leads (customer_key, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer_key) DO UPDATE SET
			name  = CASE WHEN EXCLUDED.name  <> '' THEN EXCLUDED.name  ELSE leads.name  END,
			phone = CASE WHEN EXCLUDED.phone <> '' THEN EXCLUDED.phone ELSE leads.phone END
		RETURNING id, created_at`,
		l.CustomerKey, l.Name, l.Phone,
	).Scan(&l.ID, &l.CreatedAt)
}
