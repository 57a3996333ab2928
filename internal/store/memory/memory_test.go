package memory

import (
	"context"
	"testing"
	"time"

	"funnelpay/internal/domain/lead"
	"funnelpay/internal/domain/pending"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatestUnconfirmedPicksNewest(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.SeedRecord(pending.Record{CustomerKey: "111", Amount: 1, PlanID: pending.PlanBasic})
	s.SeedRecord(pending.Record{CustomerKey: "111", Amount: 2, PlanID: pending.PlanBasic})
	s.SeedRecord(pending.Record{CustomerKey: "111", Amount: 3, PlanID: pending.PlanBasic, Confirmed: true})
	s.SeedRecord(pending.Record{CustomerKey: "222", Amount: 4, PlanID: pending.PlanBasic})

	rec, err := s.FindLatestUnconfirmedByKey(ctx, "111")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, pending.Money(2), rec.Amount, "confirmed rows and other keys are skipped")

	rec, err = s.FindLatestUnconfirmedByKey(ctx, "999")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteUnconfirmedByKeyExcept(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.SeedRecord(pending.Record{CustomerKey: "111", PlanID: pending.PlanBasic})
	keep := s.SeedRecord(pending.Record{CustomerKey: "111", PlanID: pending.PlanBasic})
	confirmed := s.SeedRecord(pending.Record{CustomerKey: "111", PlanID: pending.PlanBasic, Confirmed: true})

	require.NoError(t, s.DeleteUnconfirmedByKeyExcept(ctx, "111", keep))

	assert.Equal(t, 1, s.UnconfirmedCount("111"))
	rows, err := s.ListRecords(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	_ = confirmed
}

func TestUpdateRecordByIDSkipsConfirmed(t *testing.T) {
	s := New()
	ctx := context.Background()

	id := s.SeedRecord(pending.Record{CustomerKey: "111", Amount: 100, PlanID: pending.PlanBasic, Confirmed: true})

	amount := pending.Money(999)
	unconfirm := false
	require.NoError(t, s.UpdateRecordByID(ctx, id, pending.Update{Amount: &amount, Confirmed: &unconfirm}))

	got, err := s.FindRecordByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Confirmed, "confirmed rows are immutable through this path")
	assert.Equal(t, pending.Money(100), got.Amount)
}

func TestConfirmByGatewayCode(t *testing.T) {
	s := New()
	ctx := context.Background()

	code := "GW-1"
	s.SeedRecord(pending.Record{CustomerKey: "111", PlanID: pending.PlanBasic, GatewayCode: &code})

	rec, err := s.ConfirmByGatewayCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Confirmed)

	// Second confirmation is a no-op.
	rec, err = s.ConfirmByGatewayCode(ctx, code)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDeleteExpired(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	s.SeedRecord(pending.Record{CustomerKey: "111", PlanID: pending.PlanBasic, ExpiresAt: now.Add(-time.Hour)})
	s.SeedRecord(pending.Record{CustomerKey: "222", PlanID: pending.PlanBasic, ExpiresAt: now.Add(time.Hour)})
	s.SeedRecord(pending.Record{CustomerKey: "333", PlanID: pending.PlanBasic, Confirmed: true, ExpiresAt: now.Add(-time.Hour)})

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "confirmed rows are never swept")
	assert.Equal(t, 0, s.UnconfirmedCount("111"))
	assert.Equal(t, 1, s.UnconfirmedCount("222"))
}

func TestUpsertLeadMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	l := &lead.Lead{CustomerKey: "111", Name: "Ana", Phone: "+55 11"}
	require.NoError(t, s.UpsertLead(ctx, l))
	firstID := l.ID

	again := &lead.Lead{CustomerKey: "111", Name: ""}
	require.NoError(t, s.UpsertLead(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err := s.FindLeadByKey(ctx, "111")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.Name, "empty fields never blank stored values")
}
