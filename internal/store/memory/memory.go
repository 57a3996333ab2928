package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"funnelpay/internal/domain/lead"
	"funnelpay/internal/domain/pending"
)

// Store is an in-process implementation of the repository contracts.
// It backs the test suites and mirrors the SQL store's observable
// behavior: lookups return nil on miss, "latest" means highest id,
// and confirmed rows are never touched by the reconciler surface.
type Store struct {
	mu         sync.Mutex
	nextRecID  int64
	nextLeadID int64
	records    map[int64]*pending.Record
	leads      map[int64]*lead.Lead
}

func New() *Store {
	return &Store{
		records: make(map[int64]*pending.Record),
		leads:   make(map[int64]*lead.Lead),
	}
}

func (s *Store) FindLeadByKey(ctx context.Context, key string) (*lead.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *lead.Lead
	for _, l := range s.leads {
		if l.CustomerKey != key {
			continue
		}
		if newest == nil || l.ID > newest.ID {
			newest = l
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (s *Store) FindLatestUnconfirmedByKey(ctx context.Context, key string) (*pending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *pending.Record
	for _, r := range s.records {
		if r.CustomerKey != key || r.Confirmed {
			continue
		}
		if newest == nil || r.ID > newest.ID {
			newest = r
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (s *Store) FindRecordByID(ctx context.Context, id int64) (*pending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) InsertRecord(ctx context.Context, rec *pending.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRecID++
	cp := *rec
	cp.ID = s.nextRecID
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.records[cp.ID] = &cp
	rec.ID = cp.ID
	return nil
}

func (s *Store) UpdateRecordByID(ctx context.Context, id int64, fields pending.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Confirmed {
		return nil // mirror SQL: zero rows affected is not an error
	}
	fields.Apply(r, time.Now())
	return nil
}

func (s *Store) DeleteUnconfirmedByKeyExcept(ctx context.Context, key string, keepID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.CustomerKey == key && !r.Confirmed && id != keepID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *Store) UpsertLead(ctx context.Context, l *lead.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.leads {
		if existing.CustomerKey == l.CustomerKey {
			if l.Name != "" {
				existing.Name = l.Name
			}
			if l.Phone != "" {
				existing.Phone = l.Phone
			}
			l.ID = existing.ID
			return nil
		}
	}
	s.nextLeadID++
	cp := *l
	cp.ID = s.nextLeadID
	s.leads[cp.ID] = &cp
	l.ID = cp.ID
	return nil
}

func (s *Store) ConfirmByGatewayCode(ctx context.Context, code string) (*pending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.GatewayCode != nil && *r.GatewayCode == code && !r.Confirmed {
			r.Confirmed = true
			r.UpdatedAt = time.Now()
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRecords(ctx context.Context, limit, offset int) ([]pending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	var out []pending.Record
	for i, id := range ids {
		if i < offset {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, *s.records[id])
	}
	return out, nil
}

func (s *Store) DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if !r.Confirmed && r.ExpiresAt.Before(olderThan) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// UnconfirmedCount reports how many unconfirmed rows exist for the key.
// Test helper for the at-most-one invariant.
func (s *Store) UnconfirmedCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.CustomerKey == key && !r.Confirmed {
			n++
		}
	}
	return n
}

// SeedRecord inserts a record verbatim, keeping its Confirmed flag.
// Test helper for pre-violated invariant scenarios.
func (s *Store) SeedRecord(rec pending.Record) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRecID++
	rec.ID = s.nextRecID
	s.records[rec.ID] = &rec
	return rec.ID
}
