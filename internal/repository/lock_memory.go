package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alumnirel/eventlock/internal/model"
)

// MemoryLockStore keeps lock records in process memory.  It is used by
// tests and by LOCK_STORE=memory for local development; records do not
// survive a restart.
type MemoryLockStore struct {
	mu      sync.Mutex
	byToken map[string]*model.LockRecord
	byID    map[string]*model.LockRecord
	seq     int64
	order   map[string]int64
}

// NewMemoryLockStore returns an empty store.
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{
		byToken: make(map[string]*model.LockRecord),
		byID:    make(map[string]*model.LockRecord),
		order:   make(map[string]int64),
	}
}

func (s *MemoryLockStore) Create(_ context.Context, rec *model.LockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[rec.Token]; ok {
		return ErrDuplicateToken
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt
	cp := copyLock(rec)
	s.byToken[cp.Token] = cp
	s.byID[cp.ID] = cp
	s.seq++
	s.order[cp.ID] = s.seq
	return nil
}

func (s *MemoryLockStore) GetByToken(_ context.Context, token string) (*model.LockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrLockNotFound
	}
	return copyLock(rec), nil
}

func (s *MemoryLockStore) ConsumeIfValid(_ context.Context, token string, now time.Time) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byToken[token]
	if !ok || !rec.IsValid(now) {
		return 0, false, nil
	}
	rec.UsageCount++
	at := now.UTC()
	rec.LastAccessedAt = &at
	rec.UpdatedAt = at
	return rec.UsageCount, true, nil
}

func (s *MemoryLockStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return ErrLockNotFound
	}
	if !rec.IsRevoked {
		rec.IsRevoked = true
		rec.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryLockStore) ListActive(_ context.Context) ([]*model.LockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.LockRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		if !rec.IsRevoked {
			out = append(out, copyLock(rec))
		}
	}
	// newest first; insertion order breaks ties between equal timestamps
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	return out, nil
}

func copyLock(rec *model.LockRecord) *model.LockRecord {
	cp := *rec
	if rec.MaxUsage != nil {
		n := *rec.MaxUsage
		cp.MaxUsage = &n
	}
	if rec.LastAccessedAt != nil {
		t := *rec.LastAccessedAt
		cp.LastAccessedAt = &t
	}
	return &cp
}
