// Package repotest holds in-memory event and admin readers for tests.
package repotest

import (
	"context"
	"sort"
	"sync"

	"github.com/alumnirel/eventlock/internal/model"
	"github.com/alumnirel/eventlock/internal/repository"
)

// EventStore is an in-memory stand-in for repository.EventRepo.
type EventStore struct {
	mu     sync.RWMutex
	events map[uint64]*model.Event
	// Err, when set, is returned by every read.
	Err error
}

func NewEventStore(events ...*model.Event) *EventStore {
	m := &EventStore{events: make(map[uint64]*model.Event)}
	for _, ev := range events {
		m.Put(ev)
	}
	return m
}

// Put inserts or replaces an event.
func (m *EventStore) Put(ev *model.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.events[ev.ID] = &cp
}

func (m *EventStore) GetByID(_ context.Context, id uint64) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	ev, ok := m.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *EventStore) GetBySlug(_ context.Context, slug string) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, ev := range m.events {
		if ev.Slug == slug && !ev.IsDeleted {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (m *EventStore) ListPublic(_ context.Context) ([]*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*model.Event
	for _, ev := range m.events {
		if ev.Listed() {
			cp := *ev
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// AdminStore resolves admin usernames from a fixed map.
type AdminStore struct {
	Names map[uint64]string
	Err   error
}

func (m *AdminStore) Usernames(_ context.Context, ids []uint64) (map[uint64]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[uint64]string, len(ids))
	for _, id := range ids {
		if n, ok := m.Names[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}
