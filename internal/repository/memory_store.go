package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/swap"
)

// MemoryStore is a mutex-guarded, map-backed swap.Store. It backs the
// engine and handler tests and is usable as a throwaway backend in
// local development. ExecTx holds the store lock for the whole unit
// of work and stages writes so a failing callback leaves no change,
// which gives the same all-or-nothing behavior as the SQL store.
type MemoryStore struct {
	mu       sync.Mutex
	slots    map[string]*model.Slot
	requests map[string]*model.SwapRequest
	seq      map[string]int // insertion order per record id
	next     int
}

var _ swap.Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:    make(map[string]*model.Slot),
		requests: make(map[string]*model.SwapRequest),
		seq:      make(map[string]int),
	}
}

func (m *MemoryStore) CreateSlot(_ context.Context, s *model.Slot) error {
	if !model.ValidSlotStatus(s.Status) {
		return fmt.Errorf("invalid slot status %q", s.Status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	cp := *s
	m.slots[cp.ID] = &cp
	m.next++
	m.seq[cp.ID] = m.next
	return nil
}

func (m *MemoryStore) GetSlot(_ context.Context, id string) (*model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySlot(m.slots[id]), nil
}

func (m *MemoryStore) UpdateSlot(_ context.Context, s *model.Slot) error {
	if !model.ValidSlotStatus(s.Status) {
		return fmt.Errorf("invalid slot status %q", s.Status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.slots[s.ID]
	if !ok || cur.Version != s.Version {
		return swap.ErrVersionMismatch
	}
	cp := *s
	cp.Version++
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	m.slots[cp.ID] = &cp
	s.Version = cp.Version
	return nil
}

func (m *MemoryStore) DeleteSlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, id)
	return nil
}

func (m *MemoryStore) SlotsByOwner(_ context.Context, owner string) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Slot, 0)
	for _, s := range m.slots {
		if s.OwnerEmail == owner {
			out = append(out, *s)
		}
	}
	sortNewest(m.seq, out, func(s model.Slot) string { return s.ID })
	return out, nil
}

func (m *MemoryStore) SwappableSlots(_ context.Context) ([]model.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Slot, 0)
	for _, s := range m.slots {
		if s.IsSwappable && s.Status == model.SlotStatusSwappable {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CreateRequest(_ context.Context, r *model.SwapRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	m.requests[cp.ID] = &cp
	m.next++
	m.seq[cp.ID] = m.next
	return nil
}

func (m *MemoryStore) GetRequest(_ context.Context, id string) (*model.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRequest(m.requests[id]), nil
}

func (m *MemoryStore) RequestsByRequester(_ context.Context, email string) ([]model.SwapRequest, error) {
	return m.filterRequests(func(r *model.SwapRequest) bool {
		return r.RequesterEmail == email
	})
}

func (m *MemoryStore) RequestsByTargetOwner(_ context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	return m.filterRequests(func(r *model.SwapRequest) bool {
		return r.TargetOwnerEmail == email && inStatuses(r.Status, statuses)
	})
}

func (m *MemoryStore) RequestsInvolving(_ context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	return m.filterRequests(func(r *model.SwapRequest) bool {
		return (r.RequesterEmail == email || r.TargetOwnerEmail == email) && inStatuses(r.Status, statuses)
	})
}

// ExecTx serializes units of work under the store lock. Writes are
// staged in the memTx and only applied when fn succeeds.
func (m *MemoryStore) ExecTx(_ context.Context, fn func(swap.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (m *MemoryStore) filterRequests(keep func(*model.SwapRequest) bool) ([]model.SwapRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SwapRequest, 0)
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sortNewest(m.seq, out, func(r model.SwapRequest) string { return r.ID })
	return out, nil
}

// sortNewest orders records by descending insertion sequence.
func sortNewest[T any](seq map[string]int, items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		return seq[id(items[i])] > seq[id(items[j])]
	})
}

func inStatuses(status string, statuses []string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func copySlot(s *model.Slot) *model.Slot {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func copyRequest(r *model.SwapRequest) *model.SwapRequest {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// memTx stages mutations until the enclosing ExecTx succeeds. The
// store lock is already held, so reads see a consistent snapshot.
type memTx struct {
	store   *MemoryStore
	applies []func()
}

var _ swap.TxStore = (*memTx)(nil)

func (t *memTx) GetSlotForUpdate(_ context.Context, id string) (*model.Slot, error) {
	return copySlot(t.store.slots[id]), nil
}

func (t *memTx) GetRequestForUpdate(_ context.Context, id string) (*model.SwapRequest, error) {
	return copyRequest(t.store.requests[id]), nil
}

func (t *memTx) SetSlotOwnerStatus(_ context.Context, id, owner, status string, swappable bool, expectVersion uint64) error {
	cur, ok := t.store.slots[id]
	if !ok || cur.Version != expectVersion {
		return swap.ErrVersionMismatch
	}
	t.applies = append(t.applies, func() {
		s := t.store.slots[id]
		s.OwnerEmail = owner
		s.Status = status
		s.IsSwappable = swappable
		s.Version++
		s.UpdatedAt = time.Now().UTC()
	})
	return nil
}

func (t *memTx) SetRequestStatus(_ context.Context, id, status string) error {
	if _, ok := t.store.requests[id]; !ok {
		return swap.ErrVersionMismatch
	}
	t.applies = append(t.applies, func() {
		r := t.store.requests[id]
		r.Status = status
		r.UpdatedAt = time.Now().UTC()
	})
	return nil
}

func (t *memTx) apply() {
	for _, fn := range t.applies {
		fn()
	}
}
