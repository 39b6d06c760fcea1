package repository

import (
	"context"
	"database/sql"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/swap"
)

// Store implements swap.Store over MySQL by composing the slot and
// swap request repositories. ExecTx maps the engine's unit of work
// onto a database transaction; row locks taken through the TxStore
// serialize concurrent approvals that share a slot.
type Store struct {
	db       *sql.DB
	Slots    *SlotRepo
	Requests *SwapRequestRepo
}

var _ swap.Store = (*Store)(nil)

// NewStore builds a Store and its repositories on one connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, Slots: NewSlotRepo(db), Requests: NewSwapRequestRepo(db)}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) CreateSlot(ctx context.Context, slot *model.Slot) error {
	return s.Slots.Create(ctx, slot)
}

func (s *Store) GetSlot(ctx context.Context, id string) (*model.Slot, error) {
	return s.Slots.GetByID(ctx, id)
}

func (s *Store) UpdateSlot(ctx context.Context, slot *model.Slot) error {
	return s.Slots.Update(ctx, slot)
}

func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	return s.Slots.Delete(ctx, id)
}

func (s *Store) SlotsByOwner(ctx context.Context, owner string) ([]model.Slot, error) {
	return s.Slots.ListByOwner(ctx, owner)
}

func (s *Store) SwappableSlots(ctx context.Context) ([]model.Slot, error) {
	return s.Slots.ListSwappable(ctx)
}

func (s *Store) CreateRequest(ctx context.Context, req *model.SwapRequest) error {
	return s.Requests.Create(ctx, req)
}

func (s *Store) GetRequest(ctx context.Context, id string) (*model.SwapRequest, error) {
	return s.Requests.GetByID(ctx, id)
}

func (s *Store) RequestsByRequester(ctx context.Context, email string) ([]model.SwapRequest, error) {
	return s.Requests.ListByRequester(ctx, email)
}

func (s *Store) RequestsByTargetOwner(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	return s.Requests.ListByTargetOwner(ctx, email, statuses)
}

func (s *Store) RequestsInvolving(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	return s.Requests.ListInvolving(ctx, email, statuses)
}

// ExecTx opens a transaction, hands a TxStore to fn and commits when
// fn returns nil. Any error (including a panic unwinding through fn)
// rolls everything back.
func (s *Store) ExecTx(ctx context.Context, fn func(swap.TxStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txStore{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// txStore routes TxStore calls through one *sql.Tx.
type txStore struct {
	tx *sql.Tx
	s  *Store
}

var _ swap.TxStore = (*txStore)(nil)

func (t *txStore) GetSlotForUpdate(ctx context.Context, id string) (*model.Slot, error) {
	return t.s.Slots.GetForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) GetRequestForUpdate(ctx context.Context, id string) (*model.SwapRequest, error) {
	return t.s.Requests.GetForUpdateTx(ctx, t.tx, id)
}

func (t *txStore) SetSlotOwnerStatus(ctx context.Context, id, owner, status string, swappable bool, expectVersion uint64) error {
	return t.s.Slots.UpdateOwnerStatusTx(ctx, t.tx, id, owner, status, swappable, expectVersion)
}

func (t *txStore) SetRequestStatus(ctx context.Context, id, status string) error {
	return t.s.Requests.UpdateStatusTx(ctx, t.tx, id, status)
}
