package swap

import (
	"context"
	"errors"

	"slot-swap-api/internal/model"
)

// ErrVersionMismatch is reported by TxStore writers when the stored
// version no longer matches the expected one. The engine surfaces it
// to callers as ErrConflict.
var ErrVersionMismatch = errors.New("version mismatch")

// Store abstracts persistence for slots and swap requests.  Lookup
// methods return (nil, nil) when no record matches; the engine maps
// that to ErrNotFound.  List methods return records newest first.
//
// The SQL implementation lives in internal/repository; an in-memory
// implementation backs the engine and handler tests.
type Store interface {
	CreateSlot(ctx context.Context, s *model.Slot) error
	GetSlot(ctx context.Context, id string) (*model.Slot, error)
	UpdateSlot(ctx context.Context, s *model.Slot) error
	DeleteSlot(ctx context.Context, id string) error
	SlotsByOwner(ctx context.Context, owner string) ([]model.Slot, error)
	SwappableSlots(ctx context.Context) ([]model.Slot, error)

	CreateRequest(ctx context.Context, r *model.SwapRequest) error
	GetRequest(ctx context.Context, id string) (*model.SwapRequest, error)
	RequestsByRequester(ctx context.Context, email string) ([]model.SwapRequest, error)
	RequestsByTargetOwner(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error)
	RequestsInvolving(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error)

	// ExecTx runs fn against a transactional view of the store.
	// Mutations made through the TxStore commit atomically when fn
	// returns nil and are discarded when it returns an error.
	ExecTx(ctx context.Context, fn func(TxStore) error) error
}

// TxStore is the transactional view handed to ExecTx callbacks.  The
// ForUpdate reads lock the underlying rows for the duration of the
// transaction; the Set writers check the expected version and report
// ErrVersionMismatch when another writer got there first.
type TxStore interface {
	GetSlotForUpdate(ctx context.Context, id string) (*model.Slot, error)
	GetRequestForUpdate(ctx context.Context, id string) (*model.SwapRequest, error)
	SetSlotOwnerStatus(ctx context.Context, id, owner, status string, swappable bool, expectVersion uint64) error
	SetRequestStatus(ctx context.Context, id, status string) error
}

// RequestView is a swap request with both referenced slots expanded
// for display. A slot pointer may be nil if the record has since been
// deleted by its owner.
type RequestView struct {
	model.SwapRequest
	TargetSlot  *model.Slot `json:"target_slot,omitempty"`
	OfferedSlot *model.Slot `json:"offered_slot,omitempty"`
}
