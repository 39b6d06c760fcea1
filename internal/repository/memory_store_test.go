package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/repository"
	"slot-swap-api/internal/swap"
)

func memSlot(t *testing.T, store *repository.MemoryStore, owner string) *model.Slot {
	t.Helper()
	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	s := &model.Slot{
		OwnerEmail:  owner,
		Name:        "slot",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		IsSwappable: true,
		Status:      model.SlotStatusSwappable,
	}
	require.NoError(t, store.CreateSlot(context.Background(), s))
	return s
}

func TestMemoryStoreUpdateSlotVersion(t *testing.T) {
	store := repository.NewMemoryStore()
	s := memSlot(t, store, "alice@example.com")
	ctx := context.Background()

	stale := *s
	s.Name = "renamed"
	require.NoError(t, store.UpdateSlot(ctx, s))
	assert.Equal(t, stale.Version+1, s.Version)

	stale.Name = "conflicting edit"
	assert.ErrorIs(t, store.UpdateSlot(ctx, &stale), swap.ErrVersionMismatch)

	got, err := store.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestMemoryStoreExecTxRollsBackOnError(t *testing.T) {
	store := repository.NewMemoryStore()
	s := memSlot(t, store, "alice@example.com")
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.ExecTx(ctx, func(tx swap.TxStore) error {
		if err := tx.SetSlotOwnerStatus(ctx, s.ID, "bob@example.com", model.SlotStatusBusy, false, s.Version); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.OwnerEmail)
	assert.Equal(t, s.Version, got.Version)
}

func TestMemoryStoreTxVersionGuard(t *testing.T) {
	store := repository.NewMemoryStore()
	s := memSlot(t, store, "alice@example.com")
	ctx := context.Background()

	err := store.ExecTx(ctx, func(tx swap.TxStore) error {
		return tx.SetSlotOwnerStatus(ctx, s.ID, "bob@example.com", model.SlotStatusBusy, false, s.Version+9)
	})
	assert.ErrorIs(t, err, swap.ErrVersionMismatch)
}

func TestMemoryStoreRejectsUnknownStatus(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	start := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	bad := &model.Slot{
		OwnerEmail: "alice@example.com",
		Name:       "slot",
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Status:     "SOLD",
	}
	assert.Error(t, store.CreateSlot(ctx, bad))

	s := memSlot(t, store, "alice@example.com")
	s.Status = "SOLD"
	assert.Error(t, store.UpdateSlot(ctx, s))
	got, err := store.GetSlot(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusSwappable, got.Status)
}

func TestMemoryStoreListOrdering(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	first := memSlot(t, store, "alice@example.com")
	second := memSlot(t, store, "alice@example.com")
	memSlot(t, store, "bob@example.com")

	slots, err := store.SlotsByOwner(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, second.ID, slots[0].ID, "newest first")
	assert.Equal(t, first.ID, slots[1].ID)
}
