package swap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/repository"
	"slot-swap-api/internal/swap"
)

func newEngine(t *testing.T) (*swap.Engine, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return swap.NewEngine(store, zap.NewNop()), store
}

func seedSlot(t *testing.T, store *repository.MemoryStore, owner string, swappable bool) *model.Slot {
	t.Helper()
	status := model.SlotStatusBusy
	if swappable {
		status = model.SlotStatusSwappable
	}
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s := &model.Slot{
		OwnerEmail:  owner,
		Name:        "shift",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		IsSwappable: swappable,
		Status:      status,
	}
	require.NoError(t, store.CreateSlot(context.Background(), s))
	return s
}

// pendingRequest seeds two swappable slots and a PENDING request from
// bob offering his slot for alice's.
func pendingRequest(t *testing.T, e *swap.Engine, store *repository.MemoryStore) (target, offered *model.Slot, req *swap.RequestView) {
	t.Helper()
	target = seedSlot(t, store, "alice@example.com", true)
	offered = seedSlot(t, store, "bob@example.com", true)
	req, err := e.CreateRequest(context.Background(), "bob@example.com", target.ID, offered.ID, "swap?")
	require.NoError(t, err)
	return target, offered, req
}

func TestCreateRequest(t *testing.T) {
	e, store := newEngine(t)
	target, offered, req := pendingRequest(t, e, store)

	assert.Equal(t, model.RequestStatusPending, req.Status)
	assert.Equal(t, "alice@example.com", req.TargetOwnerEmail)
	assert.Equal(t, "bob@example.com", req.RequesterEmail)
	assert.Equal(t, "swap?", req.Message)
	// the offered slot's window is snapshotted on the request
	assert.True(t, req.ProposedStartTime.Equal(offered.StartTime))
	assert.True(t, req.ProposedEndTime.Equal(offered.EndTime))
	require.NotNil(t, req.TargetSlot)
	require.NotNil(t, req.OfferedSlot)

	// neither slot is mutated by request creation
	got, err := store.GetSlot(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusSwappable, got.Status)
	assert.Equal(t, "alice@example.com", got.OwnerEmail)
}

func TestCreateRequestSelfSwap(t *testing.T) {
	e, store := newEngine(t)
	s := seedSlot(t, store, "bob@example.com", true)

	_, err := e.CreateRequest(context.Background(), "bob@example.com", s.ID, s.ID, "")
	assert.ErrorIs(t, err, swap.ErrInvalidRequest)
}

func TestCreateRequestValidation(t *testing.T) {
	e, store := newEngine(t)
	swappable := seedSlot(t, store, "alice@example.com", true)
	busy := seedSlot(t, store, "alice@example.com", false)
	mine := seedSlot(t, store, "bob@example.com", true)
	ctx := context.Background()

	t.Run("missing identity", func(t *testing.T) {
		_, err := e.CreateRequest(ctx, "", swappable.ID, mine.ID, "")
		assert.ErrorIs(t, err, swap.ErrUnauthorized)
	})
	t.Run("unknown target", func(t *testing.T) {
		_, err := e.CreateRequest(ctx, "bob@example.com", "nope", mine.ID, "")
		assert.ErrorIs(t, err, swap.ErrNotFound)
	})
	t.Run("unknown offered", func(t *testing.T) {
		_, err := e.CreateRequest(ctx, "bob@example.com", swappable.ID, "nope", "")
		assert.ErrorIs(t, err, swap.ErrNotFound)
	})
	t.Run("offered slot not owned by requester", func(t *testing.T) {
		other := seedSlot(t, store, "carol@example.com", true)
		_, err := e.CreateRequest(ctx, "bob@example.com", swappable.ID, other.ID, "")
		assert.ErrorIs(t, err, swap.ErrForbidden)
	})
	t.Run("target owned by requester", func(t *testing.T) {
		second := seedSlot(t, store, "bob@example.com", true)
		_, err := e.CreateRequest(ctx, "bob@example.com", second.ID, mine.ID, "")
		assert.ErrorIs(t, err, swap.ErrInvalidRequest)
	})
	t.Run("target not swappable", func(t *testing.T) {
		_, err := e.CreateRequest(ctx, "bob@example.com", busy.ID, mine.ID, "")
		assert.ErrorIs(t, err, swap.ErrNotAllowed)
	})
	t.Run("offered not swappable", func(t *testing.T) {
		busyMine := seedSlot(t, store, "bob@example.com", false)
		_, err := e.CreateRequest(ctx, "bob@example.com", swappable.ID, busyMine.ID, "")
		assert.ErrorIs(t, err, swap.ErrNotAllowed)
	})
}

func TestApproveSwapsOwnership(t *testing.T) {
	e, store := newEngine(t)
	target, offered, req := pendingRequest(t, e, store)
	ctx := context.Background()

	view, err := e.Approve(ctx, "alice@example.com", req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, view.Status)

	// owners exchanged, both slots settled
	gotTarget, err := store.GetSlot(ctx, target.ID)
	require.NoError(t, err)
	gotOffered, err := store.GetSlot(ctx, offered.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", gotTarget.OwnerEmail)
	assert.Equal(t, "alice@example.com", gotOffered.OwnerEmail)
	assert.Equal(t, model.SlotStatusBusy, gotTarget.Status)
	assert.Equal(t, model.SlotStatusBusy, gotOffered.Status)
	assert.False(t, gotTarget.IsSwappable)
	assert.False(t, gotOffered.IsSwappable)

	stored, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, stored.Status)
}

func TestApprovePreconditions(t *testing.T) {
	e, store := newEngine(t)
	_, _, req := pendingRequest(t, e, store)
	ctx := context.Background()

	t.Run("unknown request", func(t *testing.T) {
		_, err := e.Approve(ctx, "alice@example.com", "nope")
		assert.ErrorIs(t, err, swap.ErrNotFound)
	})
	t.Run("only target owner may approve", func(t *testing.T) {
		_, err := e.Approve(ctx, "bob@example.com", req.ID)
		assert.ErrorIs(t, err, swap.ErrForbidden)
	})
}

func TestApproveIdempotence(t *testing.T) {
	e, store := newEngine(t)
	target, offered, req := pendingRequest(t, e, store)
	ctx := context.Background()

	_, err := e.Approve(ctx, "alice@example.com", req.ID)
	require.NoError(t, err)

	gotTarget, _ := store.GetSlot(ctx, target.ID)
	gotOffered, _ := store.GetSlot(ctx, offered.ID)

	// a second approval fails and must not swap the owners back
	_, err = e.Approve(ctx, "alice@example.com", req.ID)
	assert.ErrorIs(t, err, swap.ErrConflict)

	again, _ := store.GetSlot(ctx, target.ID)
	assert.Equal(t, gotTarget.OwnerEmail, again.OwnerEmail)
	assert.Equal(t, gotTarget.Version, again.Version)
	again, _ = store.GetSlot(ctx, offered.ID)
	assert.Equal(t, gotOffered.OwnerEmail, again.OwnerEmail)
	assert.Equal(t, gotOffered.Version, again.Version)
}

func TestRejectLeavesSlotsUntouched(t *testing.T) {
	e, store := newEngine(t)
	target, offered, req := pendingRequest(t, e, store)
	ctx := context.Background()

	view, err := e.Reject(ctx, "alice@example.com", req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, view.Status)

	gotTarget, _ := store.GetSlot(ctx, target.ID)
	gotOffered, _ := store.GetSlot(ctx, offered.ID)
	assert.Equal(t, "alice@example.com", gotTarget.OwnerEmail)
	assert.Equal(t, "bob@example.com", gotOffered.OwnerEmail)
	assert.Equal(t, model.SlotStatusSwappable, gotTarget.Status)
	assert.Equal(t, model.SlotStatusSwappable, gotOffered.Status)

	// rejected is terminal
	_, err = e.Approve(ctx, "alice@example.com", req.ID)
	assert.ErrorIs(t, err, swap.ErrConflict)
	_, err = e.Reject(ctx, "alice@example.com", req.ID)
	assert.ErrorIs(t, err, swap.ErrConflict)
}

func TestCancel(t *testing.T) {
	e, store := newEngine(t)
	_, _, req := pendingRequest(t, e, store)
	ctx := context.Background()

	t.Run("only requester may cancel", func(t *testing.T) {
		_, err := e.Cancel(ctx, "alice@example.com", req.ID)
		assert.ErrorIs(t, err, swap.ErrForbidden)
	})
	t.Run("requester cancels while pending", func(t *testing.T) {
		view, err := e.Cancel(ctx, "bob@example.com", req.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusCancelled, view.Status)
	})
	t.Run("second cancel conflicts", func(t *testing.T) {
		_, err := e.Cancel(ctx, "bob@example.com", req.ID)
		assert.ErrorIs(t, err, swap.ErrConflict)
	})
}

// Two pending requests target the same slot. Approving both, in
// either order or concurrently, must settle the slot exactly once.
func TestConcurrentApprovalsShareTargetSlot(t *testing.T) {
	e, store := newEngine(t)
	ctx := context.Background()

	target := seedSlot(t, store, "alice@example.com", true)
	offeredB := seedSlot(t, store, "bob@example.com", true)
	offeredC := seedSlot(t, store, "carol@example.com", true)

	r1, err := e.CreateRequest(ctx, "bob@example.com", target.ID, offeredB.ID, "")
	require.NoError(t, err)
	r2, err := e.CreateRequest(ctx, "carol@example.com", target.ID, offeredC.ID, "")
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, errs[0] = e.Approve(ctx, "alice@example.com", r1.ID) }()
	go func() { defer wg.Done(); _, errs[1] = e.Approve(ctx, "alice@example.com", r2.ID) }()
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, swap.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins, "exactly one approval may consume the shared slot")

	got, err := store.GetSlot(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusBusy, got.Status)
	assert.Contains(t, []string{"bob@example.com", "carol@example.com"}, got.OwnerEmail)
	assert.Equal(t, target.Version+1, got.Version, "the shared slot must be written exactly once")
}

func TestConcurrentApproveSameRequest(t *testing.T) {
	e, store := newEngine(t)
	_, _, req := pendingRequest(t, e, store)
	ctx := context.Background()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) { defer wg.Done(); _, errs[i] = e.Approve(ctx, "alice@example.com", req.ID) }(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, swap.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}
