package swap

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"slot-swap-api/internal/model"
)

// Engine validates and executes the swap request lifecycle. It is the
// only component that mutates slot ownership or request status; all
// precondition violations surface as the typed errors in errors.go
// and nothing is retried internally.
type Engine struct {
	store  Store
	logger *zap.Logger
}

// NewEngine constructs an Engine bound to the given store. The logger
// may not be nil; pass zap.NewNop() when logging is unwanted.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	if store == nil || logger == nil {
		panic("nil dependency passed to NewEngine")
	}
	return &Engine{store: store, logger: logger}
}

// CreateRequest validates and persists a new swap request on behalf
// of requester. Policy beyond the basic existence/swappability
// checks: the requester must own the offered slot, must not own the
// target slot, and the target slot must currently be SWAPPABLE.
// The created request snapshots the target owner identity and the
// offered slot's time window; neither slot is mutated.
func (e *Engine) CreateRequest(ctx context.Context, requester, targetID, offeredID, message string) (*RequestView, error) {
	requester = strings.ToLower(strings.TrimSpace(requester))
	if requester == "" {
		return nil, ErrUnauthorized
	}
	if targetID == "" || offeredID == "" {
		return nil, ErrInvalidRequest
	}
	if targetID == offeredID {
		return nil, ErrInvalidRequest
	}

	target, err := e.store.GetSlot(ctx, targetID)
	if err != nil {
		return nil, storageErr("load target slot", err)
	}
	offered, err := e.store.GetSlot(ctx, offeredID)
	if err != nil {
		return nil, storageErr("load offered slot", err)
	}
	if target == nil || offered == nil {
		return nil, ErrNotFound
	}
	if offered.OwnerEmail != requester {
		return nil, ErrForbidden
	}
	if target.OwnerEmail == requester {
		return nil, ErrInvalidRequest
	}
	if !target.IsSwappable || !offered.IsSwappable {
		return nil, ErrNotAllowed
	}
	if target.Status != model.SlotStatusSwappable {
		return nil, ErrNotAllowed
	}

	req := &model.SwapRequest{
		TargetSlotID:      target.ID,
		OfferedSlotID:     offered.ID,
		TargetOwnerEmail:  target.OwnerEmail,
		RequesterEmail:    requester,
		Status:            model.RequestStatusPending,
		Message:           strings.TrimSpace(message),
		ProposedStartTime: offered.StartTime,
		ProposedEndTime:   offered.EndTime,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, storageErr("create request", err)
	}

	e.logger.Info("swap request created",
		zap.String("request_id", req.ID),
		zap.String("requester", requester),
		zap.String("target_slot", target.ID),
		zap.String("offered_slot", offered.ID))

	return &RequestView{SwapRequest: *req, TargetSlot: target, OfferedSlot: offered}, nil
}

// Approve executes the core swap on behalf of actor, who must be the
// target slot owner snapshotted on the request. The two slot
// mutations and the request transition happen inside a single store
// transaction with both slot rows locked in deterministic order, so
// either everything commits or nothing does and a slot can never be
// part of two concurrently approved swaps.
func (e *Engine) Approve(ctx context.Context, actor, requestID string) (*RequestView, error) {
	return e.resolve(ctx, actor, requestID, model.RequestStatusApproved)
}

// Reject declines a pending request. Only the target slot owner may
// reject; neither slot is mutated.
func (e *Engine) Reject(ctx context.Context, actor, requestID string) (*RequestView, error) {
	return e.resolve(ctx, actor, requestID, model.RequestStatusRejected)
}

// Cancel withdraws a pending request. Only the original requester may
// cancel; neither slot is mutated.
func (e *Engine) Cancel(ctx context.Context, requester, requestID string) (*RequestView, error) {
	return e.resolve(ctx, requester, requestID, model.RequestStatusCancelled)
}

// resolve drives a PENDING request to one of its terminal states.
// All checks run again inside the transaction so that concurrent
// resolutions of the same request, or of requests sharing a slot,
// serialize on the locked rows and exactly one of them succeeds.
func (e *Engine) resolve(ctx context.Context, actor, requestID, terminal string) (*RequestView, error) {
	actor = strings.ToLower(strings.TrimSpace(actor))
	if actor == "" {
		return nil, ErrUnauthorized
	}
	if requestID == "" {
		return nil, ErrInvalidRequest
	}

	var view *RequestView
	err := e.store.ExecTx(ctx, func(tx TxStore) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return storageErr("load request", err)
		}
		if req == nil {
			return ErrNotFound
		}
		if req.Terminal() {
			return ErrConflict
		}
		switch terminal {
		case model.RequestStatusCancelled:
			if req.RequesterEmail != actor {
				return ErrForbidden
			}
		default:
			if req.TargetOwnerEmail != actor {
				return ErrForbidden
			}
		}

		view = &RequestView{SwapRequest: *req}

		if terminal == model.RequestStatusApproved {
			target, offered, err := e.lockSlotPair(ctx, tx, req.TargetSlotID, req.OfferedSlotID)
			if err != nil {
				return err
			}
			// Re-validate under lock: a competing approval that
			// already consumed one of the slots loses it here.
			if !target.IsSwappable || !offered.IsSwappable {
				return ErrConflict
			}
			if err := tx.SetSlotOwnerStatus(ctx, target.ID, offered.OwnerEmail, model.SlotStatusBusy, false, target.Version); err != nil {
				return e.mutationErr("swap target slot", err)
			}
			if err := tx.SetSlotOwnerStatus(ctx, offered.ID, target.OwnerEmail, model.SlotStatusBusy, false, offered.Version); err != nil {
				return e.mutationErr("swap offered slot", err)
			}
			tSwapped, oSwapped := *target, *offered
			tSwapped.OwnerEmail, oSwapped.OwnerEmail = offered.OwnerEmail, target.OwnerEmail
			tSwapped.Status, oSwapped.Status = model.SlotStatusBusy, model.SlotStatusBusy
			tSwapped.IsSwappable, oSwapped.IsSwappable = false, false
			view.TargetSlot, view.OfferedSlot = &tSwapped, &oSwapped
		}

		if err := tx.SetRequestStatus(ctx, req.ID, terminal); err != nil {
			return e.mutationErr("update request status", err)
		}
		view.Status = terminal
		return nil
	})
	if err != nil {
		return nil, err
	}

	if view.TargetSlot == nil {
		// Reject/cancel leave the slots untouched; expand them
		// outside the transaction purely for display.
		view.TargetSlot, _ = e.store.GetSlot(ctx, view.TargetSlotID)
		view.OfferedSlot, _ = e.store.GetSlot(ctx, view.OfferedSlotID)
	}

	e.logger.Info("swap request resolved",
		zap.String("request_id", requestID),
		zap.String("status", terminal),
		zap.String("actor", actor))
	return view, nil
}

// lockSlotPair locks both slot rows in ascending id order so that two
// approvals sharing a slot cannot deadlock.
func (e *Engine) lockSlotPair(ctx context.Context, tx TxStore, targetID, offeredID string) (target, offered *model.Slot, err error) {
	first, second := targetID, offeredID
	if second < first {
		first, second = second, first
	}
	a, err := tx.GetSlotForUpdate(ctx, first)
	if err != nil {
		return nil, nil, storageErr("lock slot", err)
	}
	b, err := tx.GetSlotForUpdate(ctx, second)
	if err != nil {
		return nil, nil, storageErr("lock slot", err)
	}
	if a == nil || b == nil {
		return nil, nil, ErrNotFound
	}
	if a.ID == targetID {
		return a, b, nil
	}
	return b, a, nil
}

func (e *Engine) mutationErr(op string, err error) error {
	if errors.Is(err, ErrVersionMismatch) {
		return ErrConflict
	}
	return storageErr(op, err)
}
