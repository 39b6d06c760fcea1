package swap

import (
	"context"
	"strings"

	"slot-swap-api/internal/model"
)

// Read-only views over the same store the engine mutates. Every
// request row is expanded with its two referenced slots the way the
// API returns them.

var terminalStatuses = []string{
	model.RequestStatusApproved,
	model.RequestStatusRejected,
	model.RequestStatusCancelled,
}

// SlotsForOwner returns every slot owned by the given identity.
func (e *Engine) SlotsForOwner(ctx context.Context, owner string) ([]model.Slot, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return nil, ErrUnauthorized
	}
	slots, err := e.store.SlotsByOwner(ctx, owner)
	if err != nil {
		return nil, storageErr("list slots", err)
	}
	return slots, nil
}

// SwappableSlots returns all slots currently offerable in a swap:
// is_swappable set and status SWAPPABLE.
func (e *Engine) SwappableSlots(ctx context.Context) ([]model.Slot, error) {
	slots, err := e.store.SwappableSlots(ctx)
	if err != nil {
		return nil, storageErr("list swappable slots", err)
	}
	return slots, nil
}

// SentBy returns every request the identity has created, newest first.
func (e *Engine) SentBy(ctx context.Context, requester string) ([]RequestView, error) {
	requester = strings.ToLower(strings.TrimSpace(requester))
	if requester == "" {
		return nil, ErrUnauthorized
	}
	reqs, err := e.store.RequestsByRequester(ctx, requester)
	if err != nil {
		return nil, storageErr("list sent requests", err)
	}
	return e.expand(ctx, reqs)
}

// ReceivedBy returns the PENDING requests targeting slots the identity
// owns. Resolved requests show up in History instead.
func (e *Engine) ReceivedBy(ctx context.Context, owner string) ([]RequestView, error) {
	owner = strings.ToLower(strings.TrimSpace(owner))
	if owner == "" {
		return nil, ErrUnauthorized
	}
	reqs, err := e.store.RequestsByTargetOwner(ctx, owner, []string{model.RequestStatusPending})
	if err != nil {
		return nil, storageErr("list received requests", err)
	}
	return e.expand(ctx, reqs)
}

// History returns resolved requests in which the identity took part,
// either as requester or as target slot owner.
func (e *Engine) History(ctx context.Context, identity string) ([]RequestView, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return nil, ErrUnauthorized
	}
	reqs, err := e.store.RequestsInvolving(ctx, identity, terminalStatuses)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	return e.expand(ctx, reqs)
}

// expand joins the referenced slot records onto each request. A slot
// deleted after resolution leaves a nil pointer rather than failing
// the whole listing.
func (e *Engine) expand(ctx context.Context, reqs []model.SwapRequest) ([]RequestView, error) {
	views := make([]RequestView, 0, len(reqs))
	cache := make(map[string]*model.Slot)
	lookup := func(id string) (*model.Slot, error) {
		if s, ok := cache[id]; ok {
			return s, nil
		}
		s, err := e.store.GetSlot(ctx, id)
		if err != nil {
			return nil, err
		}
		cache[id] = s
		return s, nil
	}
	for _, r := range reqs {
		target, err := lookup(r.TargetSlotID)
		if err != nil {
			return nil, storageErr("expand target slot", err)
		}
		offered, err := lookup(r.OfferedSlotID)
		if err != nil {
			return nil, storageErr("expand offered slot", err)
		}
		views = append(views, RequestView{SwapRequest: r, TargetSlot: target, OfferedSlot: offered})
	}
	return views, nil
}
