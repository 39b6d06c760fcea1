package model

import "time"

// Slot status values. A slot is offerable in a swap only while it is
// SWAPPABLE; BUSY slots are settled and SWAP_PENDING marks a slot that
// is the target of an in-flight request.
const (
	SlotStatusBusy        = "BUSY"
	SlotStatusSwappable   = "SWAPPABLE"
	SlotStatusSwapPending = "SWAP_PENDING"
)

// Slot is a time-bounded resource owned by a single identity.  Only
// the swap engine may change OwnerEmail or Status once the slot takes
// part in a request; the owner edits everything else.
//
// Fields:
//  ID          – opaque UUID identifier.
//  OwnerEmail  – identity of the current owner.
//  Name        – short display name.
//  Description – free text.
//  StartTime   – window start (UTC); EndTime must be strictly later.
//  EndTime     – window end (UTC).
//  IsSwappable – whether the owner offers this slot for swapping.
//  Status      – BUSY, SWAPPABLE or SWAP_PENDING.
//  Version     – optimistic-lock counter bumped on every mutation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Slot struct {
	ID          string    `json:"id"`           // slots.id
	OwnerEmail  string    `json:"owner_email"`  // slots.owner_email
	Name        string    `json:"name"`         // slots.name
	Description string    `json:"description"`  // slots.description
	StartTime   time.Time `json:"start_time"`   // slots.start_time
	EndTime     time.Time `json:"end_time"`     // slots.end_time
	IsSwappable bool      `json:"is_swappable"` // slots.is_swappable
	Status      string    `json:"status"`       // slots.status
	Version     uint64    `json:"-"`            // slots.version
	CreatedAt   time.Time `json:"created_at"`   // slots.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // slots.updated_at
}

// ValidSlotStatus reports whether s is one of the known slot statuses.
func ValidSlotStatus(s string) bool {
	switch s {
	case SlotStatusBusy, SlotStatusSwappable, SlotStatusSwapPending:
		return true
	}
	return false
}
