package model

import "time"

// Swap request status values. PENDING is the only actionable state;
// the other three are terminal.
const (
	RequestStatusPending   = "PENDING"
	RequestStatusApproved  = "APPROVED"
	RequestStatusRejected  = "REJECTED"
	RequestStatusCancelled = "CANCELLED"
)

// SwapRequest is a proposal to exchange ownership of two slots.  The
// target owner email and the offered slot window are snapshotted at
// creation time so the request stays meaningful even if the slots are
// edited afterwards.  Requests are never deleted; resolved requests
// form the swap history.
//
// Fields:
//  ID                – opaque UUID identifier.
//  TargetSlotID      – slot the requester wants to acquire.
//  OfferedSlotID     – slot the requester proposes to give up.
//  TargetOwnerEmail  – owner of the target slot at creation time.
//  RequesterEmail    – identity of the party offering a slot.
//  Status            – PENDING, APPROVED, REJECTED or CANCELLED.
//  Message           – optional free text shown to the target owner.
//  ProposedStartTime – offered slot window start at creation time.
//  ProposedEndTime   – offered slot window end at creation time.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type SwapRequest struct {
	ID                string    `json:"id"`                  // swap_requests.id
	TargetSlotID      string    `json:"target_slot_id"`      // swap_requests.target_slot_id
	OfferedSlotID     string    `json:"offered_slot_id"`     // swap_requests.offered_slot_id
	TargetOwnerEmail  string    `json:"target_owner_email"`  // swap_requests.target_owner_email
	RequesterEmail    string    `json:"requester_email"`     // swap_requests.requester_email
	Status            string    `json:"status"`              // swap_requests.status
	Message           string    `json:"message,omitempty"`   // swap_requests.message
	ProposedStartTime time.Time `json:"proposed_start_time"` // swap_requests.proposed_start_time
	ProposedEndTime   time.Time `json:"proposed_end_time"`   // swap_requests.proposed_end_time
	CreatedAt         time.Time `json:"created_at"`          // swap_requests.created_at
	UpdatedAt         time.Time `json:"updated_at"`          // swap_requests.updated_at
}

// Terminal reports whether the request can no longer be acted on.
func (r *SwapRequest) Terminal() bool {
	return r.Status != RequestStatusPending
}
