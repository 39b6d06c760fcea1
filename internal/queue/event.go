// Package queue defines message payloads exchanged over the message broker.
package queue

// SwapApprovedEvent is published when a swap request is approved and
// the ownership exchange has committed. It carries enough information
// for downstream consumers to log or notify without querying the
// primary database.
type SwapApprovedEvent struct {
	RequestID       string `json:"request_id"`
	TargetSlotID    string `json:"target_slot_id"`
	TargetSlotName  string `json:"target_slot_name"`
	TargetStartsAt  string `json:"target_starts_at"`
	TargetEndsAt    string `json:"target_ends_at"`
	OfferedSlotID   string `json:"offered_slot_id"`
	OfferedSlotName string `json:"offered_slot_name"`
	OfferedStartsAt string `json:"offered_starts_at"`
	OfferedEndsAt   string `json:"offered_ends_at"`
	RequesterEmail  string `json:"requester_email"`
	TargetOwner     string `json:"target_owner_email"`
	ApprovedAt      string `json:"approved_at"`
}
