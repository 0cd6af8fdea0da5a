package model

import (
	"time"

	"github.com/google/uuid"
)

type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "PENDING"
	SwapStatusAccepted  SwapStatus = "ACCEPTED"
	SwapStatusRejected  SwapStatus = "REJECTED"
	SwapStatusCancelled SwapStatus = "CANCELLED"
)

// Terminal reports whether the request is resolved. Resolved requests are
// immutable.
func (s SwapStatus) Terminal() bool {
	return s == SwapStatusAccepted || s == SwapStatusRejected || s == SwapStatusCancelled
}

// SwapAction is the responder's decision on a pending request.
type SwapAction string

const (
	SwapActionAccept SwapAction = "ACCEPT"
	SwapActionReject SwapAction = "REJECT"
)

func (a SwapAction) Valid() bool {
	return a == SwapActionAccept || a == SwapActionReject
}

type SwapRequest struct {
	ID              uuid.UUID  `json:"id"`
	RequesterID     string     `json:"requester_id"`
	ResponderID     string     `json:"responder_id"`
	RequesterSlotID uuid.UUID  `json:"requester_slot_id"`
	ResponderSlotID uuid.UUID  `json:"responder_slot_id"`
	Status          SwapStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Resolved for display, not stored on the record itself.
	RequesterSlot *Slot `json:"requester_slot,omitempty"`
	ResponderSlot *Slot `json:"responder_slot,omitempty"`
}

// CounterpartyOf returns the other participant of the negotiation.
func (r *SwapRequest) CounterpartyOf(userID string) string {
	if userID == r.RequesterID {
		return r.ResponderID
	}
	return r.RequesterID
}
