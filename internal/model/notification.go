package model

import "github.com/google/uuid"

// NotificationKind names the live push events the frontend listens for.
type NotificationKind string

const (
	NotificationNewSwapRequest NotificationKind = "newSwapRequest"
	NotificationSwapAccepted   NotificationKind = "swapAccepted"
	NotificationSwapRejected   NotificationKind = "swapRejected"
)

// Notification is the payload pushed to a participant's live sessions.
// It is advisory only; the slot and swap request records remain the source
// of truth and a disconnected participant recovers by querying them.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	SwapRequestID uuid.UUID        `json:"swap_request_id"`
	Message       string           `json:"message"`
}
