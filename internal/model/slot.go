package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusBusy        SlotStatus = "BUSY"
	SlotStatusSwappable   SlotStatus = "SWAPPABLE"
	SlotStatusSwapPending SlotStatus = "SWAP_PENDING"
)

// OwnerSettable reports whether an owner may request this status directly.
// SWAP_PENDING is reserved for the swap protocol.
func (s SlotStatus) OwnerSettable() bool {
	return s == SlotStatusBusy || s == SlotStatusSwappable
}

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusBusy, SlotStatusSwappable, SlotStatusSwapPending:
		return true
	}
	return false
}

type Slot struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Status      SlotStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SlotPatch carries the fields an owner may change on an existing slot.
// Nil means "leave as is".
type SlotPatch struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	StartTime   *time.Time  `json:"start_time"`
	EndTime     *time.Time  `json:"end_time"`
	Status      *SlotStatus `json:"status"`
}
