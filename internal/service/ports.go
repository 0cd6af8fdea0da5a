package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

// SlotRepository is the storage surface the services need for slots.
// Implemented by the pgx repositories and the in-memory store.
type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	// GetForUpdate reads the slot under a write lock; valid only inside a
	// TxManager closure.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error)
	ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error)
	TitleExists(ctx context.Context, ownerID, title string) (bool, error)
	Update(ctx context.Context, slot *model.Slot) error
	// UpdateStatus applies a compare-and-swap transition; it returns
	// model.ErrInvalidState when the slot is no longer in the from status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error
	SetOwnerAndStatus(ctx context.Context, id uuid.UUID, ownerID string, status model.SlotStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SwapRequestRepository is the storage surface for the negotiation ledger.
type SwapRequestRepository interface {
	Create(ctx context.Context, req *model.SwapRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error)
	ListForParticipant(ctx context.Context, userID string) ([]*model.SwapRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SwapStatus) error
}

// TxManager runs a closure atomically: all repository writes made inside
// fn commit together or not at all, and no intermediate state is visible
// to concurrent readers.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier pushes a live event to a participant's connected sessions.
// Delivery is best-effort and must never block the caller.
type Notifier interface {
	Publish(recipientID string, n model.Notification)
}
