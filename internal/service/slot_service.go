package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

// SlotService owns slot records and their exchangeability state. Owners may
// toggle BUSY and SWAPPABLE freely; SWAP_PENDING belongs to the swap
// protocol and is never reachable through this service.
type SlotService struct {
	tx       TxManager
	slotRepo SlotRepository
	logger   *zap.Logger
}

func NewSlotService(tx TxManager, slotRepo SlotRepository, logger *zap.Logger) *SlotService {
	return &SlotService{
		tx:       tx,
		slotRepo: slotRepo,
		logger:   logger,
	}
}

// CreateSlotInput is the validated payload for a new slot.
type CreateSlotInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Status      model.SlotStatus // optional; defaults to BUSY
}

// Create registers a new slot owned by the caller.
func (s *SlotService) Create(ctx context.Context, callerID string, input CreateSlotInput) (*model.Slot, error) {
	if !input.StartTime.Before(input.EndTime) {
		return nil, fmt.Errorf("start time must be before end time: %w", model.ErrInvalidState)
	}

	status := input.Status
	if status == "" {
		status = model.SlotStatusBusy
	}
	if !status.OwnerSettable() {
		return nil, fmt.Errorf("status %q cannot be set by the owner: %w", status, model.ErrForbidden)
	}

	exists, err := s.slotRepo.TitleExists(ctx, callerID, input.Title)
	if err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("a slot with this title already exists: %w", model.ErrConflict)
	}

	slot := &model.Slot{
		ID:          uuid.New(),
		OwnerID:     callerID,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Status:      status,
	}

	if err := s.slotRepo.Create(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("owner_id", callerID),
		zap.String("status", string(slot.Status)),
	)

	return slot, nil
}

// ListMine returns every slot owned by the caller.
func (s *SlotService) ListMine(ctx context.Context, callerID string) ([]*model.Slot, error) {
	return s.slotRepo.ListByOwner(ctx, callerID)
}

// ListSwappable returns the marketplace feed: all SWAPPABLE slots owned by
// other participants.
func (s *SlotService) ListSwappable(ctx context.Context, callerID string) ([]*model.Slot, error) {
	return s.slotRepo.ListSwappable(ctx, callerID)
}

// Get returns one slot by id.
func (s *SlotService) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := s.slotRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, model.ErrNotFound
	}
	return slot, nil
}

// Update applies an owner's patch to slot metadata or state. A slot pinned
// by a pending swap cannot be changed until the negotiation resolves, and
// SWAP_PENDING itself is never an owner-settable target.
func (s *SlotService) Update(ctx context.Context, callerID string, slotID uuid.UUID, patch model.SlotPatch) (*model.Slot, error) {
	var updated *model.Slot

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrNotFound
		}
		if slot.OwnerID != callerID {
			return model.ErrForbidden
		}
		if patch.Status != nil && !patch.Status.OwnerSettable() {
			return fmt.Errorf("status %q cannot be set by the owner: %w", *patch.Status, model.ErrForbidden)
		}
		if slot.Status == model.SlotStatusSwapPending {
			return fmt.Errorf("slot is locked by a pending swap: %w", model.ErrInvalidState)
		}

		if patch.Title != nil && *patch.Title != slot.Title {
			exists, err := s.slotRepo.TitleExists(ctx, callerID, *patch.Title)
			if err != nil {
				return fmt.Errorf("check title: %w", err)
			}
			if exists {
				return fmt.Errorf("a slot with this title already exists: %w", model.ErrConflict)
			}
			slot.Title = *patch.Title
		}
		if patch.Description != nil {
			slot.Description = *patch.Description
		}
		if patch.StartTime != nil {
			slot.StartTime = *patch.StartTime
		}
		if patch.EndTime != nil {
			slot.EndTime = *patch.EndTime
		}
		if !slot.StartTime.Before(slot.EndTime) {
			return fmt.Errorf("start time must be before end time: %w", model.ErrInvalidState)
		}
		if patch.Status != nil {
			slot.Status = *patch.Status
		}

		if err := s.slotRepo.Update(ctx, slot); err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated",
		zap.String("slot_id", slotID.String()),
		zap.String("owner_id", callerID),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// Delete removes a slot. Deleting a slot that is part of a pending swap is
// a conflict; the check and the delete run in one transaction so a
// concurrent proposal cannot slip between them.
func (s *SlotService) Delete(ctx context.Context, callerID string, slotID uuid.UUID) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		slot, err := s.slotRepo.GetForUpdate(ctx, slotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return model.ErrNotFound
		}
		if slot.OwnerID != callerID {
			return model.ErrForbidden
		}
		if slot.Status == model.SlotStatusSwapPending {
			return fmt.Errorf("slot is part of an active swap request: %w", model.ErrConflict)
		}
		return s.slotRepo.Delete(ctx, slotID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.String("owner_id", callerID),
	)

	return nil
}
