package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

// SwapService coordinates the two-party negotiation protocol. Its two
// multi-record mutations (propose, respond) each run in a single
// transaction with both slot rows locked, so concurrent proposals or
// responses against a shared slot serialize and the loser observes the
// committed state.
type SwapService struct {
	tx       TxManager
	slotRepo SlotRepository
	swapRepo SwapRequestRepository
	notifier Notifier
	logger   *zap.Logger
}

func NewSwapService(
	tx TxManager,
	slotRepo SlotRepository,
	swapRepo SwapRequestRepository,
	notifier Notifier,
	logger *zap.Logger,
) *SwapService {
	return &SwapService{
		tx:       tx,
		slotRepo: slotRepo,
		swapRepo: swapRepo,
		notifier: notifier,
		logger:   logger,
	}
}

// lockSlots reads both slots under row locks in id order, so two
// transactions touching the same pair never deadlock.
func (s *SwapService) lockSlots(ctx context.Context, firstID, secondID uuid.UUID) (*model.Slot, *model.Slot, error) {
	a, b := firstID, secondID
	swapped := bytes.Compare(a[:], b[:]) > 0
	if swapped {
		a, b = b, a
	}

	first, err := s.slotRepo.GetForUpdate(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.slotRepo.GetForUpdate(ctx, b)
	if err != nil {
		return nil, nil, err
	}

	if swapped {
		first, second = second, first
	}
	return first, second, nil
}

// ProposeSwap creates a PENDING swap request for the caller's slot against
// another participant's slot and pins both slots to SWAP_PENDING. The
// ledger entry and both state changes commit as one unit; the responder is
// notified only after the commit.
func (s *SwapService) ProposeSwap(ctx context.Context, requesterID string, mySlotID, theirSlotID uuid.UUID) (*model.SwapRequest, error) {
	if mySlotID == theirSlotID {
		return nil, fmt.Errorf("cannot swap a slot with itself: %w", model.ErrInvalidState)
	}

	var req *model.SwapRequest

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		mySlot, theirSlot, err := s.lockSlots(ctx, mySlotID, theirSlotID)
		if err != nil {
			return err
		}
		if mySlot == nil || theirSlot == nil {
			return fmt.Errorf("one or both slots not found: %w", model.ErrNotFound)
		}

		// Re-validated under the locks: a concurrent proposal that won the
		// race has already moved a slot off SWAPPABLE.
		if mySlot.OwnerID != requesterID ||
			mySlot.Status != model.SlotStatusSwappable ||
			theirSlot.Status != model.SlotStatusSwappable ||
			theirSlot.OwnerID == requesterID {
			return fmt.Errorf("one or both slots are not available for swapping: %w", model.ErrInvalidState)
		}

		req = &model.SwapRequest{
			ID:              uuid.New(),
			RequesterID:     requesterID,
			ResponderID:     theirSlot.OwnerID,
			RequesterSlotID: mySlot.ID,
			ResponderSlotID: theirSlot.ID,
			Status:          model.SwapStatusPending,
		}
		if err := s.swapRepo.Create(ctx, req); err != nil {
			return err
		}

		if err := s.slotRepo.UpdateStatus(ctx, mySlot.ID, model.SlotStatusSwappable, model.SlotStatusSwapPending); err != nil {
			return fmt.Errorf("pin requester slot: %w", err)
		}
		if err := s.slotRepo.UpdateStatus(ctx, theirSlot.ID, model.SlotStatusSwappable, model.SlotStatusSwapPending); err != nil {
			return fmt.Errorf("pin responder slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap request created",
		zap.String("request_id", req.ID.String()),
		zap.String("requester_id", req.RequesterID),
		zap.String("responder_id", req.ResponderID),
	)

	s.publish(req.ResponderID, model.Notification{
		Kind:          model.NotificationNewSwapRequest,
		SwapRequestID: req.ID,
		Message:       "You have a new swap request",
	})

	return req, nil
}

// RespondToSwap resolves a pending request. ACCEPT exchanges the two
// slots' owners and parks both at BUSY; REJECT releases both back to
// SWAPPABLE. Either way the ledger transition and the slot mutations are
// one atomic unit, and the requester is notified after commit.
func (s *SwapService) RespondToSwap(ctx context.Context, responderID string, requestID uuid.UUID, action model.SwapAction) (*model.SwapRequest, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q: %w", action, model.ErrInvalidState)
	}

	var req *model.SwapRequest

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		// Lock order is request first, then slots, matching ProposeSwap's
		// slot-only locking so the hierarchies never cross.
		req, err = s.swapRepo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("swap request not found: %w", model.ErrNotFound)
		}
		if req.ResponderID != responderID {
			return fmt.Errorf("not authorized to respond to this request: %w", model.ErrForbidden)
		}
		if req.Status != model.SwapStatusPending {
			return fmt.Errorf("swap request is already %s: %w", req.Status, model.ErrInvalidState)
		}

		requesterSlot, responderSlot, err := s.lockSlots(ctx, req.RequesterSlotID, req.ResponderSlotID)
		if err != nil {
			return err
		}
		if requesterSlot == nil || responderSlot == nil {
			return fmt.Errorf("one or both slots not found: %w", model.ErrNotFound)
		}

		if action == model.SwapActionReject {
			if err := s.slotRepo.UpdateStatus(ctx, requesterSlot.ID, model.SlotStatusSwapPending, model.SlotStatusSwappable); err != nil {
				return fmt.Errorf("release requester slot: %w", err)
			}
			if err := s.slotRepo.UpdateStatus(ctx, responderSlot.ID, model.SlotStatusSwapPending, model.SlotStatusSwappable); err != nil {
				return fmt.Errorf("release responder slot: %w", err)
			}
			if err := s.swapRepo.UpdateStatus(ctx, req.ID, model.SwapStatusPending, model.SwapStatusRejected); err != nil {
				return err
			}
			req.Status = model.SwapStatusRejected
			return nil
		}

		// Accept: the owners change hands and both slots leave the market.
		if err := s.slotRepo.SetOwnerAndStatus(ctx, requesterSlot.ID, responderSlot.OwnerID, model.SlotStatusBusy); err != nil {
			return fmt.Errorf("transfer requester slot: %w", err)
		}
		if err := s.slotRepo.SetOwnerAndStatus(ctx, responderSlot.ID, requesterSlot.OwnerID, model.SlotStatusBusy); err != nil {
			return fmt.Errorf("transfer responder slot: %w", err)
		}
		if err := s.swapRepo.UpdateStatus(ctx, req.ID, model.SwapStatusPending, model.SwapStatusAccepted); err != nil {
			return err
		}
		req.Status = model.SwapStatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap request resolved",
		zap.String("request_id", req.ID.String()),
		zap.String("responder_id", responderID),
		zap.String("status", string(req.Status)),
	)

	if req.Status == model.SwapStatusAccepted {
		s.publish(req.RequesterID, model.Notification{
			Kind:          model.NotificationSwapAccepted,
			SwapRequestID: req.ID,
			Message:       "Your swap request was accepted!",
		})
	} else {
		s.publish(req.RequesterID, model.Notification{
			Kind:          model.NotificationSwapRejected,
			SwapRequestID: req.ID,
			Message:       "Your swap request was rejected",
		})
	}

	return req, nil
}

// ListForParticipant returns the caller's negotiation history, both sides,
// newest first.
func (s *SwapService) ListForParticipant(ctx context.Context, callerID string) ([]*model.SwapRequest, error) {
	return s.swapRepo.ListForParticipant(ctx, callerID)
}

// publish is fire-and-forget: a slow or absent recipient never affects the
// outcome of the committed operation.
func (s *SwapService) publish(recipientID string, n model.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(recipientID, n)
}
