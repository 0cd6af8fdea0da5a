package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

type SwapRequestRepository struct {
	store *Store
}

func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	defer r.store.lock(ctx)()

	ts := now()
	req.CreatedAt = ts
	req.UpdatedAt = ts

	stored := *req
	stored.RequesterSlot = nil
	stored.ResponderSlot = nil
	r.store.requests[req.ID] = stored
	return nil
}

func (r *SwapRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	defer r.store.lock(ctx)()

	req, ok := r.store.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *SwapRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *SwapRequestRepository) ListForParticipant(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	defer r.store.lock(ctx)()

	var requests []*model.SwapRequest
	for _, req := range r.store.requests {
		if req.RequesterID != userID && req.ResponderID != userID {
			continue
		}
		resolved := req
		if slot, ok := r.store.slots[req.RequesterSlotID]; ok {
			s := slot
			resolved.RequesterSlot = &s
		}
		if slot, ok := r.store.slots[req.ResponderSlotID]; ok {
			s := slot
			resolved.ResponderSlot = &s
		}
		requests = append(requests, &resolved)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (r *SwapRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SwapStatus) error {
	defer r.store.lock(ctx)()

	req, ok := r.store.requests[id]
	if !ok || req.Status != from {
		return model.ErrInvalidState
	}
	req.Status = to
	req.UpdatedAt = now()
	r.store.requests[id] = req
	return nil
}
