package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

type SlotRepository struct {
	store *Store
}

func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	defer r.store.lock(ctx)()

	ts := now()
	slot.CreatedAt = ts
	slot.UpdatedAt = ts
	r.store.slots[slot.ID] = *slot
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	defer r.store.lock(ctx)()

	slot, ok := r.store.slots[id]
	if !ok {
		return nil, nil
	}
	return &slot, nil
}

// GetForUpdate matches the Postgres repository's signature. The store
// mutex held by WithinTx already excludes concurrent writers.
func (r *SlotRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	return r.GetByID(ctx, id)
}

func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	defer r.store.lock(ctx)()

	var slots []*model.Slot
	for _, slot := range r.store.slots {
		if slot.OwnerID == ownerID {
			s := slot
			slots = append(slots, &s)
		}
	}
	sortByStart(slots)
	return slots, nil
}

func (r *SlotRepository) ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error) {
	defer r.store.lock(ctx)()

	var slots []*model.Slot
	for _, slot := range r.store.slots {
		if slot.Status == model.SlotStatusSwappable && slot.OwnerID != excludeOwnerID {
			s := slot
			slots = append(slots, &s)
		}
	}
	sortByStart(slots)
	return slots, nil
}

func (r *SlotRepository) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	defer r.store.lock(ctx)()

	for _, slot := range r.store.slots {
		if slot.OwnerID == ownerID && slot.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.slots[slot.ID]; !ok {
		return model.ErrNotFound
	}
	slot.UpdatedAt = now()
	r.store.slots[slot.ID] = *slot
	return nil
}

func (r *SlotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error {
	defer r.store.lock(ctx)()

	slot, ok := r.store.slots[id]
	if !ok || slot.Status != from {
		return model.ErrInvalidState
	}
	slot.Status = to
	slot.UpdatedAt = now()
	r.store.slots[id] = slot
	return nil
}

func (r *SlotRepository) SetOwnerAndStatus(ctx context.Context, id uuid.UUID, ownerID string, status model.SlotStatus) error {
	defer r.store.lock(ctx)()

	slot, ok := r.store.slots[id]
	if !ok {
		return model.ErrNotFound
	}
	slot.OwnerID = ownerID
	slot.Status = status
	slot.UpdatedAt = now()
	r.store.slots[id] = slot
	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.slots[id]; !ok {
		return model.ErrNotFound
	}
	delete(r.store.slots, id)
	return nil
}

func sortByStart(slots []*model.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}
