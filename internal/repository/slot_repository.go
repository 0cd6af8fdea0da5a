package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
	"github.com/KrishTanna28/SlotSwapper/internal/repository/base"
)

const slotColumns = "id, owner_id, title, description, start_time, end_time, status, created_at, updated_at"

type SlotRepository struct {
	db *base.DB
}

func NewSlotRepository(db *base.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.OwnerID,
		&slot.Title,
		&slot.Description,
		&slot.StartTime,
		&slot.EndTime,
		&slot.Status,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts a new slot and fills in the generated timestamps.
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO slots (id, owner_id, title, description, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.Querier(ctx).QueryRow(
		ctx, query,
		slot.ID,
		slot.OwnerID,
		slot.Title,
		slot.Description,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID returns the slot or nil when it does not exist.
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetForUpdate reads the slot under a row lock. Only meaningful inside a
// transaction; the lock is held until commit or rollback.
func (r *SlotRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot for update: %w", err)
	}

	return slot, nil
}

// ListByOwner returns all slots of one participant, earliest first.
func (r *SlotRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE owner_id = $1 ORDER BY start_time`

	rows, err := r.db.Querier(ctx).Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list slots by owner: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

// ListSwappable returns the marketplace feed: every SWAPPABLE slot not
// owned by the caller.
func (r *SlotRepository) ListSwappable(ctx context.Context, excludeOwnerID string) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE status = $1 AND owner_id <> $2
		ORDER BY start_time
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, model.SlotStatusSwappable, excludeOwnerID)
	if err != nil {
		return nil, fmt.Errorf("list swappable slots: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// TitleExists checks for a duplicate slot title under the same owner.
func (r *SlotRepository) TitleExists(ctx context.Context, ownerID, title string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM slots WHERE owner_id = $1 AND title = $2)`

	var exists bool
	err := r.db.Querier(ctx).QueryRow(ctx, query, ownerID, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot title: %w", err)
	}

	return exists, nil
}

// Update persists owner-editable fields of the slot.
func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE slots
		SET title = $1, description = $2, start_time = $3, end_time = $4, status = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`

	err := r.db.Querier(ctx).QueryRow(
		ctx, query,
		slot.Title,
		slot.Description,
		slot.StartTime,
		slot.EndTime,
		slot.Status,
		slot.ID,
	).Scan(&slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// UpdateStatus moves the slot from one status to another. The expected
// status is part of the WHERE clause, so the precondition is re-checked
// atomically with the write; a stale expectation yields ErrInvalidState.
func (r *SlotRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SlotStatus) error {
	query := `
		UPDATE slots
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update slot status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrInvalidState
	}

	return nil
}

// SetOwnerAndStatus reassigns the slot as part of an accepted swap.
func (r *SlotRepository) SetOwnerAndStatus(ctx context.Context, id uuid.UUID, ownerID string, status model.SlotStatus) error {
	query := `
		UPDATE slots
		SET owner_id = $1, status = $2, updated_at = now()
		WHERE id = $3
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, ownerID, status, id)
	if err != nil {
		return fmt.Errorf("set slot owner: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}

// Delete removes the slot.
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
