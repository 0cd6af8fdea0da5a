package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
	"github.com/KrishTanna28/SlotSwapper/internal/repository/base"
)

const swapColumns = "id, requester_id, responder_id, requester_slot_id, responder_slot_id, status, created_at, updated_at"

type SwapRequestRepository struct {
	db *base.DB
}

func NewSwapRequestRepository(db *base.DB) *SwapRequestRepository {
	return &SwapRequestRepository{db: db}
}

func scanSwapRequest(row pgx.Row) (*model.SwapRequest, error) {
	var req model.SwapRequest
	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.ResponderID,
		&req.RequesterSlotID,
		&req.ResponderSlotID,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create inserts a new swap request.
func (r *SwapRequestRepository) Create(ctx context.Context, req *model.SwapRequest) error {
	query := `
		INSERT INTO swap_requests (id, requester_id, responder_id, requester_slot_id, responder_slot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.db.Querier(ctx).QueryRow(
		ctx, query,
		req.ID,
		req.RequesterID,
		req.ResponderID,
		req.RequesterSlotID,
		req.ResponderSlotID,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create swap request: %w", err)
	}

	return nil
}

// GetByID returns the request or nil when it does not exist.
func (r *SwapRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM swap_requests WHERE id = $1`

	req, err := scanSwapRequest(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request by id: %w", err)
	}

	return req, nil
}

// GetForUpdate reads the request under a row lock. Only meaningful inside
// a transaction.
func (r *SwapRequestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.SwapRequest, error) {
	query := `SELECT ` + swapColumns + ` FROM swap_requests WHERE id = $1 FOR UPDATE`

	req, err := scanSwapRequest(r.db.Querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get swap request for update: %w", err)
	}

	return req, nil
}

// ListForParticipant returns every request where the user is requester or
// responder, newest first, with both slot snapshots resolved.
func (r *SwapRequestRepository) ListForParticipant(ctx context.Context, userID string) ([]*model.SwapRequest, error) {
	query := `
		SELECT
			sr.id, sr.requester_id, sr.responder_id, sr.requester_slot_id, sr.responder_slot_id,
			sr.status, sr.created_at, sr.updated_at,
			rs.id, rs.owner_id, rs.title, rs.description, rs.start_time, rs.end_time, rs.status, rs.created_at, rs.updated_at,
			ps.id, ps.owner_id, ps.title, ps.description, ps.start_time, ps.end_time, ps.status, ps.created_at, ps.updated_at
		FROM swap_requests sr
		LEFT JOIN slots rs ON rs.id = sr.requester_slot_id
		LEFT JOIN slots ps ON ps.id = sr.responder_slot_id
		WHERE sr.requester_id = $1 OR sr.responder_id = $1
		ORDER BY sr.created_at DESC
	`

	rows, err := r.db.Querier(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list swap requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.SwapRequest
	for rows.Next() {
		var req model.SwapRequest
		// Slot columns go through nullable holders: a resolved request can
		// outlive a deleted slot.
		var requesterSlot, responderSlot nullableSlot
		err := rows.Scan(
			&req.ID,
			&req.RequesterID,
			&req.ResponderID,
			&req.RequesterSlotID,
			&req.ResponderSlotID,
			&req.Status,
			&req.CreatedAt,
			&req.UpdatedAt,
			&requesterSlot.ID, &requesterSlot.OwnerID, &requesterSlot.Title, &requesterSlot.Description,
			&requesterSlot.StartTime, &requesterSlot.EndTime, &requesterSlot.Status,
			&requesterSlot.CreatedAt, &requesterSlot.UpdatedAt,
			&responderSlot.ID, &responderSlot.OwnerID, &responderSlot.Title, &responderSlot.Description,
			&responderSlot.StartTime, &responderSlot.EndTime, &responderSlot.Status,
			&responderSlot.CreatedAt, &responderSlot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		req.RequesterSlot = requesterSlot.slot()
		req.ResponderSlot = responderSlot.slot()
		requests = append(requests, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap requests: %w", err)
	}

	return requests, nil
}

type nullableSlot struct {
	ID          *uuid.UUID
	OwnerID     *string
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Status      *model.SlotStatus
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

func (n nullableSlot) slot() *model.Slot {
	if n.ID == nil {
		return nil
	}
	return &model.Slot{
		ID:          *n.ID,
		OwnerID:     *n.OwnerID,
		Title:       *n.Title,
		Description: *n.Description,
		StartTime:   *n.StartTime,
		EndTime:     *n.EndTime,
		Status:      *n.Status,
		CreatedAt:   *n.CreatedAt,
		UpdatedAt:   *n.UpdatedAt,
	}
}

// UpdateStatus resolves a request. The expected status in the WHERE clause
// makes terminal states immutable: once resolved, no transition matches.
func (r *SwapRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.SwapStatus) error {
	query := `
		UPDATE swap_requests
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	tag, err := r.db.Querier(ctx).Exec(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("update swap request status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return model.ErrInvalidState
	}

	return nil
}
