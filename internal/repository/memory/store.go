// Package memory keeps slots and swap requests in process memory behind a
// store-wide mutex. It backs STORE=memory mode and the service tests; the
// mutex gives transactional closures the same serializability the Postgres
// repositories get from row locks.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KrishTanna28/SlotSwapper/internal/model"
)

type txKey struct{}

type Store struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]model.Slot
	requests map[uuid.UUID]model.SwapRequest
}

func NewStore() *Store {
	return &Store{
		slots:    make(map[uuid.UUID]model.Slot),
		requests: make(map[uuid.UUID]model.SwapRequest),
	}
}

func (s *Store) Slots() *SlotRepository {
	return &SlotRepository{store: s}
}

func (s *Store) SwapRequests() *SwapRequestRepository {
	return &SwapRequestRepository{store: s}
}

// WithinTx serializes fn against every other store operation and restores
// the pre-transaction snapshot when fn fails, so a failed transaction
// leaves no partial state behind.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slots := maps.Clone(s.slots)
	requests := maps.Clone(s.requests)

	if err := fn(context.WithValue(ctx, txKey{}, struct{}{})); err != nil {
		s.slots = slots
		s.requests = requests
		return err
	}
	return nil
}

// lock acquires the store mutex unless ctx already runs inside WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
