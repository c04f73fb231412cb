package claim

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/model"
)

// MemoryStore is the in-process claim store used by single-instance
// deployments. Claims are bucketed per organizer under their own lock so
// claim traffic for unrelated organizers proceeds in parallel. Expiry is
// evaluated lazily on every access and reaped by Sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[int64]*bucket
	owner   map[uuid.UUID]int64 // handle -> organizer, for handle-only lookups

	now func() time.Time
}

type bucket struct {
	mu     sync.Mutex
	claims map[uuid.UUID]model.SlotClaim
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[int64]*bucket),
		owner:   make(map[uuid.UUID]int64),
		now:     time.Now,
	}
}

// WithClock replaces the store's clock, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func (s *MemoryStore) bucketFor(organizerID int64, create bool) *bucket {
	s.mu.RLock()
	b := s.buckets[organizerID]
	s.mu.RUnlock()
	if b != nil || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b = s.buckets[organizerID]; b == nil {
		b = &bucket{claims: make(map[uuid.UUID]model.SlotClaim)}
		s.buckets[organizerID] = b
	}
	return b
}

// Acquire grants the claim iff no live claim overlaps its interval.
// The per-organizer lock makes the check-and-set atomic; first come wins.
func (s *MemoryStore) Acquire(ctx context.Context, c model.SlotClaim) error {
	b := s.bucketFor(c.OrganizerID, true)
	now := s.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	for handle, existing := range b.claims {
		if existing.IsExpired(now) {
			delete(b.claims, handle)
			s.forget(handle)
			continue
		}
		if existing.Overlaps(c.SlotStart, c.SlotEnd) {
			return ErrContended
		}
	}

	b.claims[c.Handle] = c

	s.mu.Lock()
	s.owner[c.Handle] = c.OrganizerID
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, handle uuid.UUID) (*model.SlotClaim, error) {
	s.mu.RLock()
	organizerID, ok := s.owner[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	b := s.bucketFor(organizerID, false)
	if b == nil {
		return nil, ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.claims[handle]
	if !ok {
		return nil, ErrNotFound
	}
	if c.IsExpired(s.now()) {
		delete(b.claims, handle)
		s.forget(handle)
		return nil, ErrExpired
	}
	return &c, nil
}

func (s *MemoryStore) Release(ctx context.Context, handle uuid.UUID) error {
	s.mu.RLock()
	organizerID, ok := s.owner[handle]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	b := s.bucketFor(organizerID, false)
	if b == nil {
		return nil
	}

	b.mu.Lock()
	delete(b.claims, handle)
	b.mu.Unlock()

	s.forget(handle)
	return nil
}

func (s *MemoryStore) LiveForRange(ctx context.Context, organizerID int64, from, to time.Time) ([]model.SlotClaim, error) {
	b := s.bucketFor(organizerID, false)
	if b == nil {
		return nil, nil
	}
	now := s.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	var live []model.SlotClaim
	for handle, c := range b.claims {
		if c.IsExpired(now) {
			delete(b.claims, handle)
			s.forget(handle)
			continue
		}
		if c.Overlaps(from, to) {
			live = append(live, c)
		}
	}
	return live, nil
}

// Sweep reaps expired claims across all organizers.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.RLock()
	buckets := make([]*bucket, 0, len(s.buckets))
	for _, b := range s.buckets {
		buckets = append(buckets, b)
	}
	s.mu.RUnlock()

	now := s.now()
	removed := 0
	for _, b := range buckets {
		b.mu.Lock()
		for handle, c := range b.claims {
			if c.IsExpired(now) {
				delete(b.claims, handle)
				s.forget(handle)
				removed++
			}
		}
		b.mu.Unlock()
	}
	return removed, nil
}

func (s *MemoryStore) forget(handle uuid.UUID) {
	s.mu.Lock()
	delete(s.owner, handle)
	s.mu.Unlock()
}
