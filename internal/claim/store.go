package claim

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/slotwise/internal/model"
)

// ErrContended is returned when a live claim already overlaps the requested
// interval for the organizer.
var ErrContended = errors.New("claim: interval already claimed")

// ErrExpired is returned when a claim handle is used after its TTL.
var ErrExpired = errors.New("claim: handle expired")

// ErrNotFound is returned when a claim handle is unknown to the store.
// After a coordinator restart every previously issued handle is unknown;
// callers fall through to the transactional booking check in that case.
var ErrNotFound = errors.New("claim: handle not found")

// Store holds live slot claims with TTL semantics. Acquire is an atomic
// check-and-set per organizer: it succeeds iff no live claim overlaps the
// requested interval, so unrelated organizers never contend with each other.
type Store interface {
	// Acquire inserts the claim or fails with ErrContended.
	Acquire(ctx context.Context, c model.SlotClaim) error

	// Get returns the claim for the handle. ErrNotFound for unknown handles,
	// ErrExpired for handles past their TTL.
	Get(ctx context.Context, handle uuid.UUID) (*model.SlotClaim, error)

	// Release removes the claim. Idempotent: releasing an unknown, expired or
	// already-released handle is a no-op.
	Release(ctx context.Context, handle uuid.UUID) error

	// LiveForRange returns the live claims overlapping [from, to) for the
	// organizer, used to mark resolved slots.
	LiveForRange(ctx context.Context, organizerID int64, from, to time.Time) ([]model.SlotClaim, error)

	// Sweep drops expired claims and reports how many were removed. Stores
	// with native TTL expiry may report zero.
	Sweep(ctx context.Context) (int, error)
}
