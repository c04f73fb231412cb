package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/realtime"
)

// ErrInvalidInterval indicates a malformed or past slot interval.
var ErrInvalidInterval = errors.New("claim: invalid slot interval")

// ErrHandleMismatch indicates a claim handle that exists but does not cover
// the organizer and interval being booked.
var ErrHandleMismatch = errors.New("claim: handle does not match booking")

// DefaultTTL bounds how long an abandoned claim can shadow a slot. Renewal
// is deliberately unsupported; clients re-claim instead, which keeps
// worst-case staleness at one TTL.
const DefaultTTL = 30 * time.Second

// Publisher is the slice of the real-time channel the coordinator needs.
// Delivery is best-effort; correctness never depends on it.
type Publisher interface {
	Broadcast(event realtime.Event)
	SendTo(clientID string, event realtime.Event)
}

// AppointmentSource supplies the booked appointments a claim request is
// revalidated against.
type AppointmentSource interface {
	BookedOverlapping(ctx context.Context, organizerID int64, from, to time.Time) ([]model.Appointment, error)
}

// Coordinator brokers short-lived exclusive claims over slot intervals.
// It narrows the race window before booking; the transactional check in the
// booking service is the final authority, so losing coordinator state (a
// restart) costs availability accuracy, never correctness.
type Coordinator struct {
	store        Store
	appointments AppointmentSource
	publisher    Publisher
	ttl          time.Duration
	now          func() time.Time
	logger       *zap.Logger
}

func NewCoordinator(store Store, appointments AppointmentSource, publisher Publisher, ttl time.Duration, logger *zap.Logger) *Coordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Coordinator{
		store:        store,
		appointments: appointments,
		publisher:    publisher,
		ttl:          ttl,
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock replaces the coordinator's clock, for tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// TTL returns the claim lifetime.
func (c *Coordinator) TTL() time.Duration {
	return c.ttl
}

// Store exposes the claim store for read-side slot marking.
func (c *Coordinator) Store() Store {
	return c.store
}

// RequestClaim grants exclusivity over the interval to the claimant, first
// come first served. The interval is revalidated against currently booked
// appointments before the store's check-and-set. A grant broadcasts to all
// subscribers; a denial goes to the requester alone.
func (c *Coordinator) RequestClaim(ctx context.Context, organizerID int64, slotStart, slotEnd time.Time, claimantID string) (*model.SlotClaim, error) {
	now := c.now()
	if !slotStart.Before(slotEnd) || slotStart.Before(now) {
		return nil, ErrInvalidInterval
	}

	booked, err := c.appointments.BookedOverlapping(ctx, organizerID, slotStart, slotEnd)
	if err != nil {
		return nil, fmt.Errorf("revalidate slot: %w", err)
	}
	if len(booked) > 0 {
		c.deny(claimantID, "slot no longer available")
		return nil, ErrContended
	}

	cl := model.SlotClaim{
		Handle:      uuid.New(),
		OrganizerID: organizerID,
		SlotStart:   slotStart,
		SlotEnd:     slotEnd,
		ClaimantID:  claimantID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(c.ttl),
	}

	if err := c.store.Acquire(ctx, cl); err != nil {
		if errors.Is(err, ErrContended) {
			c.deny(claimantID, "slot is claimed by another invitee")
			return nil, err
		}
		return nil, fmt.Errorf("acquire claim: %w", err)
	}

	c.logger.Info("Claim granted",
		zap.Int64("organizer_id", organizerID),
		zap.Time("slot_start", slotStart),
		zap.String("claimant_id", claimantID),
		zap.Time("expires_at", cl.ExpiresAt),
	)

	granted := realtime.ClaimGrantedPayload{
		OrganizerID: organizerID,
		SlotStart:   slotStart,
		SlotEnd:     slotEnd,
		ExpiresAt:   cl.ExpiresAt,
	}
	c.publisher.Broadcast(realtime.Event{Type: realtime.EventClaimGranted, Payload: granted})

	withHandle := granted
	withHandle.Handle = &cl.Handle
	c.publisher.SendTo(claimantID, realtime.Event{Type: realtime.EventClaimGranted, Payload: withHandle})

	return &cl, nil
}

// ReleaseClaim abandons a claim. Idempotent: releasing an expired, converted
// or unknown handle is a no-op.
func (c *Coordinator) ReleaseClaim(ctx context.Context, handle uuid.UUID) error {
	if err := c.store.Release(ctx, handle); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// Validate checks a claim handle ahead of booking conversion. An unknown
// handle returns (nil, nil): after a coordinator restart every issued handle
// is gone and the transactional conflict check has to carry the request
// alone. An expired handle fails with ErrExpired; a live handle that covers
// a different organizer or interval fails with ErrHandleMismatch.
func (c *Coordinator) Validate(ctx context.Context, handle uuid.UUID, organizerID int64, slotStart, slotEnd time.Time) (*model.SlotClaim, error) {
	cl, err := c.store.Get(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		c.logger.Warn("Unknown claim handle, deferring to transactional check",
			zap.String("handle", handle.String()),
			zap.Int64("organizer_id", organizerID),
		)
		return nil, nil
	}
	if errors.Is(err, ErrExpired) {
		// Logged distinctly from contention so TTL tuning stays diagnosable.
		c.logger.Info("Claim handle expired",
			zap.String("handle", handle.String()),
			zap.Int64("organizer_id", organizerID),
		)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}

	if cl.OrganizerID != organizerID || !cl.SlotStart.Equal(slotStart) || !cl.SlotEnd.Equal(slotEnd) {
		return nil, ErrHandleMismatch
	}
	return cl, nil
}

func (c *Coordinator) deny(claimantID, reason string) {
	c.publisher.SendTo(claimantID, realtime.Event{
		Type:    realtime.EventClaimDenied,
		Payload: realtime.ClaimDeniedPayload{Reason: reason},
	})
}
