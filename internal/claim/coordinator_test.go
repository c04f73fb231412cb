package claim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/slotwise/slotwise/internal/model"
	"github.com/slotwise/slotwise/internal/realtime"
)

type fakePublisher struct {
	mu        sync.Mutex
	broadcast []realtime.Event
	direct    map[string][]realtime.Event
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{direct: make(map[string][]realtime.Event)}
}

func (p *fakePublisher) Broadcast(event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, event)
}

func (p *fakePublisher) SendTo(clientID string, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct[clientID] = append(p.direct[clientID], event)
}

func (p *fakePublisher) broadcasts() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.broadcast...)
}

func (p *fakePublisher) sentTo(clientID string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.direct[clientID]...)
}

type fakeAppointments struct {
	booked []model.Appointment
}

func (f *fakeAppointments) BookedOverlapping(ctx context.Context, organizerID int64, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.booked {
		if a.OrganizerID == organizerID && a.IsBooked() && a.Overlaps(from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTestCoordinator(t *testing.T, appts *fakeAppointments) (*Coordinator, *fakePublisher, *fakeClock) {
	t.Helper()
	clock := newFakeClock(claimBase.Add(-time.Hour))
	publisher := newFakePublisher()
	store := NewMemoryStore().WithClock(clock.Now)
	coord := NewCoordinator(store, appts, publisher, 30*time.Second, zap.NewNop()).WithClock(clock.Now)
	return coord, publisher, clock
}

func TestCoordinator_GrantBroadcastsWithoutHandle(t *testing.T) {
	coord, publisher, _ := newTestCoordinator(t, &fakeAppointments{})
	ctx := context.Background()

	cl, err := coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	require.NoError(t, err)
	require.NotNil(t, cl)
	assert.Equal(t, claimBase, cl.SlotStart)
	assert.Equal(t, 30*time.Second, cl.ExpiresAt.Sub(cl.IssuedAt))

	broadcasts := publisher.broadcasts()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, realtime.EventClaimGranted, broadcasts[0].Type)
	payload, ok := broadcasts[0].Payload.(realtime.ClaimGrantedPayload)
	require.True(t, ok)
	assert.Nil(t, payload.Handle, "broadcast copy must not leak the handle")

	direct := publisher.sentTo("session-a")
	require.Len(t, direct, 1)
	payload, ok = direct[0].Payload.(realtime.ClaimGrantedPayload)
	require.True(t, ok)
	require.NotNil(t, payload.Handle)
	assert.Equal(t, cl.Handle, *payload.Handle)
}

func TestCoordinator_FirstComeFirstServed(t *testing.T) {
	coord, publisher, _ := newTestCoordinator(t, &fakeAppointments{})
	ctx := context.Background()

	_, err := coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	require.NoError(t, err)

	// Overlapping interval from another session is denied, requester only.
	_, err = coord.RequestClaim(ctx, 1, claimBase.Add(15*time.Minute), claimBase.Add(45*time.Minute), "session-b")
	require.ErrorIs(t, err, ErrContended)

	denied := publisher.sentTo("session-b")
	require.Len(t, denied, 1)
	assert.Equal(t, realtime.EventClaimDenied, denied[0].Type)
	assert.Len(t, publisher.broadcasts(), 1, "denials are not broadcast")
}

func TestCoordinator_DeniesBookedInterval(t *testing.T) {
	appts := &fakeAppointments{booked: []model.Appointment{{
		OrganizerID: 1,
		SlotStart:   claimBase,
		SlotEnd:     claimBase.Add(30 * time.Minute),
		Status:      model.AppointmentStatusBooked,
	}}}
	coord, publisher, _ := newTestCoordinator(t, appts)

	_, err := coord.RequestClaim(context.Background(), 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	require.ErrorIs(t, err, ErrContended)
	require.Len(t, publisher.sentTo("session-a"), 1)
	assert.Empty(t, publisher.broadcasts())
}

func TestCoordinator_ExpiredClaimCanBeReclaimed(t *testing.T) {
	coord, _, clock := newTestCoordinator(t, &fakeAppointments{})
	ctx := context.Background()

	_, err := coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	require.NoError(t, err)

	_, err = coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-b")
	require.ErrorIs(t, err, ErrContended)

	// Claimant A abandons; after the 30s TTL the interval frees itself.
	clock.Advance(31 * time.Second)
	cl, err := coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-b")
	require.NoError(t, err)
	assert.Equal(t, "session-b", cl.ClaimantID)
}

func TestCoordinator_RejectsPastInterval(t *testing.T) {
	coord, _, clock := newTestCoordinator(t, &fakeAppointments{})
	clock.Advance(2 * time.Hour) // now past claimBase

	_, err := coord.RequestClaim(context.Background(), 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = coord.RequestClaim(context.Background(), 1, claimBase.Add(3*time.Hour), claimBase.Add(3*time.Hour), "session-a")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestCoordinator_ReleaseMakesIntervalClaimable(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, &fakeAppointments{})
	ctx := context.Background()

	cl, err := coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-a")
	require.NoError(t, err)

	require.NoError(t, coord.ReleaseClaim(ctx, cl.Handle))
	require.NoError(t, coord.ReleaseClaim(ctx, cl.Handle)) // idempotent

	_, err = coord.RequestClaim(ctx, 1, claimBase, claimBase.Add(30*time.Minute), "session-b")
	assert.NoError(t, err)
}

func TestCoordinator_Validate(t *testing.T) {
	coord, _, clock := newTestCoordinator(t, &fakeAppointments{})
	ctx := context.Background()
	slotEnd := claimBase.Add(30 * time.Minute)

	cl, err := coord.RequestClaim(ctx, 1, claimBase, slotEnd, "session-a")
	require.NoError(t, err)

	t.Run("live matching handle", func(t *testing.T) {
		got, err := coord.Validate(ctx, cl.Handle, 1, claimBase, slotEnd)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cl.Handle, got.Handle)
	})

	t.Run("mismatched interval", func(t *testing.T) {
		_, err := coord.Validate(ctx, cl.Handle, 1, claimBase.Add(time.Hour), claimBase.Add(90*time.Minute))
		assert.ErrorIs(t, err, ErrHandleMismatch)
	})

	t.Run("mismatched organizer", func(t *testing.T) {
		_, err := coord.Validate(ctx, cl.Handle, 2, claimBase, slotEnd)
		assert.ErrorIs(t, err, ErrHandleMismatch)
	})

	t.Run("unknown handle passes through", func(t *testing.T) {
		got, err := coord.Validate(ctx, uuid.New(), 1, claimBase, slotEnd)
		require.NoError(t, err)
		assert.Nil(t, got, "unknown handle defers to the transactional check")
	})

	t.Run("expired handle", func(t *testing.T) {
		clock.Advance(31 * time.Second)
		_, err := coord.Validate(ctx, cl.Handle, 1, claimBase, slotEnd)
		assert.ErrorIs(t, err, ErrExpired)
	})
}
