package model

import (
	"time"

	"github.com/google/uuid"
)

// SlotClaim is a short-lived exclusivity grant over one slot interval.
// Claims live only in the coordinator's store (memory or Redis), never in
// Postgres; the transactional check at booking time is the final authority.
type SlotClaim struct {
	Handle      uuid.UUID `json:"handle"`
	OrganizerID int64     `json:"organizer_id"`
	SlotStart   time.Time `json:"slot_start"`
	SlotEnd     time.Time `json:"slot_end"`
	ClaimantID  string    `json:"claimant_id"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the claim's TTL has passed at the given instant.
func (c *SlotClaim) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsLive reports whether the claim still grants exclusivity.
func (c *SlotClaim) IsLive(now time.Time) bool {
	return !c.IsExpired(now)
}

// Overlaps tests the claim's interval against [start, end) with half-open
// semantics.
func (c *SlotClaim) Overlaps(start, end time.Time) bool {
	return c.SlotStart.Before(end) && start.Before(c.SlotEnd)
}
