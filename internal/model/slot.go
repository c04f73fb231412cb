package model

import "time"

// Slot is a candidate bookable interval computed from recurring rules,
// exceptions, booked appointments and live claims. It is a view, recomputed
// per request, never persisted.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"` // half-open [start, end)
	Available bool      `json:"available"`
}
