package model

import "time"

// Organizer is a professional offering bookable time through a public page.
type Organizer struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"` // IANA name, e.g. "Europe/Berlin"
	CreatedAt   time.Time `json:"created_at"`
}

// Location resolves the organizer's timezone, falling back to UTC.
func (o *Organizer) Location() *time.Location {
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
