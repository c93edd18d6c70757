package domain

import "time"

type DeskStatus string

const (
	DeskStatusDraft    DeskStatus = "draft"
	DeskStatusActive   DeskStatus = "active"
	DeskStatusArchived DeskStatus = "archived"
)

func (s DeskStatus) Valid() bool {
	switch s {
	case DeskStatusDraft, DeskStatusActive, DeskStatusArchived:
		return true
	}
	return false
}

type Desk struct {
	ID          string
	Code        string
	Name        string
	Location    string
	Status      DeskStatus
	Description string
	CreatedAt   time.Time
	// Bookings is only populated when desks are listed for a specific date.
	Bookings []Booking
}
