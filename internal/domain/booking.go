package domain

import "time"

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusArchived  BookingStatus = "archived"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusActive, BookingStatusCancelled, BookingStatusArchived:
		return true
	}
	return false
}

// Booking is one user's claim on a desk for one slot of one day.
type Booking struct {
	ID          string
	UserID      string
	DeskID      string
	BookingDate Date
	TimeSlot    TimeSlot
	Status      BookingStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (b Booking) Active() bool {
	return b.Status == BookingStatusActive
}

// BookingView is a booking joined with the names an admin listing shows.
type BookingView struct {
	Booking
	UserFirstName string
	UserLastName  string
	DeskCode      string
	DeskName      string
	DeskLocation  string
}

func (v BookingView) UserFullName() string {
	return v.UserFirstName + " " + v.UserLastName
}
