// Package model holds the JSON shapes of the REST API, shared by the server
// and the Go client.
package model

import "time"

type TimeSlot struct {
	Value     string `json:"value"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

type Booking struct {
	ID          string    `json:"_id"`
	User        string    `json:"user"`
	Desk        string    `json:"desk"`
	BookingDate string    `json:"booking_date"`
	TimeSlot    TimeSlot  `json:"time_slot"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserRef struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type DeskRef struct {
	ID       string `json:"_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// BookingView is a booking with its user and desk expanded.
type BookingView struct {
	ID          string    `json:"_id"`
	User        UserRef   `json:"user"`
	Desk        DeskRef   `json:"desk"`
	BookingDate string    `json:"booking_date"`
	TimeSlot    TimeSlot  `json:"time_slot"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"_id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Desk struct {
	ID          string    `json:"_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Bookings    []Booking `json:"bookings,omitempty"`
}

type SignUpRequest struct {
	FirstName string `json:"firstName" binding:"required,personname"`
	LastName  string `json:"lastName" binding:"required,personname"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ProfileRequest struct {
	FirstName string `json:"firstName" binding:"omitempty,personname"`
	LastName  string `json:"lastName" binding:"omitempty,personname"`
	Password  string `json:"password" binding:"omitempty,password"`
}

type UpdateUserRequest struct {
	FirstName string `json:"firstName" binding:"omitempty,personname"`
	LastName  string `json:"lastName" binding:"omitempty,personname"`
	Status    string `json:"status" binding:"omitempty,oneof=active inactive"`
	Role      string `json:"role" binding:"omitempty,oneof=admin user"`
}

type UserResponse struct {
	User User `json:"user"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}

type DeskRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Location    string `json:"location" binding:"required"`
	Status      string `json:"status" binding:"required,oneof=draft active archived"`
	Description string `json:"description"`
}

type DeskResponse struct {
	Desk Desk `json:"desk"`
}

type DesksResponse struct {
	Desks []Desk `json:"desks"`
}

type CreateBookingRequest struct {
	DeskID         string   `json:"deskId" binding:"required"`
	BookingDate    string   `json:"bookingDate" binding:"required,datetime=2006-01-02"`
	TimeSlotValues []string `json:"timeSlotValues" binding:"required,min=1,dive,slot"`
}

// UpdateBookingRequest mirrors the edit form; user and desk are accepted
// but cannot be changed.
type UpdateBookingRequest struct {
	User        string    `json:"user"`
	Desk        string    `json:"desk"`
	BookingDate string    `json:"booking_date" binding:"omitempty,datetime=2006-01-02"`
	TimeSlot    *TimeSlot `json:"time_slot"`
	Status      string    `json:"status" binding:"omitempty,oneof=active cancelled archived"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

// BookingsResponse carries every booking a create request made.
type BookingsResponse struct {
	Booking []Booking `json:"booking"`
}

type BookingListResponse struct {
	Bookings []Booking `json:"bookings"`
}

type BookingViewsResponse struct {
	Bookings []BookingView `json:"bookings"`
}

type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
