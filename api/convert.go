package api

import (
	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/pkg/model"
)

func toTimeSlot(slot domain.TimeSlot) model.TimeSlot {
	w := slot.Window()
	return model.TimeSlot{Value: slot.String(), StartTime: w.Start, EndTime: w.End}
}

func toBooking(b domain.Booking) model.Booking {
	return model.Booking{
		ID:          b.ID,
		User:        b.UserID,
		Desk:        b.DeskID,
		BookingDate: b.BookingDate.String(),
		TimeSlot:    toTimeSlot(b.TimeSlot),
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}

func toBookings(bs []domain.Booking) []model.Booking {
	out := make([]model.Booking, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBooking(b))
	}
	return out
}

func toBookingViews(vs []domain.BookingView) []model.BookingView {
	out := make([]model.BookingView, 0, len(vs))
	for _, v := range vs {
		out = append(out, model.BookingView{
			ID:          v.ID,
			User:        model.UserRef{ID: v.UserID, FirstName: v.UserFirstName, LastName: v.UserLastName},
			Desk:        model.DeskRef{ID: v.DeskID, Code: v.DeskCode, Name: v.DeskName, Location: v.DeskLocation},
			BookingDate: v.BookingDate.String(),
			TimeSlot:    toTimeSlot(v.TimeSlot),
			Status:      string(v.Status),
			CreatedAt:   v.CreatedAt,
		})
	}
	return out
}

func toUser(u *domain.User) model.User {
	return model.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
}

func toUsers(us []domain.User) []model.User {
	out := make([]model.User, 0, len(us))
	for i := range us {
		out = append(out, toUser(&us[i]))
	}
	return out
}

func toDesk(d *domain.Desk) model.Desk {
	desk := model.Desk{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Location:    d.Location,
		Status:      string(d.Status),
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
	}
	if d.Bookings != nil {
		desk.Bookings = toBookings(d.Bookings)
	}
	return desk
}

func toDesks(ds []domain.Desk) []model.Desk {
	out := make([]model.Desk, 0, len(ds))
	for i := range ds {
		out = append(out, toDesk(&ds[i]))
	}
	return out
}
