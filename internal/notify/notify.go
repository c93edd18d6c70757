package notify

import (
	"context"

	"github.com/kozuki35/hot-desking/internal/events"
	"go.uber.org/zap"
)

// Sender turns booking events into user notifications. Delivery is a log
// line until a mail provider is configured.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event events.BookingEvent) error {
	s.log.Info("notify user",
		zap.String("user_id", event.UserID),
		zap.String("subject", Subject(event)),
		zap.String("booking_id", event.BookingID),
		zap.String("desk_id", event.DeskID),
	)
	return nil
}

func Subject(event events.BookingEvent) string {
	switch event.Type {
	case events.BookingCreated:
		return "Desk booked for " + event.Date + " (" + event.TimeSlot + ")"
	case events.BookingCancelled:
		return "Booking cancelled for " + event.Date + " (" + event.TimeSlot + ")"
	case events.BookingUpdated:
		return "Booking updated for " + event.Date + " (" + event.TimeSlot + ")"
	case events.BookingArchived:
		return "Booking archived for " + event.Date
	default:
		return "Booking " + event.Type
	}
}
