package notify

import (
	"context"
	"testing"

	"github.com/kozuki35/hot-desking/internal/events"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSubject(t *testing.T) {
	testCases := []struct {
		eventType string
		want      string
	}{
		{events.BookingCreated, "Desk booked for 2024-01-02 (morning)"},
		{events.BookingCancelled, "Booking cancelled for 2024-01-02 (morning)"},
		{events.BookingUpdated, "Booking updated for 2024-01-02 (morning)"},
		{events.BookingArchived, "Booking archived for 2024-01-02"},
		{"booking_moved", "Booking booking_moved"},
	}

	for _, tc := range testCases {
		t.Run(tc.eventType, func(t *testing.T) {
			got := Subject(events.BookingEvent{Type: tc.eventType, Date: "2024-01-02", TimeSlot: "morning"})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSender_LogsNotification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	err := sender.Send(context.Background(), events.BookingEvent{Type: events.BookingCreated, BookingID: "b-1", UserID: "u-1"})

	assert.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "u-1", logs.All()[0].ContextMap()["user_id"])
}
