package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kozuki35/hot-desking/config"
	"github.com/kozuki35/hot-desking/internal/domain"
	"go.uber.org/zap"
)

const (
	BookingCreated   = "booking_created"
	BookingCancelled = "booking_cancelled"
	BookingUpdated   = "booking_updated"
	BookingArchived  = "booking_archived"
)

type BookingEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	DeskID     string    `json:"desk_id"`
	Date       string    `json:"booking_date"`
	TimeSlot   string    `json:"time_slot"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b domain.Booking) BookingEvent {
	return BookingEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		BookingID:  b.ID,
		UserID:     b.UserID,
		DeskID:     b.DeskID,
		Date:       b.BookingDate.String(),
		TimeSlot:   b.TimeSlot.String(),
		Status:     string(b.Status),
		OccurredAt: time.Now().UTC(),
	}
}

func Decode(data []byte) (BookingEvent, error) {
	var event BookingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event: %w", err)
	}
	if event.Type == "" || event.BookingID == "" {
		return BookingEvent{}, fmt.Errorf("decode booking event: missing type or booking id")
	}
	return event, nil
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

type Handler func(ctx context.Context, event BookingEvent) error

// Subscriber delivers events from one topic until ctx is done or the
// handler fails.
type Subscriber interface {
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// NewPublisher builds the publisher for the configured driver.
func NewPublisher(cfg config.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case config.EventsDriverKafka:
		return NewKafkaProducer(cfg.Kafka.Brokers, log), nil
	case config.EventsDriverNATS:
		return NewNATSBus(cfg.NATS.URL, log)
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}

// NewSubscriber builds a consumer of topic for the configured driver.
func NewSubscriber(cfg config.EventsConfig, topic string, log *zap.Logger) (Subscriber, error) {
	switch cfg.Driver {
	case config.EventsDriverKafka:
		return NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, topic, log), nil
	case config.EventsDriverNATS:
		bus, err := NewNATSBus(cfg.NATS.URL, log)
		if err != nil {
			return nil, err
		}
		return bus.Subscription(topic, cfg.NATS.Queue), nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}
