// Package worker runs the background jobs of the booking service: the
// archive sweep and the notification consumer.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/kozuki35/hot-desking/internal/domain"
	"github.com/kozuki35/hot-desking/internal/events"
	"go.uber.org/zap"
)

type Archiver interface {
	ArchivePastBookings(ctx context.Context) ([]domain.Booking, error)
}

type Notifier interface {
	Send(ctx context.Context, event events.BookingEvent) error
}

// SweepArchive archives past bookings once right away and then on every
// tick until ctx is done.
func SweepArchive(ctx context.Context, archiver Archiver, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		archiveOnce(ctx, archiver, log)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func archiveOnce(ctx context.Context, archiver Archiver, log *zap.Logger) {
	archived, err := archiver.ArchivePastBookings(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("archive sweep failed", zap.Error(err))
		}
		return
	}
	if len(archived) > 0 {
		log.Info("archived past bookings", zap.Int("count", len(archived)))
	}
}

// Notify feeds every event from sub to notifier until ctx is done. A failed
// delivery is logged and skipped so one bad recipient does not stall the
// topic.
func Notify(ctx context.Context, sub events.Subscriber, notifier Notifier, log *zap.Logger) error {
	err := sub.Consume(ctx, func(ctx context.Context, event events.BookingEvent) error {
		if err := notifier.Send(ctx, event); err != nil {
			log.Warn("notification failed", zap.String("event_id", event.ID), zap.Error(err))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
