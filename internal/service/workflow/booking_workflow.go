package workflow

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/mq"
	"github.com/qs-lzh/cinema-booking/internal/service/domain"
)

// BookingWorkflow runs the booking engine and announces what happened.
// The booking outcome stands even if the announcement cannot be sent.
type BookingWorkflow struct {
	BookingService domain.BookingService
	publisher      EventPublisher
	clock          clockwork.Clock
	logger         *zap.Logger
}

func NewBookingWorkflow(bookingService domain.BookingService, publisher EventPublisher,
	clock clockwork.Clock, logger *zap.Logger) *BookingWorkflow {
	return &BookingWorkflow{
		BookingService: bookingService,
		publisher:      publisher,
		clock:          clock,
		logger:         logger,
	}
}

func (w *BookingWorkflow) Book(ctx context.Context, req domain.BookRequest) (*domain.BookResult, error) {
	result, err := w.BookingService.Book(ctx, req)
	if err != nil {
		return nil, err
	}

	event := mq.BookingEventMessage{
		ScreenID:   result.Screen.ID,
		Message:    result.Message(),
		OccurredAt: w.clock.Now(),
	}
	switch result.Status {
	case domain.BookStatusBooked:
		event.Type = mq.EventBookingConfirmed
		event.BookingID = result.Booking.ID
		event.UserName = result.Booking.UserName
		event.SeatNumber = result.Booking.SeatNumber
		event.Total = result.Quote.Total.StringFixed(2)
	case domain.BookStatusQueued:
		event.Type = mq.EventWaitlistJoined
		event.EntryID = result.WaitingEntry.ID
		event.UserName = result.WaitingEntry.UserName
	}
	w.publish(ctx, event)

	return result, nil
}

func (w *BookingWorkflow) Cancel(ctx context.Context, bookingID uint) (*domain.CancelResult, error) {
	result, err := w.BookingService.Cancel(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	now := w.clock.Now()
	w.publish(ctx, mq.BookingEventMessage{
		Type:       mq.EventBookingCancelled,
		ScreenID:   result.Screen.ID,
		BookingID:  result.Booking.ID,
		UserName:   result.Booking.UserName,
		SeatNumber: result.Booking.SeatNumber,
		Message:    result.Message(),
		OccurredAt: now,
	})
	if result.Status == domain.CancelStatusPromoted {
		w.publish(ctx, mq.BookingEventMessage{
			Type:       mq.EventWaitlistPromoted,
			ScreenID:   result.Screen.ID,
			BookingID:  result.Promoted.ID,
			EntryID:    result.PromotedEntry.ID,
			UserName:   result.Promoted.UserName,
			SeatNumber: result.Promoted.SeatNumber,
			Message:    fmt.Sprintf("A seat opened up. Seat number: %d", result.Promoted.SeatNumber),
			OccurredAt: now,
		})
	}

	return result, nil
}

func (w *BookingWorkflow) publish(ctx context.Context, event mq.BookingEventMessage) {
	if err := w.publisher.PublishEvent(ctx, event); err != nil {
		w.logger.Warn("failed to publish booking event",
			zap.String("type", string(event.Type)), zap.Error(err))
	}
}
