package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/mq"
)

// EventPublisher delivers booking events, mq.Producer in production.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event mq.BookingEventMessage) error
}

var _ EventPublisher = (*mq.Producer)(nil)

// LogPublisher stands in for the broker when RABBIT_MQ_URL is unset.
type LogPublisher struct {
	logger *zap.Logger
}

var _ EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishEvent(_ context.Context, event mq.BookingEventMessage) error {
	p.logger.Info("booking event", eventFields(event)...)
	return nil
}

func eventFields(event mq.BookingEventMessage) []zap.Field {
	fields := []zap.Field{
		zap.String("type", string(event.Type)),
		zap.Uint("screen_id", event.ScreenID),
		zap.String("user", event.UserName),
		zap.String("message", event.Message),
	}
	if event.BookingID != 0 {
		fields = append(fields, zap.Uint("booking_id", event.BookingID))
	}
	if event.EntryID != 0 {
		fields = append(fields, zap.Uint("entry_id", event.EntryID))
	}
	if event.SeatNumber != 0 {
		fields = append(fields, zap.Int("seat", event.SeatNumber))
	}
	return fields
}
