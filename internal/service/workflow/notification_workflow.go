package workflow

import (
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/qs-lzh/cinema-booking/internal/mq"
)

// NotificationWorkflow consumes booking events and tells users about them.
// Delivery is a log line for now.
type NotificationWorkflow struct {
	logger *zap.Logger
}

func NewNotificationWorkflow(logger *zap.Logger) *NotificationWorkflow {
	return &NotificationWorkflow{
		logger: logger,
	}
}

func (w *NotificationWorkflow) Start(mqConn *amqp.Connection) error {
	if err := w.ConsumeBookingEvents(mqConn); err != nil {
		return err
	}
	return nil
}

func (w *NotificationWorkflow) ConsumeBookingEvents(conn *amqp.Connection) error {
	ch, err := mq.NewChannel(conn)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(mq.BookingEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handleBookingEvent(msg); err != nil {
				w.logger.Error("failed to handle booking event", zap.Error(err))
			}
		}
	}()

	return nil
}

func (w *NotificationWorkflow) handleBookingEvent(msg amqp.Delivery) error {
	var event mq.BookingEventMessage
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		if nackErr := msg.Nack(false, false); nackErr != nil {
			w.logger.Warn("failed to nack booking event", zap.Error(nackErr))
		}
		return err
	}

	w.logger.Info("notify user", eventFields(event)...)

	if err := msg.Ack(false); err != nil {
		w.logger.Warn("failed to ack booking event", zap.Error(err))
	}

	return nil
}
