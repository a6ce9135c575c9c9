package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

func SendImmediateMessage(ctx context.Context, ch *amqp.Channel, queueName string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to queue %s: %w", queueName, err)
	}

	return nil
}

// Producer publishes booking events over one channel shared by all callers.
type Producer struct {
	mu sync.Mutex
	ch *amqp.Channel
}

func NewProducer(conn *amqp.Connection) (*Producer, error) {
	ch, err := NewChannel(conn)
	if err != nil {
		return nil, err
	}
	return &Producer{ch: ch}, nil
}

func (p *Producer) PublishEvent(ctx context.Context, event BookingEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return SendImmediateMessage(ctx, p.ch, BookingEventsQueue, event)
}

func (p *Producer) Close() error {
	return p.ch.Close()
}
