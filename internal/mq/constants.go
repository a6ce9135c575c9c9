package mq

import "time"

// Queue names and message definitions

// immediate queue carrying booking lifecycle events
// consumed by the notification workflow to tell users what happened
const (
	BookingEventsQueue = "booking.events.immediate"
)

type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventWaitlistJoined   EventType = "waitlist.joined"
	EventBookingCancelled EventType = "booking.cancelled"
	EventWaitlistPromoted EventType = "waitlist.promoted"
	EventWaitlistClosed   EventType = "waitlist.closed"
)

type BookingEventMessage struct {
	Type       EventType `json:"type"`
	ScreenID   uint      `json:"screen_id"`
	BookingID  uint      `json:"booking_id,omitempty"`
	EntryID    uint      `json:"entry_id,omitempty"`
	UserName   string    `json:"user_name"`
	SeatNumber int       `json:"seat_number,omitempty"`
	Total      string    `json:"total,omitempty"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}
