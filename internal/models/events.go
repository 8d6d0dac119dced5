package models

import "time"

// NATS subjects
const (
	SubjectBookingCreated   = "booking.created"
	SubjectBookingCancelled = "booking.cancelled"
	SubjectBookingExpired   = "booking.expired"
	SubjectPaymentCompleted = "payment.completed"
	SubjectEventCreated     = "event.created"
	SubjectEventUpdated     = "event.updated"
	SubjectEventDeleted     = "event.deleted"
)

// BookingCreatedEvent is published when a pending booking and its checkout
// session have been created
type BookingCreatedEvent struct {
	BookingID string    `json:"booking_id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentCompletedEvent is published when a webhook promotes a booking to
// completed and the inventory has been decremented
type PaymentCompletedEvent struct {
	BookingID   string    `json:"booking_id"`
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	TicketCount int       `json:"ticket_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published after a cancellation (refund issued
// where applicable, inventory restored, row removed)
type BookingCancelledEvent struct {
	BookingID string    `json:"booking_id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Refunded  bool      `json:"refunded"`
	Timestamp time.Time `json:"timestamp"`
}

// BookingExpiredEvent is published when the worker purges an abandoned
// pending booking
type BookingExpiredEvent struct {
	BookingID string    `json:"booking_id"`
	EventID   string    `json:"event_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// EventChangedEvent is published on event create/update/delete
type EventChangedEvent struct {
	EventID   string    `json:"event_id"`
	EventCode string    `json:"event_code"`
	Timestamp time.Time `json:"timestamp"`
}
