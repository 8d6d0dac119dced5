package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event statuses
const (
	EventStatusActive    = "Active"
	EventStatusDraft     = "Draft"
	EventStatusCancelled = "Cancelled"
	EventStatusSoldOut   = "Sold Out"
)

// Booking statuses
const (
	BookingStatusBooked = "booked"
	// BookingStatusCancelled exists in the source schema but the cancel flow
	// deletes the row instead of writing it. Kept for compatibility.
	BookingStatusCancelled = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusUnpaid    = "unpaid"
)

// User roles
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// LocalizedText holds the English and Arabic renditions of a field.
type LocalizedText struct {
	En string `bson:"en" json:"en"`
	Ar string `bson:"ar" json:"ar"`
}

// Event represents an event document in the events collection.
// availableTickets is mutated only by the booking flow and always satisfies
// 0 <= availableTickets <= capacity.
type Event struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             LocalizedText      `bson:"name" json:"name"`
	Description      LocalizedText      `bson:"description" json:"description"`
	Venue            LocalizedText      `bson:"venue" json:"venue"`
	Category         primitive.ObjectID `bson:"category,omitempty" json:"category"`
	EventCode        string             `bson:"eventCode" json:"eventCode"`
	Date             time.Time          `bson:"date" json:"date"`
	Time             string             `bson:"time" json:"time"`
	Price            int64              `bson:"price" json:"price"`
	Capacity         int                `bson:"capacity" json:"capacity"`
	AvailableTickets int                `bson:"availableTickets" json:"availableTickets"`
	Image            string             `bson:"image,omitempty" json:"image,omitempty"`
	Status           string             `bson:"status" json:"status"`
	CreatedBy        primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Booking represents a booking document. The unique (user, event) index
// guarantees at most one live booking per pair.
type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	Event           primitive.ObjectID `bson:"event" json:"event"`
	TicketCount     int                `bson:"ticketCount" json:"ticketCount"`
	BookingDate     time.Time          `bson:"bookingDate" json:"bookingDate"`
	Status          string             `bson:"status" json:"status"`
	PaymentStatus   string             `bson:"paymentStatus" json:"paymentStatus"`
	StripeSessionID string             `bson:"stripeSessionId,omitempty" json:"stripeSessionId,omitempty"`
}

// Category represents a category document.
type Category struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      LocalizedText      `bson:"name" json:"name"`
	CreatedBy primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// User represents a user document.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Role         string             `bson:"role" json:"role"`
	IsConfirmed  bool               `bson:"isConfirmed" json:"isConfirmed"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// WebhookEvent is one row of the idempotency ledger: a gateway event id that
// has already been processed. The unique index on eventId makes replays a
// duplicate-key insert.
type WebhookEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID    string             `bson:"eventId" json:"eventId"`
	Type       string             `bson:"type" json:"type"`
	SessionID  string             `bson:"sessionId,omitempty" json:"sessionId,omitempty"`
	ReceivedAt time.Time          `bson:"receivedAt" json:"receivedAt"`
}
