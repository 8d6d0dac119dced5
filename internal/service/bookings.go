package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/external"
	"tazkara/internal/logger"
	"tazkara/internal/metrics"
	"tazkara/internal/models"
)

// EventInventory is the slice of the event store the booking flow needs:
// lookups plus the two guarded counter updates.
type EventInventory interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	TakeTickets(ctx context.Context, id primitive.ObjectID, n int) error
	RestoreTickets(ctx context.Context, id primitive.ObjectID, n int) error
}

// BookingStore is the booking persistence surface.
type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	SetSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	GetByUserAndEvent(ctx context.Context, userID, eventID primitive.ObjectID) (*models.Booking, error)
	MarkCompleted(ctx context.Context, sessionID string) (*models.Booking, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteIfPaymentStatus(ctx context.Context, id primitive.ObjectID, paymentStatus string) (bool, error)
	ListCompletedByUser(ctx context.Context, userID primitive.ObjectID, page, size int) ([]models.Booking, int64, error)
}

// WebhookLedger records processed gateway event ids.
type WebhookLedger interface {
	Record(ctx context.Context, event *models.WebhookEvent) error
}

// PaymentGateway wraps the checkout/refund/webhook surface of the gateway.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p external.CheckoutParams) (*external.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*external.CheckoutSession, error)
	RefundPaymentIntent(ctx context.Context, paymentIntentID string) (*external.Refund, error)
	ConstructWebhookEvent(payload []byte, sigHeader string) (*external.WebhookEvent, error)
}

// Publisher emits lifecycle messages. May be nil when messaging is disabled.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// BookingService orchestrates the booking/payment lifecycle: checkout
// session creation, webhook-driven completion and cancellation with refund.
type BookingService struct {
	events      EventInventory
	bookings    BookingStore
	ledger      WebhookLedger
	gateway     PaymentGateway
	publisher   Publisher
	frontendURL string
	currency    string
}

func NewBookingService(events EventInventory, bookings BookingStore, ledger WebhookLedger, gateway PaymentGateway, publisher Publisher, frontendURL string) *BookingService {
	return &BookingService{
		events:      events,
		bookings:    bookings,
		ledger:      ledger,
		gateway:     gateway,
		publisher:   publisher,
		frontendURL: frontendURL,
		currency:    "usd",
	}
}

// Create books an event for a user: it claims the (user, event) slot with a
// pending booking row, then opens a Checkout session. The claim row is the
// duplicate-booking guard; inventory is only taken when the webhook confirms
// payment.
func (s *BookingService) Create(ctx context.Context, userID primitive.ObjectID, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		return nil, apperrors.ErrEventNotFound
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	ticketCount := req.TicketCount
	if ticketCount <= 0 {
		ticketCount = 1
	}

	if event.AvailableTickets < ticketCount {
		return nil, apperrors.ErrNoTicketsAvailable
	}

	booking := &models.Booking{
		User:          userID,
		Event:         eventID,
		TicketCount:   ticketCount,
		BookingDate:   time.Now().UTC(),
		Status:        models.BookingStatusBooked,
		PaymentStatus: models.PaymentStatusPending,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyBooked) {
			return nil, apperrors.ErrAlreadyBooked
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, external.CheckoutParams{
		Name:              event.Name.En,
		Description:       event.Description.En,
		ImageURL:          event.Image,
		UnitAmount:        event.Price,
		Quantity:          int64(ticketCount),
		Currency:          s.currency,
		SuccessURL:        s.frontendURL + "/booking/success?sessionId={CHECKOUT_SESSION_ID}",
		CancelURL:         s.frontendURL + "/events",
		ClientReferenceID: booking.ID.Hex(),
	})
	if err != nil {
		// Release the claim so the user can retry.
		if delErr := s.bookings.Delete(ctx, booking.ID); delErr != nil {
			logger.WithContext(ctx).Error("Failed to release booking claim after gateway error",
				"error", delErr,
				"booking_id", booking.ID.Hex())
		}
		logger.WithContext(ctx).Error("Failed to create checkout session",
			"error", err,
			"event_id", eventID.Hex())
		return nil, apperrors.ErrPaymentGateway
	}

	if err := s.bookings.SetSessionID(ctx, booking.ID, session.ID); err != nil {
		return nil, fmt.Errorf("failed to attach session to booking: %w", err)
	}
	booking.StripeSessionID = session.ID

	s.publish(ctx, models.SubjectBookingCreated, models.BookingCreatedEvent{
		BookingID: booking.ID.Hex(),
		EventID:   eventID.Hex(),
		UserID:    userID.Hex(),
		SessionID: session.ID,
		Timestamp: time.Now(),
	})
	metrics.BookingsCreated.Inc()

	return &models.CreateBookingResponse{
		Booking:     booking,
		CheckoutURL: session.URL,
	}, nil
}

// HandleWebhook verifies and processes a gateway notification. Completed
// checkout sessions promote the matching pending booking and take the
// tickets exactly once; replays and unknown sessions are acknowledged
// without side effects.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.gateway.ConstructWebhookEvent(payload, sigHeader)
	if err != nil {
		logger.WithContext(ctx).Warn("Rejected webhook with invalid signature", "error", err)
		return apperrors.ErrInvalidSignature
	}

	if event.Type != external.EventCheckoutSessionCompleted {
		logger.WithContext(ctx).Debug("Ignoring webhook event", "type", event.Type)
		return nil
	}

	sessionID := event.Data.Object.ID

	booking, err := s.bookings.MarkCompleted(ctx, sessionID)
	if err != nil {
		// Nothing has been recorded yet, so the gateway retry for this
		// event id can still succeed.
		return fmt.Errorf("failed to complete booking: %w", err)
	}

	if booking == nil {
		// Unknown session or the booking is no longer pending.
		logger.WithContext(ctx).Info("Webhook matched no pending booking", "session_id", sessionID)
	} else {
		if err := s.events.TakeTickets(ctx, booking.Event, booking.TicketCount); err != nil {
			// The user has paid; keep the booking completed and surface the
			// inventory discrepancy loudly instead of failing the webhook.
			logger.WithContext(ctx).Error("Failed to decrement inventory for paid booking",
				"error", err,
				"booking_id", booking.ID.Hex(),
				"event_id", booking.Event.Hex())
		}

		s.publish(ctx, models.SubjectPaymentCompleted, models.PaymentCompletedEvent{
			BookingID:   booking.ID.Hex(),
			EventID:     booking.Event.Hex(),
			SessionID:   sessionID,
			TicketCount: booking.TicketCount,
			Timestamp:   time.Now(),
		})
		metrics.PaymentsCompleted.Inc()
	}

	// The ledger row is written only after processing succeeded. Exactly-once
	// per session is carried by the conditional promotion above; recording
	// last keeps the event id replayable when an earlier step fails
	// transiently, instead of acking the retry as a no-op.
	err = s.ledger.Record(ctx, &models.WebhookEvent{
		EventID:   event.ID,
		Type:      event.Type,
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrEventAlreadyProcessed) {
			logger.WithContext(ctx).Info("Acknowledged replayed webhook event", "gateway_event_id", event.ID)
			metrics.WebhookReplays.Inc()
			return nil
		}
		// Safe to fail: the retry finds no pending booking and just
		// re-records the event id.
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	return nil
}

// Confirm returns the caller's booking for a checkout session id.
func (s *BookingService) Confirm(ctx context.Context, userID primitive.ObjectID, sessionID string) (*models.Booking, error) {
	booking, err := s.bookings.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	if booking.User != userID {
		return nil, apperrors.ErrForbidden
	}
	return booking, nil
}

// List pages the caller's completed bookings.
func (s *BookingService) List(ctx context.Context, userID primitive.ObjectID, page, size int) (*models.ListBookingsResponse, error) {
	bookings, total, err := s.bookings.ListCompletedByUser(ctx, userID, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	if bookings == nil {
		bookings = []models.Booking{}
	}

	return &models.ListBookingsResponse{
		Bookings: bookings,
		Total:    total,
		Page:     page,
		Size:     size,
	}, nil
}

// Cancel removes the caller's booking for an event. When the checkout
// session shows captured funds the payment intent is refunded first; a
// completed booking also restores its tickets to the event.
func (s *BookingService) Cancel(ctx context.Context, userID primitive.ObjectID, req *models.CancelBookingRequest) (*models.CancelBookingResponse, error) {
	eventID, err := primitive.ObjectIDFromHex(req.EventID)
	if err != nil {
		return nil, apperrors.ErrEventNotFound
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	booking, err := s.bookings.GetByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotBooked
	}

	bookingID := booking.ID

	refunded, err := s.refundIfPaid(ctx, booking)
	if err != nil {
		return nil, err
	}

	// Only completed bookings took inventory; a pending claim has nothing
	// to give back.
	if booking.PaymentStatus == models.PaymentStatusCompleted {
		if err := s.events.RestoreTickets(ctx, eventID, booking.TicketCount); err != nil {
			return nil, fmt.Errorf("failed to restore tickets: %w", err)
		}
	}

	// The delete is conditional on the payment status the refund and restore
	// decisions were based on. A miss means a webhook promoted the booking
	// after the read; settle the completed state before removing it.
	removed, err := s.bookings.DeleteIfPaymentStatus(ctx, booking.ID, booking.PaymentStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	if !removed {
		booking, err = s.bookings.GetByUserAndEvent(ctx, userID, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload booking: %w", err)
		}
		if booking != nil {
			if !refunded {
				refunded, err = s.refundIfPaid(ctx, booking)
				if err != nil {
					return nil, err
				}
			}
			if booking.PaymentStatus == models.PaymentStatusCompleted {
				if err := s.events.RestoreTickets(ctx, eventID, booking.TicketCount); err != nil {
					return nil, fmt.Errorf("failed to restore tickets: %w", err)
				}
			}
			// completed is terminal, so this second conditional delete
			// cannot miss again.
			if _, err := s.bookings.DeleteIfPaymentStatus(ctx, booking.ID, booking.PaymentStatus); err != nil {
				return nil, fmt.Errorf("failed to delete booking: %w", err)
			}
		}
	}

	s.publish(ctx, models.SubjectBookingCancelled, models.BookingCancelledEvent{
		BookingID: bookingID.Hex(),
		EventID:   eventID.Hex(),
		UserID:    userID.Hex(),
		Refunded:  refunded,
		Timestamp: time.Now(),
	})
	metrics.BookingsCancelled.Inc()

	return &models.CancelBookingResponse{Message: "booking cancelled"}, nil
}

// refundIfPaid refunds the booking's checkout session when the gateway
// shows captured funds. Reports whether a refund was issued.
func (s *BookingService) refundIfPaid(ctx context.Context, booking *models.Booking) (bool, error) {
	if booking.StripeSessionID == "" {
		return false, nil
	}

	session, err := s.gateway.GetCheckoutSession(ctx, booking.StripeSessionID)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to retrieve checkout session for cancellation",
			"error", err,
			"session_id", booking.StripeSessionID)
		return false, apperrors.ErrPaymentGateway
	}

	if session.PaymentStatus != "paid" || session.PaymentIntent == "" {
		return false, nil
	}

	if _, err := s.gateway.RefundPaymentIntent(ctx, session.PaymentIntent); err != nil {
		logger.WithContext(ctx).Error("Failed to refund payment intent",
			"error", err,
			"payment_intent", session.PaymentIntent)
		return false, apperrors.ErrPaymentGateway
	}
	metrics.RefundsIssued.Inc()
	return true, nil
}

func (s *BookingService) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish message",
			"error", err,
			"subject", subject)
	}
}
