package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/external"
	"tazkara/internal/models"
)

// In-memory fakes mirroring the guarded semantics of the Mongo repositories.

type fakeEvents struct {
	mu     sync.Mutex
	events map[primitive.ObjectID]*models.Event
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{events: map[primitive.ObjectID]*models.Event{}}
}

func (f *fakeEvents) GetByID(_ context.Context, id primitive.ObjectID) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	copied := *ev
	return &copied, nil
}

func (f *fakeEvents) TakeTickets(_ context.Context, id primitive.ObjectID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok || ev.AvailableTickets < n {
		return apperrors.ErrNoTicketsAvailable
	}
	ev.AvailableTickets -= n
	return nil
}

func (f *fakeEvents) RestoreTickets(_ context.Context, id primitive.ObjectID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok || ev.AvailableTickets+n > ev.Capacity {
		return fmt.Errorf("restore tickets: event missing or already at capacity")
	}
	ev.AvailableTickets += n
	return nil
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[primitive.ObjectID]*models.Booking
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{bookings: map[primitive.ObjectID]*models.Booking{}}
}

func (f *fakeBookings) Create(_ context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.User == booking.User && b.Event == booking.Event {
			return apperrors.ErrAlreadyBooked
		}
	}
	booking.ID = primitive.NewObjectID()
	copied := *booking
	f.bookings[booking.ID] = &copied
	return nil
}

func (f *fakeBookings) SetSessionID(_ context.Context, id primitive.ObjectID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return apperrors.ErrBookingNotFound
	}
	b.StripeSessionID = sessionID
	return nil
}

func (f *fakeBookings) GetBySessionID(_ context.Context, sessionID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.StripeSessionID == sessionID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) GetByUserAndEvent(_ context.Context, userID, eventID primitive.ObjectID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.User == userID && b.Event == eventID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) MarkCompleted(_ context.Context, sessionID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.StripeSessionID == sessionID && b.PaymentStatus == models.PaymentStatusPending {
			b.PaymentStatus = models.PaymentStatusCompleted
			b.Status = models.BookingStatusBooked
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeBookings) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[id]; !ok {
		return apperrors.ErrBookingNotFound
	}
	delete(f.bookings, id)
	return nil
}

func (f *fakeBookings) DeleteIfPaymentStatus(_ context.Context, id primitive.ObjectID, paymentStatus string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok || b.PaymentStatus != paymentStatus {
		return false, nil
	}
	delete(f.bookings, id)
	return true, nil
}

func (f *fakeBookings) ListCompletedByUser(_ context.Context, userID primitive.ObjectID, page, size int) ([]models.Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.Booking
	for _, b := range f.bookings {
		if b.User == userID && b.PaymentStatus == models.PaymentStatusCompleted {
			all = append(all, *b)
		}
	}
	total := int64(len(all))
	start := (page - 1) * size
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: map[string]bool{}}
}

func (f *fakeLedger) Record(_ context.Context, event *models.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[event.EventID] {
		return apperrors.ErrEventAlreadyProcessed
	}
	f.seen[event.EventID] = true
	return nil
}

type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]*external.CheckoutSession
	refunds   []string
	createErr error
	refundErr error
	nextID    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]*external.CheckoutSession{}}
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p external.CheckoutParams) (*external.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	session := &external.CheckoutSession{
		ID:                fmt.Sprintf("cs_test_%d", f.nextID),
		URL:               fmt.Sprintf("https://checkout.example.com/%d", f.nextID),
		Status:            "open",
		PaymentStatus:     "unpaid",
		AmountTotal:       p.UnitAmount * p.Quantity,
		Currency:          p.Currency,
		ClientReferenceID: p.ClientReferenceID,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*external.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session %s", id)
	}
	copied := *session
	return &copied, nil
}

func (f *fakeGateway) RefundPaymentIntent(_ context.Context, paymentIntentID string) (*external.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, paymentIntentID)
	return &external.Refund{ID: "re_test_1", Status: "succeeded", PaymentIntent: paymentIntentID}, nil
}

// ConstructWebhookEvent accepts only the literal header "valid" so tests can
// exercise the rejection path without real HMAC material.
func (f *fakeGateway) ConstructWebhookEvent(payload []byte, sigHeader string) (*external.WebhookEvent, error) {
	if sigHeader != "valid" {
		return nil, fmt.Errorf("webhook signature mismatch")
	}
	var event external.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// markPaid simulates the customer finishing the hosted checkout.
func (f *fakeGateway) markPaid(sessionID, paymentIntent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Status = "complete"
		s.PaymentStatus = "paid"
		s.PaymentIntent = paymentIntent
	}
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePublisher) Publish(subject string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

type fixture struct {
	svc      *BookingService
	events   *fakeEvents
	bookings *fakeBookings
	ledger   *fakeLedger
	gateway  *fakeGateway
	pub      *fakePublisher
	eventID  primitive.ObjectID
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()

	events := newFakeEvents()
	eventID := primitive.NewObjectID()
	events.events[eventID] = &models.Event{
		ID:               eventID,
		Name:             models.LocalizedText{En: "Jazz Night", Ar: "ليلة الجاز"},
		EventCode:        "JAZZ-2026",
		Date:             time.Now().Add(72 * time.Hour),
		Price:            5000,
		Capacity:         capacity,
		AvailableTickets: capacity,
		Status:           models.EventStatusActive,
	}

	bookings := newFakeBookings()
	ledger := newFakeLedger()
	gateway := newFakeGateway()
	pub := &fakePublisher{}

	svc := NewBookingService(events, bookings, ledger, gateway, pub, "https://tazkara.example.com")

	return &fixture{
		svc:      svc,
		events:   events,
		bookings: bookings,
		ledger:   ledger,
		gateway:  gateway,
		pub:      pub,
		eventID:  eventID,
	}
}

func (fx *fixture) available(t *testing.T) int {
	t.Helper()
	ev, err := fx.events.GetByID(context.Background(), fx.eventID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	return ev.AvailableTickets
}

// completedWebhook delivers a valid checkout.session.completed event.
func (fx *fixture) completedWebhook(t *testing.T, gatewayEventID, sessionID string) error {
	t.Helper()
	var event external.WebhookEvent
	event.ID = gatewayEventID
	event.Type = external.EventCheckoutSessionCompleted
	event.Data.Object.ID = sessionID
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return fx.svc.HandleWebhook(context.Background(), payload, "valid")
}

func TestCreateBooking(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID:     fx.eventID.Hex(),
		TicketCount: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Booking)

	assert.NotEmpty(t, resp.CheckoutURL)
	assert.Equal(t, models.PaymentStatusPending, resp.Booking.PaymentStatus)
	assert.Equal(t, 2, resp.Booking.TicketCount)
	assert.NotEmpty(t, resp.Booking.StripeSessionID)

	// Inventory is untouched until payment confirms.
	assert.Equal(t, 100, fx.available(t))
	assert.Contains(t, fx.pub.subjects, models.SubjectBookingCreated)
}

func TestCreateBookingDefaultsToOneTicket(t *testing.T) {
	fx := newFixture(t, 100)

	resp, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Booking.TicketCount)
}

func TestCreateBookingEventNotFound(t *testing.T) {
	fx := newFixture(t, 100)

	_, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: primitive.NewObjectID().Hex(),
	})
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	_, err = fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: "not-a-hex-id",
	})
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestCreateBookingSoldOut(t *testing.T) {
	fx := newFixture(t, 100)
	fx.events.events[fx.eventID].AvailableTickets = 0

	userID := primitive.NewObjectID()
	_, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNoTicketsAvailable)

	// No claim row is left behind.
	booking, err := fx.bookings.GetByUserAndEvent(context.Background(), userID, fx.eventID)
	require.NoError(t, err)
	assert.Nil(t, booking)
}

func TestCreateBookingDuplicate(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	_, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	_, err = fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyBooked)
}

func TestCreateBookingGatewayFailureReleasesClaim(t *testing.T) {
	fx := newFixture(t, 100)
	fx.gateway.createErr = fmt.Errorf("stripe is down")
	userID := primitive.NewObjectID()

	_, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)

	// The claim was released, so a retry succeeds once the gateway is back.
	fx.gateway.createErr = nil
	_, err = fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	assert.NoError(t, err)
}

func TestWebhookCompletesBooking(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID:     fx.eventID.Hex(),
		TicketCount: 3,
	})
	require.NoError(t, err)
	sessionID := resp.Booking.StripeSessionID

	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))

	booking, err := fx.bookings.GetBySessionID(context.Background(), sessionID)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.PaymentStatusCompleted, booking.PaymentStatus)
	assert.Equal(t, 97, fx.available(t))
	assert.Contains(t, fx.pub.subjects, models.SubjectPaymentCompleted)
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	fx := newFixture(t, 100)

	resp, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID:     fx.eventID.Hex(),
		TicketCount: 3,
	})
	require.NoError(t, err)
	sessionID := resp.Booking.StripeSessionID

	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))
	assert.Equal(t, 97, fx.available(t))

	// Same gateway event id delivered again: the ledger rejects it.
	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))
	assert.Equal(t, 97, fx.available(t))

	// Fresh event id for the same session: the conditional completion
	// matches nothing, so inventory still moves only once.
	require.NoError(t, fx.completedWebhook(t, "evt_2", sessionID))
	assert.Equal(t, 97, fx.available(t))
}

func TestWebhookInvalidSignature(t *testing.T) {
	fx := newFixture(t, 100)

	resp, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)

	err = fx.svc.HandleWebhook(context.Background(), []byte(`{}`), "forged")
	assert.ErrorIs(t, err, apperrors.ErrInvalidSignature)

	// No state changed.
	booking, err := fx.bookings.GetBySessionID(context.Background(), resp.Booking.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, 100, fx.available(t))
}

func TestWebhookUnknownSession(t *testing.T) {
	fx := newFixture(t, 100)

	require.NoError(t, fx.completedWebhook(t, "evt_1", "cs_unknown"))
	assert.Equal(t, 100, fx.available(t))
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	fx := newFixture(t, 100)

	var event external.WebhookEvent
	event.ID = "evt_1"
	event.Type = "invoice.paid"
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, fx.svc.HandleWebhook(context.Background(), payload, "valid"))
	assert.Equal(t, 100, fx.available(t))
}

func TestCancelCompletedBookingRefundsAndRestores(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID:     fx.eventID.Hex(),
		TicketCount: 2,
	})
	require.NoError(t, err)
	sessionID := resp.Booking.StripeSessionID

	fx.gateway.markPaid(sessionID, "pi_test_1")
	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))
	require.Equal(t, 98, fx.available(t))

	_, err = fx.svc.Cancel(context.Background(), userID, &models.CancelBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	assert.Equal(t, []string{"pi_test_1"}, fx.gateway.refunds)
	assert.Equal(t, 100, fx.available(t))

	booking, err := fx.bookings.GetByUserAndEvent(context.Background(), userID, fx.eventID)
	require.NoError(t, err)
	assert.Nil(t, booking)
	assert.Contains(t, fx.pub.subjects, models.SubjectBookingCancelled)
}

func TestCancelPendingBookingSkipsRefundAndRestore(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	_, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), userID, &models.CancelBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	// A pending claim never took inventory and was never paid.
	assert.Empty(t, fx.gateway.refunds)
	assert.Equal(t, 100, fx.available(t))
}

func TestCancelNotBooked(t *testing.T) {
	fx := newFixture(t, 100)

	_, err := fx.svc.Cancel(context.Background(), primitive.NewObjectID(), &models.CancelBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNotBooked)
}

func TestCancelAfterCancelReturnsNotBooked(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)
	fx.gateway.markPaid(resp.Booking.StripeSessionID, "pi_test_1")
	require.NoError(t, fx.completedWebhook(t, "evt_1", resp.Booking.StripeSessionID))

	_, err = fx.svc.Cancel(context.Background(), userID, &models.CancelBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), userID, &models.CancelBookingRequest{EventID: fx.eventID.Hex()})
	assert.ErrorIs(t, err, apperrors.ErrNotBooked)

	// Exactly one refund, exactly one restore.
	assert.Equal(t, []string{"pi_test_1"}, fx.gateway.refunds)
	assert.Equal(t, 100, fx.available(t))
}

func TestConfirmBooking(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	booking, err := fx.svc.Confirm(context.Background(), userID, resp.Booking.StripeSessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.Booking.ID, booking.ID)

	// Another user cannot read it.
	_, err = fx.svc.Confirm(context.Background(), primitive.NewObjectID(), resp.Booking.StripeSessionID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = fx.svc.Confirm(context.Background(), userID, "cs_unknown")
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
}

func TestListBookingsOnlyCompleted(t *testing.T) {
	fx := newFixture(t, 100)
	userID := primitive.NewObjectID()

	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)

	list, err := fx.svc.List(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Bookings)
	assert.Equal(t, int64(0), list.Total)

	require.NoError(t, fx.completedWebhook(t, "evt_1", resp.Booking.StripeSessionID))

	list, err = fx.svc.List(context.Background(), userID, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, models.PaymentStatusCompleted, list.Bookings[0].PaymentStatus)
}

// flakyBookings fails MarkCompleted a configured number of times before
// delegating, simulating a transient store outage during webhook handling.
type flakyBookings struct {
	*fakeBookings
	markFailures int
}

func (f *flakyBookings) MarkCompleted(ctx context.Context, sessionID string) (*models.Booking, error) {
	if f.markFailures > 0 {
		f.markFailures--
		return nil, fmt.Errorf("transient store error")
	}
	return f.fakeBookings.MarkCompleted(ctx, sessionID)
}

// A delivery that fails mid-processing must stay replayable: the ledger row
// is only written after success, so the gateway's retry of the same event id
// completes the booking instead of being acked as a replay.
func TestWebhookRetryAfterTransientFailure(t *testing.T) {
	fx := newFixture(t, 100)
	flaky := &flakyBookings{fakeBookings: fx.bookings, markFailures: 1}
	fx.svc = NewBookingService(fx.events, flaky, fx.ledger, fx.gateway, fx.pub, "https://tazkara.example.com")

	resp, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)
	sessionID := resp.Booking.StripeSessionID

	// First delivery hits the transient failure and must surface an error
	// so the gateway retries.
	require.Error(t, fx.completedWebhook(t, "evt_1", sessionID))

	booking, err := fx.bookings.GetBySessionID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, booking.PaymentStatus)
	assert.Equal(t, 100, fx.available(t))

	// Redelivery of the same event id succeeds.
	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))

	booking, err = fx.bookings.GetBySessionID(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, booking.PaymentStatus)
	assert.Equal(t, 99, fx.available(t))

	// A third delivery is now a recorded replay with no further decrement.
	require.NoError(t, fx.completedWebhook(t, "evt_1", sessionID))
	assert.Equal(t, 99, fx.available(t))
}

// racingBookings promotes the booking to completed (and takes its tickets)
// just before the first conditional delete runs, simulating a webhook that
// lands between cancellation's read and its delete.
type racingBookings struct {
	*fakeBookings
	events *fakeEvents
	once   sync.Once
}

func (r *racingBookings) DeleteIfPaymentStatus(ctx context.Context, id primitive.ObjectID, paymentStatus string) (bool, error) {
	r.once.Do(func() {
		r.fakeBookings.mu.Lock()
		b := r.fakeBookings.bookings[id]
		b.PaymentStatus = models.PaymentStatusCompleted
		b.Status = models.BookingStatusBooked
		eventID, n := b.Event, b.TicketCount
		r.fakeBookings.mu.Unlock()
		_ = r.events.TakeTickets(ctx, eventID, n)
	})
	return r.fakeBookings.DeleteIfPaymentStatus(ctx, id, paymentStatus)
}

func TestCancelRacingWebhookRestoresTicket(t *testing.T) {
	fx := newFixture(t, 100)
	racing := &racingBookings{fakeBookings: fx.bookings, events: fx.events}
	fx.svc = NewBookingService(fx.events, racing, fx.ledger, fx.gateway, fx.pub, "https://tazkara.example.com")

	userID := primitive.NewObjectID()
	resp, err := fx.svc.Create(context.Background(), userID, &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)
	fx.gateway.markPaid(resp.Booking.StripeSessionID, "pi_test_1")

	// Cancellation reads the booking while pending; the promotion lands
	// before its delete, which misses and forces the completed-state pass.
	_, err = fx.svc.Cancel(context.Background(), userID, &models.CancelBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	require.NoError(t, err)

	// The ticket taken by the concurrent completion was restored, exactly
	// one refund was issued and the row is gone.
	assert.Equal(t, 100, fx.available(t))
	assert.Equal(t, []string{"pi_test_1"}, fx.gateway.refunds)

	booking, err := fx.bookings.GetByUserAndEvent(context.Background(), userID, fx.eventID)
	require.NoError(t, err)
	assert.Nil(t, booking)
}

// Sells an event out completely and verifies the inventory counter stays
// within [0, capacity] through bookings, completions and cancellations.
func TestInventoryBounds(t *testing.T) {
	fx := newFixture(t, 3)

	users := make([]primitive.ObjectID, 3)
	sessions := make([]string, 3)
	for i := range users {
		users[i] = primitive.NewObjectID()
		resp, err := fx.svc.Create(context.Background(), users[i], &models.CreateBookingRequest{
			EventID: fx.eventID.Hex(),
		})
		require.NoError(t, err)
		sessions[i] = resp.Booking.StripeSessionID
	}

	for i, sessionID := range sessions {
		require.NoError(t, fx.completedWebhook(t, fmt.Sprintf("evt_%d", i), sessionID))
	}
	assert.Equal(t, 0, fx.available(t))

	// Sold out: a fourth booking is rejected up front.
	_, err := fx.svc.Create(context.Background(), primitive.NewObjectID(), &models.CreateBookingRequest{
		EventID: fx.eventID.Hex(),
	})
	assert.ErrorIs(t, err, apperrors.ErrNoTicketsAvailable)

	// One cancellation frees exactly one ticket.
	fx.gateway.markPaid(sessions[0], "pi_test_0")
	_, err = fx.svc.Cancel(context.Background(), users[0], &models.CancelBookingRequest{EventID: fx.eventID.Hex()})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.available(t))
}
