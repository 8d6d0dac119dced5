package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tazkara/internal/database"
	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{col: db.Mongo.Collection("bookings")}
}

// Create inserts the booking row. The unique (user, event) index turns a
// concurrent double-book into a duplicate-key error, surfaced as
// ErrAlreadyBooked.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.BookingDate.IsZero() {
		booking.BookingDate = time.Now().UTC()
	}

	res, err := r.col.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrAlreadyBooked
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	booking.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// SetSessionID attaches the checkout session id to a freshly created booking.
func (r *BookingRepository) SetSessionID(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"stripeSessionId": sessionID}},
	)
	if err != nil {
		return fmt.Errorf("set session id: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var booking models.Booking
	err := r.col.FindOne(ctx, bson.M{"stripeSessionId": sessionID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by session: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) GetByUserAndEvent(ctx context.Context, userID, eventID primitive.ObjectID) (*models.Booking, error) {
	var booking models.Booking
	err := r.col.FindOne(ctx, bson.M{"user": userID, "event": eventID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by user and event: %w", err)
	}
	return &booking, nil
}

// MarkCompleted claims a pending booking for the given session and promotes
// it to completed in a single conditional update. Returns nil, nil when no
// pending booking matches (unknown session or already processed) so the
// webhook can ack without side effects.
func (r *BookingRepository) MarkCompleted(ctx context.Context, sessionID string) (*models.Booking, error) {
	filter := bson.M{
		"stripeSessionId": sessionID,
		"paymentStatus":   models.PaymentStatusPending,
	}
	update := bson.M{
		"$set": bson.M{
			"paymentStatus": models.PaymentStatusCompleted,
			"status":        models.BookingStatusBooked,
		},
	}

	var booking models.Booking
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mark booking completed: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrBookingNotFound
	}
	return nil
}

// ListCompletedByUser pages a user's completed bookings, newest first.
func (r *BookingRepository) ListCompletedByUser(ctx context.Context, userID primitive.ObjectID, page, size int) ([]models.Booking, int64, error) {
	filter := bson.M{
		"user":          userID,
		"paymentStatus": models.PaymentStatusCompleted,
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "bookingDate", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer cur.Close(ctx)

	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("decode bookings: %w", err)
	}

	return bookings, total, nil
}

// GetExpiredPending returns pending bookings older than the cutoff, the
// abandoned-checkout claims the worker purges.
func (r *BookingRepository) GetExpiredPending(ctx context.Context, before time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"paymentStatus": models.PaymentStatusPending,
		"bookingDate":   bson.M{"$lt": before},
	}

	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "bookingDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find expired bookings: %w", err)
	}
	defer cur.Close(ctx)

	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("decode expired bookings: %w", err)
	}
	return bookings, nil
}

// DeleteIfPaymentStatus removes a booking only while its payment status is
// still the one the caller observed, so a delete cannot race the webhook's
// pending-to-completed promotion.
func (r *BookingRepository) DeleteIfPaymentStatus(ctx context.Context, id primitive.ObjectID, paymentStatus string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{
		"_id":           id,
		"paymentStatus": paymentStatus,
	})
	if err != nil {
		return false, fmt.Errorf("delete booking by status: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// DeletePending removes a booking only while it is still pending, the guard
// the expiration worker relies on.
func (r *BookingRepository) DeletePending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return r.DeleteIfPaymentStatus(ctx, id, models.PaymentStatusPending)
}
