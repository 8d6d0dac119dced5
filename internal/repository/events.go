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

type EventRepository struct {
	col *mongo.Collection
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{col: db.Mongo.Collection("events")}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	res, err := r.col.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("event code %q already exists", event.EventCode)
		}
		return fmt.Errorf("insert event: %w", err)
	}
	event.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Event, error) {
	var event models.Event
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// List returns one page of events, optionally filtered to a single day.
func (r *EventRepository) List(ctx context.Context, date string, page, size int) ([]models.Event, int64, error) {
	filter := bson.M{}
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid date filter: %w", err)
		}
		filter["date"] = bson.M{
			"$gte": day,
			"$lt":  day.AddDate(0, 0, 1),
		}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	cur, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer cur.Close(ctx)

	var events []models.Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, 0, fmt.Errorf("decode events: %w", err)
	}

	return events, total, nil
}

func (r *EventRepository) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

// TakeTickets atomically decrements availableTickets by n, guarded so the
// counter never drops below zero. A non-match means the event is gone or
// there is not enough inventory left.
func (r *EventRepository) TakeTickets(ctx context.Context, id primitive.ObjectID, n int) error {
	filter := bson.M{
		"_id":              id,
		"availableTickets": bson.M{"$gte": n},
	}
	update := bson.M{
		"$inc": bson.M{"availableTickets": -n},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("take tickets: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.ErrNoTicketsAvailable
	}
	return nil
}

// RestoreTickets atomically increments availableTickets by n, guarded so the
// counter never exceeds capacity.
func (r *EventRepository) RestoreTickets(ctx context.Context, id primitive.ObjectID, n int) error {
	filter := bson.M{
		"_id": id,
		"$expr": bson.M{
			"$lte": bson.A{bson.M{"$add": bson.A{"$availableTickets", n}}, "$capacity"},
		},
	}
	update := bson.M{
		"$inc": bson.M{"availableTickets": n},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("restore tickets: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("restore tickets: event missing or already at capacity")
	}
	return nil
}
