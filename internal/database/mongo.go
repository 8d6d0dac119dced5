package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	URL      string
	Database string
	Timeout  time.Duration
}

// DB wraps the Mongo client and the application database handle.
type DB struct {
	Client *mongo.Client
	Mongo  *mongo.Database
}

// Connect opens a Mongo connection, verifies it with a ping and ensures the
// indexes the booking flow relies on.
func Connect(cfg Config) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := &DB{
		Client: client,
		Mongo:  client.Database(cfg.Database),
	}

	if err := db.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	slog.Info("Connected to MongoDB", "database", cfg.Database)
	return db, nil
}

// EnsureIndexes creates the indexes on startup. The unique compound index on
// bookings(user, event) is the duplicate-booking guard; the unique index on
// webhook_events(eventId) is the webhook idempotency guard.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	_, err := db.Mongo.Collection("events").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("events_code_unique"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("events_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}

	_, err = db.Mongo.Collection("bookings").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user", Value: 1}, {Key: "event", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("bookings_user_event_unique"),
		},
		{
			Keys:    bson.D{{Key: "stripeSessionId", Value: 1}},
			Options: options.Index().SetName("bookings_session"),
		},
		{
			Keys:    bson.D{{Key: "paymentStatus", Value: 1}, {Key: "bookingDate", Value: 1}},
			Options: options.Index().SetName("bookings_status_date"),
		},
	})
	if err != nil {
		return fmt.Errorf("bookings indexes: %w", err)
	}

	_, err = db.Mongo.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = db.Mongo.Collection("webhook_events").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "eventId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("webhook_events_id_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("webhook_events indexes: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
