package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tazkara/internal/database"
	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
)

// WebhookEventRepository is the idempotency ledger: each processed gateway
// event id is recorded exactly once.
type WebhookEventRepository struct {
	col *mongo.Collection
}

func NewWebhookEventRepository(db *database.DB) *WebhookEventRepository {
	return &WebhookEventRepository{col: db.Mongo.Collection("webhook_events")}
}

// Record inserts the event id. A duplicate-key error means this delivery is
// a replay and is reported as ErrEventAlreadyProcessed.
func (r *WebhookEventRepository) Record(ctx context.Context, event *models.WebhookEvent) error {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	res, err := r.col.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.ErrEventAlreadyProcessed
		}
		return fmt.Errorf("record webhook event: %w", err)
	}
	event.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}
