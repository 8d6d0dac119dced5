package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tazkara/internal/cache"
	apperrors "tazkara/internal/errors"
	"tazkara/internal/logger"
	"tazkara/internal/models"
	"tazkara/internal/repository"
	"tazkara/internal/search"
)

// EventService implements event CRUD plus full-text search. Redis caching,
// Elasticsearch indexing and message publishing are optional side channels;
// Mongo remains the source of truth.
type EventService struct {
	events     *repository.EventRepository
	categories *repository.CategoryRepository
	cache      *cache.RedisClient
	search     *search.ElasticsearchClient
	publisher  Publisher
	uploadsDir string
}

func NewEventService(events *repository.EventRepository, categories *repository.CategoryRepository, cacheClient *cache.RedisClient, searchClient *search.ElasticsearchClient, publisher Publisher, uploadsDir string) *EventService {
	return &EventService{
		events:     events,
		categories: categories,
		cache:      cacheClient,
		search:     searchClient,
		publisher:  publisher,
		uploadsDir: uploadsDir,
	}
}

func (s *EventService) Create(ctx context.Context, createdBy primitive.ObjectID, req *models.CreateEventRequest) (*models.Event, error) {
	categoryID, err := primitive.ObjectIDFromHex(req.Category)
	if err != nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, apperrors.ErrCategoryNotFound
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", req.Date, err)
	}

	status := req.Status
	if status == "" {
		status = models.EventStatusActive
	}

	event := &models.Event{
		Name:             req.Name,
		Description:      req.Description,
		Venue:            req.Venue,
		Category:         categoryID,
		EventCode:        req.EventCode,
		Date:             date,
		Time:             req.Time,
		Price:            req.Price,
		Capacity:         req.Capacity,
		AvailableTickets: req.Capacity,
		Image:            req.Image,
		Status:           status,
		CreatedBy:        createdBy,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, event, models.SubjectEventCreated)
	return event, nil
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	eventID, err := primitive.ObjectIDFromHex(id)
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
	return event, nil
}

// List pages events. Unfiltered pages are served from the Redis cache when
// available; filtered queries always hit Mongo.
func (s *EventService) List(ctx context.Context, date string, page, size int) (*models.ListEventsResponse, error) {
	cacheable := s.cache != nil && date == ""

	if cacheable {
		if raw, err := s.cache.GetEventsListRaw(ctx, page, size); err == nil {
			var resp models.ListEventsResponse
			if err := json.Unmarshal(raw, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	events, total, err := s.events.List(ctx, date, page, size)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}

	resp := &models.ListEventsResponse{
		Events: events,
		Total:  total,
		Page:   page,
		Size:   size,
	}

	if cacheable {
		if err := s.cache.SetEventsList(ctx, page, size, resp); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache events list", "error", err)
		}
	}

	return resp, nil
}

// Search runs a bilingual full-text query against Elasticsearch, falling
// back to the Mongo listing when search is disabled.
func (s *EventService) Search(ctx context.Context, query, date string, page, size int) (*models.ListEventsResponse, error) {
	if s.search == nil {
		return s.List(ctx, date, page, size)
	}

	events, total, err := s.search.Search(ctx, query, date, page, size)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if events == nil {
		events = []models.Event{}
	}

	return &models.ListEventsResponse{
		Events: events,
		Total:  total,
		Page:   page,
		Size:   size,
	}, nil
}

// Update applies the non-nil fields of the request. Shrinking capacity keeps
// already-sold tickets intact: the new capacity must cover them, and
// availableTickets is recomputed against it.
func (s *EventService) Update(ctx context.Context, id string, req *models.UpdateEventRequest) (*models.Event, error) {
	eventID, err := primitive.ObjectIDFromHex(id)
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

	set := bson.M{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.Venue != nil {
		set["venue"] = *req.Venue
	}
	if req.Category != nil {
		categoryID, err := primitive.ObjectIDFromHex(*req.Category)
		if err != nil {
			return nil, apperrors.ErrCategoryNotFound
		}
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to get category: %w", err)
		}
		if category == nil {
			return nil, apperrors.ErrCategoryNotFound
		}
		set["category"] = categoryID
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", *req.Date, err)
		}
		set["date"] = date
	}
	if req.Time != nil {
		set["time"] = *req.Time
	}
	if req.Price != nil {
		set["price"] = *req.Price
	}
	if req.Capacity != nil {
		sold := event.Capacity - event.AvailableTickets
		if *req.Capacity < sold {
			return nil, apperrors.ErrCapacityTooSmall
		}
		set["capacity"] = *req.Capacity
		set["availableTickets"] = *req.Capacity - sold
	}
	if req.Image != nil {
		set["image"] = *req.Image
	}
	if req.Status != nil {
		set["status"] = *req.Status
	}

	if len(set) > 0 {
		if err := s.events.Update(ctx, eventID, set); err != nil {
			return nil, err
		}
	}

	updated, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload event: %w", err)
	}

	s.afterWrite(ctx, updated, models.SubjectEventUpdated)
	return updated, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	eventID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrEventNotFound
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return apperrors.ErrEventNotFound
	}

	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}

	if event.Image != "" && s.uploadsDir != "" {
		path := filepath.Join(s.uploadsDir, filepath.Base(event.Image))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.WithContext(ctx).Warn("Failed to remove event image", "error", err, "path", path)
		}
	}

	if s.search != nil {
		if err := s.search.DeleteEvent(ctx, eventID.Hex()); err != nil {
			logger.WithContext(ctx).Warn("Failed to remove event from search index", "error", err)
		}
	}
	s.invalidateCache(ctx)
	s.publishChange(ctx, event, models.SubjectEventDeleted)

	return nil
}

func (s *EventService) afterWrite(ctx context.Context, event *models.Event, subject string) {
	if s.search != nil {
		if err := s.search.IndexEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Warn("Failed to index event", "error", err, "event_id", event.ID.Hex())
		}
	}
	s.invalidateCache(ctx)
	s.publishChange(ctx, event, subject)
}

func (s *EventService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateEventsList(ctx); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate events cache", "error", err)
	}
}

func (s *EventService) publishChange(ctx context.Context, event *models.Event, subject string) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(subject, models.EventChangedEvent{
		EventID:   event.ID.Hex(),
		EventCode: event.EventCode,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.WithContext(ctx).Error("Failed to publish event change", "error", err, "subject", subject)
	}
}
