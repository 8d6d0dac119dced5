package service

import (
	"tazkara/internal/auth"
	"tazkara/internal/cache"
	"tazkara/internal/repository"
	"tazkara/internal/search"
)

// Services bundles the application services behind the HTTP layer.
type Services struct {
	Bookings   *BookingService
	Events     *EventService
	Categories *CategoryService
	Users      *UserService
}

// Deps carries the infrastructure the services are wired with. Cache,
// Search and Publisher may be nil when the backing system is not configured.
type Deps struct {
	Repos       *repository.Repositories
	Gateway     PaymentGateway
	Tokens      *auth.TokenManager
	Cache       *cache.RedisClient
	Search      *search.ElasticsearchClient
	Publisher   Publisher
	FrontendURL string
	UploadsDir  string
}

func NewServices(d Deps) *Services {
	return &Services{
		Bookings:   NewBookingService(d.Repos.Events, d.Repos.Bookings, d.Repos.WebhookEvents, d.Gateway, d.Publisher, d.FrontendURL),
		Events:     NewEventService(d.Repos.Events, d.Repos.Categories, d.Cache, d.Search, d.Publisher, d.UploadsDir),
		Categories: NewCategoryService(d.Repos.Categories),
		Users:      NewUserService(d.Repos.Users, d.Tokens),
	}
}
