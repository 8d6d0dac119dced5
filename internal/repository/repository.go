package repository

import (
	"tazkara/internal/database"
)

type Repositories struct {
	Events        *EventRepository
	Bookings      *BookingRepository
	Categories    *CategoryRepository
	Users         *UserRepository
	WebhookEvents *WebhookEventRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:        NewEventRepository(db),
		Bookings:      NewBookingRepository(db),
		Categories:    NewCategoryRepository(db),
		Users:         NewUserRepository(db),
		WebhookEvents: NewWebhookEventRepository(db),
	}
}
