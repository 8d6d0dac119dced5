package jobs

import (
	"context"
	"time"

	"tazkara/internal/logger"
	"tazkara/internal/models"
	"tazkara/internal/repository"
)

const checkInterval = 30 * time.Second

// ExpirationJob purges pending bookings whose checkout was abandoned. A
// pending claim never took inventory, so removal just frees the (user,
// event) slot for a retry.
type ExpirationJob struct {
	bookings  *repository.BookingRepository
	publisher Publisher
	timeout   time.Duration
	ticker    *time.Ticker
	done      chan bool
}

// Publisher emits lifecycle messages. May be nil when messaging is disabled.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

func NewExpirationJob(bookings *repository.BookingRepository, publisher Publisher, timeout time.Duration) *ExpirationJob {
	return &ExpirationJob{
		bookings:  bookings,
		publisher: publisher,
		timeout:   timeout,
		done:      make(chan bool),
	}
}

// Start begins the background job that checks for expired claims periodically.
func (j *ExpirationJob) Start(ctx context.Context) {
	logger.Get().Info("Starting booking expiration job",
		"check_interval", checkInterval.String(),
		"timeout", j.timeout.String())

	j.ticker = time.NewTicker(checkInterval)

	// Run initial check immediately
	go j.checkExpired(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.checkExpired(ctx)
			case <-j.done:
				logger.Get().Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *ExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ExpirationJob) checkExpired(ctx context.Context) {
	cutoff := time.Now().Add(-j.timeout)

	expired, err := j.bookings.GetExpiredPending(ctx, cutoff)
	if err != nil {
		logger.Get().Error("Failed to get expired bookings", "error", err)
		return
	}

	if len(expired) == 0 {
		logger.Get().Debug("No expired bookings found")
		return
	}

	logger.Get().Info("Found expired bookings to purge", "count", len(expired))

	for _, booking := range expired {
		// DeletePending is conditional on the booking still being pending,
		// so a webhook completing it concurrently wins.
		removed, err := j.bookings.DeletePending(ctx, booking.ID)
		if err != nil {
			logger.Get().Error("Failed to purge expired booking",
				"error", err,
				"booking_id", booking.ID.Hex())
			continue
		}
		if !removed {
			logger.Get().Info("Skipped booking completed during expiration check",
				"booking_id", booking.ID.Hex())
			continue
		}

		logger.Get().Info("Purged expired booking",
			"booking_id", booking.ID.Hex(),
			"event_id", booking.Event.Hex(),
			"age", time.Since(booking.BookingDate).String())

		if j.publisher != nil {
			err := j.publisher.Publish(models.SubjectBookingExpired, models.BookingExpiredEvent{
				BookingID: booking.ID.Hex(),
				EventID:   booking.Event.Hex(),
				Reason:    "checkout_abandoned",
				Timestamp: time.Now(),
			})
			if err != nil {
				logger.Get().Error("Failed to publish expiration message", "error", err)
			}
		}
	}
}
