package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/logger"
	"tazkara/internal/models"
)

// CreateBooking - POST /booking
// Claims a slot for the caller and returns the hosted checkout URL.
func (h *Handlers) CreateBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Bookings.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// HandleWebhook - POST /booking/webhook
// Gateway notifications. Unauthenticated; trust comes from the signature.
func (h *Handlers) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondBindError(c, err)
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")

	if err := h.services.Bookings.HandleWebhook(c.Request.Context(), payload, sigHeader); err != nil {
		logger.WithContext(c.Request.Context()).Error("Webhook processing failed", "error", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// ConfirmBooking - GET /booking/confirm?sessionId=...
// Lets the success page resolve a checkout session to the caller's booking.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		respondBindError(c, errSessionIDRequired)
		return
	}

	booking, err := h.services.Bookings.Confirm(c.Request.Context(), userID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// ListBookings - GET /booking
// One page of the caller's completed bookings.
func (h *Handlers) ListBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	page, size, err := pagination(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Bookings.List(c.Request.Context(), userID, page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelBooking - POST /booking/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Bookings.Cancel(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
