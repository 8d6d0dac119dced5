package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
)

// CreateEvent - POST /events
func (h *Handlers) CreateEvent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

// ListEvents - GET /events?query=&date=YYYY-MM-DD&page=&size=
// A query term routes through full-text search; plain listings hit Mongo
// (with the Redis page cache for unfiltered pages).
func (h *Handlers) ListEvents(c *gin.Context) {
	page, size, err := pagination(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	var resp *models.ListEventsResponse
	if query := c.Query("query"); query != "" {
		resp, err = h.services.Events.Search(c.Request.Context(), query, c.Query("date"), page, size)
	} else {
		resp, err = h.services.Events.List(c.Request.Context(), c.Query("date"), page, size)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SearchEvents - GET /events/search?query=&date=&page=&size=
// Bilingual full-text search over name, description and venue.
func (h *Handlers) SearchEvents(c *gin.Context) {
	page, size, err := pagination(c)
	if err != nil {
		respondBindError(c, err)
		return
	}

	resp, err := h.services.Events.Search(c.Request.Context(), c.Query("query"), c.Query("date"), page, size)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetEvent - GET /events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	event, err := h.services.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// UpdateEvent - PUT /events/:id
func (h *Handlers) UpdateEvent(c *gin.Context) {
	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// DeleteEvent - DELETE /events/:id
func (h *Handlers) DeleteEvent(c *gin.Context) {
	if err := h.services.Events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "event deleted"})
}
