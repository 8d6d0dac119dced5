package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/logger"
	"tazkara/internal/middleware"
	"tazkara/internal/service"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

var errSessionIDRequired = errors.New("sessionId is required")

// respondError maps a domain error to its HTTP status and localized message.
// Anything outside the taxonomy becomes an opaque 500.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var de *apperrors.Error
	if errors.As(err, &de) {
		c.JSON(de.Status, gin.H{
			"error":   de.Key,
			"message": apperrors.MessageFor(de.Key),
		})
		return
	}

	logger.WithContext(c.Request.Context()).Error("Unhandled error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// currentUser returns the authenticated user's id. Routes behind BearerAuth
// always have one.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	return middleware.UserIDFromContext(c.Request.Context())
}

// pagination parses page/size query params with sane bounds.
func pagination(c *gin.Context) (int, int, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 0, 0, errors.New("page must be >= 1")
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		return 0, 0, errors.New("size must be between 1 and 100")
	}

	return page, size, nil
}
