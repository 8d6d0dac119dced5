package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tazkara/internal/auth"
	apperrors "tazkara/internal/errors"
	"tazkara/internal/logger"
)

// Ctx keys and helpers for the authenticated user.
// Using an unexported type to avoid collisions.

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	roleKey   ctxKey = "role"
)

func ContextWithUser(ctx context.Context, userID primitive.ObjectID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, roleKey, role)
	// Plain string key mirrors request_id so logger.WithContext picks the
	// user id up for context-scoped log lines.
	return context.WithValue(ctx, "user_id", userID.Hex())
}

func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	id, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return id, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}

// CORS middleware for browser clients
func CORS(allowOrigin string) gin.HandlerFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// RequestID attaches a request id to the gin and request contexts so
// downstream log lines correlate.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = logger.NewRequestID()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)

		ctx := context.WithValue(c.Request.Context(), "request_id", reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Logger middleware for structured request logging
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		userID, exists := c.Get("user_id")

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if exists {
			logFields = append(logFields, "user_id", userID)
		}
		if reqID, ok := c.Get("request_id"); ok {
			logFields = append(logFields, "request_id", reqID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			logger.Get().Error("Request completed with error", logFields...)
		} else {
			logger.Get().Info("Request completed", logFields...)
		}
	}
}

// Recovery middleware that logs the panic and returns a clean 500
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Get().Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// BearerAuth authenticates the request from the Authorization header. The
// header carries the deployment's bearer key as a literal prefix before the
// JWT, so a token leaked from another environment is useless here.
func BearerAuth(tokens *auth.TokenManager, bearerKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, bearerKey)
		if !ok || header == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		ctx := ContextWithUser(c.Request.Context(), userID, claims.Role)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Authorize checks the policy table for the caller's role. Must run after
// BearerAuth.
func Authorize(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c.Request.Context())
		if !ok {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}
		if !auth.Allowed(role, resource, action) {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"error":   err.Key,
		"message": apperrors.MessageFor(err.Key),
	})
}
