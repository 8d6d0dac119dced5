package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tazkara/internal/auth"
	"tazkara/internal/cache"
	"tazkara/internal/config"
	"tazkara/internal/database"
	"tazkara/internal/external"
	"tazkara/internal/handlers"
	"tazkara/internal/logger"
	"tazkara/internal/messaging"
	"tazkara/internal/metrics"
	"tazkara/internal/middleware"
	"tazkara/internal/repository"
	"tazkara/internal/search"
	"tazkara/internal/service"
)

// Server is the HTTP API server with its backing connections.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	redis    *cache.RedisClient
	es       *search.ElasticsearchClient
	nats     *messaging.NATSClient
	services *service.Services
	tokens   *auth.TokenManager
}

// NewServer wires the whole application. Mongo is required; Redis,
// Elasticsearch and NATS are attached only when configured, and their
// absence degrades the feature rather than failing startup.
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var redisClient *cache.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Get().Warn("Redis unavailable, events list caching disabled", "error", err)
			redisClient = nil
		}
	}

	var esClient *search.ElasticsearchClient
	if cfg.Search.URL != "" {
		esClient, err = search.NewElasticsearchClient(cfg.Search)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, search falls back to listing", "error", err)
			esClient = nil
		}
	}

	var natsClient *messaging.NATSClient
	var publisher service.Publisher
	if cfg.NATS.URL != "" {
		natsClient, err = messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			logger.Get().Warn("NATS unavailable, lifecycle messages disabled", "error", err)
			natsClient = nil
		} else {
			publisher = natsClient
		}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	repos := repository.NewRepositories(db)
	gateway := external.NewStripeClient(cfg.Stripe)

	services := service.NewServices(service.Deps{
		Repos:       repos,
		Gateway:     gateway,
		Tokens:      tokens,
		Cache:       redisClient,
		Search:      esClient,
		Publisher:   publisher,
		FrontendURL: cfg.FrontendURL,
		UploadsDir:  cfg.UploadsDir,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.FrontendURL))
	router.Use(metrics.Middleware())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		redis:    redisClient,
		es:       esClient,
		nats:     natsClient,
		services: services,
		tokens:   tokens,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)
	authn := middleware.BearerAuth(s.tokens, s.config.BearerKey)

	// Booking endpoints. The webhook stays outside the auth group: the
	// gateway authenticates with its signature, not a user token.
	s.router.POST("/booking/webhook", h.HandleWebhook)

	booking := s.router.Group("/booking", authn)
	{
		booking.POST("", middleware.Authorize(auth.ResourceBookings, auth.ActionCreate), h.CreateBooking)
		booking.GET("", middleware.Authorize(auth.ResourceBookings, auth.ActionRead), h.ListBookings)
		booking.GET("/confirm", middleware.Authorize(auth.ResourceBookings, auth.ActionRead), h.ConfirmBooking)
		booking.POST("/cancel", middleware.Authorize(auth.ResourceBookings, auth.ActionDelete), h.CancelBooking)
	}

	// Event endpoints. Reads are public, writes go through the policy table.
	events := s.router.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/search", h.SearchEvents)
		events.GET("/:id", h.GetEvent)
		events.POST("", authn, middleware.Authorize(auth.ResourceEvents, auth.ActionCreate), h.CreateEvent)
		events.PUT("/:id", authn, middleware.Authorize(auth.ResourceEvents, auth.ActionUpdate), h.UpdateEvent)
		events.DELETE("/:id", authn, middleware.Authorize(auth.ResourceEvents, auth.ActionDelete), h.DeleteEvent)
	}

	categories := s.router.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.GET("/:id", h.GetCategory)
		categories.POST("", authn, middleware.Authorize(auth.ResourceCategories, auth.ActionCreate), h.CreateCategory)
		categories.PUT("/:id", authn, middleware.Authorize(auth.ResourceCategories, auth.ActionUpdate), h.UpdateCategory)
		categories.DELETE("/:id", authn, middleware.Authorize(auth.ResourceCategories, auth.ActionDelete), h.DeleteCategory)
	}

	users := s.router.Group("/users")
	{
		users.POST("/signup", h.Signup)
		users.POST("/login", h.Login)
		users.GET("", authn, middleware.Authorize(auth.ResourceUsers, auth.ActionRead), h.ListUsers)
		users.GET("/:id", authn, middleware.Authorize(auth.ResourceUsers, auth.ActionRead), h.GetUser)
		users.PATCH("/:id/role", authn, middleware.Authorize(auth.ResourceUsers, auth.ActionUpdate), h.UpdateUserRole)
	}

	s.router.GET("/permissions", authn, middleware.Authorize(auth.ResourcePermissions, auth.ActionRead), h.ListPermissions)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Client.Ping(ctx, nil); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"mongo":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "tazkara-api",
	})
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	logger.Get().Info("Starting HTTP server", "addr", addr)
	return s.router.Run(addr)
}

// GetRouter returns the router for testing.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the backing connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.db.Close(ctx); err != nil {
			logger.Get().Error("Error closing MongoDB connection", "error", err)
			return err
		}
	}

	return nil
}
