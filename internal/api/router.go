package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/postpilot/content-system/internal/api/handler"
	"github.com/postpilot/content-system/internal/api/middleware"
	"github.com/postpilot/content-system/internal/core/domain"
	"github.com/postpilot/content-system/internal/core/ports"
)

// Deps carries everything the router needs. The services are constructed in
// main so the dispatcher, scheduler, and HTTP layer share the same instances.
type Deps struct {
	Mongo *mongo.Database
	Redis *redis.Client

	Queue   handler.MessageQueue
	Users   ports.UserRepository
	Posts   ports.PostRepository
	Catalog ports.ContentCatalog
	Session ports.SessionService
	Auth    ports.AuthService

	JWTSecret   string
	WeeklyLimit int
	Log         zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("content_system"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	messageHandler := handler.NewMessageHandler(d.Queue)
	adminHandler := handler.NewAdminHandler(d.Users, d.Posts, d.Catalog, d.Session, d.WeeklyLimit)
	authMiddleware := middleware.Auth(d.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Chat transport webhook ---
	e.POST("/v1/messages", messageHandler.Receive)

	// --- Admin routes (JWT + role check) ---
	admin := e.Group("/v1/admin", authMiddleware)
	admin.GET("/users/:id", adminHandler.GetUser, middleware.RBAC(domain.RoleAdmin, domain.RoleViewer))
	admin.GET("/users/:id/posts", adminHandler.GetUserPosts, middleware.RBAC(domain.RoleAdmin, domain.RoleViewer))
	admin.GET("/reminder-day", adminHandler.GetReminderDay, middleware.RBAC(domain.RoleAdmin, domain.RoleViewer))
	admin.PUT("/reminder-day", adminHandler.SetReminderDay, middleware.RBAC(domain.RoleAdmin))
	admin.PUT("/users/:id/subscription", adminHandler.SetSubscription, middleware.RBAC(domain.RoleAdmin))

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	return e
}
