// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ncruz89/share-space-app-backend/internal/handlers"
	"github.com/ncruz89/share-space-app-backend/internal/middleware"
	"github.com/ncruz89/share-space-app-backend/internal/monitoring"
	"github.com/ncruz89/share-space-app-backend/internal/services"
	"github.com/ncruz89/share-space-app-backend/internal/store"
	"github.com/ncruz89/share-space-app-backend/internal/uploads"
)

const ServiceName = "share-places-api"

type Deps struct {
	Store    store.Store
	Places   *services.PlaceService
	Users    *services.UserService
	Tokens   middleware.TokenVerifier
	Uploader *uploads.Uploader
	Metrics  *monitoring.Metrics
	Monitor  *monitoring.Service
	Logger   *slog.Logger

	CORSAllowOrigin     string
	StoreTimeout        time.Duration
	AuthRateLimitPerMin int
	AuthRateLimitBurst  int
	MonitoringAPIKey    string
}

func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(d.Uploader, logger),
		middleware.RequestIDMiddleware(logger),
		otelgin.Middleware(ServiceName),
		d.Metrics.RequestMetricsMiddleware(),
		middleware.CORS(d.CORSAllowOrigin),
		middleware.ErrorResponder(d.Uploader, logger),
		middleware.RequestTimeout(d.StoreTimeout),
	)

	router.GET("/health", handlers.Health(d.Store))
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	router.Static("/"+uploads.RefPrefix, d.Uploader.ImagesDir())

	api := router.Group("/api")
	api.GET("/status", handlers.Status)

	places := handlers.NewPlaceHandler(d.Places)
	placeRoutes := api.Group("/places")
	placeRoutes.GET("/:placeId", places.GetPlaceByID)
	placeRoutes.GET("/user/:userId", places.GetPlacesByUserID)

	protected := placeRoutes.Group("", middleware.AuthMiddleware(d.Tokens))
	protected.POST("", d.Uploader.SingleImage("image"), places.CreatePlace)
	protected.PATCH("/:placeId", places.UpdatePlace)
	protected.DELETE("/:placeId", places.DeletePlace)

	limiter := middleware.NewRateLimiter(d.AuthRateLimitPerMin, d.AuthRateLimitBurst)
	users := handlers.NewUserHandler(d.Users)
	userRoutes := api.Group("/users")
	userRoutes.GET("", users.GetUsers)
	userRoutes.POST("/signup", limiter.Middleware(), d.Uploader.SingleImage("image"), users.Signup)
	userRoutes.POST("/login", limiter.Middleware(), users.Login)

	monitor := handlers.NewMonitorHandler(d.Monitor, d.MonitoringAPIKey)
	monitorRoutes := api.Group("/monitor", monitor.RequireKey())
	monitorRoutes.GET("/status", monitor.Status)
	monitorRoutes.GET("/storage", monitor.Storage)
	monitorRoutes.GET("/runtime", monitor.Runtime)
	monitorRoutes.GET("/snapshot", monitor.Snapshot)
	monitorRoutes.GET("/files", monitor.Files)
	monitorRoutes.GET("/all", monitor.All)
	monitorRoutes.GET("/help", monitor.Help)

	router.NoRoute(middleware.NotFound)

	return router
}
