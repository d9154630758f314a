package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/kashmirtrails/packages-backend/internal/config"
	"github.com/kashmirtrails/packages-backend/internal/database"
	"github.com/kashmirtrails/packages-backend/internal/handlers"
	"github.com/kashmirtrails/packages-backend/internal/middleware"
	"github.com/kashmirtrails/packages-backend/internal/services"
	"github.com/kashmirtrails/packages-backend/pkg/forecastapi"
	"github.com/kashmirtrails/packages-backend/pkg/hotelapi"
	"github.com/kashmirtrails/packages-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting KashmirTrails Packages Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize repositories
	catalogRepo := database.NewCatalogRepository(db)
	weatherRepo := database.NewWeatherRepository(db)
	packageRepo := database.NewPackageRepository(db)
	profileRepo := database.NewProfileRepository(db)

	// Initialize provider clients
	forecastClient := forecastapi.NewClient(cfg.Forecast.BaseURL, cfg.Forecast.APIKey)
	hotelClient := hotelapi.NewClient(cfg.Hotel.BaseURL, cfg.Hotel.APIKey)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	weatherService := services.NewWeatherService(weatherRepo, forecastClient, cfg.Forecast.HorizonDays, logger)
	hotelService := services.NewHotelSourcingService(hotelClient, cfg.Engine, logger)
	itineraryService := services.NewItineraryService(catalogRepo, weatherService, hotelService, cfg.Engine, logger)
	dedupService := services.NewDedupService(cfg.Engine.DedupTTL)
	bookingService := services.NewBookingService(packageRepo, profileRepo, logger)
	packageService := services.NewPackageService(packageRepo, catalogRepo, itineraryService, dedupService, bookingService, logger)

	// Initialize and start the weather refresh scheduler
	refreshService := services.NewWeatherRefreshService(catalogRepo, weatherService, cfg.Engine.WeatherRefreshSpec, logger)
	if err := refreshService.Start(); err != nil {
		logger.Fatalf("Failed to start weather refresh scheduler: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	packageHandler := handlers.NewPackageHandler(packageService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		packages := v1.Group("/packages")
		{
			// Anonymous callers are a legitimate state on these endpoints: a
			// booking without a token moves the package to awaiting_auth, and
			// public packages are viewable without signing in.
			optional := packages.Group("")
			optional.Use(middleware.OptionalAuth(jwtService))
			{
				optional.POST("/generate", packageHandler.Generate)
				optional.GET("/:id", packageHandler.Get)
				optional.POST("/:id/book", packageHandler.Book)
			}

			// Mutating and personal endpoints require a signed-in caller.
			protected := packages.Group("")
			protected.Use(middleware.RequireAuth(jwtService))
			{
				protected.GET("/history", packageHandler.History)
				protected.PATCH("/:id", packageHandler.Update)
				protected.POST("/:id/clone", packageHandler.Clone)
			}
		}

		// Admin cron management routes
		admin := v1.Group("/admin")
		admin.Use(middleware.RequireAuth(jwtService))
		{
			admin.POST("/weather/refresh", func(c *gin.Context) {
				refreshed, failed := refreshService.RefreshAll(c.Request.Context())
				c.JSON(http.StatusOK, gin.H{
					"message":   "Weather refresh triggered",
					"refreshed": refreshed,
					"failed":    failed,
				})
			})
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the weather refresh scheduler before the HTTP server
	logger.Info("Stopping weather refresh scheduler...")
	refreshService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		// Record auth presence, never the token itself
		fields["has_auth"] = c.GetHeader("Authorization") != ""

		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
