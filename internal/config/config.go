package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Hotel inventory provider configuration
	Hotel HotelProviderConfig

	// Forecast provider configuration
	Forecast ForecastProviderConfig

	// Package generation engine tuning
	Engine EngineConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// HotelProviderConfig holds hotel inventory provider configuration
type HotelProviderConfig struct {
	BaseURL string
	APIKey  string
}

// ForecastProviderConfig holds forecast provider configuration
type ForecastProviderConfig struct {
	BaseURL     string
	APIKey      string
	HorizonDays int // how many days ahead the provider can forecast
}

// EngineConfig holds package generation tuning knobs
type EngineConfig struct {
	Currency           string
	DedupTTL           time.Duration
	DayWorkerLimit     int // concurrent per-day facet lookups
	HotelNarrowRadiusKm int
	HotelWideRadiusKm  int
	HotelShortlistSize int
	HotelOfferBatchSize int
	WeatherRefreshSpec string // cron spec for the snapshot refresher
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Hotel: HotelProviderConfig{
			BaseURL: getEnv("HOTEL_API_URL", "https://inventory.stayscout.io/v1"),
			APIKey:  getEnv("HOTEL_API_KEY", ""),
		},
		Forecast: ForecastProviderConfig{
			BaseURL:     getEnv("FORECAST_API_URL", "https://api.skycast.dev/v1/forecast"),
			APIKey:      getEnv("FORECAST_API_KEY", ""),
			HorizonDays: getEnvAsInt("FORECAST_HORIZON_DAYS", 14),
		},
		Engine: EngineConfig{
			Currency:            getEnv("PACKAGE_CURRENCY", "INR"),
			DedupTTL:            time.Duration(getEnvAsInt("DEDUP_TTL_SECONDS", 10)) * time.Second,
			DayWorkerLimit:      getEnvAsInt("DAY_WORKER_LIMIT", 4),
			HotelNarrowRadiusKm: getEnvAsInt("HOTEL_NARROW_RADIUS_KM", 5),
			HotelWideRadiusKm:   getEnvAsInt("HOTEL_WIDE_RADIUS_KM", 25),
			HotelShortlistSize:  getEnvAsInt("HOTEL_SHORTLIST_SIZE", 15),
			HotelOfferBatchSize: getEnvAsInt("HOTEL_OFFER_BATCH_SIZE", 5),
			WeatherRefreshSpec:  getEnv("WEATHER_REFRESH_CRON", "0 0 1 * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Engine.DedupTTL <= 0 {
		return fmt.Errorf("DEDUP_TTL_SECONDS must be positive")
	}

	if c.Engine.DayWorkerLimit < 1 {
		return fmt.Errorf("DAY_WORKER_LIMIT must be at least 1")
	}

	if c.Engine.HotelOfferBatchSize < 1 {
		return fmt.Errorf("HOTEL_OFFER_BATCH_SIZE must be at least 1")
	}

	if c.Forecast.HorizonDays < 1 {
		return fmt.Errorf("FORECAST_HORIZON_DAYS must be at least 1")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
