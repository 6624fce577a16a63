// Package config loads process configuration once at startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	StoreDriver string `validate:"oneof=postgres mongo memory"`

	DBHost            string `validate:"required_if=StoreDriver postgres"`
	DBPort            string `validate:"required_if=StoreDriver postgres"`
	DBUser            string `validate:"required_if=StoreDriver postgres"`
	DBPassword        string
	DBName            string `validate:"required_if=StoreDriver postgres"`
	DBSSLMode         string
	DBMaxOpenConns    int `validate:"gt=0"`
	DBMaxIdleConns    int `validate:"gt=0"`
	DBConnMaxIdleTime time.Duration
	DBConnMaxLifetime time.Duration
	MongoURI          string        `validate:"required_if=StoreDriver mongo"`
	MongoDatabase     string        `validate:"required_if=StoreDriver mongo"`
	StoreTimeout      time.Duration `validate:"gt=0"`

	JWTSecret  string        `validate:"required,min=32"`
	TokenTTL   time.Duration `validate:"gt=0"`
	BcryptCost int           `validate:"min=4,max=31"`

	GeocoderAPIKey  string        `validate:"required"`
	GeocoderBaseURL string        `validate:"required,url"`
	GeocoderTimeout time.Duration `validate:"gt=0"`

	UploadsDir    string `validate:"required"`
	MaxImageBytes int64  `validate:"gt=0"`
	PublicBaseURL string `validate:"omitempty,url"`

	CORSAllowOrigin     string `validate:"required"`
	AuthRateLimitPerMin int    `validate:"gt=0"`
	AuthRateLimitBurst  int    `validate:"gt=0"`
	MonitoringAPIKey    string
	OTLPEndpoint        string
	LogLevel            slog.Level
}

// Load reads an optional .env file, then the environment, and validates the
// result. The returned value is treated as read-only by every component.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	jwtSecret := getEnvOrDefault("JWT_SECRET", "")
	if jwtSecret == "" {
		jwtSecret = getEnvOrDefault("JWT_KEY", "")
	}

	cfg := Config{
		Port:              getEnvOrDefault("PORT", "5000"),
		StoreDriver:       strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverPostgres)),
		DBHost:            getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:            getEnvOrDefault("DB_PORT", "5432"),
		DBUser:            getEnvOrDefault("DB_USER", "postgres"),
		DBPassword:        getEnvOrDefault("DB_PASSWORD", "password"),
		DBName:            getEnvOrDefault("DB_NAME", "shareplaces"),
		DBSSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getIntEnvOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getIntEnvOrDefault("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxIdleTime: time.Duration(getIntEnvOrDefault("DB_CONN_MAX_IDLE_MINUTES", 5)) * time.Minute,
		DBConnMaxLifetime: time.Duration(getIntEnvOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		MongoURI:          getEnvOrDefault("MONGO_URI", ""),
		MongoDatabase:     getEnvOrDefault("MONGO_DATABASE", "shareplaces"),
		StoreTimeout:      getDurationEnvOrDefault("STORE_TIMEOUT", 10*time.Second),

		JWTSecret:  jwtSecret,
		TokenTTL:   getDurationEnvOrDefault("TOKEN_TTL", time.Hour),
		BcryptCost: getIntEnvOrDefault("BCRYPT_COST", 12),

		GeocoderAPIKey:  getEnvOrDefault("GOOGLE_API_KEY", ""),
		GeocoderBaseURL: getEnvOrDefault("GEOCODER_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocoderTimeout: getDurationEnvOrDefault("GEOCODER_TIMEOUT", 5*time.Second),

		UploadsDir:    getEnvOrDefault("UPLOADS_DIR", "uploads"),
		MaxImageBytes: int64(getIntEnvOrDefault("MAX_IMAGE_BYTES", 500000)),
		PublicBaseURL: strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", ""), "/"),

		CORSAllowOrigin:     getEnvOrDefault("CORS_ALLOW_ORIGIN", "*"),
		AuthRateLimitPerMin: getIntEnvOrDefault("AUTH_RATE_LIMIT_PER_MINUTE", 10),
		AuthRateLimitBurst:  getIntEnvOrDefault("AUTH_RATE_LIMIT_BURST", 5),
		MonitoringAPIKey:    getEnvOrDefault("MONITORING_API_KEY", ""),
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		LogLevel:            parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct constraints and names every offending field.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			names := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				names = append(names, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(names, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PostgresDSN renders the lib/pq connection string.
func (c Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		slog.Warn("invalid integer setting, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		slog.Warn("invalid duration setting, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}

	return value
}

func parseLogLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
