package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration.
// It is constructed once at startup, validated, and injected into every
// component constructor.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SecurityConfig holds every threshold and secret of the security core.
type SecurityConfig struct {
	JWTSecret        string
	EncryptionSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	RequestsPerMinute int
	BurstLimit        int
	IdleEviction      time.Duration
	SweepInterval     time.Duration

	MaxPayloadBytes int64

	LockoutThreshold int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
	MinPasswordLen   int

	// TrustProxy decides whether forwarded-address headers are honored when
	// resolving a client's identity. Deployment-time switch, never inferred
	// from the request itself.
	TrustProxy bool
}

// ObservabilityConfig holds logging and error reporting configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
	SentryDSN string
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "compliance"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "compliance"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTSecret:         getEnv("JWT_SECRET", ""),
			EncryptionSecret:  getEnv("ENCRYPTION_SECRET", ""),
			AccessTokenTTL:    getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTokenTTL:   getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
			BurstLimit:        getEnvAsInt("RATE_LIMIT_BURST", 10),
			IdleEviction:      getEnvAsDuration("RATE_LIMIT_IDLE_EVICTION", 5*time.Minute),
			SweepInterval:     getEnvAsDuration("RATE_LIMIT_SWEEP_INTERVAL", time.Minute),
			MaxPayloadBytes:   getEnvAsInt64("MAX_PAYLOAD_BYTES", 10*1024*1024),
			LockoutThreshold:  getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutDuration:   getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			ResetTokenTTL:     getEnvAsDuration("RESET_TOKEN_TTL", 30*time.Minute),
			MinPasswordLen:    getEnvAsInt("MIN_PASSWORD_LENGTH", 12),
			TrustProxy:        getEnvAsBool("TRUST_PROXY", false),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
			SentryDSN: getEnv("SENTRY_DSN", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Security.EncryptionSecret == "" {
		return fmt.Errorf("ENCRYPTION_SECRET is required")
	}
	if c.Security.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit per minute must be positive")
	}
	if c.Security.BurstLimit <= 0 {
		return fmt.Errorf("burst limit must be positive")
	}
	if c.Security.LockoutThreshold <= 0 {
		return fmt.Errorf("lockout threshold must be positive")
	}
	if c.Security.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload size must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
