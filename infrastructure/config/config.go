package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	domaincfg "memgraph/domain/config"
)

// Persistence driver names
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Persistence
	PersistenceDriver string // memory | dynamodb

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - direct entity id lookups
	EventBusName  string // empty disables event publishing

	// Similarity index
	ChromemPath string // empty keeps the index in memory

	// Cache
	CacheMaxItems int64

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableCORS bool

	// Domain tuning
	Domain *domaincfg.DomainConfig
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:     getEnv("SERVER_ADDRESS", ":8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		PersistenceDriver: getEnv("PERSISTENCE_DRIVER", DriverMemory),
		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:     getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "memgraph")),
		IndexName:         getEnv("INDEX_NAME", "EntityIdIndex"),
		EventBusName:      getEnv("EVENT_BUS_NAME", ""),
		ChromemPath:       getEnv("CHROMEM_PATH", ""),
		CacheMaxItems:     int64(getEnvInt("CACHE_MAX_ITEMS", 10000)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "memgraph"),
		EnableCORS:        getEnvBool("ENABLE_CORS", true),
		Domain:            loadDomainConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadDomainConfig starts from defaults and applies env overrides for
// the knobs operators actually tune
func loadDomainConfig() *domaincfg.DomainConfig {
	d := domaincfg.DefaultDomainConfig()
	d.AtomicRollupThreshold = getEnvInt("ATOMIC_ROLLUP_THRESHOLD", d.AtomicRollupThreshold)
	d.DailyRollupThreshold = getEnvInt("DAILY_ROLLUP_THRESHOLD", d.DailyRollupThreshold)
	d.WeeklyRollupThreshold = getEnvInt("WEEKLY_ROLLUP_THRESHOLD", d.WeeklyRollupThreshold)
	d.SummarizerTimeout = getEnvDuration("SUMMARIZER_TIMEOUT", d.SummarizerTimeout)
	d.MaintenanceLockTTL = getEnvDuration("MAINTENANCE_LOCK_TTL", d.MaintenanceLockTTL)
	return d
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.PersistenceDriver {
	case DriverMemory:
	case DriverDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required with the dynamodb driver")
		}
	default:
		return fmt.Errorf("unknown PERSISTENCE_DRIVER: %q", c.PersistenceDriver)
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}

	if c.CacheMaxItems <= 0 {
		return fmt.Errorf("CACHE_MAX_ITEMS must be positive")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
