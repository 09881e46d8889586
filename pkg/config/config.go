package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/bedfinder/backend/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Registry    RegistryConfig
	Discovery   DiscoveryConfig
	Auth        AuthConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
	// AllowedOrigins lists CORS origins; "*" allows any.
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RegistryConfig configures the public open-map registry used for discovery.
type RegistryConfig struct {
	Provider string // "overpass" or "mock"
	Endpoint string
	// QueryTimeout is enforced by the upstream interpreter ([timeout:N]).
	QueryTimeout time.Duration
	// HTTPTimeout bounds the whole round trip on our side.
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
}

// DiscoveryConfig holds tuning for nearby search and reconciliation.
type DiscoveryConfig struct {
	DefaultRadiusKm float64
	// DedupLatTolerance is the latitude window, in degrees, within which a
	// same-named authoritative record counts as already present.
	DedupLatTolerance float64
	SyncWorkers       int
	SyncQueueSize     int
	SyncTimeout       time.Duration
}

// AuthConfig holds session token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment wins.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	if err := applyVaultSecrets(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "bedfinder"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Registry: RegistryConfig{
			Provider:     getEnv("REGISTRY_PROVIDER", "overpass"),
			Endpoint:     getEnv("REGISTRY_ENDPOINT", "https://overpass-api.de/api/interpreter"),
			QueryTimeout: getEnvAsSeconds("REGISTRY_QUERY_TIMEOUT_SECONDS", 25),
			HTTPTimeout:  getEnvAsSeconds("REGISTRY_HTTP_TIMEOUT_SECONDS", 30),
			CacheTTL:     getEnvAsSeconds("REGISTRY_CACHE_TTL_SECONDS", 600),
		},
		Discovery: DiscoveryConfig{
			DefaultRadiusKm:   getEnvAsFloat("DISCOVERY_DEFAULT_RADIUS_KM", 10),
			DedupLatTolerance: getEnvAsFloat("DISCOVERY_DEDUP_LAT_TOLERANCE", 0.001),
			SyncWorkers:       getEnvAsInt("DISCOVERY_SYNC_WORKERS", 2),
			SyncQueueSize:     getEnvAsInt("DISCOVERY_SYNC_QUEUE_SIZE", 64),
			SyncTimeout:       getEnvAsSeconds("DISCOVERY_SYNC_TIMEOUT_SECONDS", 60),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "bedfinder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Discovery.DefaultRadiusKm <= 0 {
		return fmt.Errorf("DISCOVERY_DEFAULT_RADIUS_KM must be positive, got %v", c.Discovery.DefaultRadiusKm)
	}
	if c.Discovery.DedupLatTolerance < 0 {
		return fmt.Errorf("DISCOVERY_DEDUP_LAT_TOLERANCE must not be negative, got %v", c.Discovery.DedupLatTolerance)
	}
	if c.Discovery.SyncWorkers < 1 {
		return fmt.Errorf("DISCOVERY_SYNC_WORKERS must be at least 1, got %d", c.Discovery.SyncWorkers)
	}
	switch c.Registry.Provider {
	case "overpass", "mock":
	default:
		return fmt.Errorf("unknown REGISTRY_PROVIDER %q", c.Registry.Provider)
	}
	return nil
}

// applyVaultSecrets fills unset secret variables from Vault when
// VAULT_ENABLED=true. Values already in the environment win.
func applyVaultSecrets() error {
	vaultCfg := secrets.VaultConfigFromEnv()
	if !vaultCfg.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	values, err := secrets.FetchVaultSecrets(ctx, vaultCfg, secrets.Keys)
	if err != nil {
		return fmt.Errorf("failed to load secrets from vault: %w", err)
	}
	for key, value := range values {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
