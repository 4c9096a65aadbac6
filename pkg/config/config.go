package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// minSecretLen is the minimum length an encryption secret must have before it is
// trusted for key derivation. Shorter values fall through the resolution chain.
const minSecretLen = 32

// devFallbackSecret is the key-derivation input of last resort. Ciphertexts produced
// under it are NOT secure; Resolve logs loudly when it is used.
const devFallbackSecret = "dialdesk-dev-only-encryption-secret"

// Config holds all configuration for dialdesk-admin.
// Values come from a YAML file (config.yaml) or environment variables; environment
// variables override YAML. Secrets must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database is the dashboard's own configuration store (products, product
	// database configs, activity logs).
	Database DatabaseConfig `yaml:"database"`

	// Redis backs the response cache for schema listings. Optional.
	Redis RedisConfig `yaml:"redis"`

	// Auth configures the admin bearer-token middleware.
	Auth AuthConfig `yaml:"auth"`

	// Discovery tunes the tenant schema discovery subsystem.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// EncryptionKey is the preferred secret for credential encryption.
	// Must be at least 32 characters to be used.
	EncryptionKey string `yaml:"-" env:"CREDENTIALS_ENCRYPTION_KEY"`

	// ServiceRoleKey is the platform's own Supabase service key. Doubles as the
	// second choice in the encryption secret chain for deployments that predate
	// CREDENTIALS_ENCRYPTION_KEY.
	ServiceRoleKey string `yaml:"-" env:"SUPABASE_SERVICE_ROLE_KEY"`
}

// DatabaseConfig holds PostgreSQL settings for the configuration store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dialdesk"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dialdesk_admin"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// URL renders the pool connection string.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis settings. An empty host disables caching.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// TablesTTLSeconds is how long cached schema listings stay valid.
	TablesTTLSeconds int `yaml:"tables_ttl_seconds" env:"REDIS_TABLES_TTL_SECONDS" env-default:"60"`
}

// AuthConfig holds settings for the admin API token check.
type AuthConfig struct {
	// JWTSecret signs and verifies admin session tokens (HS256).
	JWTSecret string `yaml:"-" env:"ADMIN_JWT_SECRET"`
	// EnableVerification can be disabled for local development.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`
}

// DiscoveryConfig tunes schema discovery against tenant databases.
type DiscoveryConfig struct {
	// ProbeTables are tried in order by connectivity probes. Two entries because
	// tenant schemas split between a "profiles" and a "users" convention.
	ProbeTables []string `yaml:"probe_tables" env:"DISCOVERY_PROBE_TABLES" env-separator:"," env-default:"profiles,users"`

	// CandidateTables is the guess list for last-resort heuristic discovery.
	// Deployment-specific tribal knowledge lives here, not in code.
	CandidateTables []string `yaml:"candidate_tables" env:"DISCOVERY_CANDIDATE_TABLES" env-separator:"," env-default:"users,profiles,customers,clients,leads,contacts,accounts,organizations,companies,deals,opportunities,orders,invoices,payments,subscriptions,products,services,appointments,bookings,calls,messages,conversations,notes,tasks,campaigns"`

	// SampleSize bounds the row sample fetched by table inspection.
	SampleSize int `yaml:"sample_size" env:"DISCOVERY_SAMPLE_SIZE" env-default:"10"`
}

// Load reads configuration from config.yaml (if present) and the environment.
func Load(version string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Version = version
	return &cfg, nil
}

// ResolveEncryptionSecret walks the secret fallback chain and reports which source
// won. The order is load-bearing: changing it silently breaks decryption of rows
// written under a different effective secret.
//
//  1. CREDENTIALS_ENCRYPTION_KEY, when at least 32 chars.
//  2. SUPABASE_SERVICE_ROLE_KEY, when at least 32 chars.
//  3. A hardcoded development default.
func (c *Config) ResolveEncryptionSecret() (secret string, source string) {
	if len(c.EncryptionKey) >= minSecretLen {
		return c.EncryptionKey, "CREDENTIALS_ENCRYPTION_KEY"
	}
	if len(c.ServiceRoleKey) >= minSecretLen {
		return c.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY"
	}
	return devFallbackSecret, "dev-fallback"
}
