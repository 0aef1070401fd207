// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Taxonomy TaxonomyConfig
	Audit    AuditConfig
	Security SecurityConfig
	Lock     LockConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, imports can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, from DATABASE_URL or DB_URL.
	// Commands that touch the database fail without it; a dry-run import does
	// not need it.
	URL string `env:"DATABASE_URL,DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds source locations and import behavior.
type ImportConfig struct {
	// DataDir is where relative source file names are looked up (default: data)
	DataDir string `env:"IMPORT_DATA_DIR" default:"data"`

	// BranchFiles are the branch network exports, applied in order
	BranchFiles []string `env:"IMPORT_BRANCH_FILES" default:"Hawassa District WAN Address.csv,WAN-IP and TUNNEL-on-OSPF.csv"`

	// ContactFiles are the branch contact lists
	ContactFiles []string `env:"IMPORT_CONTACT_FILES" default:"contact_person.csv"`

	// ATMFiles are the ATM master lists
	ATMFiles []string `env:"IMPORT_ATM_FILES" default:"atm_all.csv"`

	// SupplementaryFiles are the off-site network exports
	SupplementaryFiles []string `env:"IMPORT_SUPPLEMENTARY_FILES" default:"ATMs - Off - WAN - IP.csv"`

	// Encodings overrides the reader's encoding fallback order
	Encodings []string `env:"IMPORT_ENCODINGS"`

	// BranchMatchTier caps branch name resolution for the branch phase:
	// exact, fold, contains or first-token (default: fold)
	BranchMatchTier string `env:"IMPORT_BRANCH_MATCH_TIER" default:"fold"`

	// Interval runs a scheduled import under serve; 0 disables it (default: 0)
	Interval time.Duration `env:"IMPORT_INTERVAL" default:"0s"`

	// MaxWaitTime is how long a blocking run waits for the run slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// TaxonomyConfig is the region and districts ensured before every import.
type TaxonomyConfig struct {
	RegionName      string   `env:"TAXONOMY_REGION_NAME" default:"South Region"`
	RegionCode      string   `env:"TAXONOMY_REGION_CODE" default:"SOUTH"`
	Districts       []string `env:"TAXONOMY_DISTRICTS" default:"Hawassa,Shashemene,Dilla"`
	DefaultDistrict string   `env:"TAXONOMY_DEFAULT_DISTRICT" default:"Hawassa"`
}

// AuditConfig holds import journal settings.
type AuditConfig struct {
	// Dir receives one JSONL journal per source file (default: data/imported)
	Dir string `env:"AUDIT_DIR" default:"data/imported"`
}

// SecurityConfig holds settings for the HTTP trigger surface.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards the import trigger with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LockConfig holds the cross-process import lock settings.
type LockConfig struct {
	// RedisURL enables the lock when set, e.g. redis://localhost:6379/0
	RedisURL string `env:"REDIS_URL"`

	// Key is the Redis key holding the lock (default: netinventory:import)
	Key string `env:"LOCK_KEY" default:"netinventory:import"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Paths resolves file names against DataDir. Absolute names are kept.
func (c *ImportConfig) Paths(files []string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if filepath.IsAbs(f) {
			out = append(out, f)
			continue
		}
		out = append(out, filepath.Join(c.DataDir, f))
	}
	return out
}
