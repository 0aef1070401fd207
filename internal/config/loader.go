package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/netinventory/internal/core"
)

// Load reads configuration from environment variables, fills in defaults and
// validates the result. Every malformed variable is reported, not just the
// first.
func Load() (*Config, error) {
	cfg := &Config{}

	var errs []error
	loadStruct(reflect.ValueOf(cfg).Elem(), &errs)
	if len(errs) > 0 {
		return nil, fmt.Errorf("config load: %w", errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	stringSliceType = reflect.TypeOf([]string(nil))
)

// loadStruct walks v and fills every field carrying an env tag. The tag is a
// comma-separated list of variable names; the first one set wins, and the
// default tag applies when none is.
func loadStruct(v reflect.Value, errs *[]error) {
	for _, field := range reflect.VisibleFields(v.Type()) {
		if !field.IsExported() {
			continue
		}
		fv := v.FieldByIndex(field.Index)
		if field.Type.Kind() == reflect.Struct {
			loadStruct(fv, errs)
			continue
		}

		tag := field.Tag.Get("env")
		if tag == "" {
			continue
		}
		names := strings.Split(tag, ",")
		raw, ok := lookupEnv(names)
		if !ok {
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}

		if err := decodeInto(fv, raw); err != nil {
			*errs = append(*errs, fmt.Errorf("invalid value for %s=%q: %w", names[0], raw, err))
		}
	}
}

func lookupEnv(names []string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(strings.TrimSpace(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// decodeInto parses raw into the field's type.
func decodeInto(fv reflect.Value, raw string) error {
	switch fv.Type() {
	case durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	case stringSliceType:
		fv.Set(reflect.ValueOf(splitList(raw)))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("not an integer")
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("not a boolean")
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Import validation
	if _, err := core.ParseMatchTier(c.Import.BranchMatchTier); err != nil {
		errs = append(errs, fmt.Sprintf("IMPORT_BRANCH_MATCH_TIER (%q) must be one of: exact, fold, contains, first-token",
			c.Import.BranchMatchTier))
	}
	for _, enc := range c.Import.Encodings {
		if !core.SupportedEncoding(enc) {
			errs = append(errs, fmt.Sprintf("IMPORT_ENCODINGS: unsupported encoding %q", enc))
		}
	}
	if c.Import.Interval < 0 {
		errs = append(errs, "IMPORT_INTERVAL must be non-negative")
	}
	if c.Import.MaxWaitTime < 0 {
		errs = append(errs, "IMPORT_MAX_WAIT_TIME must be non-negative")
	}
	if c.Import.Timeout <= 0 {
		errs = append(errs, "IMPORT_TIMEOUT must be positive")
	}

	// Taxonomy validation
	if strings.TrimSpace(c.Taxonomy.RegionName) == "" {
		errs = append(errs, "TAXONOMY_REGION_NAME is required")
	}

	// Audit validation
	if c.Audit.Dir == "" {
		errs = append(errs, "AUDIT_DIR is required")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Lock validation
	if c.Lock.RedisURL != "" {
		if !strings.HasPrefix(c.Lock.RedisURL, "redis://") && !strings.HasPrefix(c.Lock.RedisURL, "rediss://") {
			errs = append(errs, "REDIS_URL must start with redis:// or rediss://")
		}
		if c.Lock.Key == "" {
			errs = append(errs, "LOCK_KEY is required when REDIS_URL is set")
		}
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// RequireDatabase reports a missing database URL for commands that need one.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Import: {DataDir: %q, BranchMatchTier: %q, Interval: %s}, ",
		c.Import.DataDir, c.Import.BranchMatchTier, c.Import.Interval))
	b.WriteString(fmt.Sprintf("Audit: {Dir: %q}, ", c.Audit.Dir))
	b.WriteString(fmt.Sprintf("Lock: {Enabled: %t, Key: %q}, ", c.Lock.RedisURL != "", c.Lock.Key))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
