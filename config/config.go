// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// Store backends.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Server variants.
const (
	VariantBasic = "basic"
	VariantFull  = "full"
)

// Config is the full process configuration. Defaults are provided via
// envdecode struct tags.
type Config struct {
	// ServerName is reported to clients during initialize. ENV: MCP_SERVER_NAME
	ServerName string `env:"MCP_SERVER_NAME,default=mcp-server"`
	// ServerVersion is reported to clients during initialize. ENV: MCP_SERVER_VERSION
	ServerVersion string `env:"MCP_SERVER_VERSION,default=1.0.0"`
	// Variant selects the registered capabilities: basic or full. ENV: MCP_VARIANT
	Variant string `env:"MCP_VARIANT,default=full"`

	// Store selects the record backend. ENV: USERS_STORE
	Store string `env:"USERS_STORE,default=file"`
	// UsersFile is the JSON document for the file store. ENV: USERS_FILE
	UsersFile string `env:"USERS_FILE,default=data/users.json"`
	// SQLitePath is the database file for the sqlite store. ENV: USERS_SQLITE_PATH
	SQLitePath string `env:"USERS_SQLITE_PATH,default=data/users.db"`
	// PostgresDSN is required for the postgres store. ENV: USERS_POSTGRES_DSN
	PostgresDSN string `env:"USERS_POSTGRES_DSN"`
	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// RedisKeyPrefix namespaces the redis store's keys. ENV: USERS_REDIS_PREFIX
	RedisKeyPrefix string `env:"USERS_REDIS_PREFIX,default=mcp:userdir:"`
	// Watch enables change notifications for external edits of UsersFile. ENV: USERS_WATCH
	Watch bool `env:"USERS_WATCH,default=true"`

	// LogLevel is one of debug, info, warn, error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: LOG_FORMAT
	LogFormat string `env:"LOG_FORMAT,default=text"`
	// LogWire logs every JSON-RPC message to stderr. ENV: MCP_LOG_WIRE
	LogWire bool `env:"MCP_LOG_WIRE,default=false"`
}

// Load decodes the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := Decode()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode reads the environment without validating, so that callers can
// apply overrides first.
func Decode() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize lower-cases the enumerated settings.
func (c *Config) Normalize() {
	c.Variant = strings.ToLower(strings.TrimSpace(c.Variant))
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Variant {
	case VariantBasic, VariantFull:
	default:
		return fmt.Errorf("config: unknown variant %q (want basic or full)", c.Variant)
	}
	switch c.Store {
	case StoreFile:
		if c.UsersFile == "" {
			return errors.New("config: USERS_FILE must not be empty for the file store")
		}
	case StoreMemory, StoreRedis:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return errors.New("config: USERS_SQLITE_PATH must not be empty for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("config: USERS_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}
