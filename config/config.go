// Package config loads the service configuration from YAML or TOML with
// ${VAR} environment expansion.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// SigningKeyEnv overrides auth.signing_key when set.
const SigningKeyEnv = "CERTIWEB_SIGNING_KEY"

type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server" json:"server"`
	Database   DatabaseConfig   `yaml:"database" toml:"database" json:"database"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth" json:"auth"`
	Revocation RevocationConfig `yaml:"revocation" toml:"revocation" json:"revocation"`
	Seed       SeedConfig       `yaml:"seed" toml:"seed" json:"seed"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics" json:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr" json:"addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-" json:"shutdown_timeout"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"-"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" toml:"dsn" json:"dsn"`
}

type AuthConfig struct {
	SigningKey               string        `yaml:"signing_key" toml:"signing_key" json:"-"`
	PreviousSigningKeys      []string      `yaml:"previous_signing_keys" toml:"previous_signing_keys" json:"-"`
	TokenTTL                 time.Duration `yaml:"-" toml:"-" json:"token_ttl"`
	Issuer                   string        `yaml:"issuer" toml:"issuer" json:"issuer"`
	Audience                 []string      `yaml:"audience" toml:"audience" json:"audience"`
	AuthScheme               string        `yaml:"auth_scheme" toml:"auth_scheme" json:"auth_scheme"`
	ContextKey               string        `yaml:"context_key" toml:"context_key" json:"context_key"`
	AllowUnresolvedPrincipal bool          `yaml:"allow_unresolved_principal" toml:"allow_unresolved_principal" json:"allow_unresolved_principal"`
	BcryptCost               int           `yaml:"bcrypt_cost" toml:"bcrypt_cost" json:"bcrypt_cost"`
	UseHashid                bool          `yaml:"use_hashid" toml:"use_hashid" json:"use_hashid"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl" json:"-"`
}

type RevocationConfig struct {
	// Backend is one of none, database or redis.
	Backend   string `yaml:"backend" toml:"backend" json:"backend"`
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr" json:"redis_addr"`
	RedisDB   int    `yaml:"redis_db" toml:"redis_db" json:"redis_db"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix" json:"key_prefix"`
}

type SeedConfig struct {
	Admin AdminSeedConfig `yaml:"admin" toml:"admin" json:"admin"`
}

type AdminSeedConfig struct {
	Name     string `yaml:"name" toml:"name" json:"name"`
	Email    string `yaml:"email" toml:"email" json:"email"`
	Password string `yaml:"password" toml:"password" json:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" json:"enabled"`
	Path    string `yaml:"path" toml:"path" json:"path"`
}

const (
	RevocationNone     = "none"
	RevocationDatabase = "database"
	RevocationRedis    = "redis"
)

// Defaults returns a configuration usable for local development, minus the
// signing key.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: "file:certiweb.db?cache=shared",
		},
		Auth: AuthConfig{
			TokenTTL:   7 * 24 * time.Hour,
			AuthScheme: "Bearer",
			ContextKey: "principal",
		},
		Revocation: RevocationConfig{
			Backend:   RevocationNone,
			KeyPrefix: "certiweb:revoked:",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads path, picking the decoder from the file extension. An empty
// path loads the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "reading config file").
				WithMetadata(map[string]any{"path": path})
		}

		if err := Decode(filepath.Ext(path), []byte(expandEnvVars(string(data))), cfg); err != nil {
			return nil, err
		}
	}

	if key := os.Getenv(SigningKeyEnv); key != "" {
		cfg.Auth.SigningKey = key
	}

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode unmarshals data into cfg. ext selects TOML (".toml") or YAML.
func Decode(ext string, data []byte, cfg *Config) error {
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "parsing config file")
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the environment value, or the
// empty string when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Auth.TokenTTLRaw != "" {
		cfg.Auth.TokenTTL, err = time.ParseDuration(cfg.Auth.TokenTTLRaw)
		if err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "parsing auth.token_ttl").
				WithMetadata(map[string]any{"value": cfg.Auth.TokenTTLRaw})
		}
	}

	if cfg.Server.ShutdownTimeoutRaw != "" {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(cfg.Server.ShutdownTimeoutRaw)
		if err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "parsing server.shutdown_timeout").
				WithMetadata(map[string]any{"value": cfg.Server.ShutdownTimeoutRaw})
		}
	}

	return nil
}

// Validate checks the fields every command relies on. The signing key is
// checked separately by RequireSigningKey, since offline commands such as
// hash-password never issue or verify tokens.
func (c *Config) Validate() error {
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl must be positive")
	}

	if c.Database.DSN == "" {
		return invalid("database.dsn is required")
	}

	switch c.Revocation.Backend {
	case "", RevocationNone, RevocationDatabase:
	case RevocationRedis:
		if c.Revocation.RedisAddr == "" {
			return invalid("revocation.redis_addr is required for the redis backend")
		}
	default:
		return invalid("revocation.backend must be one of none, database, redis")
	}

	return nil
}

// RequireSigningKey fails when no signing key is configured. Commands that
// issue or verify tokens call it before opening anything else.
func (c *Config) RequireSigningKey() error {
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return invalid("auth.signing_key is required")
	}
	return nil
}

func invalid(msg string) error {
	return errors.New(msg, errors.CategoryValidation).
		WithTextCode("INVALID_CONFIG")
}

func (c *Config) GetSigningKey() string             { return c.Auth.SigningKey }
func (c *Config) GetTokenTTL() time.Duration        { return c.Auth.TokenTTL }
func (c *Config) GetIssuer() string                 { return c.Auth.Issuer }
func (c *Config) GetAudience() []string             { return c.Auth.Audience }
func (c *Config) GetAuthScheme() string             { return c.Auth.AuthScheme }
func (c *Config) GetContextKey() string             { return c.Auth.ContextKey }
func (c *Config) GetAllowUnresolvedPrincipal() bool { return c.Auth.AllowUnresolvedPrincipal }
func (c *Config) GetBcryptCost() int                { return c.Auth.BcryptCost }
