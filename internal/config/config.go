package config // package config loads application configuration from environment variables

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"time"
)

// Config holds the runtime configuration of the API server. Each field is
// backed by an environment variable; sub-systems with many knobs (cache,
// rate limit, mail, files, logging) have their own loaders.
type Config struct {
	Env             string // application environment (dev, test, prod)
	Port            string // HTTP port to listen on
	DB              DatabaseConfig
	Auth            AuthConfig
	BcryptCost      int           // cost used when hashing new passwords
	DefaultPageSize int           // page size when the client sends none
	MaxPageSize     int           // upper bound for pageSize
	AutoMigrate     bool          // apply pending migrations on startup
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

// DatabaseConfig describes how to reach MySQL. ConnectionString wins over
// the individual parts when both are present.
type DatabaseConfig struct {
	ConnectionString string
	User             string
	Pass             string
	Host             string
	Port             string
	Name             string
}

// AuthConfig carries the token issuer settings. SecretForKey is base64.
type AuthConfig struct {
	Issuer       string
	Audience     string
	SecretForKey string
	TokenTTL     time.Duration
}

// Load reads configuration values from environment variables. Missing
// required variables terminate the process with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),
		DB:   LoadDatabase(),
		Auth: AuthConfig{
			Issuer:       must("AUTH_ISSUER"),
			Audience:     must("AUTH_AUDIENCE"),
			SecretForKey: must("AUTH_SECRET_FOR_KEY"),
			TokenTTL:     envDur("AUTH_TOKEN_TTL", time.Hour),
		},
		BcryptCost:      envInt("BCRYPT_COST", 12),
		DefaultPageSize: envInt("PAGE_SIZE_DEFAULT", 10),
		MaxPageSize:     envInt("PAGE_SIZE_MAX", 20),
		AutoMigrate:     envBool("DB_AUTO_MIGRATE", true),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if _, err := cfg.Auth.SigningKey(); err != nil {
		log.Fatalf("invalid AUTH_SECRET_FOR_KEY: %v", err)
	}
	return cfg
}

// LoadDatabase reads only the database settings. The operator CLI uses it
// so it does not need the HTTP or auth variables.
func LoadDatabase() DatabaseConfig {
	if dsn := os.Getenv("DB_CONNECTION_STRING"); dsn != "" {
		return DatabaseConfig{ConnectionString: dsn}
	}
	return DatabaseConfig{
		User: must("DB_USER"),
		Pass: os.Getenv("DB_PASS"), // empty allowed
		Host: must("DB_HOST"),
		Port: must("DB_PORT"),
		Name: must("DB_NAME"),
	}
}

// DSN returns the go-sql-driver connection string.
func (d DatabaseConfig) DSN() string {
	if d.ConnectionString != "" {
		return d.ConnectionString
	}
	auth := d.User
	if d.Pass != "" {
		auth = fmt.Sprintf("%s:%s", d.User, d.Pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s", auth, d.Host, d.Port, d.Name)
}

// SigningKey decodes SecretForKey. HS256 needs at least 32 bytes.
func (a AuthConfig) SigningKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(a.SecretForKey)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("secret must decode to at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

// IsProd reports whether the server runs with production settings.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
