// Package config loads the client and dev server settings from the
// environment. A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/bookstore/internal/gateway"
	pkgconfig "github.com/Skotchmaster/bookstore/pkg/config"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	APIBaseURL      string
	PublicEndpoints []string
	RefreshPath     string
	LoginPath       string
	RequestTimeout  time.Duration
	RefreshTimeout  time.Duration

	CredentialStore string
	CredentialPath  string
	CredentialDSN   string

	KafkaBrokers []string
	KafkaTopic   string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	LogLevel string

	Server ServerConfig
}

// ServerConfig is read only by the dev server.
type ServerConfig struct {
	Port          string
	DatabaseURL   string
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AdminEmail    string
	AdminPassword string
}

func defaultCredentialPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "bookstore-credentials.json")
	}
	return filepath.Join(dir, "bookstore", "credentials.json")
}

// Load reads the environment. Missing .env is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "error", err)
	}

	cfg := &Config{
		APIBaseURL:      pkgconfig.EnvDefault("API_BASE_URL", "http://localhost:8080"),
		PublicEndpoints: pkgconfig.EnvCSVDefault("PUBLIC_ENDPOINTS", gateway.DefaultPublicEndpoints),
		RefreshPath:     pkgconfig.EnvDefault("REFRESH_PATH", gateway.DefaultRefreshPath),
		LoginPath:       pkgconfig.EnvDefault("LOGIN_PATH", gateway.DefaultLoginPath),
		RequestTimeout:  pkgconfig.EnvDurationDefault("REQUEST_TIMEOUT", 30*time.Second),
		RefreshTimeout:  pkgconfig.EnvDurationDefault("REFRESH_TIMEOUT", gateway.DefaultRefreshTimeout),

		CredentialStore: strings.ToLower(pkgconfig.EnvDefault("CREDENTIAL_STORE", StoreFile)),
		CredentialPath:  pkgconfig.EnvDefault("CREDENTIAL_PATH", defaultCredentialPath()),
		CredentialDSN:   os.Getenv("CREDENTIAL_DSN"),

		KafkaBrokers: pkgconfig.CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   pkgconfig.EnvDefault("KAFKA_TOPIC", "user_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    pkgconfig.EnvDefault("ES_INDEX", "products"),

		LogLevel: pkgconfig.EnvDefault("LOG_LEVEL", "info"),

		Server: ServerConfig{
			Port:          pkgconfig.EnvDefault("SERVER_PORT", "8080"),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
			JWTSecret:     []byte(os.Getenv("JWT_SECRET")),
			RefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
			AccessTTL:     pkgconfig.EnvDurationDefault("ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    pkgconfig.EnvDurationDefault("REFRESH_TTL", 7*24*time.Hour),
			AdminEmail:    pkgconfig.EnvDefault("ADMIN_EMAIL", "admin@bookstore.local"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the client settings.
func (c *Config) Validate() error {
	if err := pkgconfig.MustNonEmpty(c.APIBaseURL, "API_BASE_URL"); err != nil {
		return err
	}
	switch c.CredentialStore {
	case StoreMemory:
	case StoreFile:
		return pkgconfig.MustNonEmpty(c.CredentialPath, "CREDENTIAL_PATH")
	case StoreSQLite, StorePostgres:
		return pkgconfig.MustNonEmpty(c.CredentialDSN, "CREDENTIAL_DSN")
	default:
		return fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialStore)
	}
	return nil
}

// Validate checks the settings the dev server cannot start without.
func (s ServerConfig) Validate() error {
	if err := pkgconfig.MustNonEmpty(s.DatabaseURL, "DATABASE_URL"); err != nil {
		return err
	}
	if err := pkgconfig.MustNonEmptyBytes(s.JWTSecret, "JWT_SECRET"); err != nil {
		return err
	}
	return pkgconfig.MustNonEmptyBytes(s.RefreshSecret, "JWT_REFRESH_SECRET")
}
