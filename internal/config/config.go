package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"bank-payments-backend/internal/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Matching MatchingConfig
	Search   SearchConfig
	Auth     AuthConfig
	NATS     NATSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr        string
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	DSN         string
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// MatchingConfig controls auto-match. DefaultPaymentType is what auto-match
// assigns when the caller does not choose.
type MatchingConfig struct {
	DefaultPaymentType string `mapstructure:"default_payment_type"`
	SuggestionDistance int    `mapstructure:"suggestion_distance"`
}

type SearchConfig struct {
	Limit int
}

// AuthConfig verifies access tokens issued by the hosted backend. An empty
// JWTSecret disables verification.
type AuthConfig struct {
	JWTSecret string   `mapstructure:"jwt_secret"`
	Roles     []string `mapstructure:"roles"`
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL           string
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type LogConfig struct {
	Level  string
	Format string
}

const envPrefix = "BANKPAY"

// Load reads .env (if present), the optional config file and environment.
// Env var overrides use prefix BANKPAY_, e.g. BANKPAY_DATABASE_DSN.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("matching.default_payment_type", string(models.PaymentTypeDonation))
	v.SetDefault("matching.suggestion_distance", 2)
	v.SetDefault("search.limit", 20)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.roles", []string{"service_role", "admin"})
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "bankpay")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if path := os.Getenv(envPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("bankpay")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// hosted Postgres providers hand out DATABASE_URL
	if c.Database.DSN == "" {
		c.Database.DSN = os.Getenv("DATABASE_URL")
	}
	c.Server.CORSOrigins = splitList(c.Server.CORSOrigins)
	c.Auth.Roles = splitList(c.Auth.Roles)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, err := models.ParsePaymentType(c.Matching.DefaultPaymentType); err != nil {
		return fmt.Errorf("matching.default_payment_type: %w", err)
	}
	if c.Matching.SuggestionDistance < 0 {
		return fmt.Errorf("matching.suggestion_distance must not be negative")
	}
	if c.Search.Limit <= 0 || c.Search.Limit > 200 {
		return fmt.Errorf("search.limit must be between 1 and 200, got %d", c.Search.Limit)
	}
	return nil
}

// DefaultPaymentType returns the validated auto-match default.
func (c Config) DefaultPaymentType() models.PaymentType {
	return models.PaymentType(c.Matching.DefaultPaymentType)
}

// splitList accepts both proper lists and a single comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
