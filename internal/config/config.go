package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port                     string   `mapstructure:"PORT"`
	Env                      string   `mapstructure:"ENV"`
	DatabaseURL              string   `mapstructure:"DATABASE_URL"`
	DBMaxConns               int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns               int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecretKey             string   `mapstructure:"JWT_SECRET_KEY"`
	AccessTokenExpireMinutes int      `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	FrontendURL              string   `mapstructure:"FRONTEND_URL"`
	CORSOrigins              []string `mapstructure:"CORS_ORIGINS"`
	PHIEncryptionKey         string   `mapstructure:"PHI_ENCRYPTION_KEY"`
	RateLimitRPS             float64  `mapstructure:"RATE_LIMIT_RPS"`
	BodyLimit                string   `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT",
	"ENV",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"JWT_SECRET_KEY",
	"ACCESS_TOKEN_EXPIRE_MINUTES",
	"FRONTEND_URL",
	"CORS_ORIGINS",
	"PHI_ENCRYPTION_KEY",
	"RATE_LIMIT_RPS",
	"BODY_LIMIT",
}

// Load resolves the configuration from the environment and an optional .env
// file in the working directory. It is called once at process start and the
// result is passed to every component that needs it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_SECRET_KEY", defaultJWTSecret)
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 480)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:3001")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("BODY_LIMIT", "2M")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// A missing .env file is fine; the environment may carry everything.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitOrigins(v.GetString("CORS_ORIGINS"), cfg.FrontendURL)

	url, err := NormalizeDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseURL = url

	return cfg, nil
}

// NormalizeDatabaseURL trims the URL and rewrites driver-qualified schemes
// such as postgresql+asyncpg:// left over from older deployments.
func NormalizeDatabaseURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", fmt.Errorf("DATABASE_URL must be set")
	}
	if scheme, rest, ok := strings.Cut(url, "://"); ok {
		if base, _, qualified := strings.Cut(scheme, "+"); qualified {
			scheme = base
		}
		if scheme == "postgresql" {
			scheme = "postgres"
		}
		url = scheme + "://" + rest
	}
	return url, nil
}

func splitOrigins(raw, frontendURL string) []string {
	seen := make(map[string]bool)
	var origins []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		origins = append(origins, o)
	}
	for _, o := range strings.Split(raw, ",") {
		add(o)
	}
	add(frontendURL)
	return origins
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// EncryptionKey decodes PHI_ENCRYPTION_KEY. It returns nil when unset.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.PHIEncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.PHIEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("PHI_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Validate checks the configuration is safe to serve with.
func (c *Config) Validate() error {
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.AccessTokenExpireMinutes)
	}
	if c.IsProduction() {
		if c.JWTSecretKey == defaultJWTSecret || len(c.JWTSecretKey) < 32 {
			return fmt.Errorf("JWT_SECRET_KEY must be changed and at least 32 characters in production")
		}
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	return nil
}
