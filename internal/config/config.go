// Package config provides application configuration loading and management.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	JWTSecret           string `mapstructure:"JWT_SECRET"`
	SessionTTLHours     int    `mapstructure:"SESSION_TTL_HOURS"`
	CookieName          string `mapstructure:"COOKIE_NAME"`
	CookieSecure        bool   `mapstructure:"COOKIE_SECURE"`
	CookieEncryptionKey string `mapstructure:"COOKIE_ENCRYPTION_KEY"`
	BcryptCost          int    `mapstructure:"BCRYPT_COST"`

	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBReadHost               string `mapstructure:"DB_READ_HOST"`
	DBReadPort               string `mapstructure:"DB_READ_PORT"`
	DBReadUser               string `mapstructure:"DB_READ_USER"`
	DBReadPassword           string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	RateLimitFailClosed bool `mapstructure:"RATE_LIMIT_FAIL_CLOSED"`

	AllowedOrigin string `mapstructure:"ALLOWED_CLIENT_ORIGIN_URL"`

	BioMaxLen            int `mapstructure:"BIO_MAX_LEN"`
	PostTextMaxLen       int `mapstructure:"POST_TEXT_MAX_LEN"`
	IconMaxDimension     int `mapstructure:"ICON_MAX_DIMENSION"`
	ImageMaxDimension    int `mapstructure:"IMAGE_MAX_DIMENSION"`
	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	ImageMaxPixels       int `mapstructure:"IMAGE_MAX_PIXELS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; profile files are not.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8000")

	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("COOKIE_NAME", "auth_key")
	viper.SetDefault("COOKIE_SECURE", true)
	viper.SetDefault("COOKIE_ENCRYPTION_KEY", "")
	viper.SetDefault("BCRYPT_COST", 10)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "murmur")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("RATE_LIMIT_FAIL_CLOSED", false)
	viper.SetDefault("ALLOWED_CLIENT_ORIGIN_URL", "http://localhost:5173")

	viper.SetDefault("BIO_MAX_LEN", 160)
	viper.SetDefault("POST_TEXT_MAX_LEN", 200)
	viper.SetDefault("ICON_MAX_DIMENSION", 256)
	viper.SetDefault("IMAGE_MAX_DIMENSION", 1080)
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 5)
	viper.SetDefault("IMAGE_MAX_PIXELS", 16_000_000)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.AllowedOrigin = strings.TrimRight(strings.TrimSpace(c.AllowedOrigin), "/")
}

// IsProduction reports whether the configured environment is a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// IsProdLike reports production and staging profiles, where schema changes must be explicit.
func (c *Config) IsProdLike() bool {
	return c.IsProduction() || c.Env == "staging" || c.Env == "stage"
}

// SessionTTL is the lifetime of an issued session token.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// ImageMaxUploadBytes is the largest decoded image payload accepted from clients.
func (c *Config) ImageMaxUploadBytes() int {
	if c.ImageMaxUploadSizeMB <= 0 {
		return 5 << 20
	}
	return c.ImageMaxUploadSizeMB << 20
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.CookieName == "" {
		return errors.New("COOKIE_NAME is required")
	}
	if c.DBMaxOpenConns < 0 || c.DBMaxIdleConns < 0 {
		return errors.New("DB pool sizes must not be negative")
	}
	if c.BioMaxLen <= 0 {
		return errors.New("BIO_MAX_LEN must be positive")
	}
	if c.CookieEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.CookieEncryptionKey)
		if err != nil {
			return fmt.Errorf("COOKIE_ENCRYPTION_KEY must be base64: %w", err)
		}
		switch len(key) {
		case 16, 24, 32:
		default:
			return errors.New("COOKIE_ENCRYPTION_KEY must decode to 16, 24 or 32 bytes")
		}
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.CookieEncryptionKey == "" {
			return errors.New("COOKIE_ENCRYPTION_KEY is required in production")
		}
		if !c.CookieSecure {
			return errors.New("COOKIE_SECURE must be true in production")
		}
		if c.AllowedOrigin == "" || c.AllowedOrigin == "*" {
			return errors.New("ALLOWED_CLIENT_ORIGIN_URL must name a single origin in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
