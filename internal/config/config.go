// Package config provides client configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session backends understood by the session package.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendSQL    = "sql"
	SessionBackendMemory = "memory"
)

// Config holds client configuration values loaded from file or environment variables.
type Config struct {
	APIURL             string        `mapstructure:"API_URL"`
	Env                string        `mapstructure:"APP_ENV"`
	APITimeout         time.Duration `mapstructure:"API_TIMEOUT"`
	SessionBackend     string        `mapstructure:"SESSION_BACKEND"`
	SessionFile        string        `mapstructure:"SESSION_FILE"`
	SessionProfile     string        `mapstructure:"SESSION_PROFILE"`
	SessionDSN         string        `mapstructure:"SESSION_DSN"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFormat          string        `mapstructure:"LOG_FORMAT"`
	OutputFormat       string        `mapstructure:"OUTPUT_FORMAT"`
	TracingEnabled     bool          `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string        `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string        `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRate float64       `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads client configuration from .env, config file and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARNING: could not parse .env: %v", err)
	}

	v := viper.New()
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "socialfeed"))
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("API_URL", "http://localhost:8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_TIMEOUT", "0s")
	v.SetDefault("SESSION_BACKEND", SessionBackendFile)
	v.SetDefault("SESSION_FILE", "")
	v.SetDefault("SESSION_PROFILE", "default")
	v.SetDefault("SESSION_DSN", "")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("OUTPUT_FORMAT", "text")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_EXPORTER", "stdout")
	v.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.SessionBackend = strings.ToLower(strings.TrimSpace(c.SessionBackend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))
	if c.SessionFile == "" && c.SessionBackend == SessionBackendFile {
		c.SessionFile = DefaultSessionFile()
	}
}

// DefaultSessionFile returns the per-user location of the persisted token.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "socialfeed", "session.json")
}

// Validate ensures that required configuration values are present and coherent.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL %q is not an absolute URL", c.APIURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_URL scheme %q is not supported", u.Scheme)
	}
	if c.APITimeout < 0 {
		return errors.New("API_TIMEOUT must not be negative")
	}

	switch c.SessionBackend {
	case SessionBackendFile:
		if c.SessionFile == "" {
			return errors.New("SESSION_FILE is required for the file session backend")
		}
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis session backend")
		}
	case SessionBackendSQL:
		if c.SessionDSN == "" {
			return errors.New("SESSION_DSN is required for the sql session backend")
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	switch c.OutputFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown OUTPUT_FORMAT %q", c.OutputFormat)
	}

	if c.TracingEnabled && c.TracingExporter != "stdout" && c.TracingExporter != "otlp" {
		return fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter)
	}

	isProduction := c.Env == "production" || c.Env == "prod"
	if isProduction && u.Scheme != "https" {
		log.Println("WARNING: API_URL is not using https in production. Bearer tokens will travel in clear text.")
	}

	return nil
}
