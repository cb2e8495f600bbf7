package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL   = "https://edwardmellor.co.uk"
	DefaultIndexPath = "/auctions/"
	DefaultUserAgent = "mellor-auctions/1.0 (github.com/pfrederiksen/mellor-auctions)"
	DefaultTimeout   = 30 * time.Second
)

// Config holds the runtime settings read from the environment.
type Config struct {
	BaseURL       string
	IndexPath     string
	UserAgent     string
	Timeout       time.Duration
	Workers       int
	SelectorsPath string

	LogLevel  string
	LogFormat string
}

// Load reads a .env file if one exists and returns a Config built from the
// environment. A missing .env file is not an error.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		BaseURL:       getEnv("MELLOR_BASE_URL", DefaultBaseURL),
		IndexPath:     getEnv("MELLOR_INDEX_PATH", DefaultIndexPath),
		UserAgent:     getEnv("MELLOR_USER_AGENT", DefaultUserAgent),
		Timeout:       getEnvDuration("MELLOR_TIMEOUT", DefaultTimeout),
		Workers:       getEnvInt("MELLOR_WORKERS", 1),
		SelectorsPath: getEnv("MELLOR_SELECTORS", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// IndexURL returns the auction index page URL.
func (c *Config) IndexURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.IndexPath, "/")
}

// Validate checks the settings that would otherwise fail late, mid-run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid MELLOR_BASE_URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid MELLOR_BASE_URL %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid MELLOR_BASE_URL %q: missing host", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid MELLOR_TIMEOUT %s: must be positive", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid MELLOR_WORKERS %d: must be at least 1", c.Workers)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
