// Package config loads service settings from an optional YAML file overlaid
// with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingDSN  = errors.New("postgres dsn is required")
	ErrInvalidTTL  = errors.New("cache ttl must be positive")
	ErrMissingPort = errors.New("http port is required")
)

type HTTPConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	// AllowedOrigins lists browser origins for CORS. Empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns the listen address, accepting both "8080" and ":8080".
func (h HTTPConfig) Addr() string {
	if strings.HasPrefix(h.Port, ":") {
		return h.Port
	}

	return ":" + h.Port
}

type TrackerConfig struct {
	URL                string        `yaml:"url"`
	APIKey             string        `yaml:"api_key"`
	Timeout            time.Duration `yaml:"timeout"`
	DepartmentField    string        `yaml:"department_field"`
	ResponsibleField   string        `yaml:"responsible_field"`
	FunctionalDocField string        `yaml:"functional_doc_field"`
	DoneStatuses       []string      `yaml:"done_statuses"`
	ActiveStatuses     []string      `yaml:"active_statuses"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromName       string `yaml:"from_name"`
	FromAddress    string `yaml:"from_address"`
}

type Config struct {
	Env         string        `yaml:"env"`
	HTTP        HTTPConfig    `yaml:"http"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisAddr   string        `yaml:"redis_addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	Tracker     TrackerConfig `yaml:"tracker"`
	Mail        MailConfig    `yaml:"mail"`
	WorkerID    string        `yaml:"worker_id"`
}

func Default() *Config {
	return &Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Port:         "8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		RedisAddr: "localhost:6379",
		CacheTTL:  5 * time.Minute,
		Tracker: TrackerConfig{
			Timeout:            10 * time.Second,
			DepartmentField:    "Department",
			ResponsibleField:   "Responsible",
			FunctionalDocField: "Functional Doc",
			DoneStatuses:       []string{"Closed", "Resolved", "Rejected", "Done"},
			ActiveStatuses:     []string{"In Progress", "Testing", "Feedback"},
		},
		Mail: MailConfig{
			FromName: "Team Planning",
		},
	}
}

// Load reads path when it is non-empty, then applies environment overrides.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getenv("ENV", c.Env)
	c.HTTP.Port = getenv("PORT", c.HTTP.Port)
	c.HTTP.AllowedOrigins = getenvList("CORS_ALLOWED_ORIGINS", c.HTTP.AllowedOrigins)
	c.PostgresDSN = getenv("POSTGRES_DSN", c.PostgresDSN)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.Tracker.URL = getenv("TRACKER_URL", c.Tracker.URL)
	c.Tracker.APIKey = getenv("TRACKER_API_KEY", c.Tracker.APIKey)
	c.Tracker.DepartmentField = getenv("TRACKER_DEPARTMENT_FIELD", c.Tracker.DepartmentField)
	c.Tracker.DoneStatuses = getenvList("TRACKER_DONE_STATUSES", c.Tracker.DoneStatuses)
	c.Tracker.ActiveStatuses = getenvList("TRACKER_ACTIVE_STATUSES", c.Tracker.ActiveStatuses)
	c.Mail.SendGridAPIKey = getenv("SENDGRID_API_KEY", c.Mail.SendGridAPIKey)
	c.Mail.FromName = getenv("FROM_NAME", c.Mail.FromName)
	c.Mail.FromAddress = getenv("FROM_ADDRESS", c.Mail.FromAddress)
	c.WorkerID = getenv("WORKER_ID", c.WorkerID)

	if v := os.Getenv("CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_TTL %q: %w", v, err)
		}
		c.CacheTTL = ttl
	}

	return nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.PostgresDSN) == "" {
		return ErrMissingDSN
	}
	if c.CacheTTL <= 0 {
		return ErrInvalidTTL
	}
	if strings.TrimSpace(c.HTTP.Port) == "" {
		return ErrMissingPort
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
