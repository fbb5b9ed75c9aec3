// Package config loads the service configuration from a YAML file with
// environment-variable overrides. Per-platform OAuth credentials are read
// from the environment only ({PLATFORM}_CLIENT_ID / {PLATFORM}_CLIENT_SECRET)
// so secrets never land in config files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr    string `yaml:"addr"`
		BaseURL string `yaml:"base_url"` // public base URL used to build redirect URIs
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // "postgres" | "memory"
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	Cache struct {
		Driver string `yaml:"driver"` // "memory" | "redis"
		Redis  struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Connect struct {
		// StateTTL bounds how long a signed OAuth state is accepted.
		StateTTL time.Duration `yaml:"state_ttl"`
		// StateSecret signs the state JWT (HS256). Required in prod.
		StateSecret string `yaml:"state_secret"`
		// SessionTTL is the ephemeral client-session lifetime.
		SessionTTL time.Duration `yaml:"session_ttl"`
	} `yaml:"connect"`

	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Limit   int    `yaml:"limit"`
		Window  string `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from_email"`
		TLSMode   string `yaml:"tls_mode"` // "auto" | "starttls" | "ssl" | "none"
	} `yaml:"smtp"`

	Refresh struct {
		Enabled bool `yaml:"enabled"`
		// Interval between sweep runs.
		Interval time.Duration `yaml:"interval"`
		// Lead is how far before expiry a token becomes due for refresh.
		Lead time.Duration `yaml:"lead"`
		// Concurrency bounds parallel refreshes per sweep.
		Concurrency int `yaml:"concurrency"`
	} `yaml:"refresh"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, applies defaults and env overrides.
// An empty path loads defaults + env only.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "authhub:"
	}
	if c.Connect.StateTTL == 0 {
		c.Connect.StateTTL = 10 * time.Minute
	}
	if c.Connect.SessionTTL == 0 {
		c.Connect.SessionTTL = 15 * time.Minute
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 60
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Refresh.Interval == 0 {
		c.Refresh.Interval = 15 * time.Minute
	}
	if c.Refresh.Lead == 0 {
		c.Refresh.Lead = 24 * time.Hour
	}
	if c.Refresh.Concurrency == 0 {
		c.Refresh.Concurrency = 8
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyEnvOverrides lets env vars win over config.yaml.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_DRIVER"); ok {
		c.Cache.Driver = v
	}
	if v, ok := getEnvStr("CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("CACHE_REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CONNECT_STATE_SECRET"); ok {
		c.Connect.StateSecret = v
	}
	if v, ok := getEnvDur("CONNECT_STATE_TTL"); ok {
		c.Connect.StateTTL = v
	}
	if v, ok := getEnvDur("CONNECT_SESSION_TTL"); ok {
		c.Connect.SessionTTL = v
	}
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM_EMAIL"); ok {
		c.SMTP.FromEmail = v
	}
	if v, ok := getEnvBool("REFRESH_ENABLED"); ok {
		c.Refresh.Enabled = v
	}
	if v, ok := getEnvDur("REFRESH_INTERVAL"); ok {
		c.Refresh.Interval = v
	}
	if v, ok := getEnvDur("REFRESH_LEAD"); ok {
		c.Refresh.Lead = v
	}
	if v, ok := getEnvInt("REFRESH_CONCURRENCY"); ok {
		c.Refresh.Concurrency = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

// Validate enforces the invariants that would otherwise fail late.
func (c *Config) Validate() error {
	if c.App.Env == "prod" && c.Connect.StateSecret == "" {
		return fmt.Errorf("config: connect.state_secret (CONNECT_STATE_SECRET) required in prod")
	}
	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr required when cache.driver=redis")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("config: storage.dsn required when storage.driver=postgres")
	}
	return nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
