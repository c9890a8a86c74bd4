package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raveportal/pageshare/internal/validation"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Portal    PortalConfig    `yaml:"portal"`
	Users     UsersConfig     `yaml:"users"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Templates TemplatesConfig `yaml:"templates"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"` // default: [] (same-origin only when empty; ["*"] for dev)
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`
}

// PortalConfig points at the portal's RPC API.
type PortalConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type UsersConfig struct {
	DiscardStaleResponses bool `yaml:"discard_stale_responses"`
}

type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=0"`
}

// RateLimitConfig bounds portal calls per session and operation.
// CreateSession caps session creation per client address and window.
type RateLimitConfig struct {
	Default       int           `yaml:"default" validate:"gte=0"`
	Window        time.Duration `yaml:"window" validate:"gt=0"`
	CreateSession int           `yaml:"create_session" validate:"gte=0"`
}

// TemplatesConfig selects where view templates come from. An empty Dir
// uses the bundled set.
type TemplatesConfig struct {
	Dir    string `yaml:"dir"`
	Locale string `yaml:"locale" validate:"required"`
	Watch  bool   `yaml:"watch"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Portal: PortalConfig{
			BaseURL: "http://localhost:8081/portal/api/rpc/",
			Timeout: 10 * time.Second,
		},
		Sessions: SessionsConfig{
			TTL:           30 * time.Minute,
			SweepInterval: time.Minute,
			MaxSessions:   1000,
		},
		RateLimit: RateLimitConfig{
			Default:       60,
			Window:        time.Minute,
			CreateSession: 30,
		},
		Templates: TemplatesConfig{
			Locale: "en",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func expandEnvVars(s string) string {
	return os.ExpandEnv(s)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAGESHARE_PORTAL_URL"); v != "" {
		cfg.Portal.BaseURL = v
	}
	if v := os.Getenv("PAGESHARE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PAGESHARE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PAGESHARE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PAGESHARE_TEMPLATES_DIR"); v != "" {
		cfg.Templates.Dir = v
	}
	if v := os.Getenv("PAGESHARE_LOCALE"); v != "" {
		cfg.Templates.Locale = v
	}
}

// Validate checks every section against its constraints.
func (c *Config) Validate() error {
	if err := validation.New("yaml").Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Templates.Watch && c.Templates.Dir == "" {
		return fmt.Errorf("invalid config: templates.watch requires templates.dir")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
