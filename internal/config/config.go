// Package config loads service configuration from an optional YAML file and
// environment variables. Environment values override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreValkey   = "valkey"
	StorePostgres = "postgres"
)

// Config is the full service configuration
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Store       StoreConfig      `yaml:"store"`
	DatabaseURL string           `yaml:"database_url"`
	GeminiKey   string           `yaml:"gemini_api_key"`
	GeminiModel string           `yaml:"gemini_model"`
	Checkout    CheckoutConfig   `yaml:"checkout"`
	FormRelay   string           `yaml:"form_relay_url"`
	Scheduling  SchedulingConfig `yaml:"scheduling"`
	Jobs        JobsConfig       `yaml:"jobs"`
	Poll        PollConfig       `yaml:"poll"`
	Fetch       FetchConfig      `yaml:"fetch"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
	Session     SessionConfig    `yaml:"session"`
	Admin       AdminConfig      `yaml:"admin"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects where wizard state is kept
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisTLS      bool          `yaml:"redis_tls"`
	ValkeyURI     string        `yaml:"valkey_uri"`
	TTL           time.Duration `yaml:"ttl"`
}

// CheckoutConfig configures the hosted checkout provider
type CheckoutConfig struct {
	BaseURL    string `yaml:"base_url"`
	SecretKey  string `yaml:"secret_key"`
	SuccessURL string `yaml:"success_url"`
	CancelURL  string `yaml:"cancel_url"`
	Currency   string `yaml:"currency"`
}

// SchedulingConfig configures scheduling links. Events maps a service id to
// its event path under BaseURL.
type SchedulingConfig struct {
	BaseURL string            `yaml:"base_url"`
	Events  map[string]string `yaml:"events"`
}

// JobsConfig configures optimization jobs. An empty ServiceURL runs jobs in
// process. APIKey is the bearer key for job submissions, sent by the client
// and required by the server.
type JobsConfig struct {
	ServiceURL  string        `yaml:"service_url"`
	APIKey      string        `yaml:"api_key"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PollConfig configures how the optimizer waits for a job
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// FetchConfig configures job posting fetches
type FetchConfig struct {
	UseBrowser bool          `yaml:"use_browser"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig configures per-client request limits
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			Dir:     ".launchworthy",
			TTL:     30 * 24 * time.Hour,
		},
		Checkout: CheckoutConfig{
			BaseURL:  "https://api.stripe.com",
			Currency: "usd",
		},
		Scheduling: SchedulingConfig{
			BaseURL: "https://calendly.com/launchworthy",
			Events: map[string]string{
				"consult":     "strategy-call",
				"resume":      "resume-kickoff",
				"accelerator": "accelerator-kickoff",
				"mentorship":  "mentorship-intro",
			},
		},
		Jobs: JobsConfig{
			Concurrency: 4,
			Timeout:     2 * time.Minute,
		},
		Poll: PollConfig{
			Interval:    time.Second,
			MaxAttempts: 60,
		},
		Fetch: FetchConfig{
			Timeout:  20 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			Burst:             30,
		},
		Session: SessionConfig{TTLHours: defaultSessionTTLHours},
		Admin:   AdminConfig{User: "admin"},
	}
}

// Load reads the YAML file at path when path is non-empty, applies
// environment overrides and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := cfg.decodeYAML(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overlays environment variables onto c
func (c *Config) applyEnv(lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("LISTEN_ADDR", &c.Server.Addr)
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	env.list("ALLOWED_ORIGINS", &c.Server.AllowedOrigins)

	env.str("STORE_BACKEND", &c.Store.Backend)
	env.str("STORE_DIR", &c.Store.Dir)
	env.str("REDIS_ADDR", &c.Store.RedisAddr)
	env.str("REDIS_PASSWORD", &c.Store.RedisPassword)
	env.boolean("REDIS_TLS", &c.Store.RedisTLS)
	env.str("VALKEY_URI", &c.Store.ValkeyURI)
	env.duration("STATE_TTL", &c.Store.TTL)

	env.str("DATABASE_URL", &c.DatabaseURL)
	env.str("GEMINI_API_KEY", &c.GeminiKey)
	env.str("GEMINI_MODEL", &c.GeminiModel)

	env.str("CHECKOUT_BASE_URL", &c.Checkout.BaseURL)
	env.str("CHECKOUT_SECRET_KEY", &c.Checkout.SecretKey)
	env.str("CHECKOUT_SUCCESS_URL", &c.Checkout.SuccessURL)
	env.str("CHECKOUT_CANCEL_URL", &c.Checkout.CancelURL)
	env.str("CHECKOUT_CURRENCY", &c.Checkout.Currency)

	env.str("FORM_RELAY_URL", &c.FormRelay)
	env.str("SCHEDULING_URL", &c.Scheduling.BaseURL)

	env.str("JOB_SERVICE_URL", &c.Jobs.ServiceURL)
	env.str("JOB_SERVICE_KEY", &c.Jobs.APIKey)
	env.integer("JOB_CONCURRENCY", &c.Jobs.Concurrency)
	env.duration("JOB_TIMEOUT", &c.Jobs.Timeout)
	env.duration("POLL_INTERVAL", &c.Poll.Interval)
	env.integer("POLL_MAX_ATTEMPTS", &c.Poll.MaxAttempts)

	env.boolean("USE_BROWSER", &c.Fetch.UseBrowser)
	env.duration("FETCH_TIMEOUT", &c.Fetch.Timeout)
	env.duration("JD_CACHE_TTL", &c.Fetch.CacheTTL)

	env.integer("RATE_LIMIT_RPM", &c.RateLimit.RequestsPerMinute)
	env.integer("RATE_LIMIT_BURST", &c.RateLimit.Burst)

	env.str("SESSION_SECRET", &c.Session.Secret)
	env.integer("SESSION_TTL_HOURS", &c.Session.TTLHours)

	env.str("ADMIN_USER", &c.Admin.User)
	env.str("ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash)

	return env.err
}

// Validate checks ranges and backend requirements
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("config error: store.dir is required for the file backend")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("config error: REDIS_ADDR is required for the redis backend")
		}
	case StoreValkey:
		if c.Store.ValkeyURI == "" {
			return fmt.Errorf("config error: VALKEY_URI is required for the valkey backend")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config error: unknown store backend %q", c.Store.Backend)
	}

	if c.Store.TTL < 0 {
		return fmt.Errorf("config error: store ttl must be non-negative")
	}
	if c.Jobs.Concurrency < 1 || c.Jobs.Concurrency > 32 {
		return fmt.Errorf("config error: jobs.concurrency must be between 1 and 32, got %d", c.Jobs.Concurrency)
	}
	if c.Jobs.Timeout <= 0 {
		return fmt.Errorf("config error: jobs.timeout must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config error: poll.interval must be positive")
	}
	if c.Poll.MaxAttempts < 1 {
		return fmt.Errorf("config error: poll.max_attempts must be at least 1")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("config error: rate_limit.burst must be positive when a rate is set")
	}
	return nil
}

// envReader collects the first parse error while reading variables
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) str(name string, dst *string) {
	if v, ok := e.lookup(name); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) list(name string, dst *[]string) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (e *envReader) integer(name string, dst *int) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = n
}

func (e *envReader) boolean(name string, dst *bool) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v, ok := e.lookup(name)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(name, err)
		return
	}
	*dst = d
}

func (e *envReader) fail(name string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s: %w", name, err)
	}
}
