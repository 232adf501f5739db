package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig is the limit for one route. A Path ending in "/" matches
// every path under it.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int           // requests per Window
	Window time.Duration
	Burst  int // bucket capacity; defaults to Limit
}

// Config holds rate limiting configuration
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	DefaultBurst    int
	CleanupInterval time.Duration
	Exempt          map[string]bool
	Endpoints       []EndpointConfig
}

// DefaultConfig allows 120 requests a minute with bursts of 30
func DefaultConfig() *Config {
	return NewConfig(120, 30)
}

// NewConfig builds a config with the given default per-minute limit and
// burst plus the stricter endpoint rules. A non-positive limit disables
// rate limiting.
func NewConfig(requestsPerMinute, burst int) *Config {
	if requestsPerMinute <= 0 {
		return &Config{Enabled: false}
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    requestsPerMinute,
		DefaultWindow:   time.Minute,
		DefaultBurst:    burst,
		CleanupInterval: 5 * time.Minute,
		Exempt:          map[string]bool{},
		Endpoints:       DefaultEndpointConfigs(),
	}
}

// WithExempt returns c with the given client addresses exempted
func (c *Config) WithExempt(clients ...string) *Config {
	if c.Exempt == nil {
		c.Exempt = map[string]bool{}
	}
	for _, client := range clients {
		if client = strings.TrimSpace(client); client != "" {
			c.Exempt[client] = true
		}
	}
	return c
}

// DefaultEndpointConfigs returns the per-route limits. Routes that start
// LLM work or fetch remote pages are the most expensive.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		{Path: "/api/optimize", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/optimizer/submit", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/optimizer/jd", Method: "PUT", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/api/booking/checkout", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		{Path: "/api/booking/complete", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		{Path: "/api/session", Method: "POST", Limit: 30, Window: time.Minute, Burst: 10},
		{Path: "/api/usage/credits", Method: "POST", Limit: 10, Window: time.Minute, Burst: 3},
		{Path: "/admin/", Method: "GET", Limit: 30, Window: time.Minute, Burst: 10},
	}
}
