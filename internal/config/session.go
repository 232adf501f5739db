package config

import "fmt"

const (
	defaultSessionTTLHours = 24 * 30
	minSessionSecretLen    = 16
)

// SessionConfig holds the signing secret and lifetime of visitor tokens
type SessionConfig struct {
	Secret   string `yaml:"secret"`
	TTLHours int    `yaml:"ttl_hours"`
}

// Validate checks that tokens can be issued
func (c SessionConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("SESSION_SECRET is required but not set")
	}
	if len(c.Secret) < minSessionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}
	if c.TTLHours < 1 {
		return fmt.Errorf("SESSION_TTL_HOURS must be at least 1 hour, got: %d", c.TTLHours)
	}
	return nil
}
