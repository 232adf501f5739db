package config

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when hashing a new admin password
const DefaultBcryptCost = 12

// AdminConfig holds the credentials for the admin endpoints. Admin routes
// are disabled while PasswordHash is empty.
type AdminConfig struct {
	User         string `yaml:"user"`
	PasswordHash string `yaml:"password_hash"`
}

// Enabled reports whether admin credentials are configured
func (c AdminConfig) Enabled() bool {
	return c.User != "" && c.PasswordHash != ""
}

// Verify checks a user and password against the configured credentials
func (c AdminConfig) Verify(user, password string) bool {
	if !c.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}

// HashPassword hashes a password for ADMIN_PASSWORD_HASH
func HashPassword(password string, cost int) (string, error) {
	if cost < 10 || cost > 14 {
		return "", fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", cost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
