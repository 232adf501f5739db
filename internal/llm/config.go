// Package llm wraps the generative model used to rewrite resume bullets.
package llm

import "fmt"

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// DefaultTemperature keeps rewrites close to the source bullet
const DefaultTemperature float32 = 0.4

// DefaultMaxOutputTokens is enough for three variants of a long bullet
const DefaultMaxOutputTokens int32 = 1024

// Config holds the model configuration
type Config struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Model:           DefaultModel,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
}

// ConfigFor returns the default configuration with model swapped in when
// model is non-empty
func ConfigFor(model string) *Config {
	c := DefaultConfig()
	if model != "" {
		c.Model = model
	}
	return c
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("llm: temperature %.2f out of range 0-2", c.Temperature)
	}
	return nil
}
