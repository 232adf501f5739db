// Package prompts holds the LLM prompt templates used to rewrite resume bullets.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Template keys in optimizer.json
const (
	RewriteBullet = "rewrite-bullet"
	tonePrefix    = "tone-"
)

//go:embed optimizer.json
var optimizerJSON []byte

var placeholderRegex = regexp.MustCompile(`\{\{\.([A-Za-z]+)\}\}`)

var templates = sync.OnceValues(func() (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(optimizerJSON, &m); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer prompts: %w", err)
	}
	return m, nil
})

// Get returns the raw template stored under key
func Get(key string) (string, error) {
	m, err := templates()
	if err != nil {
		return "", err
	}
	tmpl, ok := m[key]
	if !ok {
		return "", fmt.Errorf("prompt %q not found", key)
	}
	return tmpl, nil
}

// ToneDescription describes a settings tone for the model. Unknown tones
// are passed through as written.
func ToneDescription(tone string) string {
	if desc, err := Get(tonePrefix + tone); err == nil {
		return desc
	}
	return tone
}

// Render fills the template under key. Every placeholder must have a value;
// substituted values are never expanded again.
func Render(key string, data map[string]string) (string, error) {
	tmpl, err := Get(key)
	if err != nil {
		return "", err
	}

	var missing []string
	out := placeholderRegex.ReplaceAllStringFunc(tmpl, func(ph string) string {
		name := placeholderRegex.FindStringSubmatch(ph)[1]
		value, ok := data[name]
		if !ok {
			missing = append(missing, name)
			return ph
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %q is missing values for %s", key, strings.Join(missing, ", "))
	}
	return out, nil
}
