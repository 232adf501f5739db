package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSkill(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Golang to Go", "Golang", "Go"},
		{"golang to Go", "golang", "Go"},
		{"GOLANG to Go", "GOLANG", "Go"},
		{"go lang to Go", "go  lang", "Go"},
		{"JavaScript normalization", "javascript", "JavaScript"},
		{"JS to JavaScript", "js", "JavaScript"},
		{"TypeScript normalization", "typescript", "TypeScript"},
		{"K8s to Kubernetes", "k8s", "Kubernetes"},
		{"react.js to React", "react.js", "React"},
		{"nodejs to Node.js", "nodejs", "Node.js"},
		{"postgres to PostgreSQL", "Postgres", "PostgreSQL"},
		{"Unknown word is capitalized", "haskell", "Haskell"},
		{"Unknown upper is capitalized", "ELIXIR", "Elixir"},
		{"Unknown phrase keeps lower tail", "event sourcing", "Event sourcing"},
		{"Empty string", "", ""},
		{"Whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalSkill(tt.input))
		})
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"Go", "go", "", "Python", "Go"})
	assert.Equal(t, []string{"Go", "Python"}, got)
}
