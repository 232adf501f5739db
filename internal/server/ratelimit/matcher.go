package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for routes that are never limited
var unlimited = &EndpointConfig{}

// MatchEndpoint returns the rule for path and method, or nil when the
// default limit applies. Exact rules win over prefix rules; health checks,
// metrics scrapes and CORS preflights are unlimited.
func MatchEndpoint(path, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodOptions {
		return unlimited
	}
	if method == http.MethodGet && (path == "/health" || path == "/metrics") {
		return unlimited
	}

	for i := range configs {
		if configs[i].Method == method && configs[i].Path == path {
			return &configs[i]
		}
	}
	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}
