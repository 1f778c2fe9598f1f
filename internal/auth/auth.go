package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/straja-ai/prerouter/internal/config"
)

// Auth holds the bearer keys accepted on /v1/* routes.
type Auth struct {
	keys [][]byte
}

// NewFromConfig builds an Auth instance from the loaded config.
// No configured keys means every request is allowed.
func NewFromConfig(cfg *config.Config) (*Auth, error) {
	seen := make(map[string]struct{}, len(cfg.Server.APIKeys))
	keys := make([][]byte, 0, len(cfg.Server.APIKeys))
	for _, k := range cfg.Server.APIKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("empty api key in server.api_keys")
		}
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("api key listed twice in server.api_keys")
		}
		seen[k] = struct{}{}
		keys = append(keys, []byte(k))
	}
	return &Auth{keys: keys}, nil
}

// Enabled reports whether any key is configured.
func (a *Auth) Enabled() bool {
	return a != nil && len(a.keys) > 0
}

// Allowed reports whether apiKey matches a configured key.
func (a *Auth) Allowed(apiKey string) bool {
	if !a.Enabled() {
		return true
	}
	candidate := []byte(apiKey)
	ok := 0
	for _, k := range a.keys {
		ok |= subtle.ConstantTimeCompare(candidate, k)
	}
	return ok == 1
}
