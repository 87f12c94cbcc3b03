package mcpauthd

import (
	"fmt"
	"strings"

	"github.com/joeshaw/envdecode"
)

// DefaultCORSOrigin is used when no CORS origins are configured.
const DefaultCORSOrigin = "http://localhost:5173"

// Config holds the externally supplied settings for the authorization
// server. It is passed explicitly to New; nothing in this module reads
// the environment or global state behind the caller's back.
type Config struct {
	// AllowedEmail is the single identity the authorization endpoint
	// will confirm. ENV: ALLOWED_EMAIL
	AllowedEmail string `env:"ALLOWED_EMAIL"`
	// CORSOrigins is a comma-separated list of origins allowed to call
	// the MCP endpoint from a browser. ENV: CORS_ORIGINS
	CORSOrigins string `env:"CORS_ORIGINS"`
	// ServerName is surfaced on the identity form and in the
	// protected-resource metadata. ENV: SERVER_NAME
	ServerName string `env:"SERVER_NAME,default=TaskM"`
}

// ConfigFromEnv populates a Config from the environment via envdecode.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config from env: %w", err)
	}
	if cfg.AllowedEmail == "" {
		return Config{}, fmt.Errorf("ALLOWED_EMAIL is required")
	}
	return cfg, nil
}

// corsOrigins splits the configured comma-separated list, defaulting
// to a single localhost origin when unset.
func (c Config) corsOrigins() []string {
	if strings.TrimSpace(c.CORSOrigins) == "" {
		return []string{DefaultCORSOrigin}
	}
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
