package config

import (
	"strings"
	"time"
)

// AIConfig contains generation backend configuration for the advisor.
// When no API key is configured the advisor runs in local fallback mode.
type AIConfig struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL"    envDefault:"models/gemini-2.5-flash"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"60s"`

	// ContextTTL is how long the computed business context snapshot is reused
	// before the advisor recomputes it from the job list.
	ContextTTL time.Duration `env:"CONTEXT_TTL" envDefault:"5m"`
}

// Sanitize applies guardrails to AI configuration values.
func (c *AIConfig) Sanitize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Model = strings.TrimSpace(c.Model)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.ContextTTL <= 0 {
		c.ContextTTL = 5 * time.Minute
	}
}

// IsEnabled returns true when a generation backend is configured.
func (c *AIConfig) IsEnabled() bool {
	return c.APIKey != ""
}
