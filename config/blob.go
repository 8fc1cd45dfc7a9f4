package config

import (
	"strings"
	"time"
)

// BlobConfig contains receipt storage configuration.
type BlobConfig struct {
	// Root is the directory receipt files are written under.
	Root string `env:"ROOT" envDefault:"data/receipts"`

	// SigningKey signs receipt view URLs. Required for production; in dev mode
	// an ephemeral key is generated at startup when unset.
	SigningKey string `env:"SIGNING_KEY"`

	// ViewTTL is how long a signed view URL stays valid.
	ViewTTL time.Duration `env:"VIEW_TTL" envDefault:"15m"`
}

// Sanitize applies guardrails to blob storage configuration values.
func (c *BlobConfig) Sanitize() {
	c.Root = strings.TrimSpace(c.Root)
	if c.Root == "" {
		c.Root = "data/receipts"
	}
	if c.ViewTTL <= 0 {
		c.ViewTTL = 15 * time.Minute
	}
}
