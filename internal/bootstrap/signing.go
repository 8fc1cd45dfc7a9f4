package bootstrap

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// ResolveSigningKey turns the configured receipt signing key into key bytes.
// Hex-encoded 32-byte keys are decoded; any other non-empty value is hashed
// to 32 bytes. An empty key is only acceptable in dev mode, where an
// ephemeral key is generated so signed URLs stop working across restarts.
func ResolveSigningKey(key string, isDev bool, logger *slog.Logger) ([]byte, error) {
	if key != "" {
		if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == 32 {
			return decoded, nil
		}
		hash := sha256.Sum256([]byte(key))
		return hash[:], nil
	}

	if !isDev {
		return nil, errors.New("BLOB_SIGNING_KEY is required outside dev mode")
	}

	ephemeral := make([]byte, 32)
	if _, err := rand.Read(ephemeral); err != nil {
		return nil, fmt.Errorf("generate ephemeral signing key: %w", err)
	}
	if logger != nil {
		logger.Warn("no receipt signing key configured; generated an ephemeral key, signed URLs will not survive restarts")
	}
	return ephemeral, nil
}
