package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cargosense/cargosense/config"
	"github.com/cargosense/cargosense/internal/ai"
	"github.com/cargosense/cargosense/internal/blob"
	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/service"
)

// BuildAdvisorBackend creates the Gemini client when an API key is
// configured. Without a key the advisor runs in fallback-only mode.
//
//nolint:ireturn // Returning the backend interface keeps the advisor testable.
func BuildAdvisorBackend(cfg config.AIConfig, logger *slog.Logger) (service.AdvisorBackend, error) {
	if !cfg.IsEnabled() {
		if logger != nil {
			logger.Warn("advisor backend disabled: no API key configured; chat will use fallback answers")
		}
		return nil, nil
	}

	client, err := ai.NewClient(ai.ClientConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create generation client: %w", err)
	}
	return client, nil
}

// BuildBlobStore creates the receipt store with a resolved signing key.
//
//nolint:ireturn // Returning the store interface keeps receipt handling testable.
func BuildBlobStore(cfg config.BlobConfig, isDev bool, logger *slog.Logger) (core.BlobStore, error) {
	key, err := ResolveSigningKey(cfg.SigningKey, isDev, logger)
	if err != nil {
		return nil, err
	}

	store, err := blob.NewDiskStore(blob.DiskStoreOptions{
		Root:       cfg.Root,
		SigningKey: key,
	})
	if err != nil {
		return nil, fmt.Errorf("create receipt store: %w", err)
	}
	return store, nil
}

// RunReminderScanner runs the reminder cron until the context is cancelled.
func RunReminderScanner(ctx context.Context, svc *service.ReminderService) error {
	if svc == nil {
		return nil
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start reminder scanner: %w", err)
	}
	<-ctx.Done()
	svc.Stop()
	return nil
}
