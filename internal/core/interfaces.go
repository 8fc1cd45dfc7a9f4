package core

import (
	"context"
	"time"

	"github.com/cargosense/cargosense/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobRepository defines the interface for cargo job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error)
	GetByID(ctx context.Context, id string) (*model.CargoJob, error)
	// List returns all jobs ordered by created_at descending.
	List(ctx context.Context) ([]*model.CargoJob, error)
	// Update applies the non-nil fields of req and records one history entry
	// per changed field in the same transaction.
	Update(ctx context.Context, id string, req *model.UpdateJobRequest, changedBy string) (*model.CargoJob, error)
	Delete(ctx context.Context, id string) error
}

// HistoryRepository defines the interface for the append-only job edit log.
type HistoryRepository interface {
	// ListByJob returns entries for a job ordered by changed_at descending.
	ListByJob(ctx context.Context, jobID string) ([]*model.JobHistoryEntry, error)
}

// ChatAnalyticsRepository records one row per advisor chat call.
type ChatAnalyticsRepository interface {
	Insert(ctx context.Context, rec *model.ChatAnalyticsRecord) error
}

// PreferencesRepository stores per-user notification preferences.
type PreferencesRepository interface {
	// Get returns the stored preferences, or model.ErrPreferencesNotFound
	// when the user has never saved any.
	Get(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs *model.NotificationPreferences) error
}

// BlobStore stores receipt files and hands out expiring view URLs.
type BlobStore interface {
	// Upload stores data and returns the generated object key.
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	// Open returns the stored bytes and their content type.
	Open(ctx context.Context, key string) ([]byte, string, error)
	// SignedURL returns a relative view URL valid for ttl.
	SignedURL(key string, ttl time.Duration) (string, error)
	// Verify checks the key/expires/sig triple from a signed URL.
	Verify(key, expires, sig string) error
	Delete(ctx context.Context, key string) error
}
