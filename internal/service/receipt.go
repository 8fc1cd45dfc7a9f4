package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

const (
	// maxReceiptSize caps uploads at 10 MiB.
	maxReceiptSize = 10 << 20

	defaultViewTTL = 15 * time.Minute
)

var allowedReceiptTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// ReceiptServiceOptions groups dependencies for ReceiptService.
type ReceiptServiceOptions struct {
	Blobs  core.BlobStore
	Jobs   core.JobRepository
	Logger *slog.Logger
}

// ReceiptService stores receipt files and links them to jobs. View access
// goes through short-lived signed URLs rather than exposing the store
// directly.
type ReceiptService struct {
	blobs  core.BlobStore
	jobs   core.JobRepository
	logger *slog.Logger
}

// NewReceiptService constructs a new ReceiptService.
func NewReceiptService(opts ReceiptServiceOptions) *ReceiptService {
	if opts.Blobs == nil {
		panic("ReceiptService requires a blob store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{
		blobs:  opts.Blobs,
		jobs:   opts.Jobs,
		logger: logger.With("service", "receipt"),
	}
}

// UploadResult describes a stored receipt.
type UploadResult struct {
	Key     string `json:"key"`
	ViewURL string `json:"view_url"`
}

// Upload validates and stores a receipt. When jobID is non-empty the job's
// receipt_url is set to the new key in the same call.
func (s *ReceiptService) Upload(ctx context.Context, data []byte, contentType, jobID, uploadedBy string) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, apperrors.Validation("receipt file is empty")
	}
	if len(data) > maxReceiptSize {
		return nil, apperrors.Validation("receipt file exceeds 10MB limit")
	}
	if !allowedReceiptTypes[contentType] {
		return nil, apperrors.ValidationField("content_type",
			fmt.Sprintf("unsupported receipt type %q", contentType))
	}

	key, err := s.blobs.Upload(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	if jobID != "" {
		if s.jobs == nil {
			return nil, apperrors.Internal("job repository not configured")
		}
		update := &model.UpdateJobRequest{ReceiptURL: &key}
		if _, err := s.jobs.Update(ctx, jobID, update, uploadedBy); err != nil {
			// Roll the orphaned blob back so a bad job ID leaves no file behind.
			if delErr := s.blobs.Delete(ctx, key); delErr != nil {
				s.logger.Error("failed to clean up orphaned receipt", "key", key, "error", delErr)
			}
			return nil, fmt.Errorf("attach receipt to job %s: %w", jobID, err)
		}
	}

	viewURL, err := s.blobs.SignedURL(key, defaultViewTTL)
	if err != nil {
		return nil, fmt.Errorf("sign receipt url: %w", err)
	}

	s.logger.Info("receipt uploaded", "key", key, "job_id", jobID, "bytes", len(data))
	return &UploadResult{Key: key, ViewURL: viewURL}, nil
}

// View verifies a signed URL triple and returns the file contents.
func (s *ReceiptService) View(ctx context.Context, key, expires, sig string) ([]byte, string, error) {
	if err := s.blobs.Verify(key, expires, sig); err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid or expired receipt link")
	}
	return s.blobs.Open(ctx, key)
}

// SignedURL returns a fresh view URL for an existing receipt.
func (s *ReceiptService) SignedURL(key string) (string, error) {
	return s.blobs.SignedURL(key, defaultViewTTL)
}

// Delete removes a stored receipt file.
func (s *ReceiptService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return apperrors.ValidationField("key", "receipt key is required")
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete receipt %s: %w", key, err)
	}
	s.logger.Info("receipt deleted", "key", key)
	return nil
}
