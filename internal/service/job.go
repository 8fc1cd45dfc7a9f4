package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
	"github.com/cargosense/cargosense/internal/observability/metrics"
	"github.com/cargosense/cargosense/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Jobs    core.JobRepository
	History core.HistoryRepository
	Stats   statsd.Sink
	Logger  *slog.Logger
}

// JobService owns the cargo job lifecycle: creation, updates with a per-field
// audit trail, and the list snapshot the dashboard and advisor both consume.
type JobService struct {
	jobs    core.JobRepository
	history core.HistoryRepository
	stats   statsd.Sink
	logger  *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) *JobService {
	if opts.Jobs == nil {
		panic("JobService requires a job repository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		jobs:    opts.Jobs,
		history: opts.History,
		stats:   opts.Stats,
		logger:  logger.With("service", "job"),
	}
}

// emit records one CRUD metric for a completed repository call.
func (s *JobService) emit(operation string, started time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitJobOperation(s.stats, metrics.JobMetric{
		Operation: operation,
		Result:    result,
		Duration:  time.Since(started),
		Err:       err,
	})
}

// Create validates and persists a new job. New jobs always start out
// Scheduled and Pending regardless of what the caller sent.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	started := time.Now()
	job, err := s.jobs.Create(ctx, req, createdBy)
	s.emit("create", started, err)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info("job created",
		"job_id", job.ID,
		"shipper", job.ShipperName,
		"created_by", createdBy)
	return job, nil
}

// Get returns a single job by ID.
func (s *JobService) Get(ctx context.Context, id string) (*model.CargoJob, error) {
	if id == "" {
		return nil, apperrors.ValidationField("id", "job id is required")
	}
	return s.jobs.GetByID(ctx, id)
}

// List returns the full job snapshot, newest first.
func (s *JobService) List(ctx context.Context) ([]*model.CargoJob, error) {
	return s.jobs.List(ctx)
}

// Update applies a partial update and records one history row per changed
// field in the same transaction.
func (s *JobService) Update(ctx context.Context, id string, req *model.UpdateJobRequest, changedBy string) (*model.CargoJob, error) {
	if id == "" {
		return nil, apperrors.ValidationField("id", "job id is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	started := time.Now()
	job, err := s.jobs.Update(ctx, id, req, changedBy)
	s.emit("update", started, err)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}

	s.logger.Info("job updated", "job_id", id, "changed_by", changedBy)
	return job, nil
}

// Delete removes a job and its history.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.ValidationField("id", "job id is required")
	}
	started := time.Now()
	err := s.jobs.Delete(ctx, id)
	s.emit("delete", started, err)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	s.logger.Info("job deleted", "job_id", id)
	return nil
}

// History returns the audit trail for one job, newest change first. It
// verifies the job exists so callers get a not-found instead of an empty list
// for bogus IDs.
func (s *JobService) History(ctx context.Context, jobID string) ([]*model.JobHistoryEntry, error) {
	if jobID == "" {
		return nil, apperrors.ValidationField("id", "job id is required")
	}
	if s.history == nil {
		return nil, apperrors.Internal("history repository not configured")
	}
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.history.ListByJob(ctx, jobID)
}
