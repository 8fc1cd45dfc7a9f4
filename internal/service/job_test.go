package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
	"github.com/cargosense/cargosense/internal/testutil"
)

// fakeJobs is a func-field stub for core.JobRepository.
type fakeJobs struct {
	createFn func(ctx context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error)
	getFn    func(ctx context.Context, id string) (*model.CargoJob, error)
	listFn   func(ctx context.Context) ([]*model.CargoJob, error)
	updateFn func(ctx context.Context, id string, req *model.UpdateJobRequest, changedBy string) (*model.CargoJob, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeJobs) Create(ctx context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req, createdBy)
	}
	return &model.CargoJob{
		ID:                    "job-1",
		ShipperName:           req.ShipperName,
		PaymentStatus:         model.PaymentPending,
		DeliveryStatus:        model.DeliveryScheduled,
		PickupLocation:        req.PickupLocation,
		DropoffLocation:       req.DropoffLocation,
		PickupDate:            req.PickupDate,
		EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		AgreedPrice:           req.AgreedPrice,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
		CreatedBy:             createdBy,
	}, nil
}

func (f *fakeJobs) GetByID(ctx context.Context, id string) (*model.CargoJob, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, model.ErrJobNotFound
}

func (f *fakeJobs) List(ctx context.Context) ([]*model.CargoJob, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeJobs) Update(ctx context.Context, id string, req *model.UpdateJobRequest, changedBy string) (*model.CargoJob, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req, changedBy)
	}
	return nil, model.ErrJobNotFound
}

func (f *fakeJobs) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

// recordingSink captures emitted statsd counts for assertions.
type recordingSink struct {
	counts []recordedMetric
}

type recordedMetric struct {
	name string
	tags map[string]string
}

func (s *recordingSink) Count(name string, _ int64, tags map[string]string) {
	s.counts = append(s.counts, recordedMetric{name: name, tags: tags})
}

func (s *recordingSink) Timing(string, time.Duration, map[string]string) {}

// fakeHistory is a func-field stub for core.HistoryRepository.
type fakeHistory struct {
	listFn func(ctx context.Context, jobID string) ([]*model.JobHistoryEntry, error)
}

func (f *fakeHistory) ListByJob(ctx context.Context, jobID string) ([]*model.JobHistoryEntry, error) {
	if f.listFn != nil {
		return f.listFn(ctx, jobID)
	}
	return nil, nil
}

func TestJobServiceCreate(t *testing.T) {
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}, History: &fakeHistory{}})

	job, err := svc.Create(context.Background(), testutil.NewJobRequest().Build(), "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryScheduled, job.DeliveryStatus)
	assert.Equal(t, "ops@example.com", job.CreatedBy)
}

func TestJobServiceCreateValidates(t *testing.T) {
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}})

	req := testutil.NewJobRequest().WithShipper("   ").Build()
	_, err := svc.Create(context.Background(), req, "ops")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestJobServiceGetRequiresID(t *testing.T) {
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}})

	_, err := svc.Get(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestJobServiceUpdateValidates(t *testing.T) {
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}})

	bogus := model.DeliveryStatus("Teleported")
	_, err := svc.Update(context.Background(), "job-1", &model.UpdateJobRequest{DeliveryStatus: &bogus}, "ops")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestJobServiceHistory(t *testing.T) {
	jobs := &fakeJobs{
		getFn: func(_ context.Context, id string) (*model.CargoJob, error) {
			if id == "job-1" {
				return &model.CargoJob{ID: id}, nil
			}
			return nil, model.ErrJobNotFound
		},
	}
	history := &fakeHistory{
		listFn: func(_ context.Context, jobID string) ([]*model.JobHistoryEntry, error) {
			return []*model.JobHistoryEntry{{JobID: jobID, Field: "notes"}}, nil
		},
	}
	svc := NewJobService(JobServiceOptions{Jobs: jobs, History: history})

	entries, err := svc.History(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "notes", entries[0].Field)

	_, err = svc.History(context.Background(), "missing")
	assert.True(t, errors.Is(err, model.ErrJobNotFound))
}

func TestJobServiceEmitsOperationMetrics(t *testing.T) {
	sink := &recordingSink{}
	jobs := &fakeJobs{
		deleteFn: func(context.Context, string) error {
			return errors.New("db down")
		},
	}
	svc := NewJobService(JobServiceOptions{Jobs: jobs, Stats: sink})

	_, err := svc.Create(context.Background(), testutil.NewJobRequest().Build(), "ops")
	require.NoError(t, err)
	require.Error(t, svc.Delete(context.Background(), "job-1"))

	require.Len(t, sink.counts, 2)
	assert.Equal(t, "job.operation", sink.counts[0].name)
	assert.Equal(t, "create", sink.counts[0].tags["operation"])
	assert.Equal(t, "success", sink.counts[0].tags["result"])
	assert.Equal(t, "delete", sink.counts[1].tags["operation"])
	assert.Equal(t, "error", sink.counts[1].tags["result"])
}

func TestJobServiceSkipsMetricsOnValidationFailure(t *testing.T) {
	sink := &recordingSink{}
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}, Stats: sink})

	req := testutil.NewJobRequest().WithShipper("   ").Build()
	_, err := svc.Create(context.Background(), req, "ops")
	require.Error(t, err)
	assert.Empty(t, sink.counts, "rejected input never reaches the repository")
}

func TestJobServiceDeleteRequiresID(t *testing.T) {
	svc := NewJobService(JobServiceOptions{Jobs: &fakeJobs{}})

	err := svc.Delete(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}
