package httpx

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/service"
)

// stubJobRepo is an in-memory JobRepository for handler tests.
type stubJobRepo struct {
	jobs      map[string]*model.CargoJob
	createErr error
}

func newStubJobRepo(jobs ...*model.CargoJob) *stubJobRepo {
	m := make(map[string]*model.CargoJob, len(jobs))
	for _, j := range jobs {
		m[j.ID] = j
	}
	return &stubJobRepo{jobs: m}
}

func (r *stubJobRepo) Create(_ context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	job := &model.CargoJob{
		ID:                    "job-new",
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
	}
	r.jobs[job.ID] = job
	return job, nil
}

func (r *stubJobRepo) GetByID(_ context.Context, id string) (*model.CargoJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return job, nil
}

func (r *stubJobRepo) List(_ context.Context) ([]*model.CargoJob, error) {
	out := make([]*model.CargoJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out, nil
}

func (r *stubJobRepo) Update(_ context.Context, id string, req *model.UpdateJobRequest, _ string) (*model.CargoJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	if req.DeliveryStatus != nil {
		job.DeliveryStatus = *req.DeliveryStatus
	}
	if req.Notes != nil {
		job.Notes = *req.Notes
	}
	return job, nil
}

func (r *stubJobRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.jobs[id]; !ok {
		return model.ErrJobNotFound
	}
	delete(r.jobs, id)
	return nil
}

// stubHistoryRepo serves a canned history list.
type stubHistoryRepo struct {
	entries []*model.JobHistoryEntry
}

func (r *stubHistoryRepo) ListByJob(_ context.Context, _ string) ([]*model.JobHistoryEntry, error) {
	return r.entries, nil
}

func newJobHandlers(repo *stubJobRepo, history *stubHistoryRepo) *JobHandlers {
	if history == nil {
		history = &stubHistoryRepo{}
	}
	svc := service.NewJobService(service.JobServiceOptions{Jobs: repo, History: history})
	return &JobHandlers{Svc: svc}
}

func TestJobHandlers_Create(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	body := `{
		"shipper_name": "Acme Freight",
		"pickup_location": "Rotterdam",
		"dropoff_location": "Hamburg",
		"pickup_date": "2025-06-01",
		"estimated_delivery_date": "2025-06-05",
		"agreed_price": 1200.50
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"shipper_name":"Acme Freight"`)
	assert.Contains(t, w.Body.String(), `"delivery_status":"Scheduled"`)
	assert.Contains(t, w.Body.String(), `"payment_status":"Pending"`)
}

func TestJobHandlers_Create_ValidationError(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"shipper_name":""}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"validation_error"`)
}

func TestJobHandlers_Create_RejectsUnknownFields(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader(`{"bogus":1}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"invalid_json"`)
}

func TestJobHandlers_GetByID_NotFound(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"not_found"`)
}

func TestJobHandlers_List_EmptyIsArray(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestJobHandlers_Export(t *testing.T) {
	repo := newStubJobRepo(&model.CargoJob{
		ID:                    "job-1",
		ShipperName:           `Acme "Global" Freight`,
		PaymentStatus:         model.PaymentPending,
		DeliveryStatus:        model.DeliveryScheduled,
		PickupLocation:        "Rotterdam",
		DropoffLocation:       "Hamburg, DE",
		PickupDate:            "2025-06-01",
		EstimatedDeliveryDate: "2025-06-05",
		AgreedPrice:           1200.5,
		Notes:                 "fragile",
		CreatedAt:             time.Date(2025, 5, 20, 14, 0, 0, 0, time.UTC),
	})
	h := newJobHandlers(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/export", nil)
	w := httptest.NewRecorder()

	h.Export(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `attachment; filename="cargo-jobs-`)

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Shipper Name", records[0][1])
	row := records[1]
	assert.Equal(t, "job-1", row[0])
	assert.Equal(t, `Acme "Global" Freight`, row[1])
	assert.Equal(t, "Hamburg, DE", row[5])
	assert.Equal(t, "1200.50", row[9])
	assert.Equal(t, "2025-05-20", row[11])
}

func TestJobHandlers_Export_Empty(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/export", nil)
	w := httptest.NewRecorder()

	h.Export(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1, "empty exports still carry the header row")
	assert.Equal(t, jobExportHeader, records[0])
}

func TestJobHandlers_Update(t *testing.T) {
	repo := newStubJobRepo(&model.CargoJob{
		ID:             "job-1",
		ShipperName:    "Acme",
		DeliveryStatus: model.DeliveryScheduled,
		PaymentStatus:  model.PaymentPending,
	})
	h := newJobHandlers(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/jobs/job-1",
		strings.NewReader(`{"delivery_status":"Delivered"}`))
	req.SetPathValue("id", "job-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"delivery_status":"Delivered"`)
}

func TestJobHandlers_Update_InvalidStatus(t *testing.T) {
	repo := newStubJobRepo(&model.CargoJob{ID: "job-1"})
	h := newJobHandlers(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/jobs/job-1",
		strings.NewReader(`{"delivery_status":"Teleported"}`))
	req.SetPathValue("id", "job-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	// Unknown enum values fail at JSON decode via UnmarshalText.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobHandlers_Delete(t *testing.T) {
	repo := newStubJobRepo(&model.CargoJob{ID: "job-1"})
	h := newJobHandlers(repo, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/job-1", nil)
	req.SetPathValue("id", "job-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.jobs)
}

func TestJobHandlers_History(t *testing.T) {
	repo := newStubJobRepo(&model.CargoJob{ID: "job-1"})
	history := &stubHistoryRepo{entries: []*model.JobHistoryEntry{
		{ID: "h1", JobID: "job-1", Field: "deliveryStatus", OldValue: "Scheduled", NewValue: "Delivered"},
	}}
	h := newJobHandlers(repo, history)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1/history", nil)
	req.SetPathValue("id", "job-1")
	w := httptest.NewRecorder()

	h.History(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"deliveryStatus"`)
}

func TestJobHandlers_History_UnknownJob(t *testing.T) {
	h := newJobHandlers(newStubJobRepo(), &stubHistoryRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope/history", nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	h.History(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
