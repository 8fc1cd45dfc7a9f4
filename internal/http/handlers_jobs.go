package httpx

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/service"
)

// JobHandlers provides HTTP handlers for cargo job CRUD and history.
type JobHandlers struct {
	Svc *service.JobService
}

// Create handles POST /api/jobs.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Create(r.Context(), &req, requestActor(r.Context()))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, job)
}

// List handles GET /api/jobs. Jobs are returned newest first.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Svc.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.CargoJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// GetByID handles GET /api/jobs/{id}.
func (h *JobHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Update handles PUT /api/jobs/{id}.
func (h *JobHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Update(r.Context(), r.PathValue("id"), &req, requestActor(r.Context()))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/jobs/{id}.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History handles GET /api/jobs/{id}/history.
func (h *JobHandlers) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.History(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.JobHistoryEntry{}
	}
	WriteJSON(w, http.StatusOK, entries)
}

var jobExportHeader = []string{
	"ID",
	"Shipper Name",
	"Payment Status",
	"Delivery Status",
	"Pickup Location",
	"Dropoff Location",
	"Pickup Date",
	"Est. Delivery Date",
	"Actual Delivery Date",
	"Price",
	"Notes",
	"Created At",
}

// Export handles GET /api/jobs/export. It streams the full job list as a CSV
// download, newest first, matching the columns shown on the dashboard.
func (h *JobHandlers) Export(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Svc.List(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("cargo-jobs-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	_ = cw.Write(jobExportHeader)
	for _, job := range jobs {
		if job == nil {
			continue
		}
		_ = cw.Write([]string{
			job.ID,
			job.ShipperName,
			string(job.PaymentStatus),
			string(job.DeliveryStatus),
			job.PickupLocation,
			job.DropoffLocation,
			job.PickupDate,
			job.EstimatedDeliveryDate,
			job.ActualDeliveryDate,
			strconv.FormatFloat(job.AgreedPrice, 'f', 2, 64),
			job.Notes,
			job.CreatedAt.UTC().Format("2006-01-02"),
		})
	}
	cw.Flush()
}

// requestActor names the user behind a request for audit trails. Anonymous
// requests are attributed to "system".
func requestActor(ctx context.Context) string {
	session, ok := GetUserSessionFromContext(ctx)
	if !ok {
		return "system"
	}
	if session.Email != "" {
		return session.Email
	}
	return session.UserID
}
