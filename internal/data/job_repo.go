package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/cargosense/cargosense/internal/data/pgxutil"
	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// JobRepo is the PostgreSQL-backed cargo job repository.
type JobRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewJobRepo creates a job repository.
func NewJobRepo(db *sql.DB, logger *slog.Logger) *JobRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{db: db, logger: logger.With("component", "job_repo")}
}

const jobColumns = `id, shipper_name, payment_status, delivery_status,
	pickup_location, dropoff_location, intermediate_stops,
	pickup_date, estimated_delivery_date, actual_delivery_date,
	agreed_price, notes, receipt_url, created_at, updated_at, created_by`

// Create inserts a job. The server forces delivery_status=Scheduled and
// payment_status=Pending and assigns id/created_at/updated_at.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest, createdBy string) (*model.CargoJob, error) {
	stops, err := marshalStops(req.IntermediateStops)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO cargo_jobs (
			shipper_name, payment_status, delivery_status,
			pickup_location, dropoff_location, intermediate_stops,
			pickup_date, estimated_delivery_date,
			agreed_price, notes, receipt_url, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + jobColumns

	row := r.db.QueryRowContext(ctx, query,
		req.ShipperName, model.PaymentPending, model.DeliveryScheduled,
		req.PickupLocation, req.DropoffLocation, stops,
		req.PickupDate, req.EstimatedDeliveryDate,
		req.AgreedPrice, req.Notes, req.ReceiptURL, createdBy,
	)

	job, err := scanJob(row)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("insert job: %w", err))
	}
	return job, nil
}

// GetByID fetches one job, returning model.ErrJobNotFound when absent.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.CargoJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cargo_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrJobNotFound
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get job %s: %w", id, err))
	}
	return job, nil
}

// List returns every job, newest first.
func (r *JobRepo) List(ctx context.Context) ([]*model.CargoJob, error) {
	query := `SELECT ` + jobColumns + ` FROM cargo_jobs ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list jobs: %w", err))
	}
	defer rows.Close()

	jobs := make([]*model.CargoJob, 0)
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

// Update applies the non-nil fields of req, bumping updated_at and writing
// one job_history row per changed field, all in a single transaction.
func (r *JobRepo) Update(ctx context.Context, id string, req *model.UpdateJobRequest, changedBy string) (*model.CargoJob, error) {
	var updated *model.CargoJob

	txErr := pgxutil.WithPgxTx(ctx, r.db, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		current, err := lockJob(ctx, tx, id)
		if err != nil {
			return err
		}

		next := *current
		applyUpdate(&next, req)

		changes := diffJobs(current, &next)
		if len(changes) == 0 {
			updated = current
			return nil
		}

		stops, err := marshalStops(next.IntermediateStops)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			UPDATE cargo_jobs SET
				shipper_name = $2, payment_status = $3, delivery_status = $4,
				pickup_location = $5, dropoff_location = $6, intermediate_stops = $7,
				pickup_date = $8, estimated_delivery_date = $9, actual_delivery_date = $10,
				agreed_price = $11, notes = $12, receipt_url = $13,
				updated_at = now()
			WHERE id = $1
			RETURNING `+jobColumns,
			id, next.ShipperName, next.PaymentStatus, next.DeliveryStatus,
			next.PickupLocation, next.DropoffLocation, stops,
			next.PickupDate, next.EstimatedDeliveryDate, nullIfEmpty(next.ActualDeliveryDate),
			next.AgreedPrice, next.Notes, next.ReceiptURL,
		)

		updated, err = scanJob(row)
		if err != nil {
			return fmt.Errorf("update job %s: %w", id, err)
		}

		for _, c := range changes {
			if _, err := tx.Exec(ctx, `
				INSERT INTO job_history (job_id, field, old_value, new_value, changed_by, changed_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				id, c.field, c.oldValue, c.newValue, changedBy, updated.UpdatedAt,
			); err != nil {
				return fmt.Errorf("record history for %s.%s: %w", id, c.field, err)
			}
		}
		return nil
	}})

	if txErr != nil {
		if errors.Is(txErr, model.ErrJobNotFound) {
			return nil, model.ErrJobNotFound
		}
		return nil, apperrors.MapDBError(txErr)
	}
	return updated, nil
}

// Delete removes a job. History rows cascade at the schema level.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cargo_jobs WHERE id = $1`, id)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("delete job %s: %w", id, err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete job %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return model.ErrJobNotFound
	}
	return nil
}

func lockJob(ctx context.Context, tx pgx.Tx, id string) (*model.CargoJob, error) {
	row := tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM cargo_jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrJobNotFound
		}
		return nil, fmt.Errorf("lock job %s: %w", id, err)
	}
	return job, nil
}

func applyUpdate(job *model.CargoJob, req *model.UpdateJobRequest) {
	if req.ShipperName != nil {
		job.ShipperName = *req.ShipperName
	}
	if req.PaymentStatus != nil {
		job.PaymentStatus = *req.PaymentStatus
	}
	if req.DeliveryStatus != nil {
		job.DeliveryStatus = *req.DeliveryStatus
	}
	if req.PickupLocation != nil {
		job.PickupLocation = *req.PickupLocation
	}
	if req.DropoffLocation != nil {
		job.DropoffLocation = *req.DropoffLocation
	}
	if req.IntermediateStops != nil {
		job.IntermediateStops = *req.IntermediateStops
	}
	if req.PickupDate != nil {
		job.PickupDate = *req.PickupDate
	}
	if req.EstimatedDeliveryDate != nil {
		job.EstimatedDeliveryDate = *req.EstimatedDeliveryDate
	}
	if req.ActualDeliveryDate != nil {
		job.ActualDeliveryDate = *req.ActualDeliveryDate
	}
	if req.AgreedPrice != nil {
		job.AgreedPrice = *req.AgreedPrice
	}
	if req.Notes != nil {
		job.Notes = *req.Notes
	}
	if req.ReceiptURL != nil {
		job.ReceiptURL = *req.ReceiptURL
	}
}

type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

// diffJobs lists the tracked fields whose values differ between old and new.
func diffJobs(oldJob, newJob *model.CargoJob) []fieldChange {
	var changes []fieldChange
	add := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, fieldChange{field: field, oldValue: oldValue, newValue: newValue})
		}
	}

	add("shipper_name", oldJob.ShipperName, newJob.ShipperName)
	add("payment_status", string(oldJob.PaymentStatus), string(newJob.PaymentStatus))
	add("delivery_status", string(oldJob.DeliveryStatus), string(newJob.DeliveryStatus))
	add("pickup_location", oldJob.PickupLocation, newJob.PickupLocation)
	add("dropoff_location", oldJob.DropoffLocation, newJob.DropoffLocation)
	add("intermediate_stops", stopsLabel(oldJob.IntermediateStops), stopsLabel(newJob.IntermediateStops))
	add("pickup_date", oldJob.PickupDate, newJob.PickupDate)
	add("estimated_delivery_date", oldJob.EstimatedDeliveryDate, newJob.EstimatedDeliveryDate)
	add("actual_delivery_date", oldJob.ActualDeliveryDate, newJob.ActualDeliveryDate)
	add("agreed_price", formatPrice(oldJob.AgreedPrice), formatPrice(newJob.AgreedPrice))
	add("notes", oldJob.Notes, newJob.Notes)
	add("receipt_url", oldJob.ReceiptURL, newJob.ReceiptURL)

	return changes
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func stopsLabel(stops []model.Stop) string {
	if len(stops) == 0 {
		return "[]"
	}
	data, err := json.Marshal(stops)
	if err != nil {
		return fmt.Sprintf("%d stops", len(stops))
	}
	return string(data)
}

func marshalStops(stops []model.Stop) ([]byte, error) {
	if stops == nil {
		stops = []model.Stop{}
	}
	data, err := json.Marshal(stops)
	if err != nil {
		return nil, fmt.Errorf("encode intermediate stops: %w", err)
	}
	return data, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner covers *sql.Row, *sql.Rows, and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.CargoJob, error) {
	var (
		job    model.CargoJob
		stops  []byte
		actual sql.NullString
		notes  sql.NullString
		rcpt   sql.NullString
	)

	err := row.Scan(
		&job.ID, &job.ShipperName, &job.PaymentStatus, &job.DeliveryStatus,
		&job.PickupLocation, &job.DropoffLocation, &stops,
		&job.PickupDate, &job.EstimatedDeliveryDate, &actual,
		&job.AgreedPrice, &notes, &rcpt, &job.CreatedAt, &job.UpdatedAt, &job.CreatedBy,
	)
	if err != nil {
		return nil, err
	}

	job.ActualDeliveryDate = actual.String
	job.Notes = notes.String
	job.ReceiptURL = rcpt.String
	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &job.IntermediateStops); err != nil {
			return nil, fmt.Errorf("decode intermediate stops: %w", err)
		}
	}
	return &job, nil
}
