package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// HistoryRepo reads the per-field audit trail written by JobRepo.Update.
type HistoryRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistoryRepo creates a history repository.
func NewHistoryRepo(db *sql.DB, logger *slog.Logger) *HistoryRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryRepo{db: db, logger: logger.With("component", "history_repo")}
}

// ListByJob returns the edit history for one job, newest change first.
func (r *HistoryRepo) ListByJob(ctx context.Context, jobID string) ([]*model.JobHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, field, old_value, new_value, changed_by, changed_at
		FROM job_history
		WHERE job_id = $1
		ORDER BY changed_at DESC, field ASC`, jobID)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("list history for %s: %w", jobID, err))
	}
	defer rows.Close()

	entries := make([]*model.JobHistoryEntry, 0)
	for rows.Next() {
		var e model.JobHistoryEntry
		if err := rows.Scan(&e.ID, &e.JobID, &e.Field, &e.OldValue, &e.NewValue, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}
