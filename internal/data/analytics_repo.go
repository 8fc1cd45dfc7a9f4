package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// AnalyticsRepo persists one row per advisor chat call. Inserts are
// best-effort from the caller's point of view; a failed insert must never
// fail the chat itself.
type AnalyticsRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAnalyticsRepo creates a chat analytics repository.
func NewAnalyticsRepo(db *sql.DB, logger *slog.Logger) *AnalyticsRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsRepo{db: db, logger: logger.With("component", "analytics_repo")}
}

// Insert stores a chat analytics record and fills in its generated id and
// created_at.
func (r *AnalyticsRepo) Insert(ctx context.Context, rec *model.ChatAnalyticsRecord) error {
	snapshot := rec.ContextSnapshot
	if len(snapshot) == 0 {
		snapshot = []byte("{}")
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ai_chat_analytics (
			session_id, user_id, model_name, prompt, response,
			prompt_token_count, candidates_token_count, total_token_count, thoughts_token_count,
			finish_reason, response_time_ms, success, error_message, context_snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`,
		rec.SessionID, rec.UserID, rec.ModelName, rec.Prompt, rec.Response,
		rec.PromptTokenCount, rec.CandidatesTokenCount, rec.TotalTokenCount, rec.ThoughtsTokenCount,
		rec.FinishReason, rec.ResponseTimeMS, rec.Success, rec.ErrorMessage, snapshot,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("insert chat analytics: %w", err))
	}
	return nil
}
