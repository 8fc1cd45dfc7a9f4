package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// PreferencesRepo stores per-user delivery reminder settings.
type PreferencesRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPreferencesRepo creates a notification preferences repository.
func NewPreferencesRepo(db *sql.DB, logger *slog.Logger) *PreferencesRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesRepo{db: db, logger: logger.With("component", "preferences_repo")}
}

// Get returns the stored preferences for a user, or
// model.ErrPreferencesNotFound when the user never saved any.
func (r *PreferencesRepo) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	var p model.NotificationPreferences
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, enabled, seven_day_notice, twenty_four_hour_notice, sound, style
		FROM notification_preferences
		WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Enabled, &p.SevenDayNotice, &p.TwentyFourHourNotice, &p.Sound, &p.Style)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPreferencesNotFound
		}
		return nil, apperrors.MapDBError(fmt.Errorf("get preferences for %s: %w", userID, err))
	}
	return &p, nil
}

// Upsert writes the full preference row for a user.
func (r *PreferencesRepo) Upsert(ctx context.Context, p *model.NotificationPreferences) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_preferences (user_id, enabled, seven_day_notice, twenty_four_hour_notice, sound, style)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			seven_day_notice = EXCLUDED.seven_day_notice,
			twenty_four_hour_notice = EXCLUDED.twenty_four_hour_notice,
			sound = EXCLUDED.sound,
			style = EXCLUDED.style`,
		p.UserID, p.Enabled, p.SevenDayNotice, p.TwentyFourHourNotice, p.Sound, p.Style,
	)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("upsert preferences for %s: %w", p.UserID, err))
	}
	return nil
}
