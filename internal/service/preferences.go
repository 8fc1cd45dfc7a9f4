package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cargosense/cargosense/internal/core"
	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// PreferencesServiceOptions groups dependencies for PreferencesService.
type PreferencesServiceOptions struct {
	Prefs  core.PreferencesRepository
	Logger *slog.Logger
}

// PreferencesService reads and writes per-user delivery reminder settings.
// Users who never saved anything get the defaults.
type PreferencesService struct {
	prefs  core.PreferencesRepository
	logger *slog.Logger
}

// NewPreferencesService constructs a new PreferencesService.
func NewPreferencesService(opts PreferencesServiceOptions) *PreferencesService {
	if opts.Prefs == nil {
		panic("PreferencesService requires a preferences repository")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesService{
		prefs:  opts.Prefs,
		logger: logger.With("service", "preferences"),
	}
}

// Get returns the user's preferences, falling back to defaults when none are
// stored.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	if userID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}

	p, err := s.prefs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrPreferencesNotFound) {
			defaults := model.DefaultNotificationPreferences(userID)
			return &defaults, nil
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// Save validates and upserts the user's preferences.
func (s *PreferencesService) Save(ctx context.Context, p *model.NotificationPreferences) (*model.NotificationPreferences, error) {
	if p.UserID == "" {
		return nil, apperrors.ValidationField("user_id", "user id is required")
	}
	if err := p.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	if err := s.prefs.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}

	s.logger.Info("preferences saved", "user_id", p.UserID, "enabled", p.Enabled)
	return p, nil
}
