package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

type fakePrefs struct {
	getFn    func(ctx context.Context, userID string) (*model.NotificationPreferences, error)
	upsertFn func(ctx context.Context, p *model.NotificationPreferences) error
}

func (f *fakePrefs) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	if f.getFn != nil {
		return f.getFn(ctx, userID)
	}
	return nil, model.ErrPreferencesNotFound
}

func (f *fakePrefs) Upsert(ctx context.Context, p *model.NotificationPreferences) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, p)
	}
	return nil
}

func TestPreferencesGetDefaults(t *testing.T) {
	svc := NewPreferencesService(PreferencesServiceOptions{Prefs: &fakePrefs{}})

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.True(t, p.Enabled)
	assert.True(t, p.SevenDayNotice)
	assert.Equal(t, model.NotificationStyleBanner, p.Style)
	assert.Equal(t, "default", p.Sound)
}

func TestPreferencesGetStored(t *testing.T) {
	stored := model.DefaultNotificationPreferences("u1")
	stored.Enabled = false
	prefs := &fakePrefs{
		getFn: func(context.Context, string) (*model.NotificationPreferences, error) {
			return &stored, nil
		},
	}
	svc := NewPreferencesService(PreferencesServiceOptions{Prefs: prefs})

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, p.Enabled)
}

func TestPreferencesGetRequiresUser(t *testing.T) {
	svc := NewPreferencesService(PreferencesServiceOptions{Prefs: &fakePrefs{}})

	_, err := svc.Get(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}

func TestPreferencesSave(t *testing.T) {
	var saved *model.NotificationPreferences
	prefs := &fakePrefs{
		upsertFn: func(_ context.Context, p *model.NotificationPreferences) error {
			saved = p
			return nil
		},
	}
	svc := NewPreferencesService(PreferencesServiceOptions{Prefs: prefs})

	in := model.DefaultNotificationPreferences("u1")
	in.Style = model.NotificationStyleSilent
	in.Sound = ""

	out, err := svc.Save(context.Background(), &in)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, model.NotificationStyleSilent, saved.Style)
	assert.Equal(t, "default", out.Sound, "empty sound falls back to default")
}

func TestPreferencesSaveRejectsBadStyle(t *testing.T) {
	svc := NewPreferencesService(PreferencesServiceOptions{Prefs: &fakePrefs{}})

	in := model.DefaultNotificationPreferences("u1")
	in.Style = "confetti"

	_, err := svc.Save(context.Background(), &in)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))
}
