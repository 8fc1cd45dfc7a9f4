package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/cargosense/cargosense/internal/domain/auth"
	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/service"
)

// stubPrefsRepo is an in-memory PreferencesRepository.
type stubPrefsRepo struct {
	stored map[string]*model.NotificationPreferences
}

func (r *stubPrefsRepo) Get(_ context.Context, userID string) (*model.NotificationPreferences, error) {
	p, ok := r.stored[userID]
	if !ok {
		return nil, model.ErrPreferencesNotFound
	}
	return p, nil
}

func (r *stubPrefsRepo) Upsert(_ context.Context, prefs *model.NotificationPreferences) error {
	if r.stored == nil {
		r.stored = make(map[string]*model.NotificationPreferences)
	}
	r.stored[prefs.UserID] = prefs
	return nil
}

func newPrefsHandlers(repo *stubPrefsRepo) *PreferencesHandlers {
	svc := service.NewPreferencesService(service.PreferencesServiceOptions{Prefs: repo})
	return &PreferencesHandlers{Svc: svc}
}

func withSession(req *http.Request, userID string) *http.Request {
	ctx := SetSessionInContext(req.Context(), &domainauth.Session{
		ID:     "sess-1",
		UserID: userID,
		Role:   domainauth.RoleUser,
	})
	return req.WithContext(ctx)
}

func TestPreferencesHandlers_Get_Defaults(t *testing.T) {
	h := newPrefsHandlers(&stubPrefsRepo{})

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/preferences/notifications", nil), "u1")
	w := httptest.NewRecorder()

	h.Get(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":true`)
	assert.Contains(t, w.Body.String(), `"style":"banner"`)
}

func TestPreferencesHandlers_Get_RequiresSession(t *testing.T) {
	h := newPrefsHandlers(&stubPrefsRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/preferences/notifications", nil)
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPreferencesHandlers_Put(t *testing.T) {
	repo := &stubPrefsRepo{}
	h := newPrefsHandlers(repo)

	body := `{
		"user_id": "spoofed",
		"enabled": false,
		"seven_day_notice": false,
		"twenty_four_hour_notice": true,
		"sound": "chime",
		"style": "silent"
	}`
	req := withSession(httptest.NewRequest(http.MethodPut, "/api/preferences/notifications",
		strings.NewReader(body)), "u1")
	w := httptest.NewRecorder()

	h.Put(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// The session wins over any user_id in the payload.
	require.Contains(t, repo.stored, "u1")
	assert.NotContains(t, repo.stored, "spoofed")
	assert.False(t, repo.stored["u1"].Enabled)
	assert.Equal(t, model.NotificationStyleSilent, repo.stored["u1"].Style)
}

func TestPreferencesHandlers_Put_InvalidStyle(t *testing.T) {
	h := newPrefsHandlers(&stubPrefsRepo{})

	req := withSession(httptest.NewRequest(http.MethodPut, "/api/preferences/notifications",
		strings.NewReader(`{"style":"confetti"}`)), "u1")
	w := httptest.NewRecorder()

	h.Put(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
