package httpx

import (
	"errors"
	"net/http"

	"github.com/cargosense/cargosense/internal/domain/model"
	"github.com/cargosense/cargosense/internal/service"
)

// PreferencesHandlers serves per-user notification preference endpoints. Both
// routes require an authenticated session; the user ID always comes from the
// session, never from the payload.
type PreferencesHandlers struct {
	Svc *service.PreferencesService
}

// Get handles GET /api/preferences/notifications.
func (h *PreferencesHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	prefs, err := h.Svc.Get(r.Context(), session.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, prefs)
}

// Put handles PUT /api/preferences/notifications.
func (h *PreferencesHandlers) Put(w http.ResponseWriter, r *http.Request) {
	session, ok := GetUserSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var prefs model.NotificationPreferences
	if !DecodeJSON(w, r, &prefs) {
		return
	}
	prefs.UserID = session.UserID

	saved, err := h.Svc.Save(r.Context(), &prefs)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}
