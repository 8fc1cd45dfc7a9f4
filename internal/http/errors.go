package httpx

import (
	"errors"
	"net/http"

	"github.com/cargosense/cargosense/internal/domain/model"
	apperrors "github.com/cargosense/cargosense/internal/errors"
)

// WriteServiceError translates service-layer errors into JSON error responses.
func WriteServiceError(w http.ResponseWriter, err error) {
	code, errCode := statusForError(err)
	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: err})
}

// statusForError maps an error onto an HTTP status and a stable error code
// string for clients.
func statusForError(err error) (int, string) {
	if errors.Is(err, model.ErrJobNotFound) || errors.Is(err, model.ErrPreferencesNotFound) {
		return http.StatusNotFound, "not_found"
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, "not_found"
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, "validation_error"
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, "conflict"
	case apperrors.ErrCodeForeignKey:
		return http.StatusConflict, "foreign_key_violation"
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "timeout"
	case apperrors.ErrCodeCanceled:
		return http.StatusRequestTimeout, "canceled"
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
