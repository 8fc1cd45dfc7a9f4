package httpx

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/cargosense/cargosense/internal/errors"
	"github.com/cargosense/cargosense/internal/service"
)

// maxReceiptUpload bounds how much of a multipart upload is read into memory.
// The service enforces its own limit; this guard just stops unbounded reads.
const maxReceiptUpload = 11 << 20

// ReceiptHandlers serves receipt upload, signed view, and deletion.
type ReceiptHandlers struct {
	Svc    *service.ReceiptService
	Logger *slog.Logger
}

// Upload handles POST /api/receipts. The body is multipart form data with a
// "file" part and an optional "job_id" field linking the receipt to a job.
func (h *ReceiptHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_multipart",
			Err:     err,
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_file",
			Err:     errors.New("multipart field \"file\" is required"),
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptUpload))
	if err != nil {
		WriteServiceError(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "read upload"))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	result, err := h.Svc.Upload(
		r.Context(),
		data,
		contentType,
		r.FormValue("job_id"),
		requestActor(r.Context()),
	)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, result)
}

// View handles GET /receipts/view?key=...&expires=...&sig=... and serves the
// file when the signature checks out. No session is required; possession of a
// valid unexpired link is the credential.
func (h *ReceiptHandlers) View(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data, contentType, err := h.Svc.View(r.Context(), q.Get("key"), q.Get("expires"), q.Get("sig"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := w.Write(data); err != nil && h.Logger != nil {
		h.Logger.WarnContext(r.Context(), "writing receipt response failed", "error", err)
	}
}

// Delete handles DELETE /api/receipts/{key}.
func (h *ReceiptHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), r.PathValue("key")); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
