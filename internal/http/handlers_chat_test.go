package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargosense/cargosense/internal/ai"
	"github.com/cargosense/cargosense/internal/service"
)

// stubBackend is a canned AdvisorBackend.
type stubBackend struct {
	text       string
	streamBody string
	err        error
}

func (b *stubBackend) Model() string { return "stub-model" }

func (b *stubBackend) Generate(_ context.Context, _, _ string) (*ai.GenerateResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &ai.GenerateResult{Text: b.text}, nil
}

func (b *stubBackend) GenerateStream(_ context.Context, _, _ string) (io.ReadCloser, error) {
	if b.err != nil {
		return nil, b.err
	}
	return io.NopCloser(strings.NewReader(b.streamBody)), nil
}

func newChatHandlers(backend service.AdvisorBackend) *ChatHandlers {
	svc := service.NewAdvisorService(service.AdvisorServiceOptions{
		Jobs:    newStubJobRepo(),
		Backend: backend,
	})
	return &ChatHandlers{Svc: svc}
}

func TestChatHandlers_Chat(t *testing.T) {
	h := newChatHandlers(&stubBackend{text: "Revenue looks healthy."})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"How is revenue?"}`))
	w := httptest.NewRecorder()

	h.Chat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"Revenue looks healthy."`)
	assert.NotContains(t, w.Body.String(), `"fallback":true`)
}

func TestChatHandlers_Chat_EmptyMessage(t *testing.T) {
	h := newChatHandlers(&stubBackend{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":""}`))
	w := httptest.NewRecorder()

	h.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"validation_error"`)
}

func TestChatHandlers_Chat_BackendFailureFallsBack(t *testing.T) {
	h := newChatHandlers(&stubBackend{err: errors.New("upstream down")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"status report"}`))
	w := httptest.NewRecorder()

	h.Chat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"fallback":true`)
}

func TestChatHandlers_Stream(t *testing.T) {
	h := newChatHandlers(&stubBackend{
		streamBody: "data: {\"text\":\"Hello \"}\ndata: {\"text\":\"world\"}\ndata: [DONE]\n",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"greet","stream":true}`))
	w := httptest.NewRecorder()

	h.Chat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `data: {"text":"Hello "}`)
	assert.Contains(t, body, `data: {"text":"world"}`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"), "missing terminator: %q", body)
}

func TestChatHandlers_Stream_BackendDownFallsBack(t *testing.T) {
	h := newChatHandlers(&stubBackend{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"how many jobs?","stream":true}`))
	w := httptest.NewRecorder()

	h.Chat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `data: {"text":`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
}
