package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cargosense/cargosense/internal/ai"
	apperrors "github.com/cargosense/cargosense/internal/errors"
	"github.com/cargosense/cargosense/internal/service"
)

// ChatHandlers serves the logistics advisor chat endpoint.
type ChatHandlers struct {
	Svc    *service.AdvisorService
	Logger *slog.Logger
}

func (h *ChatHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type chatRequest struct {
	Message string       `json:"message"`
	History []ai.Message `json:"history,omitempty"`
	Stream  bool         `json:"stream,omitempty"`
}

type chatResponse struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Chat handles POST /api/chat. With "stream": true the answer is relayed as
// SSE frames, otherwise it is returned as one JSON payload.
func (h *ChatHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	in := service.ChatInput{
		Message: req.Message,
		History: req.History,
	}
	if session, ok := GetUserSessionFromContext(r.Context()); ok {
		in.SessionID = session.ID
		in.UserID = session.UserID
	}

	if req.Stream {
		h.stream(w, r, in)
		return
	}

	result, err := h.Svc.Chat(r.Context(), in)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, chatResponse{Text: result.Text, Fallback: result.Fallback})
}

// stream relays the backend stream to the client as SSE "data:" frames, each
// carrying one text fragment, terminated by a [DONE] frame. When the backend
// is unreachable the whole fallback answer goes out as a single frame.
func (h *ChatHandlers) stream(w http.ResponseWriter, r *http.Request, in service.ChatInput) {
	body, recorder, err := h.Svc.ChatStream(r.Context(), in)
	if err != nil {
		if apperrors.IsUnavailable(err) {
			h.streamFallback(w, r, in)
			return
		}
		WriteServiceError(w, err)
		return
	}
	defer func() {
		if closeErr := body.Close(); closeErr != nil {
			h.logger().WarnContext(r.Context(), "closing chat stream failed", "error", closeErr)
		}
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteServiceError(w, apperrors.Internal("streaming not supported"))
		return
	}

	writeSSEHeaders(w)

	dec := ai.NewStreamDecoder(h.logger(), func(fragment string) {
		writeSSEFragment(w, fragment)
		flusher.Flush()
	})

	text, streamErr := dec.Consume(body)
	recorder.Finish(r.Context(), text, streamErr)
	if streamErr != nil {
		h.logger().WarnContext(r.Context(), "chat stream interrupted", "error", streamErr)
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// streamFallback emits the local degraded answer in the same SSE framing so
// streaming clients need no special case.
func (h *ChatHandlers) streamFallback(w http.ResponseWriter, r *http.Request, in service.ChatInput) {
	text, err := h.Svc.Fallback(r.Context(), in.Message)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteServiceError(w, apperrors.Internal("streaming not supported"))
		return
	}

	writeSSEHeaders(w)
	writeSSEFragment(w, text)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
}

func writeSSEFragment(w http.ResponseWriter, fragment string) {
	payload, err := json.Marshal(map[string]string{"text": fragment})
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
