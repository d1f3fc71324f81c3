package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vidyavistaar/portal/internal/assistant"
	"github.com/vidyavistaar/portal/internal/model"
)

func (h *Handler) conversation(r *http.Request) (*assistant.Conversation, error) {
	user := model.UserFromContext(r.Context())
	return h.assistant.Get(user.ID, chi.URLParam(r, "convID"))
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	c := h.assistant.Create(model.UserFromContext(r.Context()))
	writeJSON(w, http.StatusCreated, c.Snapshot())
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if err := h.assistant.Delete(user.ID, chi.URLParam(r, "convID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type languageRequest struct {
	Language model.Language `json:"language" validate:"required,oneof=english punjabi"`
}

func (h *Handler) handleSelectLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.conversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := c.SelectLanguage(req.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type modeRequest struct {
	Mode assistant.Mode `json:"mode" validate:"required,oneof=normal analysis"`
}

func (h *Handler) handleSelectMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.conversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := c.SelectMode(r.Context(), req.Mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.conversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("stream") == "1" {
		h.streamMessage(w, r, c, req.Text)
		return
	}
	snap, err := c.Send(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// sseWriter commits the event-stream headers on the first event, so errors
// raised before any output still get a regular JSON response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (s *sseWriter) send(event string, v any) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	for _, line := range strings.Split(string(payload), "\n") {
		if _, err := fmt.Fprintf(s.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(s.w, "\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// streamMessage emits "delta" events while the reply is generated and a final
// "done" event carrying the conversation state.
func (h *Handler) streamMessage(w http.ResponseWriter, r *http.Request, c *assistant.Conversation, text string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("streaming unsupported"))
		return
	}
	sse := &sseWriter{w: w, flusher: flusher}
	snap, err := c.SendStream(r.Context(), text, func(delta string) error {
		return sse.send("delta", map[string]string{"text": delta})
	})
	if err != nil {
		if !sse.started {
			writeError(w, r, err)
			return
		}
		_, msg := classify(r, err)
		_ = sse.send("error", errorBody{Error: msg})
		return
	}
	if err := sse.send("done", snap); err != nil {
		slog.Warn("failed to finish event stream", "conversation", c.ID(), "error", err)
	}
}

func (h *Handler) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.conversation(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c.Reset())
}
