// File: internal/handlers/chat_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/middleware"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

// SessionProvider hands out the session of a session key.
type SessionProvider interface {
	Get(ctx context.Context, key string) (*chat.Session, error)
}

// Logger defines the logging interface used by the handlers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type ChatHandler struct {
	sessions SessionProvider
	logger   Logger
}

func NewChatHandler(sessions SessionProvider, logger Logger) *ChatHandler {
	return &ChatHandler{sessions: sessions, logger: logger}
}

// Register mounts the chat API on r. sendMiddleware wraps only the send
// endpoint.
func (h *ChatHandler) Register(r *mux.Router, sendMiddleware ...mux.MiddlewareFunc) {
	send := r.Path("/messages").Subrouter()
	send.Use(sendMiddleware...)
	send.Methods(http.MethodPost).HandlerFunc(h.SendMessage)

	r.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	r.HandleFunc("/chats", h.CreateChat).Methods(http.MethodPost)
	r.HandleFunc("/chats/{id}/active", h.SelectChat).Methods(http.MethodPut)
	r.HandleFunc("/chats/{id}", h.RenameChat).Methods(http.MethodPatch)
	r.HandleFunc("/chats/{id}", h.DeleteChat).Methods(http.MethodDelete)
	r.HandleFunc("/model", h.SetModel).Methods(http.MethodPut)
	r.HandleFunc("/events", h.Events).Methods(http.MethodGet)
}

// session resolves the caller's session, writing the error response itself
// when it cannot.
func (h *ChatHandler) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	key, ok := middleware.SessionKeyFrom(r.Context())
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}

	s, err := h.sessions.Get(r.Context(), key)
	if err != nil {
		var ce *chat.ChatError
		switch {
		case errors.As(err, &ce) && ce.Type == chat.ErrTypeClosed:
			writeError(w, "Server is shutting down", http.StatusServiceUnavailable)
		case errors.As(err, &ce) && ce.Type == chat.ErrTypeValidation:
			writeError(w, ce.Message, http.StatusBadRequest)
		default:
			h.logger.Error("failed to open session", "error", err)
			writeError(w, "Could not open session", http.StatusInternalServerError)
		}
		return nil, false
	}
	return s, true
}

// GetState returns the caller's threads and whether a reply is pending.
func (h *ChatHandler) GetState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

type sendRequest struct {
	Content string `json:"content"`
}

type sendResponse struct {
	ChatID  string         `json:"chatId"`
	Message domain.Message `json:"message"`
}

// SendMessage starts an exchange. The reply arrives through /events or a
// later /state read.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, "Message content is empty", http.StatusBadRequest)
		return
	}

	s, ok := h.session(w, r)
	if !ok {
		return
	}
	ex, reason := s.TrySend(req.Content)
	switch reason {
	case "":
	case chat.RejectClosed:
		writeError(w, "Session is shutting down", http.StatusServiceUnavailable)
		return
	case chat.RejectEmpty:
		writeError(w, "Message content is empty", http.StatusBadRequest)
		return
	default:
		writeError(w, "A reply is still pending", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusAccepted, sendResponse{ChatID: ex.ChatID, Message: ex.Message})
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, s.NewThread())
}

func (h *ChatHandler) SelectChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, ok := s.SelectThread(mux.Vars(r)["id"])
	if !ok {
		writeError(w, "Chat not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type renameRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) RenameChat(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, "Title is required", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, ok := s.RenameThread(mux.Vars(r)["id"], req.Title)
	if !ok {
		writeError(w, "Chat not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, ok := s.DeleteThread(mux.Vars(r)["id"])
	if !ok {
		writeError(w, "Chat not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type modelRequest struct {
	Model domain.Model `json:"model"`
}

func (h *ChatHandler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req modelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Model.Valid() {
		writeError(w, "Unknown model", http.StatusBadRequest)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	st, _ := s.SetModel(req.Model)
	writeJSON(w, http.StatusOK, st)
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
