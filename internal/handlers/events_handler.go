// File: internal/handlers/events_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

const heartbeatInterval = 15 * time.Second

type settledEvent struct {
	ChatID string         `json:"chatId"`
	Reply  domain.Message `json:"reply"`
	Error  string         `json:"error,omitempty"`
}

// Events streams the caller's state as server-sent events: a "state" event
// on connect and after every change, and a "settled" event when a reply
// has been reconciled.
func (h *ChatHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	states, unsubscribe := s.Subscribe()
	defer unsubscribe()

	settled := make(chan chat.Settlement, 4)
	removeObserver := s.OnSettled(func(st chat.Settlement) {
		select {
		case settled <- st:
		default:
			h.logger.Warn("dropping settle event, client is slow", "chat_id", st.ChatID)
		}
	})
	defer removeObserver()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "state", s.View()); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		var err error
		select {
		case <-ctx.Done():
			h.logger.Debug("event stream closed", "session", s.Key())
			return
		case <-heartbeat.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		case st, open := <-states:
			if !open {
				return
			}
			err = writeEvent(w, "state", chat.View{State: st, Loading: s.View().Loading})
		case st := <-settled:
			ev := settledEvent{ChatID: st.ChatID, Reply: st.Reply}
			if st.Err != nil {
				ev.Error = st.Err.Error()
			}
			if err = writeEvent(w, "settled", ev); err == nil {
				err = writeEvent(w, "state", s.View())
			}
		}
		if err != nil {
			h.logger.Debug("event stream write failed", "session", s.Key(), "error", err)
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}
