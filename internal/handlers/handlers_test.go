package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/middleware"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services/chat"
	"github.com/iyunix/go-chatsync/internal/services/completion"
	"github.com/iyunix/go-chatsync/internal/services/persistence"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

type clientFunc func(ctx context.Context, req completion.Request) (domain.Message, error)

func (f clientFunc) Complete(ctx context.Context, req completion.Request) (domain.Message, error) {
	return f(ctx, req)
}

func newRouter(t *testing.T, client completion.Client) (*mux.Router, *chat.SessionManager) {
	t.Helper()
	pcfg := persistence.DefaultConfig()
	pcfg.Debounce = 0
	m := chat.NewSessionManager(chat.Deps{
		Repo:        document.NewMemoryRepository(),
		Client:      client,
		Persistence: pcfg,
	})
	t.Cleanup(func() { _ = m.CloseAll(context.Background()) })

	r := mux.NewRouter()
	r.HandleFunc("/health", Health(m)).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewSessionAuth(nil, true, nopLogger{}))
	NewChatHandler(m, nopLogger{}).Register(api)
	return r, m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("X-Session-Key", "alice")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) chat.View {
	t.Helper()
	var v chat.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) domain.ChatState {
	t.Helper()
	var st domain.ChatState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestUnauthenticated(t *testing.T) {
	h, _ := newRouter(t, clientFunc(nil))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSendMessage(t *testing.T) {
	release := make(chan struct{})
	h, m := newRouter(t, clientFunc(func(context.Context, completion.Request) (domain.Message, error) {
		<-release
		return domain.Message{Content: "Hi!"}, nil
	}))

	w := do(t, h, http.MethodPost, "/api/messages", `{"content":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, decodeView(t, do(t, h, http.MethodGet, "/api/state", "")).State.Chats)

	w = do(t, h, http.MethodPost, "/api/messages", `{"content":"Hello"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	var sent sendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	assert.Equal(t, "Hello", sent.Message.Content)

	w = do(t, h, http.MethodPost, "/api/messages", `{"content":"again"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	v := decodeView(t, do(t, h, http.MethodGet, "/api/state", ""))
	assert.True(t, v.Loading)
	require.Len(t, v.State.Chats, 1)
	assert.Len(t, v.State.Chats[0].Messages, 1)

	close(release)
	s, err := m.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !s.View().Loading }, 2*time.Second, 10*time.Millisecond)

	v = decodeView(t, do(t, h, http.MethodGet, "/api/state", ""))
	require.Len(t, v.State.Chats[0].Messages, 2)
	assert.Equal(t, "Hi!", v.State.Chats[0].Messages[1].Content)
	assert.Equal(t, sent.ChatID, v.State.ActiveChat)
}

func TestThreadEndpoints(t *testing.T) {
	h, _ := newRouter(t, clientFunc(nil))

	w := do(t, h, http.MethodPost, "/api/chats", "")
	require.Equal(t, http.StatusCreated, w.Code)
	first := decodeState(t, w).ActiveChat

	second := decodeState(t, do(t, h, http.MethodPost, "/api/chats", "")).ActiveChat
	require.NotEqual(t, first, second)

	w = do(t, h, http.MethodPut, "/api/chats/"+first+"/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, decodeState(t, w).ActiveChat)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPut, "/api/chats/nope/active", "").Code)

	w = do(t, h, http.MethodPatch, "/api/chats/"+second, `{"title":"Trip"}`)
	require.Equal(t, http.StatusOK, w.Code)
	st := decodeState(t, w)
	assert.Equal(t, "Trip", st.Chats[st.FindChat(second)].Title)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/api/chats/"+second, `{"title":" "}`).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/api/chats/nope", `{"title":"x"}`).Code)

	w = do(t, h, http.MethodPut, "/api/model", `{"model":"GPT-4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.ModelGPT4, decodeState(t, w).Model)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/model", `{"model":"gpt-2"}`).Code)

	w = do(t, h, http.MethodDelete, "/api/chats/"+first, "")
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	assert.Len(t, st.Chats, 1)
	assert.Equal(t, second, st.ActiveChat)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/chats/"+first, "").Code)
}

func TestHealth(t *testing.T) {
	h, _ := newRouter(t, clientFunc(nil))
	do(t, h, http.MethodGet, "/api/state", "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, w.Body.String())
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, rd *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := rd.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEvents(t *testing.T) {
	h, _ := newRouter(t, clientFunc(func(context.Context, completion.Request) (domain.Message, error) {
		return domain.Message{Content: "pong"}, nil
	}))
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	req.Header.Set("X-Session-Key", "alice")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	first := readEvent(t, rd)
	assert.Equal(t, "state", first.name)

	post, err := http.NewRequest(http.MethodPost, srv.URL+"/api/messages", strings.NewReader(`{"content":"ping"}`))
	require.NoError(t, err)
	post.Header.Set("X-Session-Key", "alice")
	pr, err := http.DefaultClient.Do(post)
	require.NoError(t, err)
	pr.Body.Close()
	require.Equal(t, http.StatusAccepted, pr.StatusCode)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("no settled event")
		default:
		}
		ev := readEvent(t, rd)
		if ev.name != "settled" {
			continue
		}
		var settled settledEvent
		require.NoError(t, json.Unmarshal([]byte(ev.data), &settled))
		assert.Equal(t, "pong", settled.Reply.Content)
		assert.Empty(t, settled.Error)
		return
	}
}

type fixedSession struct{ s *chat.Session }

func (f fixedSession) Get(context.Context, string) (*chat.Session, error) { return f.s, nil }

func TestSendMessage_ClosedSessionIsUnavailable(t *testing.T) {
	s, err := chat.OpenSession(context.Background(), "alice", chat.Deps{
		Repo:   document.NewMemoryRepository(),
		Client: clientFunc(nil),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close(context.Background()))

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewSessionAuth(nil, true, nopLogger{}))
	NewChatHandler(fixedSession{s}, nopLogger{}).Register(api)

	w := do(t, r, http.MethodPost, "/api/messages", `{"content":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, s.View().State.Chats)
}
