// File: internal/services/chat/session.go
package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services/completion"
	"github.com/iyunix/go-chatsync/internal/services/conversation"
	"github.com/iyunix/go-chatsync/internal/services/persistence"
	"github.com/iyunix/go-chatsync/internal/services/state"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Repo        document.Repository
	Client      completion.Client
	Config      *Config
	Persistence *persistence.Config
	Recorder    Recorder
	Logger      Logger
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = DefaultConfig()
	}
	if d.Persistence == nil {
		d.Persistence = persistence.DefaultConfig()
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = nopLogger{}
	}
	return d
}

// Session is the engine of one user: their state, its persisted copy and
// the completion cycle working on it.
type Session struct {
	key          string
	store        *state.Store
	writer       *persistence.Writer[domain.ChatState] // nil when degraded
	orchestrator *Orchestrator
	cancel       context.CancelFunc
	recorder     Recorder
	logger       Logger

	degraded bool
	openedAt time.Time
	lastUsed atomic.Int64
	watchers atomic.Int32

	mu     sync.Mutex
	closed bool
}

// OpenSession loads the persisted state for key, seeding the default state
// when none exists.
//
// When a stored document exists but cannot be read, the session is degraded:
// it starts from the default state and keeps every change in memory only, so
// the unreadable document is never overwritten. A failed seed write does not
// degrade the session since no stored state can be lost.
func OpenSession(ctx context.Context, key string, deps Deps) (*Session, error) {
	if strings.TrimSpace(key) == "" {
		return nil, NewValidationError("open", "session key is required")
	}
	deps = deps.withDefaults()
	logger := deps.Logger

	docKey := deps.Persistence.DocumentKey(key)
	adapter := persistence.NewAdapter[domain.ChatState](deps.Repo, deps.Persistence, logger)

	initial, err := adapter.Load(ctx, docKey, domain.NewChatState())
	degraded := persistence.IsReadFailure(err)
	switch {
	case degraded:
		logger.Warn("state load failed, session kept in memory only", "key", docKey, "error", err)
	case err != nil:
		logger.Warn("seeding state failed, later changes will be written", "key", docKey, "error", err)
	}

	var (
		writer    *persistence.Writer[domain.ChatState]
		scheduler state.Scheduler
	)
	if !degraded {
		writer = persistence.NewWriter(adapter, docKey, deps.Persistence, deps.Recorder, logger)
		scheduler = writer
	}
	store := state.NewStore(initial, scheduler, deps.Recorder)

	sessionCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		key:          key,
		store:        store,
		writer:       writer,
		orchestrator: NewOrchestrator(sessionCtx, store, deps.Client, deps.Config, deps.Recorder, logger),
		cancel:       cancel,
		recorder:     deps.Recorder,
		logger:       logger,
		degraded:     degraded,
		openedAt:     time.Now(),
	}
	s.touch()
	deps.Recorder.SessionOpened()
	logger.Info("session opened", "key", docKey, "chats", len(store.Snapshot().Chats), "degraded", degraded)
	return s, nil
}

func (s *Session) Key() string {
	return s.key
}

// Degraded reports whether the stored state could not be read at open, in
// which case nothing this session does is persisted.
func (s *Session) Degraded() bool {
	return s.degraded
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Session) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// View returns the current state and whether an exchange is in flight.
func (s *Session) View() View {
	return View{State: s.store.Snapshot(), Loading: s.orchestrator.InFlight(), Degraded: s.degraded}
}

// Send starts an exchange with input. See Orchestrator.Send.
func (s *Session) Send(input string) (*Exchange, bool) {
	ex, reason := s.TrySend(input)
	return ex, reason == ""
}

// TrySend is Send reporting the reason a refused input was refused,
// RejectClosed included.
func (s *Session) TrySend(input string) (*Exchange, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.recorder.SendRejected(RejectClosed)
		return nil, RejectClosed
	}
	return s.orchestrator.TrySend(input)
}

// NewThread creates an empty thread with the current default model and
// makes it active.
func (s *Session) NewThread() domain.ChatState {
	return s.store.Apply(conversation.NewThread(uuid.NewString(), time.Now().UnixMilli()))
}

// SelectThread activates id. It reports false and changes nothing when id
// is unknown.
func (s *Session) SelectThread(id string) (domain.ChatState, bool) {
	snap := s.store.Snapshot()
	if _, ok := conversation.FindThread(snap, id); !ok {
		return snap, false
	}
	return s.store.Apply(conversation.Select(id)), true
}

// DeleteThread removes id, repairing the active selection when needed.
func (s *Session) DeleteThread(id string) (domain.ChatState, bool) {
	snap := s.store.Snapshot()
	if _, ok := conversation.FindThread(snap, id); !ok {
		return snap, false
	}
	return s.store.Apply(conversation.Delete(id)), true
}

// RenameThread sets an explicit title on id.
func (s *Session) RenameThread(id, title string) (domain.ChatState, bool) {
	snap := s.store.Snapshot()
	if _, ok := conversation.FindThread(snap, id); !ok || strings.TrimSpace(title) == "" {
		return snap, false
	}
	return s.store.Apply(conversation.Rename(id, title)), true
}

// SetModel changes the default model used by threads created afterwards.
func (s *Session) SetModel(m domain.Model) (domain.ChatState, bool) {
	if !m.Valid() {
		return s.store.Snapshot(), false
	}
	return s.store.Apply(conversation.Model(m)), true
}

// Subscribe streams committed states. See state.Store.Subscribe. A session
// with live subscribers is never closed for being idle.
func (s *Session) Subscribe() (<-chan domain.ChatState, func()) {
	ch, cancel := s.store.Subscribe()
	s.watchers.Add(1)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.watchers.Add(-1)
			s.touch()
		})
		cancel()
	}
}

// OnSettled registers fn for exchange settlements and returns its remover.
func (s *Session) OnSettled(fn func(Settlement)) func() {
	return s.orchestrator.OnSettled(fn)
}

// Close abandons any in-flight exchange, waits for it to settle and flushes
// the latest state. Calling Close again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	settled := make(chan struct{})
	go func() {
		s.orchestrator.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-ctx.Done():
		s.logger.Warn("exchange still running at close", "key", s.key)
	}

	var err error
	if s.writer != nil {
		err = s.writer.Close(ctx)
	}
	s.recorder.SessionClosed()
	if err != nil {
		s.logger.Error("final state flush failed", "key", s.key, "error", err)
		return NewShutdownError(s.key, err)
	}
	s.logger.Info("session closed", "key", s.key)
	return nil
}
