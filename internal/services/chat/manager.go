// File: internal/services/chat/manager.go
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SessionManager keeps one open session per session key. Sessions unused
// for Config.IdleTimeout are closed by a background sweep; CloseAll stops it.
type SessionManager struct {
	deps  Deps
	group singleflight.Group
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	retryAt  map[string]time.Time // next reload attempt for degraded sessions
	closed   bool

	stopCh    chan struct{}
	sweepDone chan struct{}
}

// NewSessionManager starts the idle sweep when Config.IdleTimeout is set.
func NewSessionManager(deps Deps) *SessionManager {
	m := &SessionManager{
		deps:      deps.withDefaults(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
		retryAt:   make(map[string]time.Time),
		stopCh:    make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	if idle := m.deps.Config.IdleTimeout; idle > 0 {
		go m.sweepLoop(idle / 2)
	} else {
		close(m.sweepDone)
	}
	return m
}

// Get returns the session for key, opening it on first use. Concurrent
// first calls for the same key share one open. A degraded session is
// replaced by a fresh one once its stored state can be read again.
func (m *SessionManager) Get(ctx context.Context, key string) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, NewClosedError("get", key)
	}
	s, ok := m.sessions[key]
	reload := ok && s.Degraded() && !m.now().Before(m.retryAt[key]) && !s.orchestrator.InFlight()
	m.mu.Unlock()

	if ok && !reload {
		s.touch()
		return s, nil
	}
	if reload {
		return m.reload(ctx, key, s)
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if s, ok := m.sessions[key]; ok {
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		// The load must not fail because one of the waiting callers left.
		s, err := OpenSession(context.WithoutCancel(ctx), key, m.deps)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			go func() { _ = s.Close(context.Background()) }()
			return nil, NewClosedError("get", key)
		}
		m.sessions[key] = s
		if s.Degraded() {
			m.retryAt[key] = m.now().Add(m.deps.Config.LoadRetry)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	s = v.(*Session)
	s.touch()
	return s, nil
}

// reload opens key again behind degraded. If the stored state is readable
// now the new session takes over and degraded, whose changes were never
// persisted, is closed. Otherwise degraded stays in place until the next
// retry time.
func (m *SessionManager) reload(ctx context.Context, key string, degraded *Session) (*Session, error) {
	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		m.mu.Lock()
		if m.sessions[key] != degraded {
			current := m.sessions[key]
			m.mu.Unlock()
			return current, nil
		}
		m.mu.Unlock()

		fresh, err := OpenSession(context.WithoutCancel(ctx), key, m.deps)
		if err != nil || fresh.Degraded() {
			if fresh != nil {
				_ = fresh.Close(context.Background())
			}
			m.mu.Lock()
			m.retryAt[key] = m.now().Add(m.deps.Config.LoadRetry)
			m.mu.Unlock()
			return degraded, nil
		}

		m.mu.Lock()
		if m.closed || m.sessions[key] != degraded {
			m.mu.Unlock()
			_ = fresh.Close(context.Background())
			return degraded, nil
		}
		m.sessions[key] = fresh
		delete(m.retryAt, key)
		m.mu.Unlock()

		m.deps.Logger.Warn("stored state readable again, dropping in-memory session",
			"key", key, "dropped_chats", len(degraded.View().State.Chats))
		_ = degraded.Close(context.Background())
		return fresh, nil
	})
	s := v.(*Session)
	if s == nil {
		return nil, NewClosedError("get", key)
	}
	s.touch()
	return s, nil
}

// Len reports the number of open sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes and forgets the session for key, if open.
func (m *SessionManager) Close(ctx context.Context, key string) error {
	m.mu.Lock()
	s, ok := m.sessions[key]
	delete(m.sessions, key)
	delete(m.retryAt, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// EvictIdle closes sessions unused for longer than Config.IdleTimeout and
// reports how many were closed. Sessions with an exchange in flight or a
// live subscriber stay.
func (m *SessionManager) EvictIdle(ctx context.Context) int {
	idle := m.deps.Config.IdleTimeout
	if idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var stale []string
	for key, s := range m.sessions {
		if s.idleSince().Before(cutoff) && !s.orchestrator.InFlight() && s.watchers.Load() == 0 {
			stale = append(stale, key)
		}
	}
	m.mu.Unlock()

	evicted := 0
	for _, key := range stale {
		if err := m.Close(ctx, key); err != nil {
			m.deps.Logger.Error("closing idle session failed", "key", key, "error", err)
		}
		evicted++
	}
	if evicted > 0 {
		m.deps.Logger.Info("idle sessions closed", "count", evicted)
	}
	return evicted
}

func (m *SessionManager) sweepLoop(period time.Duration) {
	defer close(m.sweepDone)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), m.deps.Config.CloseTimeout)
			m.EvictIdle(ctx)
			cancel()
		case <-m.stopCh:
			return
		}
	}
}

// CloseAll closes every session, flushing its state, and refuses new ones.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		close(m.stopCh)
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.retryAt = make(map[string]time.Time)
	m.mu.Unlock()
	<-m.sweepDone

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if err := s.Close(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	m.deps.Logger.Info("sessions closed", "count", len(sessions), "failed", len(errs))
	return errors.Join(errs...)
}
