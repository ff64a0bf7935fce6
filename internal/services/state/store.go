// File: internal/services/state/store.go
package state

import (
	"sync"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// Transform is a pure function from the current state to the next one.
type Transform = func(domain.ChatState) domain.ChatState

// Scheduler receives every committed state for persistence.
type Scheduler interface {
	Schedule(domain.ChatState)
}

// Recorder receives transform accounting; *metrics.Metrics implements it.
type Recorder interface {
	TransformApplied()
}

// Store owns the canonical ChatState of one session. All mutation goes
// through Apply, which always starts from the latest committed value.
type Store struct {
	mu      sync.Mutex
	current domain.ChatState
	version uint64

	scheduler Scheduler
	recorder  Recorder

	subMu  sync.Mutex
	subs   map[int]chan domain.ChatState
	nextID int
}

func NewStore(initial domain.ChatState, scheduler Scheduler, recorder Recorder) *Store {
	return &Store{
		current:   initial.Normalize().Clone(),
		scheduler: scheduler,
		recorder:  recorder,
		subs:      make(map[int]chan domain.ChatState),
	}
}

// Apply runs fn against the latest state, commits the result and schedules
// one persistence write for it. The committed state is returned.
func (s *Store) Apply(fn Transform) domain.ChatState {
	s.mu.Lock()
	next := fn(s.current.Clone())
	s.current = next.Clone()
	s.version++
	committed := s.current.Clone()

	// Scheduling and publishing under the lock keeps both in commit order.
	if s.scheduler != nil {
		s.scheduler.Schedule(committed.Clone())
	}
	s.publish(committed)
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.TransformApplied()
	}
	return committed
}

// Snapshot returns a copy of the committed state.
func (s *Store) Snapshot() domain.ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Version counts committed transforms.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe returns a channel that always holds the most recent state
// committed after the call. Slow readers skip intermediate states. The
// returned function unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan domain.ChatState, func()) {
	ch := make(chan domain.ChatState, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(st domain.ChatState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		// drop a stale value the reader has not taken yet
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st.Clone():
		default:
		}
	}
}
