// File: internal/services/chat/orchestrator.go
package chat

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/metrics"
	"github.com/iyunix/go-chatsync/internal/services/completion"
	"github.com/iyunix/go-chatsync/internal/services/conversation"
	"github.com/iyunix/go-chatsync/internal/services/state"
)

// Exchange tracks one send. Done is closed once the reply, or the error
// notice, has been applied and observers were notified.
type Exchange struct {
	ChatID  string
	Message domain.Message

	done   chan struct{}
	result Settlement
}

func (e *Exchange) Done() <-chan struct{} {
	return e.done
}

// Result blocks until the exchange settles.
func (e *Exchange) Result() Settlement {
	<-e.done
	return e.result
}

// Orchestrator runs the send cycle of one session: optimistic append,
// a single completion request and reconciliation of its outcome.
type Orchestrator struct {
	ctx      context.Context
	store    *state.Store
	client   completion.Client
	config   *Config
	recorder Recorder
	logger   Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup

	obsMu     sync.Mutex
	observers map[int]func(Settlement)
	nextObs   int

	now   func() time.Time
	newID func() string
}

// NewOrchestrator builds an orchestrator whose requests live no longer
// than ctx.
func NewOrchestrator(ctx context.Context, store *state.Store, client completion.Client, config *Config, recorder Recorder, logger Logger) *Orchestrator {
	if config == nil {
		config = DefaultConfig()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Orchestrator{
		ctx:       ctx,
		store:     store,
		client:    client,
		config:    config,
		recorder:  recorder,
		logger:    logger,
		observers: make(map[int]func(Settlement)),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Send appends input to the active thread, creating one if needed, and
// issues the completion request in the background. It returns false and
// changes nothing when input is blank or another exchange is in flight.
func (o *Orchestrator) Send(input string) (*Exchange, bool) {
	ex, reason := o.TrySend(input)
	return ex, reason == ""
}

// TrySend is Send reporting why a refused input was refused: RejectEmpty or
// RejectInFlight. The reason is empty when the exchange started.
func (o *Orchestrator) TrySend(input string) (*Exchange, string) {
	if strings.TrimSpace(input) == "" {
		o.recorder.SendRejected(RejectEmpty)
		return nil, RejectEmpty
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		o.recorder.SendRejected(RejectInFlight)
		o.logger.Debug("send ignored, exchange in flight")
		return nil, RejectInFlight
	}

	now := o.now().UnixMilli()
	userMsg := domain.Message{ID: o.newID(), Role: domain.RoleUser, Content: input, Timestamp: now}
	threadID := o.newID()

	var chatID string
	committed := o.store.Apply(func(s domain.ChatState) domain.ChatState {
		if _, ok := conversation.ActiveThread(s); !ok {
			s = conversation.CreateThread(s, threadID, now, s.Model)
		}
		chatID = s.ActiveChat
		return conversation.AppendMessage(s, chatID, userMsg)
	})

	thread, _ := conversation.FindThread(committed, chatID)
	req := completion.Request{
		Message: input,
		History: thread.Messages,
		Model:   thread.Model,
	}

	ex := &Exchange{ChatID: chatID, Message: userMsg, done: make(chan struct{})}
	o.recorder.CompletionStarted()
	o.logger.Info("completion issued", "chat_id", chatID, "history", len(req.History), "model", req.Model)

	o.wg.Add(1)
	go o.run(ex, req)
	return ex, ""
}

func (o *Orchestrator) run(ex *Exchange, req completion.Request) {
	defer o.wg.Done()

	start := o.now()
	ctx, cancel := context.WithTimeout(o.ctx, o.config.CompletionTimeout)
	reply, err := o.client.Complete(ctx, req)
	cancel()
	elapsed := o.now().Sub(start).Seconds()

	var applied domain.Message
	if err != nil {
		o.logger.Error("completion failed", "chat_id", ex.ChatID, "error", err)
		o.recorder.CompletionSettled(metrics.OutcomeFailure, elapsed)
		notice := domain.Message{
			ID:        o.newID(),
			Role:      domain.RoleAssistant,
			Content:   o.config.ErrorNotice,
			Timestamp: o.now().UnixMilli(),
		}
		o.store.Apply(conversation.Append(ex.ChatID, notice))
		applied = notice
	} else {
		o.recorder.CompletionSettled(metrics.OutcomeSuccess, elapsed)
		o.store.Apply(func(s domain.ChatState) domain.ChatState {
			applied = o.reconcile(s, ex.ChatID, reply)
			return conversation.AppendMessage(s, ex.ChatID, applied)
		})
		o.logger.Debug("completion settled", "chat_id", ex.ChatID, "message_id", applied.ID)
	}

	ex.result = Settlement{ChatID: ex.ChatID, Reply: applied, Err: err}
	o.inFlight.Store(false)
	o.notify(ex.result)
	close(ex.done)
}

// reconcile fills the fields a reply may lack. A reply is always from the
// assistant, whatever role the endpoint claimed. Content is kept verbatim.
func (o *Orchestrator) reconcile(s domain.ChatState, chatID string, reply domain.Message) domain.Message {
	reply.Role = domain.RoleAssistant
	thread, _ := conversation.FindThread(s, chatID)
	if reply.ID == "" || conversation.HasMessage(thread, reply.ID) {
		reply.ID = o.newID()
	}
	if reply.Timestamp == 0 {
		reply.Timestamp = o.now().UnixMilli()
	}
	return reply
}

// OnSettled registers fn to run after every exchange settles. The returned
// function removes it.
func (o *Orchestrator) OnSettled(fn func(Settlement)) func() {
	o.obsMu.Lock()
	id := o.nextObs
	o.nextObs++
	o.observers[id] = fn
	o.obsMu.Unlock()

	return func() {
		o.obsMu.Lock()
		delete(o.observers, id)
		o.obsMu.Unlock()
	}
}

func (o *Orchestrator) notify(s Settlement) {
	o.obsMu.Lock()
	fns := make([]func(Settlement), 0, len(o.observers))
	for _, fn := range o.observers {
		fns = append(fns, fn)
	}
	o.obsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// InFlight reports whether an exchange is outstanding.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Wait blocks until every issued exchange has settled.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
