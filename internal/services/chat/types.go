// File: internal/services/chat/types.go
package chat

import "github.com/iyunix/go-chatsync/internal/domain"

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Recorder receives engine accounting; *metrics.Metrics implements it
// together with the state and persistence recorders.
type Recorder interface {
	CompletionStarted()
	CompletionSettled(outcome string, seconds float64)
	SendRejected(reason string)
	SessionOpened()
	SessionClosed()
	TransformApplied()
	WriteScheduled(superseded bool)
	WriteDone(err error)
}

// Reasons a send is refused without issuing a request.
const (
	RejectEmpty    = "empty"
	RejectInFlight = "in_flight"
	RejectClosed   = "closed"
)

// Settlement is the outcome of one exchange. Reply is the message that was
// appended to the thread: the endpoint's reply, or the error notice when
// Err is set.
type Settlement struct {
	ChatID string
	Reply  domain.Message
	Err    error
}

// View is what the rendering layer reads.
type View struct {
	State    domain.ChatState `json:"state"`
	Loading  bool             `json:"loading"`
	Degraded bool             `json:"degraded,omitempty"`
}

type nopRecorder struct{}

func (nopRecorder) CompletionStarted()                {}
func (nopRecorder) CompletionSettled(string, float64) {}
func (nopRecorder) SendRejected(string)               {}
func (nopRecorder) SessionOpened()                    {}
func (nopRecorder) SessionClosed()                    {}
func (nopRecorder) TransformApplied()                 {}
func (nopRecorder) WriteScheduled(bool)               {}
func (nopRecorder) WriteDone(error)                   {}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
