package persistence

// Logger defines the logging interface used by persistence
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// Recorder receives write accounting; *metrics.Metrics implements it.
type Recorder interface {
	WriteScheduled(superseded bool)
	WriteDone(err error)
}

type nopRecorder struct{}

func (nopRecorder) WriteScheduled(bool) {}
func (nopRecorder) WriteDone(error)     {}
