// Package events carries severity-tagged progress events from the pipeline
// to whatever presents them.
package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Severity of a progress event.
type Severity string

const (
	Debug   Severity = "debug"
	Info    Severity = "info"
	Warning Severity = "warning"
	Error   Severity = "error"
	Success Severity = "success"
)

// Fields are structured key/values attached to an event.
type Fields map[string]interface{}

// Event is one progress notification.
type Event struct {
	Time     time.Time
	Severity Severity
	Tool     string
	Stage    string
	Message  string
	Fields   Fields
}

// Sink receives events. Implementations must not block the pipeline for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// LogrusSink writes events through a logrus logger.
type LogrusSink struct {
	log *logrus.Logger
}

// NewLogrusSink wraps log. A nil log uses logrus.StandardLogger().
func NewLogrusSink(log *logrus.Logger) *LogrusSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogrusSink{log: log}
}

func (s *LogrusSink) Emit(e Event) {
	fields := logrus.Fields{}
	for k, v := range e.Fields {
		fields[k] = v
	}
	if e.Tool != "" {
		fields["tool"] = e.Tool
	}
	if e.Stage != "" {
		fields["stage"] = e.Stage
	}
	entry := s.log.WithFields(fields)
	if !e.Time.IsZero() {
		entry = entry.WithTime(e.Time)
	}

	switch e.Severity {
	case Debug:
		entry.Debug(e.Message)
	case Warning:
		entry.Warn(e.Message)
	case Error:
		entry.Error(e.Message)
	case Success:
		entry.WithField("status", "success").Info(e.Message)
	default:
		entry.Info(e.Message)
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Filter returns recorded events of the given severity.
func (r *Recorder) Filter(sev Severity) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}
