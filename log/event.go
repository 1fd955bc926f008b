package log

import (
	"fmt"
	"sync"
)

// Event is a single diagnostic raised by a recoverable condition inside the
// synthesis pipeline (a duplicate helper definition, a schema the provider
// could not resolve, and so on). Unlike a line written through a
// [slog.Handler], an Event is accumulated rather than written immediately,
// so the host can drain and present every warning from a whole chart run
// together once the run completes.
type Event struct {
	Level   Level
	Message string
}

// Warn constructs a LevelWarn [Event] with a formatted message.
func Warn(format string, args ...any) Event {
	return Event{Level: LevelWarn, Message: fmt.Sprintf(format, args...)}
}

// Sink accumulates [Event]s raised across a pipeline run. It is the
// REDESIGN-FLAG resolution for the source implementation's warning-sink
// callback handle (see DESIGN.md): rather than threading a function handle
// through every recursive call, each component appends to a Sink and the
// caller drains it once the run is done.
//
// Sink is adapted from [Publisher]'s concurrency discipline (a mutex
// guarding a slice) with fan-out removed, since nothing here needs to
// deliver events live to a subscriber -- only to accumulate them in order
// for one eventual reader.
type Sink struct {
	mu     sync.Mutex
	events []Event
}

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Emit appends e to the sink. Safe for concurrent use.
func (s *Sink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
}

// Emitf formats a LevelWarn event and appends it.
func (s *Sink) Emitf(format string, args ...any) {
	s.Emit(Warn(format, args...))
}

// Events returns a copy of every event recorded so far, in emission order.
func (s *Sink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)

	return out
}
