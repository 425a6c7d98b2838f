// Package event carries structured observations out of the composition
// core. Events are informational only: publishing never changes what the
// core computes, and a nil or Nop sink is always acceptable.
package event

import (
	"sync"

	"github.com/rs/zerolog"
)

// Kind classifies an event.
type Kind string

const (
	PrimitiveBuilt    Kind = "primitive_built"
	StepAttempted     Kind = "step_attempted"
	StepSucceeded     Kind = "step_succeeded"
	FallbackTriggered Kind = "fallback_triggered"
	RepairAttempted   Kind = "repair_attempted"
	Validated         Kind = "validated"
)

// Event is one observation.
type Event struct {
	Kind   Kind
	Label  string // part, step or primitive label
	Op     string // boolean operator or primitive kind
	Detail string
	Err    error

	Degraded  bool
	Closed    bool
	OpenEdges int
	Repaired  bool
}

// Sink receives events. Implementations must be safe for concurrent use
// because independent branches publish from their own goroutines.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Publish(e Event) { f(e) }

type nop struct{}

func (nop) Publish(Event) {}

// Nop discards every event.
var Nop Sink = nop{}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

type multi []Sink

func (m multi) Publish(e Event) {
	for _, s := range m {
		s.Publish(e)
	}
}

// Multi fans events out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	if len(m) == 0 {
		return Nop
	}
	return m
}

// Chan returns a sink that forwards events to ch without blocking.
// Events are dropped when ch is full.
func Chan(ch chan<- Event) Sink {
	return SinkFunc(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
}

// Recorder keeps every event in memory. Useful in tests and for printing a
// build summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many recorded events have kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Logger returns a sink writing events to a zerolog logger. Fallbacks and
// repairs are logged at warn, everything else at debug.
func Logger(l zerolog.Logger) Sink {
	return SinkFunc(func(e Event) {
		var ev *zerolog.Event
		switch e.Kind {
		case FallbackTriggered, RepairAttempted:
			ev = l.Warn()
		case Validated:
			if e.Closed {
				ev = l.Info()
			} else {
				ev = l.Warn()
			}
		default:
			ev = l.Debug()
		}
		ev = ev.Str("event", string(e.Kind))
		if e.Label != "" {
			ev = ev.Str("label", e.Label)
		}
		if e.Op != "" {
			ev = ev.Str("op", e.Op)
		}
		if e.Err != nil {
			ev = ev.Err(e.Err)
		}
		if e.Kind == Validated || e.Kind == RepairAttempted {
			ev = ev.Bool("closed", e.Closed).Int("open_edges", e.OpenEdges).Bool("repaired", e.Repaired)
		}
		if e.Degraded {
			ev = ev.Bool("degraded", true)
		}
		ev.Msg(e.Detail)
	})
}
