// Package validate checks composed solids for watertightness and makes one
// bounded attempt at repairing those that are not.
//
// A solid is closed when every undirected edge is used by exactly two
// faces traversing it in opposite directions and the enclosed signed volume
// is positive, i.e. the faces point outward. Anything short of that is
// reported, not returned as an error; only structurally unusable input
// (no faces, non-finite coordinates) fails.
package validate

import (
	"fmt"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
)

// MaxHoleEdges is the default limit on the boundary length of a hole the
// repairer will fill.
const MaxHoleEdges = 64

// DefaultWeldTolerance is the distance under which repair merges vertices.
const DefaultWeldTolerance = 1e-6

// Report is the mesh health of a solid.
type Report struct {
	Closed            bool
	OpenEdges         int // edges used by a single face
	NonManifoldEdges  int // edges used by more than two faces
	InconsistentEdges int // edges two faces traverse in the same direction
	Inverted          bool
	Volume            float64

	Repaired  bool // repair ran and changed the mesh
	Degraded  bool // a boolean step fell back somewhere upstream
	Fallbacks int
}

func (r Report) String() string {
	s := fmt.Sprintf("closed=%t open=%d nonmanifold=%d inconsistent=%d volume=%.6g",
		r.Closed, r.OpenEdges, r.NonManifoldEdges, r.InconsistentEdges, r.Volume)
	if r.Inverted {
		s += " inverted"
	}
	if r.Repaired {
		s += " repaired"
	}
	if r.Degraded {
		s += fmt.Sprintf(" degraded(fallbacks=%d)", r.Fallbacks)
	}
	return s
}

// WithResult copies the fallback bookkeeping of a composition into r.
func (r Report) WithResult(res csg.Result) Report {
	r.Degraded = r.Degraded || res.Degraded
	r.Fallbacks = res.Fallbacks
	return r
}

// Validator inspects and repairs solids.
type Validator struct {
	sink    event.Sink
	maxHole int
	weldTol float64
}

// Option configures a Validator.
type Option func(*Validator)

// WithSink sets the event sink.
func WithSink(s event.Sink) Option {
	return func(v *Validator) { v.sink = event.OrNop(s) }
}

// WithMaxHoleEdges limits the boundary loops that get filled.
func WithMaxHoleEdges(n int) Option {
	return func(v *Validator) { v.maxHole = n }
}

// WithWeldTolerance sets the vertex merge distance used during repair.
func WithWeldTolerance(tol float64) Option {
	return func(v *Validator) {
		if tol > 0 {
			v.weldTol = tol
		}
	}
}

// New returns a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{sink: event.Nop, maxHole: MaxHoleEdges, weldTol: DefaultWeldTolerance}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks s with the default validator.
func Validate(s *kernel.Solid) (Report, *kernel.Solid, error) {
	return New().Validate("", s)
}

// Inspect reports the health of s without attempting repair. Structurally
// invalid input reports as not closed.
func Inspect(s *kernel.Solid) Report {
	if err := s.Check(); err != nil {
		return Report{}
	}
	return inspect(s)
}

func inspect(s *kernel.Solid) Report {
	c := s.Census()
	vol := s.Volume()
	return Report{
		Closed:            c.Closed() && vol > 0,
		OpenEdges:         c.Boundary,
		NonManifoldEdges:  c.NonManifold,
		InconsistentEdges: c.Inconsistent,
		Inverted:          vol < 0,
		Volume:            vol,
		Degraded:          s.Degraded,
	}
}

// Validate checks s and, when it is not closed, repairs it once and checks
// again. It returns the final report and the solid it describes: s itself
// when no repair was needed, a new solid otherwise. s is never modified.
func (v *Validator) Validate(label string, s *kernel.Solid) (Report, *kernel.Solid, error) {
	if err := s.Check(); err != nil {
		if label != "" {
			return Report{}, nil, fmt.Errorf("%s: %w", label, err)
		}
		return Report{}, nil, err
	}

	rep := inspect(s)
	out := s
	if !rep.Closed {
		v.sink.Publish(event.Event{
			Kind:      event.RepairAttempted,
			Label:     label,
			OpenEdges: rep.OpenEdges,
			Degraded:  rep.Degraded,
			Detail:    rep.String(),
		})
		fixed, changed := v.repair(s)
		if changed {
			out = fixed
			rep = inspect(out)
			rep.Repaired = true
		}
	}

	v.sink.Publish(event.Event{
		Kind:      event.Validated,
		Label:     label,
		Closed:    rep.Closed,
		OpenEdges: rep.OpenEdges,
		Repaired:  rep.Repaired,
		Degraded:  rep.Degraded,
		Detail:    rep.String(),
	})
	return rep, out, nil
}
