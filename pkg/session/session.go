// Package session runs part scripts end to end: source is evaluated into a
// design graph, every part is assembled and validated, and the results are
// flattened into render meshes. It is the pipeline behind the script
// command and anything else that wants meshes from source in one call.
package session

import (
	"github.com/rs/zerolog"

	"github.com/chazu/trayforge/pkg/assemble"
	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/engine"
	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/parts"
	"github.com/chazu/trayforge/pkg/validate"
)

// colorPalette assigns distinct colors to parts in root order.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is the JSON form of one part.
type MeshData struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	PartName  string    `json:"partName"`
	Color     string    `json:"color"`
	Closed    bool      `json:"closed"`
	Degraded  bool      `json:"degraded"`
	Fallbacks int       `json:"fallbacks"`
}

// Message is an error or warning tied to a source position or graph node.
type Message struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

// Result is everything one run produced. Slices are never nil so the JSON
// form always carries arrays.
type Result struct {
	Meshes   []MeshData `json:"meshes"`
	Errors   []Message  `json:"errors"`
	Warnings []Message  `json:"warnings"`

	// Outputs are the validated solids behind Meshes, in the same order.
	Outputs []parts.Output `json:"-"`
}

// OK reports whether the run produced no errors.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Session owns an engine and an assembler bound to one kernel.
type Session struct {
	engine *engine.Engine
	asm    *assemble.Assembler
	log    zerolog.Logger
}

type options struct {
	sink   event.Sink
	log    zerolog.Logger
	engine []engine.Option
	csg    []csg.Option
}

// Option configures a Session.
type Option func(*options)

// WithSink sends composition events to s.
func WithSink(s event.Sink) Option {
	return func(o *options) { o.sink = s }
}

// WithLogger logs pipeline failures to l.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithEngineOptions passes opts to the script engine.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// WithCompositorOptions passes opts to the compositor.
func WithCompositorOptions(opts ...csg.Option) Option {
	return func(o *options) { o.csg = append(o.csg, opts...) }
}

// New returns a Session evaluating scripts against cfg and composing with k.
func New(cfg parts.Config, k kernel.Kernel, opts ...Option) *Session {
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	c := csg.New(k, append([]csg.Option{csg.WithSink(o.sink)}, o.csg...)...)
	return &Session{
		engine: engine.NewEngine(cfg, o.engine...),
		asm:    assemble.New(c, validate.New(validate.WithSink(c.Sink()))),
		log:    o.log,
	}
}

// Evaluate runs source through the whole pipeline. Failures at any stage
// come back as messages in the result, never as an error.
func (s *Session) Evaluate(source string) Result {
	result := Result{
		Meshes:   []MeshData{},
		Errors:   []Message{},
		Warnings: []Message{},
	}

	res, err := s.engine.EvaluateAll(source)
	if err != nil {
		// Panic, timeout or superseded evaluation.
		s.log.Error().Err(err).Msg("evaluation failed")
		result.Errors = append(result.Errors, Message{Message: err.Error()})
		return result
	}
	for _, w := range res.Warnings {
		m := Message{Line: w.Line, Col: w.Col, Message: w.Message}
		if !w.NodeID.IsZero() {
			m.Node = w.NodeID.Short()
		}
		result.Warnings = append(result.Warnings, m)
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			m := Message{Line: e.Line, Col: e.Col, Message: e.Message}
			if !e.NodeID.IsZero() {
				m.Node = e.NodeID.Short()
			}
			result.Errors = append(result.Errors, m)
		}
		return result
	}

	outs, err := s.asm.Assemble(res.Graph)
	if err != nil {
		s.log.Error().Err(err).Msg("assembly failed")
		result.Errors = append(result.Errors, Message{Message: "assembly failed: " + err.Error()})
		return result
	}

	for i, out := range outs {
		m := kernel.ToMesh(out.Solid, out.Name)
		result.Meshes = append(result.Meshes, MeshData{
			Vertices:  m.Vertices,
			Normals:   m.Normals,
			Indices:   m.Indices,
			PartName:  m.PartName,
			Color:     colorPalette[i%len(colorPalette)],
			Closed:    out.Report.Closed,
			Degraded:  out.Report.Degraded,
			Fallbacks: out.Report.Fallbacks,
		})
	}
	result.Outputs = outs
	return result
}
