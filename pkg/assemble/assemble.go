// Package assemble walks a design graph and produces one validated solid
// per part using a csg.Compositor.
package assemble

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/graph"
	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/parts"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
	"github.com/chazu/trayforge/pkg/validate"
)

// Assembler turns part nodes into solids. It is read-only with respect to
// the graph and safe for concurrent use when its compositor and validator
// are.
type Assembler struct {
	c *csg.Compositor
	v *validate.Validator
}

// New returns an Assembler. A nil validator reports to the compositor's
// sink with default settings.
func New(c *csg.Compositor, v *validate.Validator) *Assembler {
	if v == nil {
		v = validate.New(validate.WithSink(c.Sink()))
	}
	return &Assembler{c: c, v: v}
}

// Assemble builds every part in root order.
func (a *Assembler) Assemble(g *graph.DesignGraph) ([]parts.Output, error) {
	if g == nil {
		return nil, nil
	}
	var outs []parts.Output
	for _, p := range g.Parts() {
		out, err := a.part(g, p)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// Part builds the part named name.
func (a *Assembler) Part(g *graph.DesignGraph, name string) (parts.Output, error) {
	n := g.Lookup(name)
	if n == nil || n.Kind != graph.NodePart {
		return parts.Output{}, fmt.Errorf("%w: no part named %q", kernel.ErrInvalidParameter, name)
	}
	return a.part(g, n)
}

func (a *Assembler) part(g *graph.DesignGraph, n *graph.Node) (parts.Output, error) {
	if len(n.Children) != 1 {
		return parts.Output{}, fmt.Errorf("part %q: %w: want one body, got %d", n.Name, kernel.ErrInvalidParameter, len(n.Children))
	}
	w := walker{a: a, g: g, part: n.Name}
	b, err := w.node(g.Get(n.Children[0]), placement.Identity)
	if err != nil {
		return parts.Output{}, fmt.Errorf("part %q: %w", n.Name, err)
	}
	// A bare multi-segment rail still has to become one solid.
	if len(b.pieces) > 1 {
		res, err := a.c.Union(n.Name+".body", b.pieces...)
		if err != nil {
			return parts.Output{}, fmt.Errorf("part %q: %w", n.Name, err)
		}
		b = b.merge(res)
	}
	res := csg.Result{
		Solid:     b.pieces[0],
		Steps:     b.steps,
		Fallbacks: b.fallbacks(),
	}
	res.Degraded = res.Fallbacks > 0
	return parts.Finish(n.Name, res, a.v)
}

// built is the output of one subtree: the disjoint pieces it produced and
// every boolean step taken inside it.
type built struct {
	pieces []*kernel.Solid
	steps  []csg.StepOutcome
}

func (b built) merge(res csg.Result) built {
	return built{pieces: []*kernel.Solid{res.Solid}, steps: append(b.steps, res.Steps...)}
}

func (b built) fallbacks() int {
	n := 0
	for _, s := range b.steps {
		if !s.Succeeded {
			n++
		}
	}
	return n
}

// walker carries one part's traversal state. The accumulated placement is
// passed by value, so sibling subtrees never see each other's transforms.
type walker struct {
	a    *Assembler
	g    *graph.DesignGraph
	part string
}

func (w walker) label(n *graph.Node) string {
	return fmt.Sprintf("%s.%s/%s", w.part, n.Kind, n.ID.Short())
}

// node recursively builds n under the accumulated placement p.
func (w walker) node(n *graph.Node, p placement.Placement) (built, error) {
	if n == nil {
		return built{}, fmt.Errorf("%w: dangling node reference", kernel.ErrInvalidParameter)
	}
	switch n.Kind {
	case graph.NodePrimitive:
		return w.primitive(n, p)
	case graph.NodeTransform:
		return w.transform(n, p)
	case graph.NodeUnion, graph.NodeDifference:
		return w.boolean(n, p)
	case graph.NodeRail:
		return w.rail(n, p)
	case graph.NodeSlot:
		return w.slot(n, p)
	case graph.NodePart:
		return built{}, fmt.Errorf("%w: part %q nested in part %q", kernel.ErrInvalidParameter, n.Name, w.part)
	default:
		return built{}, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
}

func (w walker) primitive(n *graph.Node, p placement.Placement) (built, error) {
	d, ok := n.Data.(graph.PrimitiveData)
	if !ok || d.Descriptor == nil {
		return built{}, fmt.Errorf("primitive node %s has unsupported data type %T", n.ID.Short(), n.Data)
	}
	s, err := primitive.Builder{Sink: w.a.c.Sink()}.Build(w.label(n), d.Descriptor)
	if err != nil {
		return built{}, err
	}
	return built{pieces: []*kernel.Solid{p.Apply(s)}}, nil
}

// transform applies its own placement first, then the accumulated one.
func (w walker) transform(n *graph.Node, p placement.Placement) (built, error) {
	td, ok := n.Data.(graph.TransformData)
	if !ok {
		return built{}, fmt.Errorf("transform node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	if len(n.Children) != 1 {
		return built{}, fmt.Errorf("transform node %s has %d children, want 1", n.ID.Short(), len(n.Children))
	}
	return w.node(w.g.Get(n.Children[0]), td.Placement.Then(p))
}

func (w walker) rail(n *graph.Node, p placement.Placement) (built, error) {
	d, ok := n.Data.(graph.RailData)
	if !ok {
		return built{}, fmt.Errorf("rail node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	segs, err := joint.Rails(d.Profile, d.Layout, d.Orientation, d.At)
	if err != nil {
		return built{}, fmt.Errorf("%s: %w", w.label(n), err)
	}
	return w.placed(segs, p), nil
}

func (w walker) slot(n *graph.Node, p placement.Placement) (built, error) {
	d, ok := n.Data.(graph.SlotData)
	if !ok {
		return built{}, fmt.Errorf("slot node %s has unexpected data type %T", n.ID.Short(), n.Data)
	}
	segs, err := joint.Slots(d.Slot(), d.Layout, d.Orientation, d.At)
	if err != nil {
		return built{}, fmt.Errorf("%s: %w", w.label(n), err)
	}
	return w.placed(segs, p), nil
}

func (w walker) placed(segs []*kernel.Solid, p placement.Placement) built {
	if p.IsIdentity() {
		return built{pieces: segs}
	}
	out := make([]*kernel.Solid, len(segs))
	for i, s := range segs {
		out[i] = p.Apply(s)
	}
	return built{pieces: out}
}

// boolean builds the children concurrently, then folds them in child order.
// A union folds every piece of every child. A difference merges its first
// child into the base and cuts with each piece of the rest.
func (w walker) boolean(n *graph.Node, p placement.Placement) (built, error) {
	kids := w.g.Children(n)
	if len(kids) == 0 {
		return built{}, fmt.Errorf("%s: %w: %s of nothing", w.label(n), kernel.ErrInvalidParameter, n.Kind)
	}
	results := make([]built, len(kids))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range kids {
		eg.Go(func() error {
			b, err := w.node(k, p)
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return built{}, err
	}

	var acc built
	for _, r := range results {
		acc.steps = append(acc.steps, r.steps...)
	}
	label := w.label(n)

	if n.Kind == graph.NodeUnion {
		var pieces []*kernel.Solid
		for _, r := range results {
			pieces = append(pieces, r.pieces...)
		}
		res, err := w.a.c.Union(label, pieces...)
		if err != nil {
			return built{}, err
		}
		return acc.merge(res), nil
	}

	base := results[0].pieces[0]
	if len(results[0].pieces) > 1 {
		res, err := w.a.c.Union(label+".base", results[0].pieces...)
		if err != nil {
			return built{}, err
		}
		acc = acc.merge(res)
		base = res.Solid
	}
	var cutters []*kernel.Solid
	for _, r := range results[1:] {
		cutters = append(cutters, r.pieces...)
	}
	res, err := w.a.c.Subtract(label, base, cutters...)
	if err != nil {
		return built{}, err
	}
	return acc.merge(res), nil
}
