package assemble_test

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/assemble"
	"github.com/chazu/trayforge/pkg/csg"
	"github.com/chazu/trayforge/pkg/engine"
	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/graph"
	"github.com/chazu/trayforge/pkg/joint"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/kernel/bsp"
	"github.com/chazu/trayforge/pkg/parts"
	"github.com/chazu/trayforge/pkg/placement"
	"github.com/chazu/trayforge/pkg/primitive"
)

var testRail = joint.RailProfile{NeckWidth: 4, NeckHeight: 4, HeadWidth: 10, ChamferHeight: 3, HeadFlat: 0.5}

// newAssembler returns an assembler over the BSP kernel recording events.
func newAssembler(k kernel.Kernel) (*assemble.Assembler, *event.Recorder) {
	rec := &event.Recorder{}
	return assemble.New(csg.New(k, csg.WithSink(rec)), nil), rec
}

// noCuts refuses every difference and delegates unions.
type noCuts struct{ kernel.Kernel }

func (noCuts) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return nil, errors.New("difference unavailable")
}

func makeBox(path string, w, d, h float64) *graph.Node {
	return &graph.Node{
		ID:   graph.NewNodeID(path),
		Kind: graph.NodePrimitive,
		Data: graph.PrimitiveData{Descriptor: primitive.Box{Width: w, Depth: d, Height: h}},
	}
}

func makePlace(path string, p placement.Placement, child graph.NodeID) *graph.Node {
	return &graph.Node{
		ID:       graph.NewNodeID(path),
		Kind:     graph.NodeTransform,
		Children: []graph.NodeID{child},
		Data:     graph.TransformData{Placement: p},
	}
}

func makeBoolean(path string, kind graph.NodeKind, children ...graph.NodeID) *graph.Node {
	return &graph.Node{ID: graph.NewNodeID(path), Kind: kind, Children: children, Data: graph.BooleanData{}}
}

// addPart registers nodes and a part root whose body is the last node.
func addPart(g *graph.DesignGraph, name string, nodes ...*graph.Node) {
	for _, n := range nodes {
		g.AddNode(n)
	}
	p := &graph.Node{
		ID:       graph.NewNodeID("defpart/" + name),
		Kind:     graph.NodePart,
		Name:     name,
		Children: []graph.NodeID{nodes[len(nodes)-1].ID},
		Data:     graph.PartData{},
	}
	g.AddNode(p)
	g.AddRoot(p.ID)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6*math.Max(1, math.Abs(b)) }

func TestSingleBox(t *testing.T) {
	a, rec := newAssembler(bsp.New())
	g := graph.New()
	addPart(g, "block", makeBox("box/1", 10, 20, 30))

	outs, err := a.Assemble(g)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(outs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outs))
	}
	o := outs[0]
	if o.Name != "block" {
		t.Errorf("expected name %q, got %q", "block", o.Name)
	}
	if !o.Report.Closed || o.Report.Degraded {
		t.Errorf("report = %s", o.Report)
	}
	if !near(o.Solid.Volume(), 6000) {
		t.Errorf("volume = %v, want 6000", o.Solid.Volume())
	}
	if rec.Count(event.PrimitiveBuilt) != 1 || rec.Count(event.Validated) != 1 {
		t.Errorf("events = %v", rec.Events())
	}
}

func TestTwoPartsInRootOrder(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()
	addPart(g, "second", makeBox("box/1", 1, 1, 1))
	addPart(g, "first", makeBox("box/2", 2, 2, 2))

	outs, err := a.Assemble(g)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(outs) != 2 || outs[0].Name != "second" || outs[1].Name != "first" {
		t.Fatalf("outputs out of root order: %+v", outs)
	}
}

func TestNestedTransforms(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()

	box := makeBox("box/1", 2, 4, 6)
	inner := makePlace("transform/1", placement.RotateDeg(placement.Z, 90), box.ID)
	outer := makePlace("transform/2", placement.At(100, 0, 0), inner.ID)
	addPart(g, "p", box, inner, outer)

	out, err := a.Part(g, "p")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	// The rotation applies first: x in [-4, 0], then the shift.
	b := out.Solid.Bounds()
	want := r3.Box{Min: r3.Vec{X: 96, Y: 0, Z: 0}, Max: r3.Vec{X: 100, Y: 2, Z: 6}}
	if r3.Norm(r3.Sub(b.Min, want.Min)) > 1e-9 || r3.Norm(r3.Sub(b.Max, want.Max)) > 1e-9 {
		t.Errorf("bounds = %v, want %v", b, want)
	}
}

func TestDifferenceShell(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()

	outer := makeBox("box/outer", 40, 100, 30)
	inner := makeBox("box/inner", 28, 94, 30)
	placed := makePlace("transform/inner", placement.At(6, 3, 3), inner.ID)
	shell := makeBoolean("difference/shell", graph.NodeDifference, outer.ID, placed.ID)
	addPart(g, "tray", outer, inner, placed, shell)

	out, err := a.Part(g, "tray")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	if want := 40.0*100*30 - 28*94*27; !near(out.Solid.Volume(), want) {
		t.Errorf("volume = %v, want %v", out.Solid.Volume(), want)
	}
	if !out.Report.Closed {
		t.Errorf("report = %s", out.Report)
	}
	if len(out.Result.Steps) != 1 || !out.Result.Steps[0].Succeeded {
		t.Errorf("steps = %+v", out.Result.Steps)
	}
}

func TestUnionOfDisjointBoxes(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()

	b1 := makeBox("box/1", 10, 10, 10)
	b2 := makeBox("box/2", 5, 5, 5)
	p2 := makePlace("transform/1", placement.At(20, 0, 0), b2.ID)
	u := makeBoolean("union/1", graph.NodeUnion, b1.ID, p2.ID)
	addPart(g, "pair", b1, b2, p2, u)

	out, err := a.Part(g, "pair")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	if !near(out.Solid.Volume(), 1125) {
		t.Errorf("volume = %v, want 1125", out.Solid.Volume())
	}
}

func TestSegmentedRailBecomesOneSolid(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()
	rail := &graph.Node{
		ID:   graph.NewNodeID("rail/1"),
		Kind: graph.NodeRail,
		Data: graph.RailData{Profile: testRail, Layout: joint.Segmented(0, 20, 3, 10)},
	}
	addPart(g, "clip", rail)

	out, err := a.Part(g, "clip")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	if want := 3 * 20 * testRail.Area(); !near(out.Solid.Volume(), want) {
		t.Errorf("volume = %v, want %v", out.Solid.Volume(), want)
	}
	lo, hi := joint.Segmented(0, 20, 3, 10).Extent()
	b := out.Solid.Bounds()
	if !near(b.Min.Y, lo) || !near(b.Max.Y, hi) {
		t.Errorf("y extent = [%v, %v], want [%v, %v]", b.Min.Y, b.Max.Y, lo, hi)
	}
}

func TestSlotCutsHost(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()

	host := makeBox("box/host", 30, 50, 20)
	slot := &graph.Node{
		ID:   graph.NewNodeID("slot/1"),
		Kind: graph.NodeSlot,
		Data: graph.SlotData{
			Rail:      testRail,
			Clearance: 0.5,
			Layout:    joint.Continuous(-1, 52),
			At:        r3.Vec{X: 15},
		},
	}
	cut := makeBoolean("difference/1", graph.NodeDifference, host.ID, slot.ID)
	addPart(g, "frame", host, slot, cut)

	out, err := a.Part(g, "frame")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	v := out.Solid.Volume()
	if v <= 0 || v >= 30*50*20 {
		t.Errorf("volume = %v, want a proper cut of %v", v, 30*50*20)
	}
	if out.Result.Degraded {
		t.Errorf("unexpected fallback: %+v", out.Result.Steps)
	}
}

func TestFailedCutDegrades(t *testing.T) {
	a, rec := newAssembler(noCuts{bsp.New()})
	g := graph.New()

	outer := makeBox("box/outer", 10, 10, 10)
	inner := makeBox("box/inner", 2, 2, 20)
	placed := makePlace("transform/1", placement.At(4, 4, -5), inner.ID)
	cut := makeBoolean("difference/1", graph.NodeDifference, outer.ID, placed.ID)
	addPart(g, "holed", outer, inner, placed, cut)

	out, err := a.Part(g, "holed")
	if err != nil {
		t.Fatalf("Part failed: %v", err)
	}
	if !out.Result.Degraded || out.Result.Fallbacks != 1 || !out.Report.Degraded {
		t.Errorf("result = %+v, report = %s", out.Result, out.Report)
	}
	// The skipped cut leaves the base intact.
	if !near(out.Solid.Volume(), 1000) {
		t.Errorf("volume = %v, want 1000", out.Solid.Volume())
	}
	if rec.Count(event.FallbackTriggered) != 1 {
		t.Errorf("expected one fallback event, got %d", rec.Count(event.FallbackTriggered))
	}
}

func TestUnknownPart(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()
	addPart(g, "block", makeBox("box/1", 1, 1, 1))

	if _, err := a.Part(g, "missing"); !errors.Is(err, kernel.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestInvalidPrimitiveFails(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	g := graph.New()
	addPart(g, "bad", makeBox("box/1", -1, 1, 1))

	if _, err := a.Assemble(g); !errors.Is(err, kernel.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestEmptyGraph(t *testing.T) {
	a, _ := newAssembler(bsp.New())
	outs, err := a.Assemble(graph.New())
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if len(outs) != 0 {
		t.Fatalf("expected 0 outputs, got %d", len(outs))
	}
}

func TestScriptEndToEnd(t *testing.T) {
	g, evalErrs, err := engine.NewEngine(parts.DefaultConfig()).Evaluate(`
(defpart "shell"
  (difference
    (box 40 100 30)
    (place (box 28 94 30) :at (vec3 6 3 3))))
`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("evaluate: %v %v", err, evalErrs)
	}

	a, _ := newAssembler(bsp.New())
	first, err := a.Assemble(g)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	second, err := a.Assemble(g)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !near(first[0].Solid.Volume(), 40.0*100*30-28*94*27) {
		t.Errorf("volume = %v", first[0].Solid.Volume())
	}
	if first[0].Solid.Volume() != second[0].Solid.Volume() {
		t.Error("assembly is not deterministic")
	}
}
