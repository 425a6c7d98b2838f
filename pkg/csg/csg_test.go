package csg

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/trayforge/pkg/event"
	"github.com/chazu/trayforge/pkg/kernel"
	"github.com/chazu/trayforge/pkg/kernel/bsp"
	"github.com/chazu/trayforge/pkg/primitive"
)

func box(t *testing.T, w, d, h float64, at r3.Vec) *kernel.Solid {
	t.Helper()
	s, err := primitive.Build(primitive.Box{Width: w, Depth: d, Height: h})
	if err != nil {
		t.Fatalf("Build(box) error = %v", err)
	}
	return s.Translate(at)
}

// stubKernel fails, panics or lies on demand and delegates otherwise.
type stubKernel struct {
	inner  kernel.Kernel
	failOn map[int]string // call number -> "error" | "panic" | "shrink" | "open"
	calls  int
}

func (k *stubKernel) Name() string { return "stub" }

func (k *stubKernel) do(op func(a, b *kernel.Solid) (*kernel.Solid, error), a, b *kernel.Solid) (*kernel.Solid, error) {
	k.calls++
	switch k.failOn[k.calls] {
	case "error":
		return nil, errors.New("kernel refused")
	case "panic":
		panic("kernel blew up")
	case "shrink":
		return a.Transform(func(v r3.Vec) r3.Vec { return r3.Scale(0.5, v) }), nil
	case "open":
		out, _ := op(a, b)
		out.Faces = out.Faces[1:]
		return out, nil
	}
	return op(a, b)
}

func (k *stubKernel) Union(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.do(k.inner.Union, a, b)
}

func (k *stubKernel) Difference(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.do(k.inner.Difference, a, b)
}

func (k *stubKernel) Intersection(a, b *kernel.Solid) (*kernel.Solid, error) {
	return k.do(k.inner.Intersection, a, b)
}

func TestComposeProperties(t *testing.T) {
	c := New(bsp.New())
	tests := []struct {
		name  string
		seed  *kernel.Solid
		steps []Step
		want  float64
	}{
		{
			name:  "disjoint union",
			seed:  box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{Add("b", box(t, 2, 3, 4, r3.Vec{X: 20}))},
			want:  1000 + 24,
		},
		{
			name:  "contained union",
			seed:  box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{Add("inner", box(t, 5, 5, 5, r3.Vec{X: 2, Y: 2, Z: 2}))},
			want:  1000,
		},
		{
			name:  "self union",
			seed:  box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{Add("self", box(t, 10, 10, 10, r3.Vec{}))},
			want:  1000,
		},
		{
			name:  "half difference",
			seed:  box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{Cut("top", box(t, 12, 12, 6, r3.Vec{X: -1, Y: -1, Z: 5}))},
			want:  500,
		},
		{
			name:  "flush half difference",
			seed:  box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{Cut("bottom", box(t, 10, 10, 5, r3.Vec{}))},
			want:  500,
		},
		{
			name: "mixed pipeline",
			seed: box(t, 10, 10, 10, r3.Vec{}),
			steps: []Step{
				Add("ledge", box(t, 5, 10, 2, r3.Vec{X: 9})),
				Cut("slot", box(t, 2, 12, 12, r3.Vec{X: 4, Y: -1, Z: -1})),
			},
			want: 1000 + 80 - 200,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Compose(tt.seed, tt.steps)
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if res.Degraded || res.Fallbacks != 0 {
				t.Fatalf("Compose() degraded=%v fallbacks=%d steps=%+v", res.Degraded, res.Fallbacks, res.Steps)
			}
			if got := res.Solid.Volume(); math.Abs(got-tt.want) > 1e-6*tt.want {
				t.Errorf("Volume() = %v, want %v", got, tt.want)
			}
			if !res.Solid.IsClosed() {
				t.Errorf("result not closed: %+v", res.Solid.Census())
			}
		})
	}
}

func TestUnionFallbackConcatenates(t *testing.T) {
	for _, mode := range []string{"error", "panic", "shrink", "open"} {
		t.Run(mode, func(t *testing.T) {
			var rec event.Recorder
			k := &stubKernel{inner: bsp.New(), failOn: map[int]string{1: mode}}
			c := New(k, WithSink(&rec))

			a := box(t, 10, 10, 10, r3.Vec{})
			b := box(t, 10, 10, 10, r3.Vec{X: 5})
			res, err := c.Compose(a, []Step{Add("b", b)})
			if err != nil {
				t.Fatalf("Compose() error = %v", err)
			}
			if !res.Degraded || !res.Solid.Degraded {
				t.Error("fallback result not marked degraded")
			}
			if res.Fallbacks != 1 {
				t.Errorf("Fallbacks = %d, want 1", res.Fallbacks)
			}
			if got, want := len(res.Solid.Faces), len(a.Faces)+len(b.Faces); got != want {
				t.Errorf("fallback face count = %d, want %d (concatenation)", got, want)
			}
			if res.Steps[0].Succeeded || !errors.Is(res.Steps[0].Err, kernel.ErrBooleanDegenerate) {
				t.Errorf("step outcome = %+v, want failed with ErrBooleanDegenerate", res.Steps[0])
			}
			if rec.Count(event.FallbackTriggered) != 1 {
				t.Errorf("FallbackTriggered events = %d, want 1", rec.Count(event.FallbackTriggered))
			}
		})
	}
}

func TestDifferenceFallbackSkipsCut(t *testing.T) {
	k := &stubKernel{inner: bsp.New(), failOn: map[int]string{1: "error"}}
	c := New(k)
	a := box(t, 10, 10, 10, r3.Vec{})
	res, err := c.Compose(a, []Step{Cut("hole", box(t, 2, 2, 12, r3.Vec{X: 4, Y: 4, Z: -1}))})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !res.Degraded {
		t.Error("skipped cut not marked degraded")
	}
	if got := res.Solid.Volume(); math.Abs(got-1000) > 1e-9 {
		t.Errorf("Volume() = %v, want 1000 (cut skipped)", got)
	}
}

func TestDegradedIsMonotone(t *testing.T) {
	k := &stubKernel{inner: bsp.New(), failOn: map[int]string{1: "error"}}
	c := New(k)
	res, err := c.Compose(box(t, 10, 10, 10, r3.Vec{}), []Step{
		Add("first", box(t, 1, 1, 1, r3.Vec{X: 20})),
		Add("second", box(t, 1, 1, 1, r3.Vec{X: 30})),
		Cut("third", box(t, 1, 1, 12, r3.Vec{X: 2, Y: 2, Z: -1})),
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if res.Fallbacks != 1 {
		t.Fatalf("Fallbacks = %d, want 1", res.Fallbacks)
	}
	if !res.Steps[1].Succeeded || !res.Steps[2].Succeeded {
		t.Errorf("later steps should succeed: %+v", res.Steps)
	}
	if !res.Degraded || !res.Solid.Degraded {
		t.Error("later successful steps cleared the degraded flag")
	}
}

func TestComposeDoesNotMutateInputs(t *testing.T) {
	c := New(bsp.New())
	seed := box(t, 10, 10, 10, r3.Vec{})
	op := box(t, 5, 5, 5, r3.Vec{X: 8})
	seedBefore, opBefore := seed.Clone(), op.Clone()
	if _, err := c.Compose(seed, []Step{Add("op", op)}); err != nil {
		t.Fatal(err)
	}
	if len(seed.Faces) != len(seedBefore.Faces) || seed.Vertices[7] != seedBefore.Vertices[7] {
		t.Error("seed mutated")
	}
	if len(op.Faces) != len(opBefore.Faces) || op.Degraded != opBefore.Degraded {
		t.Error("operand mutated")
	}

	res, err := c.Compose(seed, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Solid == seed {
		t.Error("empty pipeline returned the seed itself instead of a copy")
	}
}

func TestComposeRejectsInvalidInput(t *testing.T) {
	c := New(bsp.New())
	good := box(t, 1, 1, 1, r3.Vec{})
	bad := good.Clone()
	bad.Vertices[2].Z = math.NaN()

	if _, err := c.Compose(nil, nil); !errors.Is(err, kernel.ErrStructurallyInvalid) {
		t.Errorf("nil seed error = %v, want ErrStructurallyInvalid", err)
	}
	if _, err := c.Compose(good, []Step{Add("bad", bad)}); !errors.Is(err, kernel.ErrStructurallyInvalid) {
		t.Errorf("bad operand error = %v, want ErrStructurallyInvalid", err)
	}
}

func TestEvents(t *testing.T) {
	var rec event.Recorder
	c := New(bsp.New(), WithSink(&rec))
	if _, err := c.Union("pair", box(t, 1, 1, 1, r3.Vec{}), box(t, 1, 1, 1, r3.Vec{X: 3})); err != nil {
		t.Fatal(err)
	}
	if rec.Count(event.StepAttempted) != 1 || rec.Count(event.StepSucceeded) != 1 {
		t.Errorf("events = %+v", rec.Events())
	}
}

func TestBranches(t *testing.T) {
	var n atomic.Int32
	fns := make([]func() (*kernel.Solid, error), 8)
	for i := range fns {
		fns[i] = func() (*kernel.Solid, error) {
			n.Add(1)
			s := primitive.MustBuild(primitive.Box{Width: 1, Depth: 1, Height: 1})
			return s.Translate(r3.Vec{X: float64(3 * i)}), nil
		}
	}
	out, err := Branches(fns...)
	if err != nil {
		t.Fatalf("Branches() error = %v", err)
	}
	if n.Load() != 8 {
		t.Errorf("ran %d branches, want 8", n.Load())
	}
	for i, s := range out {
		if got := s.Bounds().Min.X; got != float64(3*i) {
			t.Errorf("branch %d out of order: min x = %v", i, got)
		}
	}

	_, err = Branches(
		func() (*kernel.Solid, error) { return nil, kernel.ErrInvalidParameter },
		func() (*kernel.Solid, error) { return primitive.MustBuild(primitive.Box{Width: 1, Depth: 1, Height: 1}), nil },
	)
	if !errors.Is(err, kernel.ErrInvalidParameter) {
		t.Errorf("Branches() error = %v, want ErrInvalidParameter", err)
	}
}

func TestParseOp(t *testing.T) {
	for _, s := range []string{"union", "difference"} {
		op, err := ParseOp(s)
		if err != nil || op.String() != s {
			t.Errorf("ParseOp(%q) = %v, %v", s, op, err)
		}
	}
	if _, err := ParseOp("xor"); !errors.Is(err, kernel.ErrInvalidParameter) {
		t.Errorf("ParseOp(xor) error = %v", err)
	}
}
